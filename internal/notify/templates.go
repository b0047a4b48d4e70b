package notify

import (
	"fmt"

	"github.com/mirae-imaging/backoffice/internal/relay"
)

// renderTitle and renderMessage build the display strings shown in the
// admin console. They are deterministic over the payload: the same event
// renders identically on every instance.

func renderTitle(kind relay.Kind) string {
	switch kind {
	case relay.KindNewReservation:
		return "새 예약 신청"
	case relay.KindCancellation:
		return "예약 취소"
	case relay.KindChange:
		return "예약 변경"
	}
	return "알림"
}

func renderMessage(kind relay.Kind, p Payload) string {
	switch kind {
	case relay.KindNewReservation:
		return fmt.Sprintf("%s님이 %s 검사를 %s %s에 신청했습니다.",
			p.PatientName, p.ExamType, p.RequestedDate, p.RequestedTime)
	case relay.KindCancellation:
		return fmt.Sprintf("%s님이 %s %s %s 예약을 취소했습니다.",
			p.PatientName, p.RequestedDate, p.RequestedTime, p.ExamType)
	case relay.KindChange:
		return fmt.Sprintf("%s님의 %s 예약이 변경되었습니다 (%s %s).",
			p.PatientName, p.ExamType, p.RequestedDate, p.RequestedTime)
	}
	return p.PatientName
}
