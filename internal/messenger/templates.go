package messenger

import (
	"fmt"

	"github.com/mirae-imaging/backoffice/internal/reservation"
)

// receivedSMS is the text sent to the patient when a booking request
// arrives. Confirmation follows separately once staff review it.
func receivedSMS(clinicName, clinicPhone string, r reservation.Reservation) string {
	return fmt.Sprintf(
		"[%s] %s님, %s 예약 신청이 접수되었습니다. 확정 시 다시 안내드립니다. 문의: %s",
		clinicName, r.PatientName, r.ExamType, clinicPhone)
}

// confirmedSMS is the text sent once staff confirm the booking.
func confirmedSMS(clinicName, clinicPhone string, r reservation.Reservation) string {
	return fmt.Sprintf(
		"[%s] %s님, %s %s %s 예약이 확정되었습니다. 변경 문의: %s",
		clinicName, r.PatientName, r.RequestedDate, r.RequestedTime, r.ExamType, clinicPhone)
}

// receivedEmailSubject and receivedEmailBody go to the clinic's staff
// mailbox so requests are visible even with every console closed.
func receivedEmailSubject(r reservation.Reservation) string {
	return fmt.Sprintf("새 예약 신청: %s (%s)", r.PatientName, r.ExamType)
}

func receivedEmailBody(r reservation.Reservation) string {
	return fmt.Sprintf(
		"새 예약 신청이 접수되었습니다.\n\n환자명: %s\n연락처: %s\n검사 종류: %s\n희망 일시: %s %s\n요청 사항: %s\n",
		r.PatientName, r.PatientPhone, r.ExamType, r.RequestedDate, r.RequestedTime, r.Notes)
}
