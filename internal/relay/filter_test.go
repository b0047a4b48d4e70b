package relay

import (
	"testing"
	"time"
)

func TestFilter_AdmitsEachMessageOnce(t *testing.T) {
	filter := NewFilter(60 * time.Second)

	msg := Message{ID: "m1", Kind: KindNewReservation, Timestamp: time.Now()}

	if !filter.Admit(msg) {
		t.Fatal("expected first delivery to be admitted")
	}
	if filter.Admit(msg) {
		t.Error("expected redelivery of the same message to be rejected")
	}
	if filter.Size() != 1 {
		t.Errorf("expected 1 admitted key, got %d", filter.Size())
	}
}

func TestFilter_RacingPathsAdmitOnce(t *testing.T) {
	filter := NewFilter(60 * time.Second)

	msg := Message{ID: "m1", Kind: KindNewReservation, Timestamp: time.Now()}

	// The same message arriving via bus, signal and poll counts once.
	admitted := 0
	for i := 0; i < 3; i++ {
		if filter.Admit(msg) {
			admitted++
		}
	}

	if admitted != 1 {
		t.Errorf("expected exactly 1 admission across paths, got %d", admitted)
	}
}

func TestFilter_ExpiredNotRecordedAsSeen(t *testing.T) {
	filter := NewFilter(60 * time.Second)

	msg := Message{ID: "m1", Timestamp: time.Now().Add(-2 * time.Minute)}

	if filter.Admit(msg) {
		t.Fatal("expected stale message to be rejected")
	}
	if filter.Size() != 0 {
		t.Error("expected expired message to not be recorded as seen")
	}
}

func TestFilter_SeenCheckedBeforeExpiry(t *testing.T) {
	filter := NewFilter(60 * time.Second)

	msg := Message{ID: "m1", Timestamp: time.Now()}
	if !filter.Admit(msg) {
		t.Fatal("expected fresh message to be admitted")
	}

	// Age the message past the window: still rejected as seen, and the
	// admitted set keeps the key.
	msg.Timestamp = time.Now().Add(-2 * time.Minute)
	if filter.Admit(msg) {
		t.Error("expected seen message to be rejected regardless of age")
	}
	if filter.Size() != 1 {
		t.Errorf("expected admitted set to keep the key, got size %d", filter.Size())
	}
}

func TestFilter_DistinctMessagesAdmitted(t *testing.T) {
	filter := NewFilter(60 * time.Second)

	now := time.Now()
	if !filter.Admit(Message{ID: "m1", Timestamp: now}) {
		t.Error("expected m1 to be admitted")
	}
	if !filter.Admit(Message{ID: "m2", Timestamp: now}) {
		t.Error("expected m2 to be admitted")
	}
}

func TestMessageKey_FallbackWithoutID(t *testing.T) {
	ts := time.UnixMilli(1700000000000)
	msg := Message{PatientName: "홍길동", Timestamp: ts}

	want := "홍길동_1700000000000"
	if got := msg.Key(); got != want {
		t.Errorf("expected fallback key %q, got %q", want, got)
	}

	msg.ID = "m1"
	if got := msg.Key(); got != "m1" {
		t.Errorf("expected ID key, got %q", got)
	}
}
