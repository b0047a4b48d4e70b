package messenger

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/mirae-imaging/backoffice/internal/logger"
	"github.com/mirae-imaging/backoffice/internal/reservation"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *logger.Logger {
	return logger.New(logger.Config{Level: slog.LevelError})
}

type sentEmail struct {
	to, subject, body string
}

type fakeEmailSender struct {
	mu   sync.Mutex
	sent []sentEmail
}

func (f *fakeEmailSender) SendEmail(ctx context.Context, to, subject, body string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, sentEmail{to: to, subject: subject, body: body})
	return nil
}

func (f *fakeEmailSender) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.sent)
}

type fakeSMSSender struct {
	mu   sync.Mutex
	sent []string // bodies
	to   []string
}

func (f *fakeSMSSender) SendSMS(ctx context.Context, to, body string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, body)
	f.to = append(f.to, to)
	return nil
}

func (f *fakeSMSSender) bodies() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.sent))
	copy(out, f.sent)
	return out
}

func testReservation() reservation.Reservation {
	return reservation.Reservation{
		ID:            "r1",
		PatientName:   "홍길동",
		PatientPhone:  "010-1111-2222",
		ExamType:      "MRI",
		RequestedDate: "2026-09-01",
		RequestedTime: "10:00",
	}
}

func testOptions() Options {
	return Options{
		ClinicName:  "미래영상의학과의원",
		ClinicPhone: "02-1234-5678",
		StaffEmails: []string{"admin@mirae-imaging.example"},
		WorkerPool:  2,
		BufferSize:  16,
		SendTimeout: time.Second,
	}
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("condition not met in time")
}

func TestDispatcher_ReservationReceived(t *testing.T) {
	email := &fakeEmailSender{}
	sms := &fakeSMSSender{}
	d := NewDispatcher(email, sms, testOptions(), testLogger())
	defer d.Shutdown()

	d.ReservationReceived(testReservation())

	waitFor(t, func() bool { return email.count() == 1 && len(sms.bodies()) == 1 })

	body := sms.bodies()[0]
	assert.Contains(t, body, "홍길동")
	assert.Contains(t, body, "접수되었습니다")
	assert.Contains(t, body, "미래영상의학과의원")

	email.mu.Lock()
	defer email.mu.Unlock()
	require.Len(t, email.sent, 1)
	assert.Equal(t, "admin@mirae-imaging.example", email.sent[0].to)
	assert.Contains(t, email.sent[0].subject, "홍길동")
	assert.Contains(t, email.sent[0].body, "010-1111-2222")
}

func TestDispatcher_ReservationConfirmed(t *testing.T) {
	sms := &fakeSMSSender{}
	d := NewDispatcher(nil, sms, testOptions(), testLogger())
	defer d.Shutdown()

	d.ReservationConfirmed(testReservation())

	waitFor(t, func() bool { return len(sms.bodies()) == 1 })

	body := sms.bodies()[0]
	assert.Contains(t, body, "확정되었습니다")
	assert.Contains(t, body, "2026-09-01")
}

func TestDispatcher_MissingProviderDropsQuietly(t *testing.T) {
	// No providers at all: nothing to assert except that enqueueing and
	// shutdown still work.
	d := NewDispatcher(nil, nil, testOptions(), testLogger())

	d.ReservationReceived(testReservation())
	d.ReservationConfirmed(testReservation())

	d.Shutdown()
}

func TestDispatcher_ShutdownDrainsQueue(t *testing.T) {
	sms := &fakeSMSSender{}
	opts := testOptions()
	opts.StaffEmails = nil
	opts.WorkerPool = 1
	d := NewDispatcher(nil, sms, opts, testLogger())

	for i := 0; i < 5; i++ {
		d.ReservationConfirmed(testReservation())
	}

	d.Shutdown()

	assert.Len(t, sms.bodies(), 5, "queued messages should be drained on shutdown")
}

func TestDispatcher_RejectsAfterShutdown(t *testing.T) {
	sms := &fakeSMSSender{}
	opts := testOptions()
	opts.StaffEmails = nil
	d := NewDispatcher(nil, sms, opts, testLogger())
	d.Shutdown()

	d.ReservationConfirmed(testReservation())

	time.Sleep(50 * time.Millisecond)
	assert.Empty(t, sms.bodies())
}

func TestTemplates_KoreanContent(t *testing.T) {
	r := testReservation()

	received := receivedSMS("미래영상의학과의원", "02-1234-5678", r)
	assert.True(t, strings.HasPrefix(received, "[미래영상의학과의원]"))
	assert.Contains(t, received, "MRI")

	confirmed := confirmedSMS("미래영상의학과의원", "02-1234-5678", r)
	assert.Contains(t, confirmed, "10:00")
	assert.Contains(t, confirmed, "02-1234-5678")
}
