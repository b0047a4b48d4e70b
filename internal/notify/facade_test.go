package notify

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/mirae-imaging/backoffice/internal/relay"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeDesktop records Show calls and plays back a scripted permission
// sequence.
type fakeDesktop struct {
	mu         sync.Mutex
	permission Permission
	afterAsk   Permission // state after RequestPermission
	showErr    error
	shown      []string
	requests   int
}

func (f *fakeDesktop) Permission() Permission {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.permission
}

func (f *fakeDesktop) RequestPermission() (Permission, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests++
	f.permission = f.afterAsk
	return f.permission, nil
}

func (f *fakeDesktop) Show(title, message string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.showErr != nil {
		return f.showErr
	}
	f.shown = append(f.shown, title)
	return nil
}

func (f *fakeDesktop) shownCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.shown)
}

func newTestNotifier(t *testing.T, desktop DesktopNotifier) (*Notifier, *Store, *relay.Transport) {
	t.Helper()

	store := NewMemoryStore(50, testLogger())
	transport := relay.NewTransport(relay.NewMemoryBus(), relay.NewMemoryBuffer(10), testLogger(), relay.Options{
		FreshnessWindow: 60 * time.Second,
		PollInterval:    50 * time.Millisecond,
		CleanupDelay:    time.Hour,
	})
	t.Cleanup(transport.Close)

	return NewNotifier(store, transport, desktop, testLogger()), store, transport
}

func TestNotifier_RecordsAndToasts(t *testing.T) {
	desktop := &fakeDesktop{permission: PermissionGranted}
	notifier, store, _ := newTestNotifier(t, desktop)

	notifier.NotifyNewReservation(context.Background(), Payload{
		PatientName: "홍길동", ExamType: "MRI",
		RequestedDate: "2026-09-01", RequestedTime: "10:00",
	})

	records := store.List()
	require.Len(t, records, 1)
	assert.Equal(t, relay.KindNewReservation, records[0].Kind)
	assert.Equal(t, "새 예약 신청", records[0].Title)
	assert.Equal(t, 1, desktop.shownCount())
}

func TestNotifier_DesktopFailureDoesNotBlockRecording(t *testing.T) {
	desktop := &fakeDesktop{permission: PermissionGranted, showErr: errors.New("console gone")}
	notifier, store, _ := newTestNotifier(t, desktop)

	notifier.NotifyCancellation(context.Background(), Payload{PatientName: "홍길동"})

	assert.Len(t, store.List(), 1, "inbox record must exist despite toast failure")
}

func TestNotifier_PermissionDeniedStaysSilent(t *testing.T) {
	desktop := &fakeDesktop{permission: PermissionDenied}
	notifier, store, _ := newTestNotifier(t, desktop)

	notifier.NotifyNewReservation(context.Background(), Payload{PatientName: "홍길동"})

	assert.Equal(t, 0, desktop.shownCount())
	assert.Equal(t, 0, desktop.requests, "denied permission must not be re-requested")
	assert.Len(t, store.List(), 1)
}

func TestNotifier_DefaultPermissionAsksThenShowsOnGrant(t *testing.T) {
	desktop := &fakeDesktop{permission: PermissionDefault, afterAsk: PermissionGranted}
	notifier, _, _ := newTestNotifier(t, desktop)

	notifier.NotifyNewReservation(context.Background(), Payload{PatientName: "홍길동"})

	assert.Equal(t, 1, desktop.requests)
	assert.Equal(t, 1, desktop.shownCount())
}

func TestNotifier_DefaultPermissionAsksAndStaysSilentOnDeny(t *testing.T) {
	desktop := &fakeDesktop{permission: PermissionDefault, afterAsk: PermissionDenied}
	notifier, _, _ := newTestNotifier(t, desktop)

	notifier.NotifyNewReservation(context.Background(), Payload{PatientName: "홍길동"})

	assert.Equal(t, 1, desktop.requests)
	assert.Equal(t, 0, desktop.shownCount())
}

func TestNotifier_NilDesktopIsFine(t *testing.T) {
	notifier, store, _ := newTestNotifier(t, nil)

	notifier.NotifyChange(context.Background(), Payload{PatientName: "홍길동"})

	assert.Len(t, store.List(), 1)
}

func TestNotifier_RelayedEventLandsInOtherInbox(t *testing.T) {
	bus := relay.NewMemoryBus()
	buffer := relay.NewMemoryBuffer(10)
	opts := relay.Options{
		FreshnessWindow: 60 * time.Second,
		PollInterval:    50 * time.Millisecond,
		CleanupDelay:    time.Hour,
	}

	producerTransport := relay.NewTransport(bus, buffer, testLogger(), opts)
	defer producerTransport.Close()
	consumerTransport := relay.NewTransport(bus, buffer, testLogger(), opts)
	defer consumerTransport.Close()

	producerStore := NewMemoryStore(50, testLogger())
	consumerStore := NewMemoryStore(50, testLogger())

	producer := NewNotifier(producerStore, producerTransport, nil, testLogger())
	consumer := NewNotifier(consumerStore, consumerTransport, nil, testLogger())

	require.NoError(t, producer.Start())
	defer producer.Stop()
	require.NoError(t, consumer.Start())
	defer consumer.Stop()

	producer.NotifyNewReservation(context.Background(), Payload{
		PatientName: "홍길동", ExamType: "CT",
		RequestedDate: "2026-09-01", RequestedTime: "14:00",
	})

	time.Sleep(200 * time.Millisecond)

	// Producer records locally once; consumer receives the relayed copy
	// once, despite three racing delivery paths.
	assert.Len(t, producerStore.List(), 1, "producer inbox must not receive its own relay echo")
	consumerRecords := consumerStore.List()
	require.Len(t, consumerRecords, 1)
	assert.Equal(t, relay.KindNewReservation, consumerRecords[0].Kind)
	assert.Equal(t, "홍길동", consumerRecords[0].Payload.PatientName)
}

func TestNotifier_StopDetachesFromRelay(t *testing.T) {
	bus := relay.NewMemoryBus()
	buffer := relay.NewMemoryBuffer(10)
	opts := relay.Options{
		FreshnessWindow: 60 * time.Second,
		PollInterval:    50 * time.Millisecond,
		CleanupDelay:    time.Hour,
	}

	producerTransport := relay.NewTransport(bus, buffer, testLogger(), opts)
	defer producerTransport.Close()
	consumerTransport := relay.NewTransport(bus, buffer, testLogger(), opts)
	defer consumerTransport.Close()

	producer := NewNotifier(NewMemoryStore(50, testLogger()), producerTransport, nil, testLogger())
	consumerStore := NewMemoryStore(50, testLogger())
	consumer := NewNotifier(consumerStore, consumerTransport, nil, testLogger())

	require.NoError(t, consumer.Start())
	consumer.Stop()

	producer.NotifyNewReservation(context.Background(), Payload{PatientName: "홍길동"})

	time.Sleep(200 * time.Millisecond)

	assert.Empty(t, consumerStore.List(), "stopped notifier must not record relayed events")
}
