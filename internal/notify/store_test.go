package notify

import (
	"log/slog"
	"path/filepath"
	"testing"

	"github.com/mirae-imaging/backoffice/internal/logger"
	"github.com/mirae-imaging/backoffice/internal/relay"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *logger.Logger {
	return logger.New(logger.Config{Level: slog.LevelError})
}

func TestStore_AddPrependsAndStamps(t *testing.T) {
	store := NewMemoryStore(50, testLogger())

	first := store.Add(Record{Kind: relay.KindNewReservation, Title: "새 예약 신청", Message: "m1"})
	second := store.Add(Record{Kind: relay.KindCancellation, Title: "예약 취소", Message: "m2"})

	require.NotEmpty(t, first.ID)
	require.NotEmpty(t, second.ID)
	assert.NotEqual(t, first.ID, second.ID)
	assert.False(t, first.IsRead)

	records := store.List()
	require.Len(t, records, 2)
	assert.Equal(t, second.ID, records[0].ID, "newest record should come first")
	assert.Equal(t, 2, store.UnreadCount())
}

func TestStore_CapEvictsOldest(t *testing.T) {
	store := NewMemoryStore(50, testLogger())

	var firstID string
	for i := 0; i < 51; i++ {
		r := store.Add(Record{Kind: relay.KindNewReservation, Message: "m"})
		if i == 0 {
			firstID = r.ID
		}
	}

	records := store.List()
	require.Len(t, records, 50)
	for _, r := range records {
		assert.NotEqual(t, firstID, r.ID, "oldest record should have been evicted")
	}
}

func TestStore_MarkReadAndDismiss(t *testing.T) {
	store := NewMemoryStore(50, testLogger())

	r1 := store.Add(Record{Message: "m1"})
	r2 := store.Add(Record{Message: "m2"})

	assert.True(t, store.MarkRead(r1.ID))
	assert.Equal(t, 1, store.UnreadCount())
	assert.False(t, store.MarkRead("missing"))

	assert.True(t, store.Dismiss(r2.ID))
	assert.False(t, store.Dismiss(r2.ID), "dismissing twice should fail the second time")
	require.Len(t, store.List(), 1)

	store.MarkAllRead()
	assert.Equal(t, 0, store.UnreadCount())

	store.ClearAll()
	assert.Empty(t, store.List())
}

func TestStore_SnapshotSurvivesReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "inbox.db")

	store, err := OpenStore(path, 50, testLogger())
	require.NoError(t, err)

	added := store.Add(Record{
		Kind:    relay.KindNewReservation,
		Title:   "새 예약 신청",
		Message: "홍길동님이 MRI 검사를 신청했습니다.",
		Payload: Payload{PatientName: "홍길동", ExamType: "MRI"},
	})
	store.Add(Record{Kind: relay.KindCancellation, Message: "m2"})
	require.True(t, store.MarkRead(added.ID))
	require.NoError(t, store.Close())

	reopened, err := OpenStore(path, 50, testLogger())
	require.NoError(t, err)
	defer reopened.Close()

	records := reopened.List()
	require.Len(t, records, 2)
	// Newest first, same as before the restart.
	assert.Equal(t, relay.KindCancellation, records[0].Kind)
	assert.Equal(t, added.ID, records[1].ID)
	assert.True(t, records[1].IsRead)
	assert.Equal(t, "홍길동", records[1].Payload.PatientName)
	assert.Equal(t, 1, reopened.UnreadCount())
}

func TestStore_HydrateDropsUnparseableTimestamps(t *testing.T) {
	path := filepath.Join(t.TempDir(), "inbox.db")

	store, err := OpenStore(path, 50, testLogger())
	require.NoError(t, err)
	store.Add(Record{Message: "good"})

	// Corrupt one row's timestamp behind the store's back.
	_, err = store.db.Exec(
		`INSERT INTO notifications (id, kind, title, message, created_at, is_read, pos)
		 VALUES ('bad', 'new_reservation', '', 'bad', 'not-a-timestamp', 0, 1)`)
	require.NoError(t, err)
	require.NoError(t, store.Close())

	reopened, err := OpenStore(path, 50, testLogger())
	require.NoError(t, err)
	defer reopened.Close()

	records := reopened.List()
	require.Len(t, records, 1)
	assert.Equal(t, "good", records[0].Message)
}

func TestStore_HydrateTruncatesToCap(t *testing.T) {
	path := filepath.Join(t.TempDir(), "inbox.db")

	store, err := OpenStore(path, 50, testLogger())
	require.NoError(t, err)
	for i := 0; i < 10; i++ {
		store.Add(Record{Message: "m"})
	}
	require.NoError(t, store.Close())

	// Reopen with a smaller cap, as after a config change.
	reopened, err := OpenStore(path, 5, testLogger())
	require.NoError(t, err)
	defer reopened.Close()

	assert.Len(t, reopened.List(), 5)
}
