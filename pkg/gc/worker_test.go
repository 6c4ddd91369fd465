package gc

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/everkeep/everkeep/pkg/memorial"
	objectmemory "github.com/everkeep/everkeep/pkg/objectstore/memory"
	"github.com/everkeep/everkeep/pkg/record"
	recordmemory "github.com/everkeep/everkeep/pkg/record/memory"
)

func newTestWorker(t *testing.T, config WorkerConfig) (*Worker, record.Store, *objectmemory.MemoryObjectStore) {
	t.Helper()

	store := recordmemory.NewMemoryStore(memorial.Schema())
	t.Cleanup(func() { _ = store.Close() })

	objects := objectmemory.NewMemoryObjectStore()
	deleter := NewDeleter(objects, testExtractor(), config.BatchSize)
	return NewWorker(store, deleter, nil, config), store, objects
}

func enqueueTask(t *testing.T, store record.Store, id string, urls []string) {
	t.Helper()

	task := memorial.CleanupTask{
		ID:         id,
		ProfileID:  "profile-1",
		URLs:       urls,
		EnqueuedAt: time.Now(),
	}
	require.NoError(t, store.Insert(context.Background(), memorial.CollectionCleanupTasks, id, task))
}

func pendingTasks(t *testing.T, store record.Store) []memorial.CleanupTask {
	t.Helper()

	var tasks []memorial.CleanupTask
	require.NoError(t, store.List(context.Background(), memorial.CollectionCleanupTasks, nil, &tasks))
	return tasks
}

func TestWorker_DrainRemovesCompletedTask(t *testing.T) {
	worker, store, objects := newTestWorker(t, WorkerConfig{Enabled: true})

	objects.Put("user-1/gallery-image/a.jpg")
	objects.Put("user-1/gallery-image/b.jpg")
	enqueueTask(t, store, "task-1", []string{
		objects.PublicURL("user-1/gallery-image/a.jpg"),
		objects.PublicURL("user-1/gallery-image/b.jpg"),
	})

	stats, err := worker.RunNow(context.Background())
	require.NoError(t, err)

	assert.Equal(t, uint64(1), stats.TaskCount)
	assert.Equal(t, uint64(1), stats.CompletedCount)
	assert.Equal(t, uint64(2), stats.DeletedCount)
	assert.Equal(t, 0, objects.Len())
	assert.Empty(t, pendingTasks(t, store))
}

func TestWorker_AbsentObjectsStillComplete(t *testing.T) {
	worker, store, objects := newTestWorker(t, WorkerConfig{Enabled: true})

	// Nothing seeded: a re-drive after a partially successful first attempt
	// must treat already-deleted objects as done.
	enqueueTask(t, store, "task-1", []string{
		objects.PublicURL("user-1/gallery-image/gone.jpg"),
	})

	stats, err := worker.RunNow(context.Background())
	require.NoError(t, err)

	assert.Equal(t, uint64(1), stats.CompletedCount)
	assert.Empty(t, pendingTasks(t, store))
}

func TestWorker_FailedTaskIsRequeued(t *testing.T) {
	worker, store, objects := newTestWorker(t, WorkerConfig{Enabled: true, MaxAttempts: 5})

	objects.FailAll = fmt.Errorf("connection refused")
	enqueueTask(t, store, "task-1", []string{
		objects.PublicURL("user-1/video/a.mp4"),
	})

	stats, err := worker.RunNow(context.Background())
	require.NoError(t, err)

	assert.Equal(t, uint64(1), stats.RetriedCount)
	assert.Equal(t, uint64(1), stats.FailedCount)

	tasks := pendingTasks(t, store)
	require.Len(t, tasks, 1)
	assert.Equal(t, 1, tasks[0].Attempts)
	assert.NotEmpty(t, tasks[0].LastError)
}

func TestWorker_TaskDroppedAfterMaxAttempts(t *testing.T) {
	worker, store, objects := newTestWorker(t, WorkerConfig{Enabled: true, MaxAttempts: 3})

	objects.FailAll = fmt.Errorf("connection refused")
	enqueueTask(t, store, "task-1", []string{
		objects.PublicURL("user-1/video/a.mp4"),
	})

	for i := 0; i < 2; i++ {
		_, err := worker.RunNow(context.Background())
		require.NoError(t, err)
		require.Len(t, pendingTasks(t, store), 1)
	}

	stats, err := worker.RunNow(context.Background())
	require.NoError(t, err)

	assert.Equal(t, uint64(1), stats.DroppedCount)
	assert.Empty(t, pendingTasks(t, store))
}

func TestWorker_RecoveryAfterStoreComesBack(t *testing.T) {
	worker, store, objects := newTestWorker(t, WorkerConfig{Enabled: true, MaxAttempts: 5})

	objects.Put("user-1/gallery-image/a.jpg")
	objects.FailAll = fmt.Errorf("connection refused")
	enqueueTask(t, store, "task-1", []string{
		objects.PublicURL("user-1/gallery-image/a.jpg"),
	})

	_, err := worker.RunNow(context.Background())
	require.NoError(t, err)
	require.Len(t, pendingTasks(t, store), 1)

	objects.FailAll = nil

	stats, err := worker.RunNow(context.Background())
	require.NoError(t, err)

	assert.Equal(t, uint64(1), stats.CompletedCount)
	assert.False(t, objects.Exists("user-1/gallery-image/a.jpg"))
	assert.Empty(t, pendingTasks(t, store))
}

func TestWorker_DryRunLeavesEverythingAlone(t *testing.T) {
	worker, store, objects := newTestWorker(t, WorkerConfig{Enabled: true, DryRun: true})

	objects.Put("user-1/gallery-image/a.jpg")
	enqueueTask(t, store, "task-1", []string{
		objects.PublicURL("user-1/gallery-image/a.jpg"),
	})

	_, err := worker.RunNow(context.Background())
	require.NoError(t, err)

	assert.True(t, objects.Exists("user-1/gallery-image/a.jpg"))
	assert.Len(t, pendingTasks(t, store), 1)
	assert.Empty(t, objects.DeleteCalls)
}

func TestWorker_StartStop(t *testing.T) {
	worker, _, _ := newTestWorker(t, WorkerConfig{Enabled: true, Interval: time.Hour})

	worker.Start()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, worker.Stop(ctx))
}

func TestWorker_DisabledStartStopNoop(t *testing.T) {
	worker, _, _ := newTestWorker(t, WorkerConfig{Enabled: false})

	worker.Start()
	require.NoError(t, worker.Stop(context.Background()))
}
