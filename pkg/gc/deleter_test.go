package gc

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/everkeep/everkeep/pkg/media"
	objectmemory "github.com/everkeep/everkeep/pkg/objectstore/memory"
)

func testExtractor() media.Extractor {
	return media.Extractor{CDNHost: "pub-test.r2.dev"}
}

func TestDeleter_PartitionsIntoBatches(t *testing.T) {
	objects := objectmemory.NewMemoryObjectStore()

	urls := make([]string, 2500)
	for i := range urls {
		key := fmt.Sprintf("user-1/gallery-image/%d.jpg", i)
		objects.Put(key)
		urls[i] = objects.PublicURL(key)
	}

	deleter := NewDeleter(objects, testExtractor(), 1000)
	report := deleter.DeleteAll(context.Background(), urls)

	require.Len(t, objects.DeleteCalls, 3)
	assert.Len(t, objects.DeleteCalls[0], 1000)
	assert.Len(t, objects.DeleteCalls[1], 1000)
	assert.Len(t, objects.DeleteCalls[2], 500)

	assert.Equal(t, 2500, len(report.Succeeded)+len(report.Failed))
	assert.True(t, report.AllSucceeded())
	assert.Equal(t, 0, objects.Len())
}

func TestDeleter_SkipsForeignURLs(t *testing.T) {
	objects := objectmemory.NewMemoryObjectStore()
	objects.Put("user-1/profile-image/a.jpg")

	deleter := NewDeleter(objects, testExtractor(), 0)
	report := deleter.DeleteAll(context.Background(), []string{
		objects.PublicURL("user-1/profile-image/a.jpg"),
		"https://unrelated.cdn/something.jpg",
		"not a url at all",
	})

	assert.Equal(t, []string{"user-1/profile-image/a.jpg"}, report.Succeeded)
	assert.Empty(t, report.Failed)
	assert.Len(t, report.Skipped, 2)
}

func TestDeleter_DeduplicatesKeys(t *testing.T) {
	objects := objectmemory.NewMemoryObjectStore()
	objects.Put("user-1/gallery-image/a.jpg")

	url := objects.PublicURL("user-1/gallery-image/a.jpg")
	deleter := NewDeleter(objects, testExtractor(), 0)
	report := deleter.DeleteAll(context.Background(), []string{url, url, url})

	require.Len(t, objects.DeleteCalls, 1)
	assert.Len(t, objects.DeleteCalls[0], 1)
	assert.Len(t, report.Succeeded, 1)
}

func TestDeleter_AbsentKeyIsSuccess(t *testing.T) {
	objects := objectmemory.NewMemoryObjectStore()

	deleter := NewDeleter(objects, testExtractor(), 0)
	report := deleter.DeleteAll(context.Background(), []string{
		objects.PublicURL("user-1/gallery-image/never-existed.jpg"),
	})

	assert.True(t, report.AllSucceeded())
	assert.Len(t, report.Succeeded, 1)
}

func TestDeleter_StoreUnreachableMarksAllFailed(t *testing.T) {
	objects := objectmemory.NewMemoryObjectStore()
	objects.FailAll = fmt.Errorf("connection refused")

	urls := make([]string, 5)
	for i := range urls {
		urls[i] = objects.PublicURL(fmt.Sprintf("user-1/video/%d.mp4", i))
	}

	deleter := NewDeleter(objects, testExtractor(), 0)
	report := deleter.DeleteAll(context.Background(), urls)

	assert.Empty(t, report.Succeeded)
	assert.Len(t, report.Failed, 5)
}

func TestDeleter_PartialFailureContinues(t *testing.T) {
	objects := objectmemory.NewMemoryObjectStore()
	objects.Put("user-1/gallery-image/good.jpg")
	objects.Put("user-1/gallery-image/bad.jpg")
	objects.FailKeys = map[string]error{
		"user-1/gallery-image/bad.jpg": fmt.Errorf("access denied"),
	}

	deleter := NewDeleter(objects, testExtractor(), 0)
	report := deleter.DeleteAll(context.Background(), []string{
		objects.PublicURL("user-1/gallery-image/good.jpg"),
		objects.PublicURL("user-1/gallery-image/bad.jpg"),
	})

	assert.Equal(t, []string{"user-1/gallery-image/good.jpg"}, report.Succeeded)
	assert.Equal(t, []string{"user-1/gallery-image/bad.jpg"}, report.Failed)
	assert.False(t, objects.Exists("user-1/gallery-image/good.jpg"))
	assert.True(t, objects.Exists("user-1/gallery-image/bad.jpg"))
}

func TestDeleter_CancelledContext(t *testing.T) {
	objects := objectmemory.NewMemoryObjectStore()
	objects.Put("user-1/gallery-image/a.jpg")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	deleter := NewDeleter(objects, testExtractor(), 0)
	report := deleter.DeleteAll(ctx, []string{objects.PublicURL("user-1/gallery-image/a.jpg")})

	assert.Empty(t, report.Succeeded)
	assert.Len(t, report.Failed, 1)
	assert.True(t, objects.Exists("user-1/gallery-image/a.jpg"))
}
