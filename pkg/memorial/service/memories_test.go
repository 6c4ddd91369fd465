package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/everkeep/everkeep/pkg/memorial"
)

func TestSubmitMemory_StartsUnapproved(t *testing.T) {
	svc, store := newTestService(t)
	profile := createProfile(t, svc, store, "user-1")

	mem, err := svc.SubmitMemory(context.Background(), profile.ID, MemoryInput{
		AuthorName: "A Friend",
		Text:       "We will miss you.",
	})
	require.NoError(t, err)
	assert.False(t, mem.Approved)
	assert.Equal(t, profile.ID, mem.ProfileID)
}

func TestSubmitMemory_DeletedProfileReadsAsNotFound(t *testing.T) {
	svc, store := newTestService(t)
	profile := createProfile(t, svc, store, "user-1")
	require.NoError(t, svc.DeleteProfile(context.Background(), profile.ID, "user-1"))

	_, err := svc.SubmitMemory(context.Background(), profile.ID, MemoryInput{
		AuthorName: "Late Visitor",
		Text:       "Too late.",
	})
	require.Error(t, err)
	assert.True(t, memorial.IsNotFound(err))
}

func TestApproveMemory_OwnerOnly(t *testing.T) {
	svc, store := newTestService(t)
	profile := createProfile(t, svc, store, "user-1")

	mem, err := svc.SubmitMemory(context.Background(), profile.ID, MemoryInput{
		AuthorName: "A Friend",
		Text:       "We will miss you.",
	})
	require.NoError(t, err)

	_, err = svc.ApproveMemory(context.Background(), mem.ID, "user-2")
	require.Error(t, err)
	assert.True(t, memorial.IsNotFound(err))

	approved, err := svc.ApproveMemory(context.Background(), mem.ID, "user-1")
	require.NoError(t, err)
	assert.True(t, approved.Approved)
}

func TestDeleteMemory_SoftDeletesAndEnqueuesPhoto(t *testing.T) {
	svc, store := newTestService(t)
	profile := createProfile(t, svc, store, "user-1")

	mem, err := svc.SubmitMemory(context.Background(), profile.ID, MemoryInput{
		AuthorName: "A Friend",
		Text:       "With a photo.",
		PhotoURL:   "https://pub-test.r2.dev/visitor/memory-image/photo.jpg",
	})
	require.NoError(t, err)

	require.NoError(t, svc.DeleteMemory(context.Background(), mem.ID, "user-1"))

	var stored memorial.Memory
	require.NoError(t, store.Get(context.Background(), memorial.CollectionMemories, mem.ID, &stored))
	assert.NotNil(t, stored.DeletedAt)

	var tasks []memorial.CleanupTask
	require.NoError(t, store.List(context.Background(), memorial.CollectionCleanupTasks, nil, &tasks))
	require.Len(t, tasks, 1)
	assert.Equal(t, []string{mem.PhotoURL}, tasks[0].URLs)

	// A second delete reads as not found.
	err = svc.DeleteMemory(context.Background(), mem.ID, "user-1")
	assert.True(t, memorial.IsNotFound(err))
}

func TestDeleteMemory_NoPhotoSkipsOutbox(t *testing.T) {
	svc, store := newTestService(t)
	profile := createProfile(t, svc, store, "user-1")

	mem, err := svc.SubmitMemory(context.Background(), profile.ID, MemoryInput{
		AuthorName: "A Friend",
		Text:       "Text only.",
	})
	require.NoError(t, err)
	require.NoError(t, svc.DeleteMemory(context.Background(), mem.ID, "user-1"))

	var tasks []memorial.CleanupTask
	require.NoError(t, store.List(context.Background(), memorial.CollectionCleanupTasks, nil, &tasks))
	assert.Empty(t, tasks)
}

func TestGetProfileBySlug_PublicViewIsApprovedOnly(t *testing.T) {
	svc, store := newTestService(t)
	profile := createProfile(t, svc, store, "user-1")

	approved, err := svc.SubmitMemory(context.Background(), profile.ID, MemoryInput{
		AuthorName: "Approved Friend", Text: "Shown.",
	})
	require.NoError(t, err)
	_, err = svc.ApproveMemory(context.Background(), approved.ID, "user-1")
	require.NoError(t, err)

	_, err = svc.SubmitMemory(context.Background(), profile.ID, MemoryInput{
		AuthorName: "Pending Friend", Text: "Hidden.",
	})
	require.NoError(t, err)

	view, err := svc.GetProfileBySlug(context.Background(), profile.Slug)
	require.NoError(t, err)
	require.Len(t, view.Memories, 1)
	assert.Equal(t, approved.ID, view.Memories[0].ID)

	// The owner view includes the pending submission.
	owned, err := svc.GetOwnedProfile(context.Background(), profile.ID, "user-1")
	require.NoError(t, err)
	assert.Len(t, owned.Memories, 2)
}

func TestGetProfileBySlug_CachesAndInvalidatesOnEdit(t *testing.T) {
	svc, store := newTestService(t)
	profile := createProfile(t, svc, store, "user-1")

	_, err := svc.GetProfileBySlug(context.Background(), profile.Slug)
	require.NoError(t, err)
	_, err = svc.GetProfileBySlug(context.Background(), profile.Slug)
	require.NoError(t, err)

	hits, _, _ := svc.CacheStats()
	assert.Equal(t, uint64(1), hits)

	name := "Renamed"
	_, err = svc.EditProfile(context.Background(), profile.ID, "user-1", EditInput{DisplayName: &name})
	require.NoError(t, err)

	view, err := svc.GetProfileBySlug(context.Background(), profile.Slug)
	require.NoError(t, err)
	assert.Equal(t, "Renamed", view.Profile.DisplayName)
}

func TestGetProfileBySlug_DeletedProfileReadsAsNotFound(t *testing.T) {
	svc, store := newTestService(t)
	profile := createProfile(t, svc, store, "user-1")
	require.NoError(t, svc.DeleteProfile(context.Background(), profile.ID, "user-1"))

	_, err := svc.GetProfileBySlug(context.Background(), profile.Slug)
	require.Error(t, err)
	assert.True(t, memorial.IsNotFound(err))
}
