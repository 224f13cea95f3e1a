package sqlite_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/propcheck/internal/adapters/sqlite"
	"github.com/example/propcheck/internal/ports/secondary"
)

func TestResponseRepository_SaveBumpsVersion(t *testing.T) {
	database := setupTestDB(t)
	seedChecklist(t, database, "CHK-1", "ITEM-1")
	checklists := sqlite.NewChecklistRepository(database)
	repo := sqlite.NewResponseRepository(database)
	ctx := context.Background()

	instance, err := checklists.GetByID(ctx, "CHK-1")
	require.NoError(t, err)
	instance.Status = "in_progress"

	resp := &secondary.ResponseRecord{
		ID: "RESP-1", InstanceID: "CHK-1", ItemID: "ITEM-1",
		Value: `{"type":"text","data":{"text":"ok"}}`, SubmittedBy: "alice", ApprovalStatus: "none",
	}
	require.NoError(t, repo.Save(ctx, resp, instance))
	assert.Equal(t, 2, instance.Version)

	// Upsert keeps the original id.
	instance.Status = "in_progress"
	replacement := &secondary.ResponseRecord{
		ID: "RESP-2", InstanceID: "CHK-1", ItemID: "ITEM-1",
		Value: `{"type":"text","data":{"text":"better"}}`, SubmittedBy: "bob", ApprovalStatus: "pending",
	}
	require.NoError(t, repo.Save(ctx, replacement, instance))
	assert.Equal(t, "RESP-1", replacement.ID)

	stored, err := repo.GetByItem(ctx, "CHK-1", "ITEM-1")
	require.NoError(t, err)
	assert.Equal(t, "bob", stored.SubmittedBy)
	assert.Equal(t, "pending", stored.ApprovalStatus)

	all, err := repo.ListByInstance(ctx, "CHK-1")
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestResponseRepository_SaveStaleInstanceWritesNothing(t *testing.T) {
	database := setupTestDB(t)
	seedChecklist(t, database, "CHK-1", "ITEM-1")
	checklists := sqlite.NewChecklistRepository(database)
	repo := sqlite.NewResponseRepository(database)
	ctx := context.Background()

	instance, err := checklists.GetByID(ctx, "CHK-1")
	require.NoError(t, err)
	stale := *instance

	require.NoError(t, checklists.ApplyChange(ctx, instance))

	resp := &secondary.ResponseRecord{ID: "RESP-1", InstanceID: "CHK-1", ItemID: "ITEM-1", Value: "{}", ApprovalStatus: "none"}
	err = repo.Save(ctx, resp, &stale)
	assert.True(t, errors.Is(err, secondary.ErrConcurrentModification), "got %v", err)

	_, err = repo.GetByID(ctx, "RESP-1")
	assert.True(t, errors.Is(err, secondary.ErrNotFound))
}

func TestResponseRepository_ApprovalAttachmentsComments(t *testing.T) {
	database := setupTestDB(t)
	seedChecklist(t, database, "CHK-1", "ITEM-1")
	checklists := sqlite.NewChecklistRepository(database)
	repo := sqlite.NewResponseRepository(database)
	ctx := context.Background()

	instance, err := checklists.GetByID(ctx, "CHK-1")
	require.NoError(t, err)

	resp := &secondary.ResponseRecord{ID: "RESP-1", InstanceID: "CHK-1", ItemID: "ITEM-1", Value: "{}", ApprovalStatus: "pending"}
	require.NoError(t, repo.Save(ctx, resp, instance))

	resp.ApprovalStatus = "approved"
	resp.ApprovedBy = "manager"
	resp.ApprovalNotes = "looks good"
	resp.ReviewedAt = "2024-03-01T10:00:00Z"
	require.NoError(t, repo.UpdateApproval(ctx, resp, instance))

	att := &secondary.AttachmentRecord{ID: "ATT-1", ResponseID: "RESP-1", FileName: "panel.jpg", StorageKey: "s3://bucket/panel.jpg", SizeBytes: 2048}
	require.NoError(t, repo.AddAttachment(ctx, att, instance))
	assert.Equal(t, 4, instance.Version, "save, approval and attachment each bump the version")

	require.NoError(t, repo.AddComment(ctx, &secondary.CommentRecord{ID: "COM-1", ResponseID: "RESP-1", Author: "alice", Body: "first"}))
	require.NoError(t, repo.AddComment(ctx, &secondary.CommentRecord{ID: "COM-2", ResponseID: "RESP-1", Author: "bob", Body: "second"}))

	stored, err := repo.GetByID(ctx, "RESP-1")
	require.NoError(t, err)
	assert.Equal(t, "approved", stored.ApprovalStatus)
	assert.Equal(t, "looks good", stored.ApprovalNotes)

	attachments, err := repo.ListAttachments(ctx, "RESP-1")
	require.NoError(t, err)
	require.Len(t, attachments, 1)
	assert.Equal(t, int64(2048), attachments[0].SizeBytes)

	comments, err := repo.ListComments(ctx, "RESP-1")
	require.NoError(t, err)
	require.Len(t, comments, 2)
	assert.Equal(t, "first", comments[0].Body)

	require.NoError(t, repo.Delete(ctx, "RESP-1", instance))

	_, err = repo.GetByID(ctx, "RESP-1")
	assert.True(t, errors.Is(err, secondary.ErrNotFound))
	attachments, err = repo.ListAttachments(ctx, "RESP-1")
	require.NoError(t, err)
	assert.Empty(t, attachments)
	comments, err = repo.ListComments(ctx, "RESP-1")
	require.NoError(t, err)
	assert.Empty(t, comments)
}
