package app

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/propcheck/internal/core/approval"
	"github.com/example/propcheck/internal/core/checklist"
	"github.com/example/propcheck/internal/core/events"
	"github.com/example/propcheck/internal/ports/primary"
	"github.com/example/propcheck/internal/ports/secondary"
)

func TestSubmitForApproval(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	detail := env.generateOne(t)
	id := detail.Checklist.ID

	lobby, err := env.checklists.RecordResponse(ctx, id, detail.Items[0].ID, checklist.BooleanValue{Checked: true}, "alice")
	require.NoError(t, err)
	photo, err := env.checklists.RecordResponse(ctx, id, detail.Items[1].ID, checklist.PhotoValue{StorageKey: "k"}, "alice")
	require.NoError(t, err)

	_, err = env.approvals.SubmitForApproval(ctx, lobby.ID, "alice")
	ite := requireInvalidTransition(t, err)
	assert.Contains(t, ite.Reason, "does not require approval")

	submitted, err := env.approvals.SubmitForApproval(ctx, photo.ID, "alice")
	require.NoError(t, err)
	assert.Equal(t, approval.StatusPending, submitted.ApprovalStatus)

	// Resubmitting a pending response is a no-op.
	_, err = env.approvals.SubmitForApproval(ctx, photo.ID, "alice")
	require.NoError(t, err)

	changes := env.notifier.ofType("approval.changed")
	require.Len(t, changes, 1)
	ev := changes[0].(events.ApprovalChanged)
	assert.Equal(t, approval.StatusNone, ev.From)
	assert.Equal(t, approval.StatusPending, ev.To)

	_, err = env.approvals.SetApproval(ctx, photo.ID, approval.StatusApproved, "", "rita")
	require.NoError(t, err)
	_, err = env.approvals.SubmitForApproval(ctx, photo.ID, "alice")
	requireInvalidTransition(t, err)
}

func TestSetApproval_ImplicitSubmitAndGuards(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	detail := env.generateOne(t)
	id := detail.Checklist.ID

	photo, err := env.checklists.RecordResponse(ctx, id, detail.Items[1].ID, checklist.PhotoValue{StorageKey: "k"}, "alice")
	require.NoError(t, err)

	_, err = env.approvals.SetApproval(ctx, photo.ID, approval.StatusPending, "", "rita")
	requireInvalidTransition(t, err)

	res, err := env.approvals.SetApproval(ctx, photo.ID, approval.StatusApproved, "  looks good ", "rita")
	require.NoError(t, err)
	assert.Equal(t, approval.StatusApproved, res.ApprovalStatus)
	assert.Equal(t, "looks good", res.ApprovalNotes)
	assert.NotEmpty(t, res.ReviewedAt)

	// Reviews bump the instance version.
	got, err := env.checklists.GetChecklist(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, detail.Checklist.Version+2, got.Checklist.Version)

	_, err = env.approvals.SetApproval(ctx, "nope", approval.StatusApproved, "", "rita")
	assert.ErrorIs(t, err, secondary.ErrNotFound)
}

func TestAddAttachment(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	detail := env.generateOne(t)

	photo, err := env.checklists.RecordResponse(ctx, detail.Checklist.ID, detail.Items[1].ID, checklist.PhotoValue{StorageKey: "k"}, "alice")
	require.NoError(t, err)

	_, err = env.approvals.AddAttachment(ctx, primary.AddAttachmentRequest{ResponseID: photo.ID, StorageKey: "k2"})
	assert.Error(t, err, "file name is required")

	att, err := env.approvals.AddAttachment(ctx, primary.AddAttachmentRequest{
		ResponseID:  photo.ID,
		FileName:    "meter-closeup.jpg",
		ContentType: "image/jpeg",
		SizeBytes:   2048,
		StorageKey:  "s3://bucket/meter-closeup.jpg",
		Actor:       "alice",
	})
	require.NoError(t, err)
	assert.Equal(t, "alice", att.UploadedBy)

	list, err := env.approvals.ListAttachments(ctx, photo.ID)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, int64(2048), list[0].SizeBytes)
	assert.Len(t, env.notifier.ofType("approval.attachment_added"), 1)
}

func TestAddComment_Validation(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	detail := env.generateOne(t)

	photo, err := env.checklists.RecordResponse(ctx, detail.Checklist.ID, detail.Items[1].ID, checklist.PhotoValue{StorageKey: "k"}, "alice")
	require.NoError(t, err)

	_, err = env.approvals.AddComment(ctx, photo.ID, "   ", "rita")
	assert.Error(t, err)
	_, err = env.approvals.AddComment(ctx, "missing", "hello", "rita")
	assert.ErrorIs(t, err, secondary.ErrNotFound)

	before, _ := env.checklists.GetChecklist(ctx, detail.Checklist.ID)
	c, err := env.approvals.AddComment(ctx, photo.ID, "hello", "rita")
	require.NoError(t, err)
	assert.Equal(t, "rita", c.Author)

	after, _ := env.checklists.GetChecklist(ctx, detail.Checklist.ID)
	assert.Equal(t, before.Checklist.Version, after.Checklist.Version, "comments never touch the instance")
}
