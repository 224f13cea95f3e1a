package sqlite

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/example/propcheck/internal/ports/secondary"
)

const responseColumns = `id, instance_id, item_id, value, submitted_by, submitted_at,
	approval_status, approved_by, approval_notes, reviewed_at`

const attachmentColumns = "id, response_id, file_name, content_type, size_bytes, storage_key, uploaded_by, created_at"

const commentColumns = "id, response_id, author, body, created_at"

// ResponseRepository implements secondary.ResponseRepository with SQLite.
type ResponseRepository struct {
	db *sqlx.DB
}

// NewResponseRepository creates a new SQLite response repository.
func NewResponseRepository(db *sqlx.DB) *ResponseRepository {
	return &ResponseRepository{db: db}
}

// Save upserts the response for (instance, item) and applies the instance
// change in the same transaction. On conflict the stored response id wins
// and is written back to response.ID.
func (r *ResponseRepository) Save(ctx context.Context, response *secondary.ResponseRecord, instance *secondary.ChecklistRecord) error {
	if response.SubmittedAt == "" {
		response.SubmittedAt = timestamp(time.Now())
	}
	return inTx(ctx, r.db, func(tx *sqlx.Tx) error {
		if err := applyChange(ctx, tx, instance); err != nil {
			return err
		}
		_, err := tx.NamedExecContext(ctx,
			`INSERT INTO item_responses (`+responseColumns+`)
			VALUES (:id, :instance_id, :item_id, :value, :submitted_by, :submitted_at,
				:approval_status, :approved_by, :approval_notes, :reviewed_at)
			ON CONFLICT(instance_id, item_id) DO UPDATE SET
				value = excluded.value,
				submitted_by = excluded.submitted_by,
				submitted_at = excluded.submitted_at,
				approval_status = excluded.approval_status,
				approved_by = excluded.approved_by,
				approval_notes = excluded.approval_notes,
				reviewed_at = excluded.reviewed_at`,
			response,
		)
		if err != nil {
			return fmt.Errorf("failed to save response: %w", err)
		}
		return tx.GetContext(ctx, &response.ID,
			"SELECT id FROM item_responses WHERE instance_id = ? AND item_id = ?",
			response.InstanceID, response.ItemID)
	})
}

// Delete removes a response with its attachments and comments.
func (r *ResponseRepository) Delete(ctx context.Context, responseID string, instance *secondary.ChecklistRecord) error {
	return inTx(ctx, r.db, func(tx *sqlx.Tx) error {
		if err := applyChange(ctx, tx, instance); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, "DELETE FROM response_attachments WHERE response_id = ?", responseID); err != nil {
			return fmt.Errorf("failed to delete attachments: %w", err)
		}
		if _, err := tx.ExecContext(ctx, "DELETE FROM response_comments WHERE response_id = ?", responseID); err != nil {
			return fmt.Errorf("failed to delete comments: %w", err)
		}
		res, err := tx.ExecContext(ctx, "DELETE FROM item_responses WHERE id = ?", responseID)
		if err != nil {
			return fmt.Errorf("failed to delete response: %w", err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return notFound("response", responseID)
		}
		return nil
	})
}

// UpdateApproval writes the approval fields of a response.
func (r *ResponseRepository) UpdateApproval(ctx context.Context, response *secondary.ResponseRecord, instance *secondary.ChecklistRecord) error {
	return inTx(ctx, r.db, func(tx *sqlx.Tx) error {
		if err := applyChange(ctx, tx, instance); err != nil {
			return err
		}
		res, err := tx.NamedExecContext(ctx,
			`UPDATE item_responses SET
				approval_status = :approval_status,
				approved_by = :approved_by,
				approval_notes = :approval_notes,
				reviewed_at = :reviewed_at
			WHERE id = :id`,
			response,
		)
		if err != nil {
			return fmt.Errorf("failed to update approval: %w", err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return notFound("response", response.ID)
		}
		return nil
	})
}

// GetByID retrieves a response.
func (r *ResponseRepository) GetByID(ctx context.Context, id string) (*secondary.ResponseRecord, error) {
	record := &secondary.ResponseRecord{}
	err := getOne(ctx, r.db, record, "response", id,
		"SELECT "+responseColumns+" FROM item_responses WHERE id = ?", id)
	if err != nil {
		return nil, err
	}
	return record, nil
}

// GetByItem retrieves the response to one item, or ErrNotFound.
func (r *ResponseRepository) GetByItem(ctx context.Context, instanceID, itemID string) (*secondary.ResponseRecord, error) {
	record := &secondary.ResponseRecord{}
	err := getOne(ctx, r.db, record, "response", instanceID+"/"+itemID,
		"SELECT "+responseColumns+" FROM item_responses WHERE instance_id = ? AND item_id = ?",
		instanceID, itemID)
	if err != nil {
		return nil, err
	}
	return record, nil
}

// ListByInstance returns all responses of an instance.
func (r *ResponseRepository) ListByInstance(ctx context.Context, instanceID string) ([]*secondary.ResponseRecord, error) {
	var records []*secondary.ResponseRecord
	err := r.db.SelectContext(ctx, &records,
		"SELECT "+responseColumns+" FROM item_responses WHERE instance_id = ? ORDER BY submitted_at, id",
		instanceID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list responses: %w", err)
	}
	return records, nil
}

// AddAttachment persists attachment metadata, bumping the instance version.
func (r *ResponseRepository) AddAttachment(ctx context.Context, attachment *secondary.AttachmentRecord, instance *secondary.ChecklistRecord) error {
	if attachment.CreatedAt == "" {
		attachment.CreatedAt = timestamp(time.Now())
	}
	return inTx(ctx, r.db, func(tx *sqlx.Tx) error {
		if err := applyChange(ctx, tx, instance); err != nil {
			return err
		}
		_, err := tx.NamedExecContext(ctx,
			`INSERT INTO response_attachments (`+attachmentColumns+`)
			VALUES (:id, :response_id, :file_name, :content_type, :size_bytes, :storage_key, :uploaded_by, :created_at)`,
			attachment,
		)
		if err != nil {
			return fmt.Errorf("failed to add attachment: %w", err)
		}
		return nil
	})
}

// ListAttachments returns the attachments of a response.
func (r *ResponseRepository) ListAttachments(ctx context.Context, responseID string) ([]*secondary.AttachmentRecord, error) {
	var records []*secondary.AttachmentRecord
	err := r.db.SelectContext(ctx, &records,
		"SELECT "+attachmentColumns+" FROM response_attachments WHERE response_id = ? ORDER BY created_at, id",
		responseID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list attachments: %w", err)
	}
	return records, nil
}

// AddComment persists a comment.
func (r *ResponseRepository) AddComment(ctx context.Context, comment *secondary.CommentRecord) error {
	if comment.CreatedAt == "" {
		comment.CreatedAt = timestamp(time.Now())
	}
	_, err := r.db.NamedExecContext(ctx,
		"INSERT INTO response_comments ("+commentColumns+") VALUES (:id, :response_id, :author, :body, :created_at)",
		comment,
	)
	if err != nil {
		return fmt.Errorf("failed to add comment: %w", err)
	}
	return nil
}

// ListComments returns the comments of a response, oldest first.
func (r *ResponseRepository) ListComments(ctx context.Context, responseID string) ([]*secondary.CommentRecord, error) {
	var records []*secondary.CommentRecord
	err := r.db.SelectContext(ctx, &records,
		"SELECT "+commentColumns+" FROM response_comments WHERE response_id = ? ORDER BY created_at, rowid",
		responseID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list comments: %w", err)
	}
	return records, nil
}

// Ensure ResponseRepository implements the interface
var _ secondary.ResponseRepository = (*ResponseRepository)(nil)
