package sqlite

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/example/propcheck/internal/ports/secondary"
)

const propertyColumns = "id, name, time_zone, active, created_at"

// PropertyRepository implements secondary.PropertyRepository with SQLite.
type PropertyRepository struct {
	db *sqlx.DB
}

// NewPropertyRepository creates a new SQLite property repository.
func NewPropertyRepository(db *sqlx.DB) *PropertyRepository {
	return &PropertyRepository{db: db}
}

// Create persists a new property.
func (r *PropertyRepository) Create(ctx context.Context, property *secondary.PropertyRecord) error {
	if property.CreatedAt == "" {
		property.CreatedAt = timestamp(time.Now())
	}
	_, err := r.db.NamedExecContext(ctx,
		"INSERT INTO properties ("+propertyColumns+") VALUES (:id, :name, :time_zone, :active, :created_at)",
		property,
	)
	if err != nil {
		return fmt.Errorf("failed to create property: %w", err)
	}
	return nil
}

// GetProperty retrieves a property by its ID.
func (r *PropertyRepository) GetProperty(ctx context.Context, id string) (*secondary.PropertyRecord, error) {
	record := &secondary.PropertyRecord{}
	err := getOne(ctx, r.db, record, "property", id,
		"SELECT "+propertyColumns+" FROM properties WHERE id = ?", id)
	if err != nil {
		return nil, err
	}
	return record, nil
}

// List retrieves properties, optionally only active ones.
func (r *PropertyRepository) List(ctx context.Context, activeOnly bool) ([]*secondary.PropertyRecord, error) {
	query := "SELECT " + propertyColumns + " FROM properties"
	if activeOnly {
		query += " WHERE active = 1"
	}
	query += " ORDER BY id"

	var properties []*secondary.PropertyRecord
	if err := r.db.SelectContext(ctx, &properties, query); err != nil {
		return nil, fmt.Errorf("failed to list properties: %w", err)
	}
	return properties, nil
}

// SetActive activates or deactivates a property.
func (r *PropertyRepository) SetActive(ctx context.Context, id string, active bool) error {
	res, err := r.db.ExecContext(ctx, "UPDATE properties SET active = ? WHERE id = ?", active, id)
	if err != nil {
		return fmt.Errorf("failed to update property: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return notFound("property", id)
	}
	return nil
}

// AddStaff assigns a user to a property. Re-adding updates role and flag.
// Only one primary is kept per property.
func (r *PropertyRepository) AddStaff(ctx context.Context, staff *secondary.StaffRecord) error {
	return inTx(ctx, r.db, func(tx *sqlx.Tx) error {
		if staff.IsPrimary {
			if _, err := tx.ExecContext(ctx,
				"UPDATE property_staff SET is_primary = 0 WHERE property_id = ?", staff.PropertyID,
			); err != nil {
				return fmt.Errorf("failed to clear primary staff: %w", err)
			}
		}
		_, err := tx.NamedExecContext(ctx,
			`INSERT INTO property_staff (property_id, user_id, role, is_primary)
			VALUES (:property_id, :user_id, :role, :is_primary)
			ON CONFLICT(property_id, user_id) DO UPDATE SET role = excluded.role, is_primary = excluded.is_primary`,
			staff,
		)
		if err != nil {
			return fmt.Errorf("failed to add staff: %w", err)
		}
		return nil
	})
}

// ListStaff returns the staff of a property, primary first.
func (r *PropertyRepository) ListStaff(ctx context.Context, propertyID string) ([]*secondary.StaffRecord, error) {
	var staff []*secondary.StaffRecord
	err := r.db.SelectContext(ctx, &staff,
		"SELECT property_id, user_id, role, is_primary FROM property_staff WHERE property_id = ? ORDER BY is_primary DESC, user_id",
		propertyID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list staff: %w", err)
	}
	return staff, nil
}

// GetNextID returns the next available property ID.
func (r *PropertyRepository) GetNextID(ctx context.Context) (string, error) {
	return nextID(ctx, r.db, "properties", "PROP")
}

// Ensure PropertyRepository implements the interface
var _ secondary.PropertyRepository = (*PropertyRepository)(nil)
