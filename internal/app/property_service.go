package app

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/example/propcheck/internal/ports/primary"
	"github.com/example/propcheck/internal/ports/secondary"
)

// PropertyServiceImpl implements the PropertyService interface.
type PropertyServiceImpl struct {
	properties secondary.PropertyRepository
	logger     *slog.Logger
}

// NewPropertyService creates a new PropertyService with injected dependencies.
func NewPropertyService(properties secondary.PropertyRepository, logger *slog.Logger) *PropertyServiceImpl {
	return &PropertyServiceImpl{properties: properties, logger: logger}
}

// CreateProperty creates a new active property.
func (s *PropertyServiceImpl) CreateProperty(ctx context.Context, req primary.CreatePropertyRequest) (*primary.Property, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, fmt.Errorf("property name is required")
	}
	tz := req.TimeZone
	if tz == "" {
		tz = "UTC"
	}
	if _, err := time.LoadLocation(tz); err != nil {
		return nil, fmt.Errorf("invalid time zone %q: %w", tz, err)
	}

	id, err := s.properties.GetNextID(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to generate property ID: %w", err)
	}

	record := &secondary.PropertyRecord{ID: id, Name: name, TimeZone: tz, Active: true}
	if err := s.properties.Create(ctx, record); err != nil {
		return nil, fmt.Errorf("failed to create property: %w", err)
	}

	s.logger.Info("created property", "property_id", id, "name", name)
	return recordToProperty(record), nil
}

// GetProperty retrieves a property by ID.
func (s *PropertyServiceImpl) GetProperty(ctx context.Context, propertyID string) (*primary.Property, error) {
	record, err := s.properties.GetProperty(ctx, propertyID)
	if err != nil {
		return nil, err
	}
	return recordToProperty(record), nil
}

// ListProperties lists properties.
func (s *PropertyServiceImpl) ListProperties(ctx context.Context, activeOnly bool) ([]*primary.Property, error) {
	records, err := s.properties.List(ctx, activeOnly)
	if err != nil {
		return nil, err
	}
	out := make([]*primary.Property, len(records))
	for i, r := range records {
		out[i] = recordToProperty(r)
	}
	return out, nil
}

// SetPropertyActive activates or deactivates a property.
func (s *PropertyServiceImpl) SetPropertyActive(ctx context.Context, propertyID string, active bool) error {
	if err := s.properties.SetActive(ctx, propertyID, active); err != nil {
		return err
	}
	s.logger.Info("property active flag changed", "property_id", propertyID, "active", active)
	return nil
}

// AddStaff assigns a user to a property.
func (s *PropertyServiceImpl) AddStaff(ctx context.Context, req primary.AddStaffRequest) error {
	if strings.TrimSpace(req.UserID) == "" {
		return fmt.Errorf("user ID is required")
	}
	if _, err := s.properties.GetProperty(ctx, req.PropertyID); err != nil {
		return err
	}
	role := req.Role
	if role == "" {
		role = "inspector"
	}
	return s.properties.AddStaff(ctx, &secondary.StaffRecord{
		PropertyID: req.PropertyID,
		UserID:     req.UserID,
		Role:       role,
		IsPrimary:  req.Primary,
	})
}

// ListStaff lists a property's staff.
func (s *PropertyServiceImpl) ListStaff(ctx context.Context, propertyID string) ([]*primary.Staff, error) {
	records, err := s.properties.ListStaff(ctx, propertyID)
	if err != nil {
		return nil, err
	}
	out := make([]*primary.Staff, len(records))
	for i, r := range records {
		out[i] = &primary.Staff{
			PropertyID: r.PropertyID,
			UserID:     r.UserID,
			Role:       r.Role,
			Primary:    r.IsPrimary,
		}
	}
	return out, nil
}

func recordToProperty(r *secondary.PropertyRecord) *primary.Property {
	return &primary.Property{
		ID:        r.ID,
		Name:      r.Name,
		TimeZone:  r.TimeZone,
		Active:    r.Active,
		CreatedAt: r.CreatedAt,
	}
}

// Ensure PropertyServiceImpl implements the interface
var _ primary.PropertyService = (*PropertyServiceImpl)(nil)
