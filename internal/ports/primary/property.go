package primary

import "context"

// PropertyService defines the primary port for properties and their staff.
type PropertyService interface {
	// CreateProperty creates a new active property.
	CreateProperty(ctx context.Context, req CreatePropertyRequest) (*Property, error)

	// GetProperty retrieves a property by ID.
	GetProperty(ctx context.Context, propertyID string) (*Property, error)

	// ListProperties lists properties.
	ListProperties(ctx context.Context, activeOnly bool) ([]*Property, error)

	// SetPropertyActive activates or deactivates a property.
	SetPropertyActive(ctx context.Context, propertyID string, active bool) error

	// AddStaff assigns a user to a property.
	AddStaff(ctx context.Context, req AddStaffRequest) error

	// ListStaff lists a property's staff.
	ListStaff(ctx context.Context, propertyID string) ([]*Staff, error)
}

// CreatePropertyRequest contains parameters for creating a property.
type CreatePropertyRequest struct {
	Name     string
	TimeZone string
}

// AddStaffRequest contains parameters for assigning staff.
type AddStaffRequest struct {
	PropertyID string
	UserID     string
	Role       string
	Primary    bool
}

// Property represents a property at the port boundary.
type Property struct {
	ID        string
	Name      string
	TimeZone  string
	Active    bool
	CreatedAt string
}

// Staff represents a property staff member.
type Staff struct {
	PropertyID string
	UserID     string
	Role       string
	Primary    bool
}
