// Package directory implements assignee selection over property staff.
package directory

import (
	"context"
	"fmt"

	"github.com/example/propcheck/internal/ports/secondary"
)

// Assignment policies stored on templates.
const (
	PolicyNone        = "none"
	PolicyPrimary     = "primary"
	PolicyLeastLoaded = "least_loaded"
)

// StaffLister lists the staff of a property, primary first.
type StaffLister interface {
	ListStaff(ctx context.Context, propertyID string) ([]*secondary.StaffRecord, error)
}

// WorkloadCounter counts a user's open checklists.
type WorkloadCounter interface {
	CountOpenByAssignee(ctx context.Context, assigneeID string) (int, error)
}

// StaffResolver implements secondary.AssigneeResolver.
type StaffResolver struct {
	staff    StaffLister
	workload WorkloadCounter
}

// NewStaffResolver creates a resolver over property staff and open workload.
func NewStaffResolver(staff StaffLister, workload WorkloadCounter) *StaffResolver {
	return &StaffResolver{staff: staff, workload: workload}
}

// ResolveAssignee picks a user for a new instance. An empty result means the
// instance stays unassigned.
func (r *StaffResolver) ResolveAssignee(ctx context.Context, templateID, propertyID, policy string) (string, error) {
	switch policy {
	case PolicyNone, "":
		return "", nil
	case PolicyPrimary, PolicyLeastLoaded:
	default:
		return "", fmt.Errorf("unknown assignment policy %q on template %s", policy, templateID)
	}

	staff, err := r.staff.ListStaff(ctx, propertyID)
	if err != nil {
		return "", fmt.Errorf("failed to list staff for %s: %w", propertyID, err)
	}
	if len(staff) == 0 {
		return "", nil
	}

	if policy == PolicyPrimary {
		for _, s := range staff {
			if s.IsPrimary {
				return s.UserID, nil
			}
		}
		return staff[0].UserID, nil
	}

	// Least loaded; ties keep the staff order (primary first).
	best, bestCount := "", -1
	for _, s := range staff {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		count, err := r.workload.CountOpenByAssignee(ctx, s.UserID)
		if err != nil {
			return "", fmt.Errorf("failed to count workload for %s: %w", s.UserID, err)
		}
		if bestCount < 0 || count < bestCount {
			best, bestCount = s.UserID, count
		}
	}
	return best, nil
}

// Ensure StaffResolver implements the interface
var _ secondary.AssigneeResolver = (*StaffResolver)(nil)
