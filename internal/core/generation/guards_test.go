package generation

import (
	"errors"
	"testing"
	"time"
)

var testKey = Key{
	TemplateID:     "TPL-001",
	PropertyID:     "PROP-001",
	OccurrenceDate: time.Date(2025, 2, 28, 0, 0, 0, 0, time.UTC),
}

func TestCanGenerate(t *testing.T) {
	ok := GenerateContext{
		Key:            testKey,
		TemplateExists: true,
		TemplateActive: true,
		ItemCount:      3,
		PropertyExists: true,
		PropertyActive: true,
	}

	tests := []struct {
		name       string
		mutate     func(c *GenerateContext)
		wantCode   FailureReason
		wantReason string
	}{
		{name: "all good", mutate: func(c *GenerateContext) {}},
		{
			name:       "template missing",
			mutate:     func(c *GenerateContext) { c.TemplateExists = false },
			wantCode:   ReasonTemplateMissing,
			wantReason: "template TPL-001 not found",
		},
		{
			name:       "template deactivated",
			mutate:     func(c *GenerateContext) { c.TemplateActive = false },
			wantCode:   ReasonTemplateInactive,
			wantReason: "template TPL-001 is deactivated",
		},
		{
			name:       "template without items",
			mutate:     func(c *GenerateContext) { c.ItemCount = 0 },
			wantCode:   ReasonTemplateEmpty,
			wantReason: "template TPL-001 has no items",
		},
		{
			name:       "property missing",
			mutate:     func(c *GenerateContext) { c.PropertyExists = false },
			wantCode:   ReasonPropertyMissing,
			wantReason: "property PROP-001 not found",
		},
		{
			name:       "property deactivated",
			mutate:     func(c *GenerateContext) { c.PropertyActive = false },
			wantCode:   ReasonPropertyInactive,
			wantReason: "property PROP-001 is deactivated",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := ok
			tt.mutate(&ctx)
			result := CanGenerate(ctx)

			wantAllowed := tt.wantCode == ""
			if result.Allowed != wantAllowed {
				t.Fatalf("Allowed = %v, want %v", result.Allowed, wantAllowed)
			}
			if wantAllowed {
				if result.AsFailure(testKey) != nil {
					t.Error("expected no failure for allowed guard")
				}
				return
			}
			if result.Code != tt.wantCode {
				t.Errorf("Code = %q, want %q", result.Code, tt.wantCode)
			}
			if result.Reason != tt.wantReason {
				t.Errorf("Reason = %q, want %q", result.Reason, tt.wantReason)
			}

			var err error = result.AsFailure(testKey)
			var failure *Failure
			if !errors.As(err, &failure) {
				t.Fatalf("expected *Failure, got %T", err)
			}
			if failure.Reason != tt.wantCode {
				t.Errorf("Failure.Reason = %q, want %q", failure.Reason, tt.wantCode)
			}
		})
	}
}

func TestFailureError(t *testing.T) {
	f := &Failure{Key: testKey, Reason: ReasonPropertyInactive, Detail: "property PROP-001 is deactivated"}
	want := "generation failed for TPL-001/PROP-001@2025-02-28: property_inactive: property PROP-001 is deactivated"
	if f.Error() != want {
		t.Errorf("Error() = %q, want %q", f.Error(), want)
	}
}

func TestCanReplay(t *testing.T) {
	tests := []struct {
		status      Status
		wantAllowed bool
	}{
		{StatusFailed, true},
		{StatusCreated, false},
		{StatusPending, false},
	}

	for _, tt := range tests {
		t.Run(string(tt.status), func(t *testing.T) {
			result := CanReplay(ReplayContext{GenerationID: "GEN-1", Status: tt.status})
			if result.Allowed != tt.wantAllowed {
				t.Errorf("Allowed = %v, want %v", result.Allowed, tt.wantAllowed)
			}
		})
	}
}

func TestIsStale(t *testing.T) {
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name       string
		status     Status
		reservedAt time.Time
		threshold  time.Duration
		want       bool
	}{
		{name: "fresh pending", status: StatusPending, reservedAt: now.Add(-time.Minute), threshold: 15 * time.Minute},
		{name: "old pending", status: StatusPending, reservedAt: now.Add(-time.Hour), threshold: 15 * time.Minute, want: true},
		{name: "old created", status: StatusCreated, reservedAt: now.Add(-time.Hour), threshold: 15 * time.Minute},
		{name: "old failed", status: StatusFailed, reservedAt: now.Add(-time.Hour), threshold: 15 * time.Minute},
		{name: "reclaim disabled", status: StatusPending, reservedAt: now.Add(-time.Hour), threshold: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsStale(tt.status, tt.reservedAt, now, tt.threshold); got != tt.want {
				t.Errorf("IsStale = %v, want %v", got, tt.want)
			}
		})
	}
}
