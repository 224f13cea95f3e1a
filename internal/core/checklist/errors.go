package checklist

import "fmt"

// InvalidTransitionError is returned when a lifecycle or approval action is
// attempted from a state that forbids it. The instance is left unchanged.
type InvalidTransitionError struct {
	InstanceID string
	From       Status
	Action     string
	Reason     string
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("invalid transition: %s on checklist %s (status %s): %s",
		e.Action, e.InstanceID, e.From, e.Reason)
}

// NewInvalidTransition builds an InvalidTransitionError from a denied guard's reason.
func NewInvalidTransition(instanceID string, from Status, action, reason string) *InvalidTransitionError {
	return &InvalidTransitionError{
		InstanceID: instanceID,
		From:       from,
		Action:     action,
		Reason:     reason,
	}
}
