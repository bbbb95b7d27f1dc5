package appointment

// TransitionGuard decides whether an appointment may move from one status to
// another. It returns ErrInvalidStatusTransition to refuse.
type TransitionGuard func(from, to Status) error

// AllowAnyTransition accepts every change between valid statuses.
func AllowAnyTransition(from, to Status) error {
	if !to.IsValid() {
		return ErrInvalidStatus
	}
	return nil
}

var strictTransitions = map[Status][]Status{
	StatusScheduled:   {StatusConfirmed, StatusCancelled, StatusRescheduled},
	StatusConfirmed:   {StatusCompleted, StatusCancelled, StatusRescheduled},
	StatusRescheduled: {StatusScheduled, StatusConfirmed, StatusCancelled},
	StatusCompleted:   {},
	StatusCancelled:   {},
}

// StrictTransitions only allows forward moves through the lifecycle:
//
//	scheduled → confirmed → completed
//	scheduled | confirmed → rescheduled → scheduled | confirmed
//	any open status → cancelled
//
// Completed and cancelled are terminal.
func StrictTransitions(from, to Status) error {
	if !to.IsValid() {
		return ErrInvalidStatus
	}
	if from == to {
		return nil
	}
	for _, s := range strictTransitions[from] {
		if s == to {
			return nil
		}
	}
	return ErrInvalidStatusTransition
}
