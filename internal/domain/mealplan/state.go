package mealplan

// State implements the state pattern for meal plan lifecycle transitions.
type State interface {
	Status() Status
	Complete() (State, error)
	Cancel() (State, error)
}

func stateFor(s Status) State {
	switch s {
	case StatusCompleted:
		return completedState{}
	case StatusCancelled:
		return cancelledState{}
	default:
		return plannedState{}
	}
}

type plannedState struct{}

func (plannedState) Status() Status           { return StatusPlanned }
func (plannedState) Complete() (State, error) { return completedState{}, nil }
func (plannedState) Cancel() (State, error)   { return cancelledState{}, nil }

type completedState struct{}

func (completedState) Status() Status { return StatusCompleted }

// Complete is idempotent for an already completed plan.
func (completedState) Complete() (State, error) { return completedState{}, nil }
func (completedState) Cancel() (State, error)   { return nil, ErrInvalidStateTransition }

type cancelledState struct{}

func (cancelledState) Status() Status           { return StatusCancelled }
func (cancelledState) Complete() (State, error) { return nil, ErrInvalidStateTransition }

// Cancel is idempotent for an already cancelled plan.
func (cancelledState) Cancel() (State, error) { return cancelledState{}, nil }
