package schedule

import (
	"errors"
	"fmt"
	"strings"
)

type Status string

const (
	StatusPending    Status = "PENDING"
	StatusInProgress Status = "IN_PROGRESS"
	StatusCompleted  Status = "COMPLETED"
	StatusCancelled  Status = "CANCELLED"
)

// Statuses lists every status in display order.
var Statuses = []Status{StatusPending, StatusInProgress, StatusCompleted, StatusCancelled}

func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusInProgress, StatusCompleted, StatusCancelled:
		return true
	}
	return false
}

// Terminal reports whether no forward work remains. Cancel is still allowed.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusCancelled
}

type Action string

const (
	ActionStart    Action = "start"
	ActionComplete Action = "complete"
	ActionCancel   Action = "cancel"
)

var (
	ErrInvalidStatusTransition = errors.New("invalid status transition")
	ErrUnknownAction           = errors.New("unknown status action")
)

type transitionRule struct {
	target Status
	from   map[Status]bool
}

// complete may skip IN_PROGRESS and cancel is accepted from every state,
// matching how the dashboard status buttons behave.
var transitions = map[Action]transitionRule{
	ActionStart: {
		target: StatusInProgress,
		from:   map[Status]bool{StatusPending: true},
	},
	ActionComplete: {
		target: StatusCompleted,
		from:   map[Status]bool{StatusPending: true, StatusInProgress: true},
	},
	ActionCancel: {
		target: StatusCancelled,
		from: map[Status]bool{
			StatusPending:    true,
			StatusInProgress: true,
			StatusCompleted:  true,
		},
	},
}

func ParseAction(s string) (Action, error) {
	a := Action(strings.ToLower(strings.TrimSpace(s)))
	if _, ok := transitions[a]; !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownAction, s)
	}
	return a, nil
}

// Target is the status an action moves an appointment into.
func (a Action) Target() (Status, error) {
	rule, ok := transitions[a]
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownAction, string(a))
	}
	return rule.target, nil
}

// Transition returns the status reached by applying action to current.
// Applying an action whose target is already the current status is a no-op.
func Transition(current Status, action Action) (Status, error) {
	rule, ok := transitions[action]
	if !ok {
		return current, fmt.Errorf("%w: %q", ErrUnknownAction, string(action))
	}
	if current == rule.target {
		return current, nil
	}
	if !rule.from[current] {
		return current, fmt.Errorf("%w: cannot %s an appointment that is %s", ErrInvalidStatusTransition, action, current)
	}
	return rule.target, nil
}
