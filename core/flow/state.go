package flow

// State is where a flow step left the interaction.
type State string

const (
	StateCreated        State = "created"
	StateAwaitingChoice State = "awaiting_choice"
	StateResolving      State = "resolving"
	StateCommitted      State = "committed"
	StateExpired        State = "expired"
	StateAbandoned      State = "abandoned"
	StateFailed         State = "failed"

	// StateRejected ends a step without side effects: authorization,
	// cooldown, invalid input, or a business refusal such as a duplicate.
	StateRejected State = "rejected"
	// StateCancelled is a user-chosen end of a flow.
	StateCancelled State = "cancelled"
	// StateAlreadyHandled marks a resumption that lost the claim race.
	StateAlreadyHandled State = "already_handled"
)

// IsTerminal reports whether no further step can follow.
func (s State) IsTerminal() bool {
	switch s {
	case StateCreated, StateAwaitingChoice, StateResolving:
		return false
	}
	return true
}

func (s State) String() string { return string(s) }

// Actor is the user behind a step.
type Actor struct {
	UserID     string `json:"user_id"`
	Scope      string `json:"scope"`
	ScopeOwner string `json:"scope_owner"`
	// Surface is where replies to this step are presented.
	Surface string `json:"surface,omitempty"`
}

// IsScopeOwner reports whether the actor owns the scope.
func (a Actor) IsScopeOwner() bool {
	return a.UserID != "" && a.UserID == a.ScopeOwner
}
