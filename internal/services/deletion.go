package services

import (
	"errors"

	"github.com/Ezzerof/expense-tracker/internal/core"
)

// ScopeChoice is the user's answer to "delete one occurrence or the whole
// series?". One-off transactions never prompt, so their choice is ignored.
type ScopeChoice int

const (
	// ChoiceNone means the user was never asked or has not answered yet.
	ChoiceNone ScopeChoice = iota
	// ChoiceOne deletes only the clicked occurrence.
	ChoiceOne
	// ChoiceAll deletes the entire series definition.
	ChoiceAll
	// ChoiceCancel aborts the delete.
	ChoiceCancel
)

var (
	// ErrScopeRequired flags a delete issued against a recurring series
	// without an explicit scope. This is a contract violation by the
	// caller, not a user-recoverable condition.
	ErrScopeRequired = errors.New("delete scope must be chosen for a recurring transaction")

	// ErrDeleteCancelled means the user backed out; nothing is sent to
	// the store and the editor state is untouched.
	ErrDeleteCancelled = errors.New("delete cancelled")
)

// ResolveDeleteScope turns a delete request into an unambiguous scope.
// A one-off resolves to ScopeOne with no prompt. A series requires the user
// to have chosen; there is no implicit default in either direction.
func ResolveDeleteScope(t core.Transaction, choice ScopeChoice) (core.DeleteScope, error) {
	if choice == ChoiceCancel {
		return "", ErrDeleteCancelled
	}
	if !t.IsRecurring() {
		return core.ScopeOne, nil
	}
	switch choice {
	case ChoiceOne:
		return core.ScopeOne, nil
	case ChoiceAll:
		return core.ScopeAll, nil
	default:
		return "", ErrScopeRequired
	}
}
