package event

import (
	"fmt"
	"reflect"
	"slices"
	"sync"
	"sync/atomic"
)

// Args is the per-raise state handed to listeners.
//
// Implementations embed StandardArgs:
//
//	type DamageArgs struct {
//		event.StandardArgs
//		Amount int
//	}
//
// *DamageArgs then satisfies Args.
type Args interface {
	// IsCancelled reports the current cancellation flag.
	IsCancelled() bool

	// SetCancelled changes the cancellation flag. It fails with
	// ErrArgsImmutable once the args stopped accepting changes.
	SetCancelled(cancelled bool) error

	// IsMutable reports whether SetCancelled currently succeeds.
	IsMutable() bool

	// State returns the lifecycle state.
	State() UsageState

	// Parent returns the args this one was converted from, or nil for the
	// root of a raise group.
	Parent() Args

	// Dependents returns the args converted from this one, in dispatch
	// group order.
	Dependents() []Args

	// RaiseID returns the identifier of the raise group, once raised.
	RaiseID() string

	// EventName returns the name of the event these args were raised on.
	EventName() string

	// SharesCancellationWith reports whether cancelling this args would
	// cancel other, and vice versa.
	SharesCancellationWith(other Args) bool

	standard() *StandardArgs
}

// cancelCell is a cancellation flag that may be shared by several args.
type cancelCell struct {
	cancelled atomic.Bool
}

// StandardArgs implements Args. The zero value is ready to use.
type StandardArgs struct {
	mu         sync.Mutex
	state      UsageState
	immutable  bool
	cell       *cancelCell
	parent     Args
	dependents []Args
	raiseID    string
	event      string

	// group is set on the root args of a raise group and drives RaisePost.
	group *group
}

func (a *StandardArgs) standard() *StandardArgs { return a }

// cellLocked returns the cancellation cell, allocating it on first use.
// Caller must hold a.mu.
func (a *StandardArgs) cellLocked() *cancelCell {
	if a.cell == nil {
		a.cell = &cancelCell{}
	}
	return a.cell
}

func (a *StandardArgs) IsCancelled() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.cellLocked().cancelled.Load()
}

func (a *StandardArgs) SetCancelled(cancelled bool) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.immutable {
		return ErrArgsImmutable
	}
	a.cellLocked().cancelled.Store(cancelled)
	return nil
}

func (a *StandardArgs) IsMutable() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return !a.immutable
}

func (a *StandardArgs) State() UsageState {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.state
}

func (a *StandardArgs) Parent() Args {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.parent
}

func (a *StandardArgs) Dependents() []Args {
	a.mu.Lock()
	defer a.mu.Unlock()
	return slices.Clone(a.dependents)
}

func (a *StandardArgs) RaiseID() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.raiseID
}

func (a *StandardArgs) EventName() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.event
}

func (a *StandardArgs) SharesCancellationWith(other Args) bool {
	if isNilArgs(other) {
		return false
	}
	o := other.standard()
	if o == a {
		return true
	}
	return a.sharedCell() == o.sharedCell()
}

func (a *StandardArgs) sharedCell() *cancelCell {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.cellLocked()
}

// advance moves the args one step along the lifecycle, requiring the
// current state to be from.
func (a *StandardArgs) advance(from UsageState) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.state != from {
		if from == Unused {
			return ErrArgsAlreadyUsed
		}
		return fmt.Errorf("%w: expected %s, got %s", ErrInvalidState, from, a.state)
	}
	next, ok := a.state.next()
	if !ok {
		return fmt.Errorf("%w: %s is final", ErrInvalidState, a.state)
	}
	a.state = next
	return nil
}

// freeze stops the args from accepting cancellation changes.
func (a *StandardArgs) freeze() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.immutable = true
}

// stamp records which raise and event the args belong to.
func (a *StandardArgs) stamp(raiseID, event string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.raiseID = raiseID
	a.event = event
}

// link attaches child below a. With shared set, child adopts a's
// cancellation cell; a cancel already set on the child carries over.
func (a *StandardArgs) link(self, child Args, shared bool) {
	c := child.standard()

	var cell *cancelCell
	if shared {
		cell = a.sharedCell()
	}

	c.mu.Lock()
	c.parent = self
	if shared {
		if c.cell != nil && c.cell.cancelled.Load() {
			cell.cancelled.Store(true)
		}
		c.cell = cell
	}
	c.mu.Unlock()

	a.mu.Lock()
	a.dependents = append(a.dependents, child)
	a.mu.Unlock()
}

func (a *StandardArgs) setGroup(g *group) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.group = g
}

func (a *StandardArgs) raiseGroup() *group {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.group
}

// isNilArgs catches both a nil interface and a typed nil pointer.
func isNilArgs(a Args) bool {
	if a == nil {
		return true
	}
	v := reflect.ValueOf(a)
	return v.Kind() == reflect.Pointer && v.IsNil()
}
