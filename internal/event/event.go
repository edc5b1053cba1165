package event

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"reflect"
	"sync"
	"sync/atomic"

	"github.com/EnkiGaming/EnkiLibFor1.8-sub000/internal/collections"
)

// Listener handles one raise of an event.
type Listener[A Args] func(ctx context.Context, sender any, args A)

// Registration identifies a registered listener.
type Registration struct {
	id    uint64
	event uint64
}

// ListenerInfo describes a registered listener.
type ListenerInfo struct {
	Label           string
	Priority        Priority
	Key             any
	IgnoreCancelled bool
}

// Handle is implemented by every *Event. It lets events with different
// args types refer to each other.
type Handle interface {
	Name() string
	node() *core
}

var (
	nextEventID    atomic.Uint64
	nextListenerID atomic.Uint64
)

// listenerEntry is the type-erased form of a registered listener.
type listenerEntry struct {
	id              uint64
	label           string
	priority        Priority
	key             any
	ignoreCancelled bool
	call            func(ctx context.Context, sender any, args Args)
}

func compareEntries(a, b *listenerEntry) int {
	if c := cmp.Compare(a.priority, b.priority); c != 0 {
		return c
	}
	return cmp.Compare(a.id, b.id)
}

// dependentLink is the type-erased form of a dependent registration.
type dependentLink struct {
	child   *core
	convert func(parent Args) Args
	shared  bool
}

// core holds everything about an event that does not depend on its args
// type.
type core struct {
	id        uint64
	name      string
	cfg       config
	listeners *collections.SortedQueue[*listenerEntry]

	mu         sync.RWMutex
	dependents []dependentLink
}

// Event is a named event with prioritized listeners and dependent events.
type Event[A Args] struct {
	c *core
}

// New creates an event.
func New[A Args](name string, opts ...Option) *Event[A] {
	cfg := defaultConfig()
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}
	return &Event[A]{c: &core{
		id:        nextEventID.Add(1),
		name:      name,
		cfg:       cfg,
		listeners: collections.NewSortedQueue(compareEntries),
	}}
}

// Name returns the event name.
func (e *Event[A]) Name() string { return e.c.name }

// Logger returns the logger configured with WithLogger, or slog.Default().
func (e *Event[A]) Logger() *slog.Logger { return e.c.cfg.log() }

func (e *Event[A]) node() *core { return e.c }

// Register adds a listener. Default priority is PriorityNormal; listeners
// with equal priority run in registration order.
func (e *Event[A]) Register(l Listener[A], opts ...RegisterOption) (Registration, error) {
	if l == nil {
		return Registration{}, errors.New("register: nil listener")
	}

	rc := registerConfig{priority: PriorityNormal}
	for _, opt := range opts {
		if opt != nil {
			opt(&rc)
		}
	}
	if rc.key != nil && !reflect.ValueOf(rc.key).Comparable() {
		return Registration{}, fmt.Errorf("register: key of type %T is not comparable", rc.key)
	}

	entry := &listenerEntry{
		id:              nextListenerID.Add(1),
		label:           rc.label,
		priority:        rc.priority,
		key:             rc.key,
		ignoreCancelled: rc.ignoreCancelled,
		call: func(ctx context.Context, sender any, args Args) {
			l(ctx, sender, args.(A))
		},
	}
	if entry.label == "" {
		entry.label = fmt.Sprintf("listener-%d", entry.id)
	}
	e.c.listeners.Add(entry)

	return Registration{id: entry.id, event: e.c.id}, nil
}

// MustRegister is like Register but panics on error.
func (e *Event[A]) MustRegister(l Listener[A], opts ...RegisterOption) Registration {
	r, err := e.Register(l, opts...)
	if err != nil {
		panic(err)
	}
	return r
}

// Deregister removes a listener. It reports whether the registration
// belonged to this event and was still present.
func (e *Event[A]) Deregister(r Registration) bool {
	if r.event != e.c.id {
		return false
	}
	return e.c.listeners.Remove(func(le *listenerEntry) bool { return le.id == r.id }) > 0
}

// DeregisterKey removes every listener registered with key and returns
// how many were removed.
func (e *Event[A]) DeregisterKey(key any) int {
	if key == nil || !reflect.ValueOf(key).Comparable() {
		return 0
	}
	return e.c.listeners.Remove(func(le *listenerEntry) bool {
		return le.key == key
	})
}

// ListenerCount returns the number of registered listeners.
func (e *Event[A]) ListenerCount() int {
	return e.c.listeners.Len()
}

// Listeners describes the registered listeners in dispatch order.
func (e *Event[A]) Listeners() []ListenerInfo {
	var out []ListenerInfo
	for le := range e.c.listeners.All() {
		out = append(out, ListenerInfo{
			Label:           le.label,
			Priority:        le.priority,
			Key:             le.key,
			IgnoreCancelled: le.ignoreCancelled,
		})
	}
	return out
}

// Dependents returns the names of the dependent events in raise order.
func (e *Event[A]) Dependents() []string {
	links := e.c.dependentLinks()
	names := make([]string, len(links))
	for i, l := range links {
		names[i] = l.child.name
	}
	return names
}

// RemoveDependent removes every dependent registration of child and
// reports whether any was removed.
func (e *Event[A]) RemoveDependent(child Handle) bool {
	if child == nil {
		return false
	}
	target := child.node()

	e.c.mu.Lock()
	defer e.c.mu.Unlock()

	before := len(e.c.dependents)
	kept := e.c.dependents[:0]
	for _, l := range e.c.dependents {
		if l.child != target {
			kept = append(kept, l)
		}
	}
	clear(e.c.dependents[len(kept):])
	e.c.dependents = kept
	return len(kept) < before
}

// AddDependent makes child raise whenever parent raises. convert builds the
// child's args from the parent's; it must return fresh, unused args.
//
// A child may be added to several parents, and the same child more than
// once; each registration yields its own member in the raise group.
func AddDependent[A, B Args](parent *Event[A], child *Event[B], convert func(A) B, opts ...DependentOption) error {
	if parent == nil || child == nil {
		return errors.New("add dependent: nil event")
	}
	if convert == nil {
		return errors.New("add dependent: nil converter")
	}

	var dc dependentConfig
	for _, opt := range opts {
		if opt != nil {
			opt(&dc)
		}
	}

	link := dependentLink{
		child:  child.c,
		shared: dc.cancellation == SharedCancellation,
		convert: func(p Args) Args {
			return convert(p.(A))
		},
	}

	parent.c.mu.Lock()
	defer parent.c.mu.Unlock()
	parent.c.dependents = append(parent.c.dependents, link)
	return nil
}

func (c *core) dependentLinks() []dependentLink {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]dependentLink, len(c.dependents))
	copy(out, c.dependents)
	return out
}

// snapshot returns the listeners for a phase in dispatch order.
func (c *core) snapshot(post bool) []*listenerEntry {
	var out []*listenerEntry
	for le := range c.listeners.All() {
		if le.priority.IsPost() == post {
			out = append(out, le)
		}
	}
	return out
}

// Raise runs the pre-event phase for args and every dependent event.
//
// Listener panics are recovered; they are traced, logged and returned
// joined together once the phase completes. If ctx is cancelled, no further
// listeners run and ctx.Err() is returned.
func (e *Event[A]) Raise(ctx context.Context, sender any, args A) error {
	return e.c.raisePre(ctx, sender, args)
}

// RaisePost runs the post-event phase. args must be the root of a raise
// group that completed Raise.
func (e *Event[A]) RaisePost(ctx context.Context, sender any, args A) error {
	return e.c.raisePost(ctx, sender, args)
}

// RaiseAll runs Raise and then RaisePost. The post phase runs even when the
// pre phase reported listener panics; it does not run after a group-level
// failure or context cancellation.
func (e *Event[A]) RaiseAll(ctx context.Context, sender any, args A) error {
	preErr := e.c.raisePre(ctx, sender, args)
	if preErr != nil && !isListenerFailure(preErr) {
		return preErr
	}
	return errors.Join(preErr, e.c.raisePost(ctx, sender, args))
}

// isListenerFailure reports whether err only carries listener panics.
func isListenerFailure(err error) bool {
	var pe *ListenerPanicError
	if !errors.As(err, &pe) {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	return true
}
