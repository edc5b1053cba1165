package compiler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"sync"

	"github.com/EnkiGaming/EnkiLibFor1.8-sub000/internal/event"
)

// Payload is the args type of events built from a definition: a string
// field map on top of the standard cancellation and lifecycle state.
type Payload struct {
	event.StandardArgs

	mu       sync.Mutex
	fields   map[string]string
	rejected []string
}

// NewPayload creates a payload holding a copy of fields.
func NewPayload(fields map[string]string) *Payload {
	p := &Payload{fields: make(map[string]string, len(fields))}
	maps.Copy(p.fields, fields)
	return p
}

// Field returns a field value.
func (p *Payload) Field(name string) (string, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	v, ok := p.fields[name]
	return v, ok
}

// SetField sets a field value.
func (p *Payload) SetField(name, value string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.fields == nil {
		p.fields = make(map[string]string)
	}
	p.fields[name] = value
}

// Fields returns a copy of all fields.
func (p *Payload) Fields() map[string]string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return maps.Clone(p.fields)
}

// Rejected returns the labels of listeners whose cancellation change was
// refused because the payload was immutable.
func (p *Payload) Rejected() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.rejected...)
}

func (p *Payload) reject(label string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.rejected = append(p.rejected, label)
}

// Graph is the set of events built from a definition.
type Graph struct {
	events map[string]*event.Event[*Payload]
	order  []string
}

// Event returns the event named name.
func (g *Graph) Event(name string) (*event.Event[*Payload], bool) {
	ev, ok := g.events[name]
	return ev, ok
}

// Names returns the event names in definition order.
func (g *Graph) Names() []string {
	return append([]string(nil), g.order...)
}

// Build validates def and wires its events. opts apply to every event;
// per-event limits from the definition are applied after them.
func Build(def *Definition, opts ...event.Option) (*Graph, error) {
	if def == nil {
		return nil, errors.New("build: nil definition")
	}
	if verrs := Validate(def); len(verrs) > 0 {
		errs := make([]error, len(verrs))
		for i, ve := range verrs {
			errs[i] = ve
		}
		return nil, fmt.Errorf("build: invalid definition: %w", errors.Join(errs...))
	}

	g := &Graph{events: make(map[string]*event.Event[*Payload], len(def.Events))}

	for _, ed := range def.Events {
		evOpts := append([]event.Option(nil), opts...)
		if ed.MaxDepth > 0 {
			evOpts = append(evOpts, event.WithMaxDepth(ed.MaxDepth))
		}
		if ed.MaxMembers > 0 {
			evOpts = append(evOpts, event.WithMaxMembers(ed.MaxMembers))
		}
		g.events[ed.Name] = event.New[*Payload](ed.Name, evOpts...)
		g.order = append(g.order, ed.Name)
	}

	for _, ed := range def.Events {
		ev := g.events[ed.Name]

		for _, ld := range ed.Listeners {
			if _, err := ev.Register(scriptedListener(ld, ev.Logger()), registerOptions(ld)...); err != nil {
				return nil, fmt.Errorf("build: event %s: %w", ed.Name, err)
			}
		}

		for _, dd := range ed.Dependents {
			mode, _ := parseCancellation(dd.Cancellation) // validated above
			err := event.AddDependent(ev, g.events[dd.Event], converter(dd), event.WithCancellation(mode))
			if err != nil {
				return nil, fmt.Errorf("build: event %s: %w", ed.Name, err)
			}
		}
	}

	return g, nil
}

func registerOptions(ld ListenerDef) []event.RegisterOption {
	priority, _ := event.ParsePriority(ld.Priority) // validated in Build
	opts := []event.RegisterOption{event.WithPriority(priority)}
	if ld.Label != "" {
		opts = append(opts, event.WithLabel(ld.Label))
	}
	if ld.Key != "" {
		opts = append(opts, event.WithKey(ld.Key))
	}
	if ld.IgnoreCancelled {
		opts = append(opts, event.IgnoreCancelled())
	}
	return opts
}

// scriptedListener turns a listener definition into a listener that logs
// to logger.
func scriptedListener(ld ListenerDef, logger *slog.Logger) event.Listener[*Payload] {
	setCancelled := func(cancelled bool) event.Listener[*Payload] {
		return func(ctx context.Context, _ any, p *Payload) {
			if err := p.SetCancelled(cancelled); err != nil {
				logger.DebugContext(ctx, "listener cancellation change refused",
					"event", p.EventName(),
					"listener", ld.Label,
					"error", err,
				)
				p.reject(ld.Label)
			}
		}
	}

	switch actionOf(ld) {
	case ActionCancel:
		return setCancelled(true)
	case ActionUncancel:
		return setCancelled(false)
	case ActionSet:
		return func(_ context.Context, _ any, p *Payload) {
			p.SetField(ld.Field, ld.Value)
		}
	case ActionPanic:
		return func(context.Context, any, *Payload) {
			panic(ld.Value)
		}
	default:
		return func(context.Context, any, *Payload) {}
	}
}

// converter builds the dependent payload from its parent's fields.
func converter(dd DependentDef) func(*Payload) *Payload {
	return func(parent *Payload) *Payload {
		src := parent.Fields()
		child := NewPayload(nil)
		if len(dd.Copy) == 0 {
			maps.Copy(child.fields, src)
		} else {
			for _, name := range dd.Copy {
				if v, ok := src[name]; ok {
					child.fields[name] = v
				}
			}
		}
		maps.Copy(child.fields, dd.Set)
		return child
	}
}
