package event

import (
	"cmp"
	"context"
	"errors"
	"fmt"

	"github.com/EnkiGaming/EnkiLibFor1.8-sub000/internal/collections"
	"github.com/EnkiGaming/EnkiLibFor1.8-sub000/internal/trace"
)

// dispatchItem is one listener call within a raise group.
type dispatchItem struct {
	entry  *listenerEntry
	member int
}

func compareDispatch(a, b dispatchItem) int {
	if c := cmp.Compare(a.entry.priority, b.entry.priority); c != 0 {
		return c
	}
	if c := cmp.Compare(a.member, b.member); c != 0 {
		return c
	}
	return cmp.Compare(a.entry.id, b.entry.id)
}

func (c *core) raisePre(ctx context.Context, sender any, args Args) error {
	if isNilArgs(args) {
		return ErrNilArgs
	}
	root := args.standard()
	if root.State() != Unused {
		return ErrArgsAlreadyUsed
	}

	steps, err := c.plan()
	if err != nil {
		c.cfg.log().Error("raise rejected",
			"event", c.name,
			"error", err,
		)
		return fmt.Errorf("raise %s: %w", c.name, err)
	}

	if err := root.advance(Unused); err != nil {
		return err
	}

	g := &group{
		raiseID: c.cfg.ids.Generate(),
		cfg:     c.cfg,
		members: []member{{node: c, args: args, parent: -1}},
	}
	root.stamp(g.raiseID, c.name)
	root.setGroup(g)

	c.cfg.log().Debug("raising event",
		"event", c.name,
		"raise_id", g.raiseID,
		"dependents", len(steps),
	)

	g.trace(trace.Entry{
		Kind:      trace.KindRaise,
		Phase:     trace.PhasePre,
		Event:     c.name,
		Cancelled: args.IsCancelled(),
	})

	g.realize(steps)
	dispatchErr := g.dispatch(ctx, sender, trace.PhasePre)

	g.advanceMembers(UsingPreEvent, 0)

	g.trace(trace.Entry{
		Kind:      trace.KindPhase,
		Phase:     trace.PhasePre,
		Event:     c.name,
		Cancelled: args.IsCancelled(),
	})

	return dispatchErr
}

func (c *core) raisePost(ctx context.Context, sender any, args Args) error {
	if isNilArgs(args) {
		return ErrNilArgs
	}
	if args.Parent() != nil {
		return ErrNotGroupRoot
	}

	root := args.standard()
	g := root.raiseGroup()
	if g == nil {
		return fmt.Errorf("%w: post-event raised before pre-event (state %s)", ErrInvalidState, root.State())
	}
	if g.root().node != c {
		return fmt.Errorf("%w: args were raised on %s, not %s", ErrInvalidState, g.root().node.name, c.name)
	}

	if err := root.advance(UsedPreEvent); err != nil {
		return err
	}
	g.advanceMembers(UsedPreEvent, 1)

	g.trace(trace.Entry{
		Kind:      trace.KindRaise,
		Phase:     trace.PhasePost,
		Event:     c.name,
		Cancelled: args.IsCancelled(),
	})

	dispatchErr := g.dispatch(ctx, sender, trace.PhasePost)

	g.advanceMembers(UsingPostEvent, 0)

	g.trace(trace.Entry{
		Kind:      trace.KindPhase,
		Phase:     trace.PhasePost,
		Event:     c.name,
		Cancelled: args.IsCancelled(),
	})

	return dispatchErr
}

// dispatch runs the listeners of every member for one phase in merged
// priority order.
//
// In the pre phase the group is frozen right before the first monitor
// listener, or at the end of the phase if there is none. The post phase
// always runs frozen.
func (g *group) dispatch(ctx context.Context, sender any, phase trace.Phase) error {
	post := phase == trace.PhasePost

	merged := collections.NewCombinedQueue(compareDispatch)
	for i, m := range g.members {
		entries := m.node.snapshot(post)
		items := make([]dispatchItem, len(entries))
		for j, le := range entries {
			items[j] = dispatchItem{entry: le, member: i}
		}
		merged.AddSource(collections.NewSortedQueue(compareDispatch, items...))
	}

	frozen := post
	freeze := func(p Priority) {
		if frozen {
			return
		}
		frozen = true
		g.freezeAll()
		g.trace(trace.Entry{
			Kind:      trace.KindImmutable,
			Phase:     phase,
			Event:     g.root().node.name,
			Priority:  int(p),
			Cancelled: g.root().args.IsCancelled(),
		})
	}

	var errs []error
	for {
		if err := ctx.Err(); err != nil {
			g.cfg.log().Warn("raise interrupted",
				"raise_id", g.raiseID,
				"event", g.root().node.name,
				"phase", phase,
				"error", err,
			)
			g.trace(trace.Entry{
				Kind:  trace.KindError,
				Phase: phase,
				Event: g.root().node.name,
				Error: err.Error(),
			})
			errs = append(errs, err)
			break
		}

		item, ok := merged.Draw()
		if !ok {
			break
		}
		le := item.entry
		m := g.members[item.member]

		if le.priority.IsMonitor() {
			freeze(le.priority)
		}

		if le.ignoreCancelled && m.args.IsCancelled() {
			g.trace(trace.Entry{
				Kind:      trace.KindSkip,
				Phase:     phase,
				Event:     m.node.name,
				Parent:    g.parentName(item.member),
				Listener:  le.label,
				Priority:  int(le.priority),
				Cancelled: true,
			})
			continue
		}

		callErr := invoke(ctx, le, m.node.name, sender, m.args)
		entry := trace.Entry{
			Kind:      trace.KindDispatch,
			Phase:     phase,
			Event:     m.node.name,
			Parent:    g.parentName(item.member),
			Listener:  le.label,
			Priority:  int(le.priority),
			Cancelled: m.args.IsCancelled(),
			Shared:    m.shared,
		}
		if callErr != nil {
			entry.Error = callErr.Error()
			g.cfg.log().Warn("listener panicked",
				"raise_id", g.raiseID,
				"event", m.node.name,
				"listener", le.label,
				"error", callErr,
			)
			errs = append(errs, callErr)
		}
		g.trace(entry)
	}

	freeze(PriorityMonitor)
	return errors.Join(errs...)
}

// invoke calls a listener, converting a panic into a ListenerPanicError.
func invoke(ctx context.Context, le *listenerEntry, eventName string, sender any, args Args) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &ListenerPanicError{Event: eventName, Listener: le.label, Value: r}
		}
	}()
	le.call(ctx, sender, args)
	return nil
}
