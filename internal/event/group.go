package event

import (
	"fmt"

	"github.com/EnkiGaming/EnkiLibFor1.8-sub000/internal/trace"
)

// member is one event raised as part of a group.
type member struct {
	node   *core
	args   Args
	parent int // index into group.members; -1 for the root
	shared bool
}

// group is the set of events raised together from one root.
//
// Members are in depth-first order over dependents, root first. That order
// is also the tie-breaker between listeners of equal priority on different
// events.
type group struct {
	raiseID string
	cfg     config
	members []member
}

func (g *group) root() member { return g.members[0] }

func (g *group) parentName(i int) string {
	if p := g.members[i].parent; p >= 0 {
		return g.members[p].node.name
	}
	return ""
}

// trace stamps and emits an entry.
func (g *group) trace(e trace.Entry) {
	e.Seq = g.cfg.clock.Next()
	e.RaiseID = g.raiseID
	g.cfg.tracer.Trace(e)
}

// planStep is one dependent registration reached from the root, decided
// before any args exist.
type planStep struct {
	link   dependentLink
	parent int // index into the plan; -1 for the root
	depth  int
	err    *RuntimeError // set for rejected steps
}

// plan walks the dependent graph from c without touching any args.
//
// A dependent whose event is already on the path from the root is recorded
// as a rejected step and not descended into. Exceeding the depth limit or
// the member quota fails the whole plan.
func (c *core) plan() ([]planStep, error) {
	var (
		steps   []planStep
		members = 1 // root
		onPath  = map[*core]bool{c: true}
		path    = []string{c.name}
	)

	var walk func(n *core, parent, depth int) error
	walk = func(n *core, parent, depth int) error {
		for _, link := range n.dependentLinks() {
			child := link.child
			if onPath[child] {
				cyclePath := append(append([]string(nil), path...), child.name)
				steps = append(steps, planStep{
					link:   link,
					parent: parent,
					depth:  depth + 1,
					err:    NewCycleError(child.name, n.name, cyclePath),
				})
				continue
			}
			if depth+1 > c.cfg.maxDepth {
				return NewDepthError(child.name, depth+1, c.cfg.maxDepth)
			}
			members++
			if members > c.cfg.maxMembers {
				return NewQuotaError(c.name, members, c.cfg.maxMembers)
			}

			steps = append(steps, planStep{link: link, parent: parent, depth: depth + 1})
			idx := len(steps) - 1

			onPath[child] = true
			path = append(path, child.name)
			if err := walk(child, idx, depth+1); err != nil {
				return err
			}
			path = path[:len(path)-1]
			delete(onPath, child)
		}
		return nil
	}

	if err := walk(c, -1, 0); err != nil {
		return nil, err
	}
	return steps, nil
}

// realize converts, links and starts the args of each planned dependent.
// Steps whose parent did not make it into the group are skipped.
func (g *group) realize(steps []planStep) {
	// memberOf maps a plan index to its member index, or -1.
	memberOf := make([]int, len(steps))

	for i, step := range steps {
		memberOf[i] = -1

		parentMember := 0
		if step.parent >= 0 {
			parentMember = memberOf[step.parent]
		}
		if parentMember < 0 {
			continue
		}
		parent := g.members[parentMember]

		if step.err != nil {
			step.err.RaiseID = g.raiseID
			g.reject(step, parent, step.err)
			continue
		}

		childArgs, rerr := convertArgs(step.link, parent.args)
		if rerr != nil {
			rerr.RaiseID = g.raiseID
			g.reject(step, parent, rerr)
			continue
		}

		cs := childArgs.standard()
		if err := cs.advance(Unused); err != nil {
			rerr := &RuntimeError{
				Code:    ErrCodeArgsRejected,
				Message: "converter returned args that were already used",
				RaiseID: g.raiseID,
				Event:   step.link.child.name,
				Parent:  parent.node.name,
			}
			g.reject(step, parent, rerr)
			continue
		}
		cs.stamp(g.raiseID, step.link.child.name)
		parent.args.standard().link(parent.args, childArgs, step.link.shared)

		g.members = append(g.members, member{
			node:   step.link.child,
			args:   childArgs,
			parent: parentMember,
			shared: step.link.shared,
		})
		memberOf[i] = len(g.members) - 1

		g.trace(trace.Entry{
			Kind:      trace.KindDependent,
			Phase:     trace.PhasePre,
			Event:     step.link.child.name,
			Parent:    parent.node.name,
			Cancelled: childArgs.IsCancelled(),
			Shared:    step.link.shared,
		})
	}
}

func (g *group) reject(step planStep, parent member, rerr *RuntimeError) {
	g.cfg.log().Warn("dependent event skipped",
		"raise_id", g.raiseID,
		"event", step.link.child.name,
		"parent", parent.node.name,
		"code", rerr.Code,
		"error", rerr.Message,
	)
	g.trace(trace.Entry{
		Kind:   trace.KindError,
		Phase:  trace.PhasePre,
		Event:  step.link.child.name,
		Parent: parent.node.name,
		Shared: step.link.shared,
		Error:  rerr.Error(),
	})
}

// convertArgs runs a dependent converter, turning panics and nil results
// into RuntimeErrors.
func convertArgs(link dependentLink, parent Args) (child Args, rerr *RuntimeError) {
	defer func() {
		if r := recover(); r != nil {
			child = nil
			rerr = &RuntimeError{
				Code:    ErrCodeConverterFailed,
				Message: fmt.Sprintf("converter panicked: %v", r),
				Event:   link.child.name,
				Parent:  parent.EventName(),
			}
		}
	}()

	child = link.convert(parent)
	if isNilArgs(child) {
		return nil, &RuntimeError{
			Code:    ErrCodeConverterFailed,
			Message: "converter returned nil args",
			Event:   link.child.name,
			Parent:  parent.EventName(),
		}
	}
	return child, nil
}

// advanceMembers moves members[start:] from one state to the next.
func (g *group) advanceMembers(from UsageState, start int) {
	for _, m := range g.members[start:] {
		if err := m.args.standard().advance(from); err != nil {
			g.cfg.log().Error("event args lifecycle out of step",
				"raise_id", g.raiseID,
				"event", m.node.name,
				"error", err,
			)
		}
	}
}

func (g *group) freezeAll() {
	for _, m := range g.members {
		m.args.standard().freeze()
	}
}
