package compiler

import (
	"fmt"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/load"
	"cuelang.org/go/cue/token"
)

// ParseCUE compiles CUE source into a definition. Events are declared as
// fields of a top-level "event" struct, in raise order:
//
//	event: damage: {
//		listeners: [{label: "armor", action: "cancel"}]
//		dependents: [{event: "log"}]
//	}
//	event: log: {}
func ParseCUE(data []byte, filename string) (*Definition, error) {
	ctx := cuecontext.New()
	v := ctx.CompileBytes(data, cue.Filename(filename))
	return CompileDefinition(v)
}

// LoadCUEDir loads the CUE package in dir and compiles it.
func LoadCUEDir(dir string) (*Definition, error) {
	instances := load.Instances([]string{"."}, &load.Config{Dir: dir})
	if len(instances) == 0 {
		return nil, fmt.Errorf("no CUE instances in %s", dir)
	}
	inst := instances[0]
	if inst.Err != nil {
		return nil, fmt.Errorf("loading CUE files: %w", inst.Err)
	}

	ctx := cuecontext.New()
	return CompileDefinition(ctx.BuildInstance(inst))
}

// CompileDefinition converts a CUE value into a definition.
func CompileDefinition(v cue.Value) (*Definition, error) {
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}

	def := &Definition{}
	events := v.LookupPath(cue.ParsePath("event"))
	if !events.Exists() {
		return def, nil
	}

	iter, err := events.Fields()
	if err != nil {
		return nil, formatCUEError(err)
	}
	for iter.Next() {
		ev, err := CompileEvent(iter.Value())
		if err != nil {
			return nil, err
		}
		def.Events = append(def.Events, *ev)
	}
	return def, nil
}

// CompileEvent parses one event struct. The event name is the struct's
// label.
func CompileEvent(v cue.Value) (*EventDef, error) {
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}

	ev := &EventDef{}
	labels := v.Path().Selectors()
	if len(labels) > 0 {
		ev.Name = labelName(labels[len(labels)-1])
	}

	for _, field := range []struct {
		name string
		dst  *int
	}{
		{"max_depth", &ev.MaxDepth},
		{"max_members", &ev.MaxMembers},
	} {
		fv := v.LookupPath(cue.ParsePath(field.name))
		if !fv.Exists() {
			continue
		}
		n, err := fv.Int64()
		if err != nil {
			return nil, &CompileError{Field: field.name, Message: "must be an integer", Pos: fv.Pos()}
		}
		*field.dst = int(n)
	}

	if lv := v.LookupPath(cue.ParsePath("listeners")); lv.Exists() {
		if err := decodeList(lv, "listeners", &ev.Listeners); err != nil {
			return nil, err
		}
	}
	if dv := v.LookupPath(cue.ParsePath("dependents")); dv.Exists() {
		if err := decodeList(dv, "dependents", &ev.Dependents); err != nil {
			return nil, err
		}
	}

	return ev, nil
}

// labelName returns a field label without CUE quoting.
func labelName(sel cue.Selector) string {
	if sel.LabelType() == cue.StringLabel && sel.ConstraintType() < cue.PatternConstraint {
		return sel.Unquoted()
	}
	return sel.String()
}

func decodeList(v cue.Value, field string, dst any) error {
	if v.IncompleteKind() != cue.ListKind {
		return &CompileError{Field: field, Message: "must be a list", Pos: v.Pos()}
	}
	if err := v.Decode(dst); err != nil {
		return formatCUEError(err)
	}
	return nil
}

// CompileError represents a compilation error with source position.
type CompileError struct {
	Field   string
	Message string
	Pos     token.Pos
}

func (e *CompileError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s",
			e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(),
			e.Field, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// formatCUEError extracts position info from CUE errors.
func formatCUEError(err error) error {
	if err == nil {
		return nil
	}

	errs := errors.Errors(err)
	if len(errs) == 0 {
		return err
	}

	firstErr := errs[0]
	positions := errors.Positions(firstErr)
	if len(positions) > 0 {
		return &CompileError{
			Field:   "cue",
			Message: firstErr.Error(),
			Pos:     positions[0],
		}
	}
	return err
}
