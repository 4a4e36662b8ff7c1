package compiler

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"cuelang.org/go/cue"

	"github.com/roach88/choreo/internal/ir"
)

// CompileChoreography parses a CUE value into a Choreography.
// Uses CUE SDK's Go API directly (not CLI subprocess).
//
// The CUE value should be the choreography struct itself, e.g.:
//
//	ctx := cuecontext.New()
//	v := ctx.CompileString(`choreography: task_dispatch: { ... }`)
//	c, err := CompileChoreography(v.LookupPath(cue.ParsePath("choreography.task_dispatch")))
//
// The id is taken from the struct label. Fields follow the YAML format.
func CompileChoreography(v cue.Value) (*ir.Choreography, error) {
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}

	var id string
	labels := v.Path().Selectors()
	if len(labels) > 0 {
		// The ID may be quoted in CUE, extract it
		id = strings.Trim(labels[len(labels)-1].String(), `"`)
	}

	onVal := v.LookupPath(cue.ParsePath("on"))
	if !onVal.Exists() {
		return nil, &CompileError{
			Field:   "on",
			Message: "on (signal type) is required",
			Pos:     v.Pos(),
		}
	}
	if _, err := onVal.String(); err != nil {
		return nil, &CompileError{Field: "on", Message: "on must be a string", Pos: onVal.Pos()}
	}

	if idVal := v.LookupPath(cue.ParsePath("id")); idVal.Exists() {
		explicit, err := idVal.String()
		if err != nil {
			return nil, &CompileError{Field: "id", Message: "id must be a string", Pos: idVal.Pos()}
		}
		if explicit != id {
			return nil, &CompileError{
				Field:   "id",
				Message: fmt.Sprintf("id %q does not match label %q", explicit, id),
				Pos:     idVal.Pos(),
			}
		}
	}

	// Every field must be concrete before it can be exported.
	if err := v.Validate(cue.Concrete(true)); err != nil {
		return nil, formatCUEError(err)
	}
	data, err := v.MarshalJSON()
	if err != nil {
		return nil, formatCUEError(err)
	}

	var doc choreographyDoc
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	dec.UseNumber()
	if err := dec.Decode(&doc); err != nil {
		return nil, &CompileError{Field: "choreography." + id, Message: err.Error(), Pos: v.Pos()}
	}
	doc.ID = id

	c, err := doc.toChoreography()
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// CompileCUE compiles every field under the top-level "choreography" struct,
// in CUE field order. Errors are collected; compiled definitions are
// returned alongside them.
func CompileCUE(value cue.Value) ([]ir.Choreography, []error) {
	if err := value.Err(); err != nil {
		return nil, []error{formatCUEError(err)}
	}

	root := value.LookupPath(cue.ParsePath("choreography"))
	if !root.Exists() {
		return nil, nil
	}

	iter, err := root.Fields()
	if err != nil {
		return nil, []error{formatCUEError(err)}
	}

	var out []ir.Choreography
	var errs []error
	for iter.Next() {
		c, err := CompileChoreography(iter.Value())
		if err != nil {
			errs = append(errs, err)
			continue
		}
		out = append(out, *c)
	}
	return out, errs
}
