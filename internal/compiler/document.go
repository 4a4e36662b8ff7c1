package compiler

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"math"

	"gopkg.in/yaml.v3"

	"github.com/roach88/choreo/internal/ir"
)

// choreographyDoc is the authored shape of one choreography. The same shape
// is used for YAML, JSON and (via JSON) CUE sources.
type choreographyDoc struct {
	ID         string         `yaml:"id" json:"id"`
	On         string         `yaml:"on" json:"on"`
	When       map[string]any `yaml:"when" json:"when"`
	Interrupts bool           `yaml:"interrupts" json:"interrupts"`
	Steps      []stepDoc      `yaml:"steps" json:"steps"`
}

type stepDoc struct {
	Action   string         `yaml:"action" json:"action"`
	Entity   string         `yaml:"entity" json:"entity"`
	Params   map[string]any `yaml:"params" json:"params"`
	Duration *float64       `yaml:"duration" json:"duration"`
	Easing   string         `yaml:"easing" json:"easing"`
	OnArrive []stepDoc      `yaml:"onArrive" json:"onArrive"`
}

type documentDoc struct {
	Choreographies []choreographyDoc `yaml:"choreographies"`
	// Hash is written by compiled documents and not checked on load.
	Hash string `yaml:"hash"`
}

// ParseDocument decodes a YAML or JSON definition document. The root may be
// a single choreography, a list of them, or a mapping with a
// "choreographies" list. Unknown fields are rejected.
func ParseDocument(data []byte, source string) ([]ir.Choreography, error) {
	var root yaml.Node
	if err := yaml.Unmarshal(data, &root); err != nil {
		return nil, &CompileError{Field: "document", Message: fmt.Sprintf("%s: %v", source, err)}
	}
	if root.Kind == 0 || len(root.Content) == 0 {
		return nil, &CompileError{Field: "document", Message: fmt.Sprintf("%s: empty document", source)}
	}

	top := root.Content[0]
	var docs []choreographyDoc
	var err error

	switch {
	case top.Kind == yaml.SequenceNode:
		err = decodeStrict(data, &docs)
	case top.Kind == yaml.MappingNode && hasKey(top, "choreographies"):
		var wrapper documentDoc
		err = decodeStrict(data, &wrapper)
		docs = wrapper.Choreographies
	case top.Kind == yaml.MappingNode:
		var single choreographyDoc
		err = decodeStrict(data, &single)
		docs = []choreographyDoc{single}
	default:
		return nil, &CompileError{
			Field:   "document",
			Message: fmt.Sprintf("%s:%d: root must be a mapping or a list", source, top.Line),
		}
	}
	if err != nil {
		return nil, &CompileError{Field: "document", Message: fmt.Sprintf("%s: %v", source, err)}
	}

	out := make([]ir.Choreography, 0, len(docs))
	for i, doc := range docs {
		c, err := doc.toChoreography()
		if err != nil {
			return nil, fmt.Errorf("%s: choreographies[%d]: %w", source, i, err)
		}
		out = append(out, c)
	}
	return out, nil
}

func decodeStrict(data []byte, v any) error {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(v); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

func hasKey(m *yaml.Node, key string) bool {
	for i := 0; i+1 < len(m.Content); i += 2 {
		if m.Content[i].Value == key {
			return true
		}
	}
	return false
}

func (d choreographyDoc) toChoreography() (ir.Choreography, error) {
	c := ir.Choreography{
		ID:         d.ID,
		On:         d.On,
		Interrupts: d.Interrupts,
	}

	if len(d.When) > 0 {
		when := make(ir.FieldEquals, len(d.When))
		for field, raw := range d.When {
			v, err := ir.FromAny(raw)
			if err != nil {
				return ir.Choreography{}, &CompileError{Field: "when." + field, Message: err.Error()}
			}
			when[field] = v
		}
		c.When = when
	}

	steps, err := convertSteps(d.Steps, "steps")
	if err != nil {
		return ir.Choreography{}, err
	}
	c.Steps = steps
	return c, nil
}

func convertSteps(docs []stepDoc, path string) ([]ir.Step, error) {
	if len(docs) == 0 {
		return nil, nil
	}
	steps := make([]ir.Step, len(docs))
	for i, d := range docs {
		stepPath := fmt.Sprintf("%s[%d]", path, i)

		params, err := ir.ObjectFromMap(d.Params)
		if err != nil {
			return nil, &CompileError{Field: stepPath + ".params", Message: err.Error()}
		}
		if d.Duration != nil && (math.IsNaN(*d.Duration) || math.IsInf(*d.Duration, 0)) {
			return nil, &CompileError{Field: stepPath + ".duration", Message: "duration must be finite"}
		}

		children, err := convertSteps(d.OnArrive, stepPath+".onArrive")
		if err != nil {
			return nil, err
		}
		steps[i] = ir.Step{
			Action:   d.Action,
			Entity:   d.Entity,
			Params:   ir.ParseParams(params),
			Duration: d.Duration,
			Easing:   d.Easing,
			OnArrive: children,
		}
	}
	return steps, nil
}
