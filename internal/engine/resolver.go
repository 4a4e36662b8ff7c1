package engine

import (
	"sort"

	"github.com/roach88/choreo/internal/ir"
)

// Resolver substitutes signal references in step parameters.
//
// Example:
//
//	params  = {"to": SignalRef{"to"}, "color": Literal{"gold"}}
//	payload = {"to": "agent-solver"}
//	result  = {"to": "agent-solver", "color": "gold"}
//
// References always resolve against the payload of the signal that started
// the performance, whatever the depth of the step being activated. A
// reference to a missing field resolves to its own authored string
// ("signal.to") and is reported in the unresolved list; the step still runs.
type Resolver struct{}

// Resolve returns the concrete parameters for one activation, along with the
// sorted parameter keys whose references could not be resolved.
func (Resolver) Resolve(params map[string]ir.Param, payload ir.Object) (ir.Object, []string) {
	if len(params) == 0 {
		return nil, nil
	}

	resolved := make(ir.Object, len(params))
	var unresolved []string

	for key, p := range params {
		switch param := p.(type) {
		case ir.SignalRef:
			if v, ok := ir.Lookup(payload, param.Field); ok {
				resolved[key] = v
				continue
			}
			resolved[key] = param.Authored()
			unresolved = append(unresolved, key)
		case ir.Literal:
			resolved[key] = param.Authored()
		case nil:
			resolved[key] = ir.Null{}
		default:
			resolved[key] = p.Authored()
		}
	}

	sort.Strings(unresolved)
	return resolved, unresolved
}
