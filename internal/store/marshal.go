package store

import (
	"encoding/json"
	"fmt"

	"github.com/roach88/choreo/internal/ir"
)

// marshalPayload converts a signal payload to canonical JSON TEXT for storage.
// A nil payload is stored as "{}".
func marshalPayload(payload ir.Object) (string, error) {
	if payload == nil {
		return "{}", nil
	}
	data, err := ir.MarshalCanonical(payload)
	if err != nil {
		return "", fmt.Errorf("marshal payload: %w", err)
	}
	return string(data), nil
}

// marshalParams converts resolved command params to canonical JSON TEXT.
// Commands without params store the empty string so that they read back as
// nil and keep their trace line unchanged.
func marshalParams(params ir.Object) (string, error) {
	if len(params) == 0 {
		return "", nil
	}
	data, err := ir.MarshalCanonical(params)
	if err != nil {
		return "", fmt.Errorf("marshal params: %w", err)
	}
	return string(data), nil
}

// unmarshalPayload parses canonical JSON TEXT to an Object.
// Uses ir.Object.UnmarshalJSON, which keeps integers exact.
func unmarshalPayload(data string) (ir.Object, error) {
	if data == "" || data == "{}" {
		return ir.Object{}, nil
	}
	var obj ir.Object
	if err := json.Unmarshal([]byte(data), &obj); err != nil {
		return nil, fmt.Errorf("unmarshal payload: %w", err)
	}
	return obj, nil
}

// unmarshalParams is the inverse of marshalParams.
func unmarshalParams(data string) (ir.Object, error) {
	if data == "" {
		return nil, nil
	}
	var obj ir.Object
	if err := json.Unmarshal([]byte(data), &obj); err != nil {
		return nil, fmt.Errorf("unmarshal params: %w", err)
	}
	return obj, nil
}
