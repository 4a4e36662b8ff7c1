package compiler

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"

	"github.com/roach88/choreo/internal/ir"
)

// Definition file extensions.
const (
	ExtCUE  = ".cue"
	ExtYAML = ".yaml"
	ExtYML  = ".yml"
	ExtJSON = ".json"
)

// IsDefinitionFile reports whether path has a supported extension.
func IsDefinitionFile(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ExtCUE, ExtYAML, ExtYML, ExtJSON:
		return true
	}
	return false
}

// LoadFile reads one definition file. CUE files are compiled on their own
// (no package imports); use the cli loader for CUE packages.
func LoadFile(path string) ([]ir.Choreography, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ExtCUE:
		ctx := cuecontext.New()
		value := ctx.CompileBytes(data, cue.Filename(path))
		defs, errs := CompileCUE(value)
		if len(errs) > 0 {
			return nil, errs[0]
		}
		return defs, nil
	case ExtYAML, ExtYML, ExtJSON:
		return ParseDocument(data, path)
	default:
		return nil, fmt.Errorf("unsupported definition file %s", path)
	}
}

// LoadFiles loads several files and concatenates their definitions in
// argument order.
func LoadFiles(paths ...string) ([]ir.Choreography, error) {
	var all []ir.Choreography
	for _, p := range paths {
		defs, err := LoadFile(p)
		if err != nil {
			return nil, err
		}
		all = append(all, defs...)
	}
	return all, nil
}
