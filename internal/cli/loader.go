package cli

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/load"
	"cuelang.org/go/cue/token"

	"github.com/roach88/choreo/internal/compiler"
	"github.com/roach88/choreo/internal/ir"
)

// LoadMode controls how errors are handled during definition loading.
type LoadMode int

const (
	// LoadModeFailFast stops on the first error encountered.
	LoadModeFailFast LoadMode = iota
	// LoadModeCollectAll collects all errors before returning.
	LoadModeCollectAll
)

// LoadResult contains the definitions loaded from a file or directory.
type LoadResult struct {
	Choreographies []ir.Choreography
	Files          []string // definition files found, in load order
}

// LoadError represents an error that occurred during definition loading.
type LoadError struct {
	Code    string
	Message string
	Pos     token.Pos // CUE position if available
}

func (e *LoadError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s", e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(), e.Code, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// LoadDefinitions loads choreographies from path, which may be a single
// definition file or a directory.
//
// In a directory, YAML and JSON files are loaded one by one and the .cue
// files of each directory are loaded together as one CUE package, so
// definitions may be split across files and share CUE declarations.
// Directories are visited in lexical order.
func LoadDefinitions(path string, mode LoadMode) (*LoadResult, []error) {
	info, err := os.Stat(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, []error{&LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("definitions not found: %s", path)}}
	}
	if err != nil {
		return nil, []error{&LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("error accessing definitions: %v", err)}}
	}

	if !info.IsDir() {
		defs, err := compiler.LoadFile(path)
		if err != nil {
			return nil, []error{convertCompileError(err, path)}
		}
		return &LoadResult{Choreographies: defs, Files: []string{path}}, nil
	}

	groups, err := FindDefinitionFiles(path)
	if err != nil {
		return nil, []error{&LoadError{Code: ErrCodeScanError, Message: fmt.Sprintf("error scanning directory: %v", err)}}
	}
	if len(groups) == 0 {
		return nil, []error{&LoadError{Code: ErrCodeNoFiles, Message: fmt.Sprintf("no definition files found in %s", path)}}
	}

	result := &LoadResult{}
	var errs []error
	for _, g := range groups {
		result.Files = append(result.Files, g.Files...)

		var defs []ir.Choreography
		var groupErrs []error
		if g.CUE {
			defs, groupErrs = loadCUEPackage(g.Dir)
		} else {
			d, err := compiler.LoadFile(g.Files[0])
			if err != nil {
				groupErrs = []error{convertCompileError(err, g.Files[0])}
			}
			defs = d
		}

		result.Choreographies = append(result.Choreographies, defs...)
		errs = append(errs, groupErrs...)
		if len(errs) > 0 && mode == LoadModeFailFast {
			return result, errs
		}
	}

	if len(result.Choreographies) == 0 && len(errs) == 0 {
		errs = append(errs, &LoadError{Code: ErrCodeGeneric, Message: "no choreographies found in definitions"})
	}
	return result, errs
}

// FileGroup is one load unit: a single YAML/JSON file, or every .cue file
// of one directory.
type FileGroup struct {
	Dir   string
	Files []string
	CUE   bool
}

// FindDefinitionFiles walks dir and groups definition files into load
// units. Directories named "golden" are skipped.
func FindDefinitionFiles(dir string) ([]FileGroup, error) {
	var groups []FileGroup
	cueByDir := make(map[string]int)

	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if path != dir && d.Name() == "golden" {
				return filepath.SkipDir
			}
			return nil
		}
		if !compiler.IsDefinitionFile(path) {
			return nil
		}

		if strings.EqualFold(filepath.Ext(path), compiler.ExtCUE) {
			parent := filepath.Dir(path)
			if i, ok := cueByDir[parent]; ok {
				groups[i].Files = append(groups[i].Files, path)
				return nil
			}
			cueByDir[parent] = len(groups)
			groups = append(groups, FileGroup{Dir: parent, Files: []string{path}, CUE: true})
			return nil
		}
		groups = append(groups, FileGroup{Dir: filepath.Dir(path), Files: []string{path}})
		return nil
	})
	return groups, err
}

// loadCUEPackage builds the CUE package in dir and compiles every field of
// its top-level "choreography" struct.
func loadCUEPackage(dir string) ([]ir.Choreography, []error) {
	instances := load.Instances([]string{"."}, &load.Config{Dir: dir})
	if len(instances) == 0 {
		return nil, []error{&LoadError{Code: ErrCodeLoadFailed, Message: "no CUE instances loaded"}}
	}
	inst := instances[0]
	if inst.Err != nil {
		return nil, []error{&LoadError{Code: ErrCodeLoadFailed, Message: fmt.Sprintf("loading CUE files: %v", inst.Err)}}
	}

	value := cuecontext.New().BuildInstance(inst)
	if err := value.Err(); err != nil {
		return nil, []error{&LoadError{Code: ErrCodeBuildFailed, Message: fmt.Sprintf("building CUE value: %v", err)}}
	}

	defs, compileErrs := compiler.CompileCUE(value)
	errs := make([]error, 0, len(compileErrs))
	for _, err := range compileErrs {
		errs = append(errs, convertCompileError(err, dir))
	}
	return defs, errs
}

// convertCompileError converts a compiler error to a LoadError with position info.
func convertCompileError(err error, source string) *LoadError {
	var compileErr *compiler.CompileError
	if errors.As(err, &compileErr) {
		return &LoadError{
			Code:    MapFieldToErrorCode(compileErr.Field),
			Message: compileErr.Message,
			Pos:     compileErr.Pos,
		}
	}
	if errors.Is(err, fs.ErrNotExist) {
		return &LoadError{Code: ErrCodeNotFound, Message: err.Error()}
	}
	return &LoadError{
		Code:    ErrCodeGeneric,
		Message: fmt.Sprintf("%s: %v", source, err),
	}
}

// Error code constants - unified across all CLI commands. Definition errors
// reuse the compiler's E12x codes.
const (
	ErrCodeGeneric     = "E001" // Generic/unknown error
	ErrCodeScanError   = "E002" // Directory scan error
	ErrCodeNoFiles     = "E003" // No definition files found
	ErrCodeLoadFailed  = "E004" // CUE load failed
	ErrCodeNotFound    = "E005" // Path not found
	ErrCodeBuildFailed = "E006" // CUE build failed
	ErrCodeWriteFailed = "E007" // File write error
	ErrCodeParseFailed = "E008" // Document could not be decoded
)

// MapFieldToErrorCode maps a compiler error field to an error code.
func MapFieldToErrorCode(field string) string {
	switch {
	case field == "id":
		return compiler.ErrMissingID
	case field == "on":
		return compiler.ErrMissingSignalType
	case field == "document":
		return ErrCodeParseFailed
	case field == "cue":
		return ErrCodeBuildFailed
	case strings.HasSuffix(field, ".duration"):
		return compiler.ErrInvalidDuration
	default:
		return ErrCodeGeneric
	}
}

// choreographyIDs lists ids in load order.
func choreographyIDs(defs []ir.Choreography) []string {
	ids := make([]string, len(defs))
	for i, d := range defs {
		ids[i] = d.ID
	}
	return ids
}

// signalTypes lists the distinct signal types defs react to, sorted.
func signalTypes(defs []ir.Choreography) []string {
	var types []string
	for _, d := range defs {
		if !slices.Contains(types, d.On) {
			types = append(types, d.On)
		}
	}
	slices.Sort(types)
	return types
}
