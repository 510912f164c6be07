package cli

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"cuelang.org/go/cue/token"

	"github.com/roach88/anfir/internal/compiler"
)

// LoadResult holds a compiled specs directory.
type LoadResult struct {
	Program   *compiler.Program
	FileCount int // Number of CUE files found
}

// LoadError represents an error that occurred during spec loading.
type LoadError struct {
	Code    string
	Message string
	Pos     token.Pos // CUE position if available
	Err     error     // Underlying compiler error, if any
}

func (e *LoadError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s", e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(), e.Code, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *LoadError) Unwrap() error {
	return e.Err
}

// LoadSpecs loads the CUE package in dir and compiles its graph
// declarations. Every failure is a *LoadError.
func LoadSpecs(dir string) (*LoadResult, error) {
	info, err := os.Stat(dir)
	if os.IsNotExist(err) {
		return nil, &LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("specs directory not found: %s", dir)}
	}
	if err != nil {
		return nil, &LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("error accessing specs directory: %v", err)}
	}
	if !info.IsDir() {
		return nil, &LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("not a directory: %s", dir)}
	}

	cueFiles, err := FindCUEFiles(dir)
	if err != nil {
		return nil, &LoadError{Code: ErrCodeScanError, Message: fmt.Sprintf("error scanning directory: %v", err)}
	}
	if len(cueFiles) == 0 {
		return nil, &LoadError{Code: ErrCodeNoFiles, Message: fmt.Sprintf("no CUE files found in %s", dir)}
	}

	value, err := compiler.LoadDir(dir)
	if err != nil {
		return nil, convertCompileError(err, ErrCodeLoadFailed)
	}

	prog, err := compiler.CompileProgram(value)
	if err != nil {
		return nil, convertCompileError(err, ErrCodeGeneric)
	}

	return &LoadResult{Program: prog, FileCount: len(cueFiles)}, nil
}

// FindCUEFiles returns the .cue files directly in dir. Subdirectories are
// separate CUE packages and are not loaded.
func FindCUEFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	var files []string
	for _, e := range entries {
		if !e.IsDir() && filepath.Ext(e.Name()) == ".cue" {
			files = append(files, filepath.Join(dir, e.Name()))
		}
	}
	return files, nil
}

// convertCompileError converts a compiler error to a LoadError with position
// info. Errors without a field get fallback as their code.
func convertCompileError(err error, fallback string) *LoadError {
	var compileErr *compiler.CompileError
	if errors.As(err, &compileErr) {
		return &LoadError{
			Code:    MapFieldToErrorCode(compileErr.Field),
			Message: compileErr.Message,
			Pos:     compileErr.Pos,
			Err:     err,
		}
	}
	return &LoadError{Code: fallback, Message: err.Error(), Err: err}
}

// Error code constants - unified across all CLI commands.
const (
	ErrCodeGeneric     = "E001" // Generic/unknown error
	ErrCodeScanError   = "E002" // Directory scan error
	ErrCodeNoFiles     = "E003" // No CUE files found
	ErrCodeLoadFailed  = "E004" // CUE load failed
	ErrCodeNotFound    = "E005" // Path not found
	ErrCodeBuildFailed = "E006" // CUE evaluation failed
	ErrCodeWriteFailed = "E007" // File write error
	ErrCodeStore       = "E008" // Journal database error
	ErrCodeRequest     = "E009" // Invalid clone or inline request

	// Graph declaration errors
	ErrCodeNoGraphs = "E101" // No graph declarations
	ErrCodeParams   = "E102" // Invalid parameter list
	ErrCodeBody     = "E103" // Invalid body binding
	ErrCodeReturn   = "E104" // Missing or invalid return
	ErrCodeExpr     = "E105" // Invalid expression
)

// MapFieldToErrorCode maps a compiler error field to an error code.
func MapFieldToErrorCode(field string) string {
	switch field {
	case "cue":
		return ErrCodeBuildFailed
	case "graph":
		return ErrCodeNoGraphs
	case "params":
		return ErrCodeParams
	case "body":
		return ErrCodeBody
	case "return":
		return ErrCodeReturn
	case "expr":
		return ErrCodeExpr
	default:
		return ErrCodeGeneric
	}
}
