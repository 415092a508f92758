package common

import (
	"errors"
	"fmt"
)

// AppError represents application-specific errors
type AppError struct {
	Code    string
	Message string
	Cause   error
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

// Error kinds. Fatal kinds abort a run; page and pattern kinds are isolated
// to the unit that produced them.
var (
	ErrFatalInput     = errors.New("fatal input error")
	ErrPageExtraction = errors.New("page extraction error")
	ErrPatternFailure = errors.New("pattern failure")
	ErrExport         = errors.New("export error")
	ErrUntranslatable = errors.New("segmentation code has no translation")
	ErrInvalidConfig  = errors.New("invalid configuration")
	ErrAborted        = errors.New("run aborted")
	ErrEngineMissing  = errors.New("ocr engine not available")
)

const (
	CodeFatalInput = "FATAL_INPUT"
	CodeExport     = "EXPORT_ERROR"
	CodeConfig     = "CONFIG_ERROR"
)

// Error constructors
func NewAppError(code, message string, cause error) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

// FatalInput reports a document that cannot be read or rendered.
func FatalInput(message string, cause error) error {
	return NewAppError(CodeFatalInput, message, wrapKind(ErrFatalInput, cause))
}

// ExportFailure reports an unwritable destination.
func ExportFailure(message string, cause error) error {
	return NewAppError(CodeExport, message, wrapKind(ErrExport, cause))
}

func wrapKind(kind, cause error) error {
	if cause == nil {
		return kind
	}
	return fmt.Errorf("%w: %w", kind, cause)
}

func WrapError(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}

// Stage names the per-page step that failed.
type Stage string

const (
	StageRender     Stage = "render"
	StagePreprocess Stage = "preprocess"
	StageOCR        Stage = "ocr"
	StageExtract    Stage = "extract"
)

// PageError is a failure confined to one page. The page contributes zero
// candidates and the run continues.
type PageError struct {
	Page  int // zero-based index; Error reports the page number
	Stage Stage
	Err   error
}

func (e *PageError) Error() string {
	return fmt.Sprintf("page %d: %s: %v", PageNumber(e.Page), e.Stage, e.Err)
}

func (e *PageError) Unwrap() error { return e.Err }

func (e *PageError) Is(target error) bool { return target == ErrPageExtraction }

// PatternError is a failure confined to one extraction pattern.
type PatternError struct {
	Pattern string
	Err     error
}

func (e *PatternError) Error() string {
	return fmt.Sprintf("pattern %q: %v", e.Pattern, e.Err)
}

func (e *PatternError) Unwrap() error { return e.Err }

func (e *PatternError) Is(target error) bool { return target == ErrPatternFailure }
