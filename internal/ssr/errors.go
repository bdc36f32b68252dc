package ssr

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrTemplateUnavailable matches any error produced when no template location could be read.
	ErrTemplateUnavailable = errors.New("ssr: template unavailable")
	// ErrRenderFailed matches any error produced when the page renderer did not yield markup.
	ErrRenderFailed = errors.New("ssr: render failed")
)

// TemplateUnavailableError reports that neither the primary nor the fallback template could be read.
type TemplateUnavailableError struct {
	Primary     string
	Fallback    string
	PrimaryErr  error
	FallbackErr error
}

func (e *TemplateUnavailableError) Error() string {
	var parts []string
	if part := describeLocation("primary", e.Primary, e.PrimaryErr); part != "" {
		parts = append(parts, part)
	}
	if part := describeLocation("fallback", e.Fallback, e.FallbackErr); part != "" {
		parts = append(parts, part)
	}
	if len(parts) == 0 {
		return ErrTemplateUnavailable.Error()
	}
	return ErrTemplateUnavailable.Error() + ": " + strings.Join(parts, "; ")
}

// describeLocation omits whichever of path and err is unset; it returns "" when both are.
func describeLocation(label, path string, err error) string {
	switch {
	case path != "" && err != nil:
		return fmt.Sprintf("%s %q: %v", label, path, err)
	case path != "":
		return fmt.Sprintf("%s %q", label, path)
	case err != nil:
		return fmt.Sprintf("%s: %v", label, err)
	}
	return ""
}

func (e *TemplateUnavailableError) Is(target error) bool {
	return target == ErrTemplateUnavailable
}

func (e *TemplateUnavailableError) Unwrap() []error {
	var errs []error
	if e.PrimaryErr != nil {
		errs = append(errs, e.PrimaryErr)
	}
	if e.FallbackErr != nil {
		errs = append(errs, e.FallbackErr)
	}
	return errs
}

// RenderFailedError carries the renderer's diagnostic for the requested path.
type RenderFailedError struct {
	Path string
	Err  error
}

func (e *RenderFailedError) Error() string {
	return fmt.Sprintf("ssr: render %q failed: %v", e.Path, e.Err)
}

func (e *RenderFailedError) Is(target error) bool {
	return target == ErrRenderFailed
}

func (e *RenderFailedError) Unwrap() error { return e.Err }

// Diagnostic returns the underlying failure text, suitable for verbose error bodies.
func (e *RenderFailedError) Diagnostic() string {
	if e.Err == nil {
		return "unknown render failure"
	}
	return e.Err.Error()
}
