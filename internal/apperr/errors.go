// Package apperr defines the error taxonomy of the content pipeline.
package apperr

import (
	"errors"
	"fmt"
	"strings"
)

// ErrNotFound is returned by read-only queries for unknown collections or slugs.
var ErrNotFound = errors.New("not found")

// ErrFrozen is returned when the registry is written after Freeze.
var ErrFrozen = errors.New("registry is frozen")

// Kind names an error category for reporting.
type Kind string

const (
	KindRead          Kind = "read"
	KindFrontmatter   Kind = "frontmatter"
	KindValidation    Kind = "validation"
	KindTransform     Kind = "transform"
	KindPostTransform Kind = "post_transform"
	KindDuplicateSlug Kind = "duplicate_slug"
	KindConfig        Kind = "config"
	KindInternal      Kind = "internal"
)

// ReadError reports a matched path that could not be read.
type ReadError struct {
	Path string
	Err  error
}

func (e *ReadError) Error() string {
	return fmt.Sprintf("read %s: %v", e.Path, e.Err)
}

func (e *ReadError) Unwrap() error { return e.Err }

// FrontmatterParseError reports a malformed metadata block.
type FrontmatterParseError struct {
	Path   string
	Reason string
	Err    error
}

func (e *FrontmatterParseError) Error() string {
	msg := "frontmatter"
	if e.Path != "" {
		msg += " " + e.Path
	}
	msg += ": " + e.Reason
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *FrontmatterParseError) Unwrap() error { return e.Err }

// Violation codes.
const (
	ViolationMissing = "missing"
	ViolationType    = "type"
	ViolationEnum    = "enum"
)

// Violation is a single schema violation at a dotted field path.
type Violation struct {
	Code  string `json:"code"`
	Field string `json:"field"`
}

// String renders the violation as "<code>:<field>".
func (v Violation) String() string {
	return v.Code + ":" + v.Field
}

// ValidationError lists every schema violation found in one file.
type ValidationError struct {
	Path       string
	Violations []Violation
}

func (e *ValidationError) Error() string {
	parts := make([]string, len(e.Violations))
	for i, v := range e.Violations {
		parts[i] = v.String()
	}
	if e.Path == "" {
		return "validation: " + strings.Join(parts, ", ")
	}
	return fmt.Sprintf("validation %s: %s", e.Path, strings.Join(parts, ", "))
}

// Strings returns the violations in "<code>:<field>" form.
func (e *ValidationError) Strings() []string {
	out := make([]string, len(e.Violations))
	for i, v := range e.Violations {
		out[i] = v.String()
	}
	return out
}

// TransformError reports a transform pass that could not process its input.
type TransformError struct {
	Pass   string
	Reason string
	Path   string
}

func (e *TransformError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("transform %s: %s", e.Pass, e.Reason)
	}
	return fmt.Sprintf("transform %s: %s: %s", e.Pass, e.Path, e.Reason)
}

// PostTransformError wraps a failure raised by a collection hook.
type PostTransformError struct {
	Collection string
	SourcePath string
	Cause      error
}

func (e *PostTransformError) Error() string {
	return fmt.Sprintf("post-transform %s %s: %v", e.Collection, e.SourcePath, e.Cause)
}

func (e *PostTransformError) Unwrap() error { return e.Cause }

// DuplicateSlugError reports two entries of one collection sharing a slug.
type DuplicateSlugError struct {
	Collection string
	Slug       string
	Paths      []string
}

func (e *DuplicateSlugError) Error() string {
	return fmt.Sprintf("duplicate slug %q in collection %s: %s", e.Slug, e.Collection, strings.Join(e.Paths, ", "))
}

// ConfigError reports an invalid pipeline configuration.
type ConfigError struct {
	Subject string
	Reason  string
	Err     error
}

func (e *ConfigError) Error() string {
	msg := "config"
	if e.Subject != "" {
		msg += " " + e.Subject
	}
	if e.Reason != "" {
		msg += ": " + e.Reason
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *ConfigError) Unwrap() error { return e.Err }

// KindOf classifies err into one of the taxonomy kinds.
func KindOf(err error) Kind {
	var (
		readErr *ReadError
		fmErr   *FrontmatterParseError
		valErr  *ValidationError
		trErr   *TransformError
		hookErr *PostTransformError
		dupErr  *DuplicateSlugError
		cfgErr  *ConfigError
	)
	switch {
	case errors.As(err, &hookErr):
		return KindPostTransform
	case errors.As(err, &cfgErr):
		return KindConfig
	case errors.As(err, &dupErr):
		return KindDuplicateSlug
	case errors.As(err, &readErr):
		return KindRead
	case errors.As(err, &fmErr):
		return KindFrontmatter
	case errors.As(err, &valErr):
		return KindValidation
	case errors.As(err, &trErr):
		return KindTransform
	}
	return KindInternal
}

// IsFatal reports whether err aborts the whole run.
func IsFatal(err error) bool {
	switch KindOf(err) {
	case KindConfig, KindDuplicateSlug:
		return true
	}
	return false
}
