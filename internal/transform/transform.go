// Package transform threads a document tree through an ordered list of
// passes.
package transform

import (
	"errors"
	"fmt"

	"github.com/starford/quire/internal/apperr"
	"github.com/starford/quire/internal/models"
)

// Pass is one named tree transformation.
type Pass[T any] interface {
	Name() string
	Apply(tree T, ann *Annotations) (T, error)
}

// Annotations is the side table passes share while compiling one document.
type Annotations struct {
	Headings   []models.Heading
	CodeBlocks int
	values     map[string]any
}

// NewAnnotations returns an empty side table.
func NewAnnotations() *Annotations {
	return &Annotations{values: make(map[string]any)}
}

// Set stores a free-form value under key.
func (a *Annotations) Set(key string, v any) {
	if a.values == nil {
		a.values = make(map[string]any)
	}
	a.values[key] = v
}

// Get returns the value stored under key.
func (a *Annotations) Get(key string) (any, bool) {
	v, ok := a.values[key]
	return v, ok
}

// Stage is an ordered list of passes over trees of type T.
type Stage[T any] struct {
	name   string
	passes []Pass[T]
}

// NewStage builds a stage that applies passes in order.
func NewStage[T any](name string, passes ...Pass[T]) *Stage[T] {
	return &Stage[T]{name: name, passes: passes}
}

// Name returns the stage name.
func (s *Stage[T]) Name() string { return s.name }

// Passes returns the pass names in application order.
func (s *Stage[T]) Passes() []string {
	names := make([]string, len(s.passes))
	for i, p := range s.passes {
		names[i] = p.Name()
	}
	return names
}

// Run applies every pass to tree. The first failing pass aborts the stage
// and its error is returned as a *apperr.TransformError.
func (s *Stage[T]) Run(tree T, ann *Annotations) (T, error) {
	for _, p := range s.passes {
		out, err := p.Apply(tree, ann)
		if err != nil {
			var zero T
			return zero, asTransformError(p.Name(), err)
		}
		tree = out
	}
	return tree, nil
}

func asTransformError(pass string, err error) error {
	var te *apperr.TransformError
	if errors.As(err, &te) {
		if te.Pass == "" {
			te.Pass = pass
		}
		return te
	}
	return &apperr.TransformError{Pass: pass, Reason: err.Error()}
}

// Errorf returns a TransformError for pass with a formatted reason.
func Errorf(pass, format string, args ...any) error {
	return &apperr.TransformError{Pass: pass, Reason: fmt.Sprintf(format, args...)}
}
