package schema

import (
	"fmt"
	"slices"
	"strconv"

	"github.com/starford/quire/internal/apperr"
	"github.com/starford/quire/internal/models"
)

// Result is a frontmatter mapping coerced to schema types.
type Result struct {
	Data map[string]any
	// Deferred lists the specialized fields whose values the transform
	// chain must supply.
	Deferred []Field
}

// Validate checks fm against s and reports every violation at once.
// Unknown keys are dropped; specialized fields are reserved, not read.
func Validate(s Schema, fm map[string]any) (*Result, error) {
	v := &validator{}
	data := v.fields(s.Fields, fm, "", true)
	if len(v.violations) > 0 {
		return nil, &apperr.ValidationError{Violations: v.violations}
	}
	return &Result{Data: data, Deferred: s.Specialized()}, nil
}

type validator struct {
	violations []apperr.Violation
}

func (v *validator) report(code, path string) {
	v.violations = append(v.violations, apperr.Violation{Code: code, Field: path})
}

func (v *validator) fields(fields []Field, m map[string]any, prefix string, top bool) map[string]any {
	out := make(map[string]any, len(fields))
	for _, f := range fields {
		if top && f.Kind.Specialized() {
			continue
		}
		path := joinPath(prefix, f.Name)
		raw, present := m[f.Name]
		if present && raw == nil {
			present = false
		}
		if !present {
			if !f.Optional {
				v.report(apperr.ViolationMissing, path)
			} else if f.Default != nil {
				out[f.Name] = models.CloneValue(f.Default)
			}
			continue
		}
		if val, ok := v.value(f, raw, path); ok {
			out[f.Name] = val
		}
	}
	return out
}

func (v *validator) value(f Field, raw any, path string) (any, bool) {
	switch f.Kind {
	case KindString:
		s, ok := raw.(string)
		if !ok {
			v.report(apperr.ViolationType, path)
			return nil, false
		}
		return s, true

	case KindNumber:
		switch raw.(type) {
		case int, int64, uint64, float64:
			return raw, true
		}
		v.report(apperr.ViolationType, path)
		return nil, false

	case KindBoolean:
		b, ok := raw.(bool)
		if !ok {
			v.report(apperr.ViolationType, path)
			return nil, false
		}
		return b, true

	case KindEnum:
		s, ok := raw.(string)
		if !ok || !slices.Contains(f.Values, s) {
			v.report(apperr.ViolationEnum, path)
			return nil, false
		}
		return s, true

	case KindArray:
		items, ok := raw.([]any)
		if !ok {
			v.report(apperr.ViolationType, path)
			return nil, false
		}
		before := len(v.violations)
		out := make([]any, 0, len(items))
		for i, item := range items {
			itemPath := path + "." + strconv.Itoa(i)
			if item == nil {
				v.report(apperr.ViolationMissing, itemPath)
				continue
			}
			if val, ok := v.value(*f.Items, item, itemPath); ok {
				out = append(out, val)
			}
		}
		return out, len(v.violations) == before

	case KindObject:
		m, ok := asMap(raw)
		if !ok {
			v.report(apperr.ViolationType, path)
			return nil, false
		}
		before := len(v.violations)
		out := v.fields(f.Fields, m, path, false)
		return out, len(v.violations) == before
	}
	v.report(apperr.ViolationType, path)
	return nil, false
}

// asMap accepts both string-keyed maps and the any-keyed maps YAML produces
// for mappings with non-string keys.
func asMap(raw any) (map[string]any, bool) {
	switch m := raw.(type) {
	case map[string]any:
		return m, true
	case map[any]any:
		out := make(map[string]any, len(m))
		for k, val := range m {
			out[fmt.Sprint(k)] = val
		}
		return out, true
	}
	return nil, false
}

func joinPath(prefix, name string) string {
	if prefix == "" {
		return name
	}
	return prefix + "." + name
}
