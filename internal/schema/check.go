package schema

import (
	"fmt"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/quire/internal/apperr"
)

// Check validates the schema definition itself. Any problem is a
// *apperr.ConfigError, reported before a single file is processed.
func Check(s Schema) error {
	if len(s.Fields) == 0 {
		return &apperr.ConfigError{Subject: "schema", Reason: "no fields declared"}
	}
	return checkFields(s.Fields, "", true)
}

func checkFields(fields []Field, prefix string, top bool) error {
	seen := make(map[string]struct{}, len(fields))
	for _, f := range fields {
		path := joinPath(prefix, f.Name)
		if err := checkField(f, path, top, true); err != nil {
			return err
		}
		if _, dup := seen[f.Name]; dup {
			return &apperr.ConfigError{Subject: "schema field " + path, Reason: "declared twice"}
		}
		seen[f.Name] = struct{}{}
	}
	return nil
}

func checkField(f Field, path string, top, named bool) error {
	err := validation.ValidateStruct(&f,
		validation.Field(&f.Name, validation.When(named, validation.Required)),
		validation.Field(&f.Kind, validation.Required, validation.In(kindValues...)),
		validation.Field(&f.Values, validation.When(f.Kind == KindEnum, validation.Required, validation.Each(validation.Required))),
		validation.Field(&f.Items, validation.When(f.Kind == KindArray, validation.NotNil)),
		validation.Field(&f.Fields, validation.When(f.Kind == KindObject, validation.Required)),
	)
	if err != nil {
		return &apperr.ConfigError{Subject: "schema field " + path, Err: err}
	}
	if f.Kind.Specialized() && !top {
		return &apperr.ConfigError{Subject: "schema field " + path, Reason: fmt.Sprintf("%s fields are only allowed at the top level", f.Kind)}
	}
	if f.Kind == KindEnum {
		seen := make(map[string]struct{}, len(f.Values))
		for _, val := range f.Values {
			if _, dup := seen[val]; dup {
				return &apperr.ConfigError{Subject: "schema field " + path, Reason: fmt.Sprintf("enum value %q declared twice", val)}
			}
			seen[val] = struct{}{}
		}
	}
	switch f.Kind {
	case KindArray:
		if err := checkField(*f.Items, path+".items", false, false); err != nil {
			return err
		}
	case KindObject:
		if err := checkFields(f.Fields, path, false); err != nil {
			return err
		}
	}
	if f.Default != nil {
		if f.Kind.Specialized() {
			return &apperr.ConfigError{Subject: "schema field " + path, Reason: "specialized fields take no default"}
		}
		v := &validator{}
		if _, ok := v.value(f, f.Default, path); !ok {
			return &apperr.ConfigError{Subject: "schema field " + path, Reason: "default does not match the field kind"}
		}
	}
	return nil
}
