package transform

import (
	"errors"
	"slices"
	"strings"
	"testing"

	"github.com/starford/quire/internal/apperr"
)

type appendPass struct {
	name string
	fail bool
}

func (p appendPass) Name() string { return p.name }

func (p appendPass) Apply(tree []string, ann *Annotations) ([]string, error) {
	if p.fail {
		return nil, errors.New("boom")
	}
	ann.CodeBlocks++
	return append(tree, p.name), nil
}

func TestStage_RunsPassesInOrder(t *testing.T) {
	s := NewStage[[]string]("test", appendPass{name: "a"}, appendPass{name: "b"}, appendPass{name: "c"})
	ann := NewAnnotations()
	out, err := s.Run(nil, ann)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !slices.Equal(out, []string{"a", "b", "c"}) {
		t.Errorf("out = %v", out)
	}
	if ann.CodeBlocks != 3 {
		t.Errorf("annotations not threaded: %d", ann.CodeBlocks)
	}
	if !slices.Equal(s.Passes(), []string{"a", "b", "c"}) {
		t.Errorf("passes = %v", s.Passes())
	}
}

func TestStage_FirstFailureAborts(t *testing.T) {
	s := NewStage[[]string]("test", appendPass{name: "a"}, appendPass{name: "b", fail: true}, appendPass{name: "c"})
	ann := NewAnnotations()
	out, err := s.Run(nil, ann)
	if out != nil {
		t.Errorf("partial output %v", out)
	}
	var te *apperr.TransformError
	if !errors.As(err, &te) {
		t.Fatalf("error = %v, want TransformError", err)
	}
	if te.Pass != "b" || !strings.Contains(te.Reason, "boom") {
		t.Errorf("error = %+v", te)
	}
	if ann.CodeBlocks != 1 {
		t.Errorf("passes after the failure ran: %d", ann.CodeBlocks)
	}
}

func TestAnnotations_Values(t *testing.T) {
	var ann Annotations
	ann.Set("k", 1)
	if v, ok := ann.Get("k"); !ok || v != 1 {
		t.Errorf("Get = %v, %v", v, ok)
	}
	if _, ok := ann.Get("missing"); ok {
		t.Error("missing key reported present")
	}
}
