package pipeline

import (
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/starford/quire/internal/apperr"
)

// Failure is one file that produced no entry.
type Failure struct {
	Collection string `json:"collection"`
	Path       string `json:"path"`
	// Ordinal is the record index inside a data file, or models.NoOrdinal.
	Ordinal    int         `json:"ordinal"`
	Kind       apperr.Kind `json:"kind"`
	Message    string      `json:"message"`
	Violations []string    `json:"violations,omitempty"`
}

// Report summarizes one run.
type Report struct {
	// ID identifies the run in logs, events and the build history.
	ID        string         `json:"id"`
	StartedAt time.Time      `json:"started_at"`
	Duration  time.Duration  `json:"duration"`
	Counts    map[string]int `json:"counts"`
	Cached    int            `json:"cached"`
	Failures  []Failure      `json:"failures"`
	// Fatal holds the error that aborted the run, if any.
	Fatal string `json:"fatal,omitempty"`
}

// OK reports whether every file produced an entry and the run completed.
func (r *Report) OK() bool {
	return r.Fatal == "" && len(r.Failures) == 0
}

// FailuresFor returns the failures of one collection.
func (r *Report) FailuresFor(collection string) []Failure {
	var out []Failure
	for _, f := range r.Failures {
		if f.Collection == collection {
			out = append(out, f)
		}
	}
	return out
}

// collector gathers failures from concurrent workers.
type collector struct {
	mu       sync.Mutex
	failures []Failure
	cached   int
}

func (c *collector) fail(collection, path string, ordinal int, err error) Failure {
	f := Failure{
		Collection: collection,
		Path:       path,
		Ordinal:    ordinal,
		Kind:       apperr.KindOf(err),
		Message:    err.Error(),
	}
	var vErr *apperr.ValidationError
	if errors.As(err, &vErr) {
		f.Violations = vErr.Strings()
	}
	c.mu.Lock()
	c.failures = append(c.failures, f)
	c.mu.Unlock()
	return f
}

func (c *collector) hit() {
	c.mu.Lock()
	c.cached++
	c.mu.Unlock()
}

// sorted returns the failures ordered by collection position, path,
// ordinal and message.
func (c *collector) sorted(order []string) []Failure {
	c.mu.Lock()
	defer c.mu.Unlock()
	pos := make(map[string]int, len(order))
	for i, name := range order {
		pos[name] = i
	}
	out := append([]Failure{}, c.failures...)
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Collection != out[j].Collection {
			return pos[out[i].Collection] < pos[out[j].Collection]
		}
		if out[i].Path != out[j].Path {
			return out[i].Path < out[j].Path
		}
		if out[i].Ordinal != out[j].Ordinal {
			return out[i].Ordinal < out[j].Ordinal
		}
		return out[i].Message < out[j].Message
	})
	return out
}
