package htmlpass

import (
	"strconv"
	"strings"
	"unicode"

	"golang.org/x/net/html"

	"github.com/starford/quire/internal/models"
	"github.com/starford/quire/internal/transform"
)

// slugPass gives every heading a unique id and records it.
type slugPass struct{}

func (slugPass) Name() string { return "slug" }

func (slugPass) Apply(doc *html.Node, ann *transform.Annotations) (*html.Node, error) {
	s := NewSlugger()
	headings := findAll(doc, isHeading)
	for _, h := range headings {
		if id, ok := getAttr(h, "id"); ok && id != "" {
			s.Reserve(id)
		}
	}
	for _, h := range headings {
		text := strings.TrimSpace(TextContent(h))
		id, ok := getAttr(h, "id")
		if !ok || id == "" {
			id = s.Slug(text)
			setAttr(h, "id", id)
		}
		ann.Headings = append(ann.Headings, models.Heading{ID: id, Text: text, Level: headingLevel(h)})
	}
	return doc, nil
}

// Slugger produces GitHub-style heading ids, unique within one document.
type Slugger struct {
	seen map[string]int
}

// NewSlugger returns an empty Slugger.
func NewSlugger() *Slugger {
	return &Slugger{seen: make(map[string]int)}
}

// Reserve marks id as taken.
func (s *Slugger) Reserve(id string) {
	if _, ok := s.seen[id]; !ok {
		s.seen[id] = 0
	}
}

// Slug returns the id for text, suffixed with -1, -2, ... on repeats.
func (s *Slugger) Slug(text string) string {
	base := Slugify(text)
	if base == "" {
		base = "heading"
	}
	id := base
	for {
		if _, taken := s.seen[id]; !taken {
			break
		}
		s.seen[base]++
		id = base + "-" + strconv.Itoa(s.seen[base])
	}
	s.seen[id] = 0
	return id
}

// Slugify lowercases text, drops punctuation and symbols, and turns each
// space into a hyphen.
func Slugify(text string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(text) {
		switch {
		case r == ' ':
			b.WriteByte('-')
		case r == '-' || r == '_':
			b.WriteRune(r)
		case unicode.IsLetter(r), unicode.IsDigit(r), unicode.Is(unicode.Mn, r), unicode.Is(unicode.Mc, r):
			b.WriteRune(r)
		}
	}
	return b.String()
}
