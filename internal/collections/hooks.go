package collections

import (
	"errors"
	"fmt"
	"path"
	"strconv"
	"strings"

	"github.com/starford/quire/internal/apperr"
	"github.com/starford/quire/internal/models"
)

// LinkConfig holds the external URLs the docs hook links to.
type LinkConfig struct {
	RepoURL      string
	StorybookURL string
}

// HookMeta is the source context passed to a hook.
type HookMeta struct {
	SourcePath string // absolute path
	RelPath    string // slash path relative to the content root
	ContentDir string // content directory relative to the root, e.g. "content"
	Links      LinkConfig
}

// Hook post-processes a validated, transformed entry. It receives its own
// copy of the entry.
type Hook func(models.Entry, HookMeta) (models.Entry, error)

var hooks = map[string]Hook{
	"slug": SlugHook,
	"docs": DocsHook,
}

// LookupHook returns the hook registered under name.
func LookupHook(name string) (Hook, bool) {
	h, ok := hooks[name]
	return h, ok
}

// HookNames returns the registered hook names.
func HookNames() []string {
	return []string{"docs", "slug"}
}

// RunHook calls h on a clone of e. Errors and panics are returned as
// *apperr.PostTransformError.
func RunHook(h Hook, collection string, e models.Entry, meta HookMeta) (out models.Entry, err error) {
	defer func() {
		if r := recover(); r != nil {
			out = models.Entry{}
			err = &apperr.PostTransformError{Collection: collection, SourcePath: meta.RelPath, Cause: fmt.Errorf("panic: %v", r)}
		}
	}()
	out, err = h(e.Clone(), meta)
	if err != nil {
		return models.Entry{}, &apperr.PostTransformError{Collection: collection, SourcePath: meta.RelPath, Cause: err}
	}
	if out.Slug == "" {
		return models.Entry{}, &apperr.PostTransformError{Collection: collection, SourcePath: meta.RelPath, Cause: errors.New("hook produced an empty slug")}
	}
	return out, nil
}

// SlugFromPath derives a slug from a root-relative path: everything up to
// and including the last contentDir segment is dropped, as are trailing
// .mdx and .md extensions. The result is a fixed point, so
// SlugFromPath(SlugFromPath(p)) == SlugFromPath(p).
func SlugFromPath(rel, contentDir string) string {
	slug := rel
	for {
		next := slugStep(slug, contentDir)
		if next == slug {
			return slug
		}
		slug = next
	}
}

func slugStep(p, contentDir string) string {
	p = path.Clean("/" + p)
	if dir := strings.Trim(contentDir, "/"); dir != "" && dir != "." {
		marker := "/" + dir + "/"
		if i := strings.LastIndex(p, marker); i >= 0 {
			p = p[i+len(marker)-1:]
		}
	}
	p = strings.TrimSuffix(strings.TrimSuffix(p, ".mdx"), ".md")
	return strings.TrimPrefix(p, "/")
}

// DefaultSlug is the slug of an entry whose collection has no hook. Data
// file records are addressed by their position in the file.
func DefaultSlug(rel, contentDir string, ordinal int) string {
	if ordinal == models.NoOrdinal {
		return SlugFromPath(rel, contentDir)
	}
	base := SlugFromPath(rel, contentDir)
	base = strings.TrimSuffix(base, path.Ext(base))
	return base + "/" + strconv.Itoa(ordinal)
}

// SlugHook sets the entry slug from its path.
func SlugHook(e models.Entry, meta HookMeta) (models.Entry, error) {
	e.Slug = SlugFromPath(meta.RelPath, meta.ContentDir)
	e.Data["slug"] = e.Slug
	return e, nil
}

// DocsHook sets the slug and category of a component page and appends its
// source, storybook and recipe links.
func DocsHook(e models.Entry, meta HookMeta) (models.Entry, error) {
	e, err := SlugHook(e, meta)
	if err != nil {
		return e, err
	}
	category := path.Dir(e.Slug)
	if category == "." {
		category = ""
	}
	e.Data["category"] = category

	name := path.Base(e.Slug)
	var links []any
	switch existing := e.Data["links"].(type) {
	case nil:
	case []any:
		links = existing
	default:
		return e, fmt.Errorf("links: expected an array, got %T", existing)
	}
	repo := strings.TrimSuffix(meta.Links.RepoURL, "/")
	storybook := strings.TrimSuffix(meta.Links.StorybookURL, "/")
	links = append(links,
		models.Link{Title: "Source", URL: repo + "/tree/main/packages/react/src/components/" + name}.Value(),
		models.Link{Title: "Storybook", URL: storybook + "/?path=/story/components-" + name + "-basic"}.Value(),
		models.Link{Title: "Recipe", URL: repo + "/tree/main/packages/react/src/theme/recipes/" + name}.Value(),
	)
	e.Data["links"] = links
	return e, nil
}
