package internal

import (
	"fmt"
	"log/slog"
	"regexp"
	"slices"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/quire/internal/collections"
	"github.com/starford/quire/internal/compiler"
	"github.com/starford/quire/internal/highlight"
	"github.com/starford/quire/internal/htmlpass"
	"github.com/starford/quire/internal/markdown"
	"github.com/starford/quire/internal/pipeline"
	"github.com/starford/quire/internal/watch"
)

// Auth modes.
const (
	AuthModeDisabled = "disabled"
	AuthModeToken    = "token"
)

// Config represents the application configuration.
type Config struct {
	App       ApplicationConfig `yaml:"app"`
	Content   ContentConfig     `yaml:"content"`
	Markdown  MarkdownConfig    `yaml:"markdown"`
	Highlight HighlightConfig   `yaml:"highlight"`
	Autolink  AutolinkConfig    `yaml:"autolink"`
	Links     LinksConfig       `yaml:"links"`
	Output    OutputConfig      `yaml:"output"`
	SQLite    SQLiteConfig      `yaml:"sqlite"`
	Auth      AuthConfig        `yaml:"auth"`
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	for _, v := range []validation.Validatable{
		&c.App, &c.Content, &c.Markdown, &c.Highlight, &c.Autolink, &c.Links, &c.Output, &c.SQLite, &c.Auth,
	} {
		if err := v.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// CompilerOptions maps the markdown, highlight and autolink sections onto
// the compiler.
func (c *Config) CompilerOptions() compiler.Options {
	return compiler.Options{
		MarkdownPasses: c.Markdown.Passes,
		HTMLPasses:     c.Markdown.HTMLPasses,
		TOCMaxDepth:    c.Markdown.TOCMaxDepth,
		Highlight:      highlight.Options{Theme: c.Highlight.Theme, Notations: c.Highlight.Notations},
		Autolink:       htmlpass.AutolinkOptions{Behavior: c.Autolink.Behavior, Class: c.Autolink.Class},
	}
}

// PipelineConfig maps the content and links sections onto the pipeline.
func (c *Config) PipelineConfig() pipeline.Config {
	return pipeline.Config{
		ContentDir: c.Content.Dir,
		Workers:    c.Content.Workers,
		Links:      collections.LinkConfig{RepoURL: c.Links.RepoURL, StorybookURL: c.Links.StorybookURL},
	}
}

// ApplicationConfig holds application-level configuration.
type ApplicationConfig struct {
	LogLevel slog.Level `yaml:"log_level"`
	HTTP     HTTPConfig `yaml:"http"`
}

// Validate validates the application configuration.
func (c *ApplicationConfig) Validate() error {
	return c.HTTP.Validate()
}

// HTTPConfig holds HTTP server configuration.
type HTTPConfig struct {
	Port int `yaml:"port"`
}

// Address returns HTTP server address.
func (c *HTTPConfig) Address() string {
	return fmt.Sprintf(":%d", c.Port)
}

// Validate validates the HTTP configuration.
func (c *HTTPConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Port, validation.Required, validation.Min(1), validation.Max(65535)),
	)
}

// ContentConfig locates the content and its collection definitions.
type ContentConfig struct {
	// Root is the directory collection patterns are relative to.
	Root string `yaml:"root"`
	// Dir is stripped from paths when deriving slugs.
	Dir string `yaml:"dir"`
	// CollectionsFile is a YAML collections file; empty selects the
	// built-in collections.
	CollectionsFile string `yaml:"collections_file"`
	// Workers bounds per-collection concurrency; 0 means one per CPU.
	Workers int `yaml:"workers"`
	// Debounce is the watch-mode quiet period before a rebuild.
	Debounce time.Duration `yaml:"debounce"`
}

// Validate validates the content configuration.
func (c *ContentConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Root, validation.Required),
		validation.Field(&c.Dir, validation.Required),
		validation.Field(&c.Workers, validation.Min(0)),
		validation.Field(&c.Debounce, validation.Min(time.Duration(0))),
	)
}

// MarkdownConfig selects the transform passes.
type MarkdownConfig struct {
	// Passes and HTMLPasses list the passes in application order; empty
	// selects the full chains.
	Passes      []string `yaml:"passes"`
	HTMLPasses  []string `yaml:"html_passes"`
	TOCMaxDepth int      `yaml:"toc_max_depth"`
}

// Validate validates the markdown configuration.
func (c *MarkdownConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Passes, validation.Each(validation.Required, validation.By(knownName(markdown.Known)))),
		validation.Field(&c.HTMLPasses, validation.Each(validation.Required, validation.By(knownName(htmlpass.Known)))),
		validation.Field(&c.TOCMaxDepth, validation.Min(2), validation.Max(6)),
	)
}

// HighlightConfig configures code highlighting.
type HighlightConfig struct {
	Theme     string   `yaml:"theme"`
	Notations []string `yaml:"notations"`
}

// Validate validates the highlight configuration.
func (c *HighlightConfig) Validate() error {
	families := make([]any, len(highlight.Families))
	for i, f := range highlight.Families {
		families[i] = f
	}
	return validation.ValidateStruct(c,
		validation.Field(&c.Theme, validation.By(knownTheme)),
		validation.Field(&c.Notations, validation.Each(validation.Required, validation.In(families...))),
	)
}

// AutolinkConfig configures heading anchors.
type AutolinkConfig struct {
	Behavior string `yaml:"behavior"`
	Class    string `yaml:"class"`
}

// Validate validates the autolink configuration.
func (c *AutolinkConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Behavior, validation.In(htmlpass.BehaviorWrap, htmlpass.BehaviorPrepend, htmlpass.BehaviorAppend)),
	)
}

// LinksConfig holds the base URLs of generated component links.
type LinksConfig struct {
	RepoURL      string `yaml:"repo_url"`
	StorybookURL string `yaml:"storybook_url"`
}

// Validate validates the links configuration.
func (c *LinksConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.RepoURL, validation.Match(urlPattern)),
		validation.Field(&c.StorybookURL, validation.Match(urlPattern)),
	)
}

// OutputConfig holds the artifact directory. Empty disables artifacts.
type OutputConfig struct {
	Dir string `yaml:"dir"`
}

// Validate validates the output configuration.
func (c *OutputConfig) Validate() error {
	return nil
}

// SQLiteConfig holds SQLite database configuration. An empty path
// disables the build cache and history.
type SQLiteConfig struct {
	Path string `yaml:"path"`
}

// Validate validates the SQLite configuration.
func (c *SQLiteConfig) Validate() error {
	return nil
}

// AuthConfig holds authentication configuration.
//
// Mode controls how authentication is enforced:
//   - "disabled" (default): no authentication required, suitable for local dev.
//   - "token": Bearer token authentication; Token must be non-empty.
type AuthConfig struct {
	Mode  string `yaml:"mode"`
	Token string `yaml:"token"`
}

// Validate validates the auth configuration.
func (c *AuthConfig) Validate() error {
	if c.Mode == "" {
		c.Mode = AuthModeDisabled
	}
	if err := validation.ValidateStruct(c,
		validation.Field(&c.Mode, validation.Required, validation.In(AuthModeDisabled, AuthModeToken)),
	); err != nil {
		return err
	}
	if c.Mode == AuthModeToken && c.Token == "" {
		return fmt.Errorf("auth: mode is %q but token is empty", AuthModeToken)
	}
	return nil
}

// AuthEnabled returns true when authentication is active.
func (c *AuthConfig) AuthEnabled() bool {
	return c.Mode == AuthModeToken
}

// NewDefaultConfig returns a new Config with sensible default values.
func NewDefaultConfig() *Config {
	return &Config{
		App: ApplicationConfig{
			LogLevel: slog.LevelInfo,
			HTTP: HTTPConfig{
				Port: 8080,
			},
		},
		Content: ContentConfig{
			Root:     ".",
			Dir:      pipeline.DefaultContentDir,
			Debounce: watch.DefaultDebounce,
		},
		Markdown: MarkdownConfig{
			TOCMaxDepth: compiler.DefaultTOCMaxDepth,
		},
		Highlight: HighlightConfig{
			Theme: highlight.DefaultTheme,
		},
		Autolink: AutolinkConfig{
			Behavior: htmlpass.BehaviorWrap,
			Class:    htmlpass.DefaultAnchorClass,
		},
		Output: OutputConfig{
			Dir: "./.quire/output",
		},
		SQLite: SQLiteConfig{
			Path: "./.quire/quire.db",
		},
		Auth: AuthConfig{
			Mode: AuthModeDisabled,
		},
	}
}

var urlPattern = regexp.MustCompile(`^https?://[^\s/]+(/\S*)?$`)

func knownName(known func(string) bool) validation.RuleFunc {
	return func(value any) error {
		name, _ := value.(string)
		if name != "" && !known(name) {
			return fmt.Errorf("unknown pass %q", name)
		}
		return nil
	}
}

func knownTheme(value any) error {
	theme, _ := value.(string)
	if theme == "" {
		return nil
	}
	if !slices.Contains(highlight.Themes(), theme) {
		return fmt.Errorf("unknown theme %q", theme)
	}
	return nil
}
