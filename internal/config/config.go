package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

const appName = "a11yscan"

// ErrGeneration reports a missing or unusable generation configuration.
var ErrGeneration = errors.New("generation configuration invalid")

type Config struct {
	Browser    BrowserConfig    `mapstructure:"browser"`
	Extraction ExtractionConfig `mapstructure:"extraction"`
	Generation GenerationConfig `mapstructure:"generation"`
	Enrichment EnrichmentConfig `mapstructure:"enrichment"`
	Network    NetworkConfig    `mapstructure:"network"`
	Output     OutputConfig     `mapstructure:"output"`
	Logging    LoggingConfig    `mapstructure:"logging"`
}

type BrowserConfig struct {
	// Default is the browser cookies are imported from; "none" disables import.
	Default string               `mapstructure:"default"`
	Paths   map[string]string    `mapstructure:"paths"`
	Cookies BrowserCookiesConfig `mapstructure:"cookies"`
}

type BrowserCookiesConfig struct {
	Domains []string `mapstructure:"domains"`
	Exclude []string `mapstructure:"exclude"`
}

type ExtractionConfig struct {
	Engine           string       `mapstructure:"engine"`
	Backend          string       `mapstructure:"backend"`
	JSTimeout        int          `mapstructure:"js_timeout"`
	WaitForSelector  string       `mapstructure:"wait_for_selector"`
	MinContentLength int          `mapstructure:"min_content_length"`
	Jina             JinaConfig   `mapstructure:"jina"`
	Tavily           TavilyConfig `mapstructure:"tavily"`
}

type JinaConfig struct {
	APIKey string `mapstructure:"api_key"`
}

type TavilyConfig struct {
	APIKey       string `mapstructure:"api_key"`
	ExtractDepth string `mapstructure:"extract_depth"`
}

type GenerationConfig struct {
	Provider          string  `mapstructure:"provider"`
	Model             string  `mapstructure:"model"`
	APIKey            string  `mapstructure:"api_key"`
	BaseURL           string  `mapstructure:"base_url"`
	MaxTokens         int     `mapstructure:"max_tokens"`
	RequestsPerSecond float64 `mapstructure:"requests_per_second"`
	Burst             int     `mapstructure:"burst"`
}

type EnrichmentConfig struct {
	MaxImages        int    `mapstructure:"max_images"`
	MaxLinks         int    `mapstructure:"max_links"`
	MaxButtons       int    `mapstructure:"max_buttons"`
	ReverseOrder     bool   `mapstructure:"reverse_order"`
	Concurrency      int    `mapstructure:"concurrency"`
	ProvenancePrefix string `mapstructure:"provenance_prefix"`
	FetchMetadata    bool   `mapstructure:"fetch_metadata"`
}

type NetworkConfig struct {
	Timeout         int    `mapstructure:"timeout"`
	UserAgent       string `mapstructure:"user_agent"`
	BrowserAgent    string `mapstructure:"browser_agent"`
	FollowRedirects bool   `mapstructure:"follow_redirects"`
	MaxRedirects    int    `mapstructure:"max_redirects"`
	Delay           int    `mapstructure:"delay"`
}

type OutputConfig struct {
	Format  string `mapstructure:"format"`
	HTMLDir string `mapstructure:"html_dir"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	File   string `mapstructure:"file"`
	Format string `mapstructure:"format"`
}

func Default() *Config {
	return &Config{
		Browser: BrowserConfig{
			Default: "none",
			Paths:   map[string]string{},
			Cookies: BrowserCookiesConfig{
				Domains: []string{"*"},
				Exclude: []string{},
			},
		},
		Extraction: ExtractionConfig{
			Engine:           "static",
			Backend:          "readability",
			JSTimeout:        15,
			WaitForSelector:  "",
			MinContentLength: 100,
			Tavily:           TavilyConfig{ExtractDepth: "basic"},
		},
		Generation: GenerationConfig{
			Provider:          "claude",
			MaxTokens:         300,
			RequestsPerSecond: 0,
			Burst:             1,
		},
		Enrichment: EnrichmentConfig{
			MaxImages:        5,
			MaxLinks:         5,
			MaxButtons:       5,
			ReverseOrder:     true,
			Concurrency:      4,
			ProvenancePrefix: "[AI] ",
			FetchMetadata:    true,
		},
		Network: NetworkConfig{
			Timeout:         30,
			UserAgent:       "",
			BrowserAgent:    "auto",
			FollowRedirects: true,
			MaxRedirects:    10,
			Delay:           0,
		},
		Output: OutputConfig{
			Format: "json",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// DefaultPath is $XDG_CONFIG_HOME/a11yscan/config.toml, or "" when no home
// directory can be determined.
func DefaultPath() string {
	configHome := os.Getenv("XDG_CONFIG_HOME")
	if configHome == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return ""
		}
		configHome = filepath.Join(home, ".config")
	}
	return filepath.Join(configHome, appName, "config.toml")
}

// Load overlays the config file and A11YSCAN_* environment variables on top of
// Default(). An empty configFile means DefaultPath(); a missing default file is
// not an error, a missing explicit one is.
func Load(configFile string) (*Config, error) {
	cfg := Default()

	v := viper.New()
	v.SetConfigType("toml")
	if err := v.ReadConfig(strings.NewReader(exampleConfig)); err != nil {
		return cfg, fmt.Errorf("error reading default config: %w", err)
	}

	v.SetEnvPrefix(strings.ToUpper(appName))
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	path := configFile
	if path == "" {
		path = DefaultPath()
	}
	if path != "" {
		if _, err := os.Stat(path); err == nil {
			v.SetConfigFile(path)
			if err := v.MergeInConfig(); err != nil {
				return cfg, fmt.Errorf("error reading config file: %w", err)
			}
		} else if configFile != "" {
			return cfg, fmt.Errorf("error reading config file: %w", err)
		}
	}

	if err := v.Unmarshal(cfg); err != nil {
		return cfg, fmt.Errorf("error unmarshaling config: %w", err)
	}
	return cfg, nil
}

func (c *Config) CreateExampleConfig(configPath string) error {
	configDir := filepath.Dir(configPath)
	if err := os.MkdirAll(configDir, 0755); err != nil {
		return fmt.Errorf("error creating config directory: %w", err)
	}
	return os.WriteFile(configPath, []byte(exampleConfig), 0644)
}

const exampleConfig = `# a11yscan configuration file

[browser]
# Browser to import cookies from for authenticated pages
default = "none"  # none, auto, chrome, firefox, safari, zen

# Browser binaries for the live engines (optional, auto-detected if empty)
# [browser.paths]
# chrome = "/usr/bin/chromium"

[browser.cookies]
domains = ["*"]
exclude = []

[extraction]
engine = "static"          # static, chromedp, rod
backend = "readability"    # readability, jina, tavily
js_timeout = 15            # seconds to wait for the page to settle
wait_for_selector = ""     # CSS selector to wait for (live engines)
min_content_length = 100   # shorter content is an extraction failure

[extraction.jina]
api_key = ""

[extraction.tavily]
api_key = ""
extract_depth = "basic"

[generation]
provider = "claude"        # claude, openai
model = ""                 # empty = provider default
api_key = ""               # empty = A11YSCAN_ANTHROPIC_KEY / ANTHROPIC_API_KEY etc.
base_url = ""
max_tokens = 300
requests_per_second = 0    # 0 = unlimited
burst = 1

[enrichment]
max_images = 5
max_links = 5
max_buttons = 5
reverse_order = true       # enrich the capped selection from least to most important
concurrency = 4            # parallel generation calls per phase
provenance_prefix = "[AI] "
fetch_metadata = true      # describe links from target page metadata when available

[network]
timeout = 30
user_agent = ""
browser_agent = "auto"     # auto, chrome, firefox, safari, edge
follow_redirects = true
max_redirects = 10
delay = 0                  # seconds between URLs

[output]
format = "json"            # json, markdown
html_dir = ""              # write the annotated HTML here (empty = disabled)

[logging]
level = "info"             # debug, info, warn, error
file = ""                  # empty = stderr
format = "text"            # text, json
`
