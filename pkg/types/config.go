package types

import "time"

// HTTPConfig holds shared HTTP settings used by stages that make network requests.
type HTTPConfig struct {
	// Timeout is the HTTP request timeout.
	Timeout time.Duration `json:"timeout" yaml:"timeout" mapstructure:"timeout"`

	// UserAgent is the User-Agent header sent with HTTP requests
	// (e.g. "inspireq/0.1").
	UserAgent string `json:"user_agent" yaml:"user_agent" mapstructure:"user_agent"`

	// RequestsPerSecond paces requests to the literature API. Zero disables pacing.
	RequestsPerSecond float64 `json:"requests_per_second" yaml:"requests_per_second" mapstructure:"requests_per_second"`
}

// CacheConfig holds settings for the on-disk response cache.
type CacheConfig struct {
	// Dir is the cache directory (default ".cache").
	Dir string `json:"dir" yaml:"dir" mapstructure:"dir"`

	// PerRecord gives each starting identifier its own sub-directory
	// (<dir>/<identifier>) instead of sharing one index.
	PerRecord bool `json:"per_record" yaml:"per_record" mapstructure:"per_record"`
}

// InspireConfig holds the literature database endpoints.
type InspireConfig struct {
	// APIBase is the REST API root (default "https://inspirehep.net/api").
	APIBase string `json:"api_base" yaml:"api_base" mapstructure:"api_base"`

	// WebBase is the human-facing site root used for record links
	// (default "https://inspirehep.net").
	WebBase string `json:"web_base" yaml:"web_base" mapstructure:"web_base"`
}

// BatchConfig holds settings for batch retrieval.
type BatchConfig struct {
	// Concurrency caps in-flight resolutions (0 = twice the CPU count).
	Concurrency int `json:"concurrency" yaml:"concurrency" mapstructure:"concurrency"`
}

// LogConfig holds diagnostic logging settings.
type LogConfig struct {
	// Level is one of debug, info, warn, error (default info).
	Level string `json:"level" yaml:"level" mapstructure:"level"`

	// Pretty selects human-readable console output instead of JSON lines.
	Pretty bool `json:"pretty" yaml:"pretty" mapstructure:"pretty"`
}

// Config groups every configuration option. Unknown keys in a config file are
// ignored; only the options enumerated here are read.
type Config struct {
	HTTP    HTTPConfig    `json:"http" yaml:"http" mapstructure:"http"`
	Cache   CacheConfig   `json:"cache" yaml:"cache" mapstructure:"cache"`
	Inspire InspireConfig `json:"inspire" yaml:"inspire" mapstructure:"inspire"`
	Batch   BatchConfig   `json:"batch" yaml:"batch" mapstructure:"batch"`
	Log     LogConfig     `json:"log" yaml:"log" mapstructure:"log"`

	// Update forces a network refresh, bypassing cached responses.
	Update bool `json:"update" yaml:"update" mapstructure:"update"`
}

// Default values for Config.
const (
	DefaultTimeout   = 60 * time.Second
	DefaultUserAgent = "inspireq/0.1"
	DefaultCacheDir  = ".cache"
	DefaultAPIBase   = "https://inspirehep.net/api"
	DefaultWebBase   = "https://inspirehep.net"
)

// DefaultConfig returns the configuration used when no file, flag or
// environment variable overrides a value.
func DefaultConfig() Config {
	return Config{
		HTTP: HTTPConfig{
			Timeout:   DefaultTimeout,
			UserAgent: DefaultUserAgent,
		},
		Cache:   CacheConfig{Dir: DefaultCacheDir},
		Inspire: InspireConfig{APIBase: DefaultAPIBase, WebBase: DefaultWebBase},
		Log:     LogConfig{Level: "info", Pretty: true},
	}
}
