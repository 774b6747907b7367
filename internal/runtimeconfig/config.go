package runtimeconfig

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/tailscale/hujson"
)

// ErrConfigInvalid wraps field level validation failures.
var ErrConfigInvalid = errors.New("listbind config: invalid configuration")

// ErrConfigParse reports a blob that is not valid JSON (or JSONC).
var ErrConfigParse = errors.New("listbind config: unable to parse configuration")

var ErrLoggingProviderUnknown = errors.New("listbind config: logging provider is invalid")
var ErrLoggingLevelInvalid = errors.New("listbind config: logging level is invalid")
var ErrLoggingFormatInvalid = errors.New("listbind config: logging format is invalid")

// Config is the single configuration blob consumed by the runtime. Missing
// keys keep the values from DefaultConfig.
type Config struct {
	APIKey         string        `json:"apiKey"`
	BaseURL        string        `json:"baseUrl"`
	Debug          bool          `json:"debug"`
	DefaultProgram string        `json:"defaultProgram"`
	Video          VideoConfig   `json:"video"`
	Media          MediaConfig   `json:"media"`
	HTTP           HTTPConfig    `json:"http"`
	Filters        FiltersConfig `json:"filters"`
	Lists          ListsConfig   `json:"lists"`
	Logging        LoggingConfig `json:"logging"`
}

// VideoConfig holds playback defaults for rendered video elements.
type VideoConfig struct {
	Autoplay  bool `json:"autoplay"`
	HoverPlay bool `json:"hoverPlay"`
	Muted     bool `json:"muted"`
	Loop      bool `json:"loop"`
	Controls  bool `json:"controls"`
}

// MediaConfig describes the CDN whose URLs receive transformation segments.
type MediaConfig struct {
	CDNHost        string `json:"cdnHost"`
	PathMarker     string `json:"pathMarker"`
	ImageTransform string `json:"imageTransform"`
	VideoTransform string `json:"videoTransform"`
	GIFAsVideo     bool   `json:"gifAsVideo"`
}

// HTTPConfig controls request timeouts and retry backoff.
type HTTPConfig struct {
	TimeoutMS  int `json:"timeoutMs"`
	MaxRetries int `json:"maxRetries"`
	BackoffMS  int `json:"backoffMs"`
}

// Timeout returns the per-attempt request timeout.
func (c HTTPConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutMS) * time.Millisecond
}

// Backoff returns the base retry delay.
func (c HTTPConfig) Backoff() time.Duration {
	return time.Duration(c.BackoffMS) * time.Millisecond
}

// FiltersConfig controls filter control behaviour.
type FiltersConfig struct {
	DebounceMS int `json:"debounceMs"`
}

// Debounce returns the delay applied to text and search controls.
func (c FiltersConfig) Debounce() time.Duration {
	return time.Duration(c.DebounceMS) * time.Millisecond
}

// ListsConfig holds list defaults that containers may override with attributes.
type ListsConfig struct {
	DefaultLimit int `json:"defaultLimit"`
	MaxRepeat    int `json:"maxRepeat"`
}

// LoggingConfig captures provider-specific options for runtime logging.
type LoggingConfig struct {
	Provider  string `json:"provider"`
	Level     string `json:"level"`
	Format    string `json:"format"`
	AddSource bool   `json:"addSource"`
}

// DefaultConfig returns the defaults applied before a blob is decoded.
func DefaultConfig() Config {
	return Config{
		BaseURL: "https://api.example.com/v1",
		Video: VideoConfig{
			HoverPlay: true,
			Muted:     true,
			Loop:      true,
		},
		Media: MediaConfig{
			CDNHost:        "res.cloudinary.com",
			PathMarker:     "/upload/",
			ImageTransform: "f_auto,q_auto,w_800",
			VideoTransform: "f_auto,q_auto,vc_auto,w_800",
		},
		HTTP: HTTPConfig{
			TimeoutMS:  10_000,
			MaxRetries: 3,
			BackoffMS:  1_000,
		},
		Filters: FiltersConfig{
			DebounceMS: 300,
		},
		Lists: ListsConfig{
			DefaultLimit: 20,
			MaxRepeat:    10,
		},
		Logging: LoggingConfig{
			Provider: "console",
			Level:    "info",
		},
	}
}

// Parse decodes a JSON (or JSONC) blob on top of DefaultConfig and validates it.
func Parse(data []byte) (Config, error) {
	cfg := DefaultConfig()
	standardized, err := hujson.Standardize(data)
	if err != nil {
		return Config{}, fmt.Errorf("%w: %v", ErrConfigParse, err)
	}
	if err := json.Unmarshal(standardized, &cfg); err != nil {
		return Config{}, fmt.Errorf("%w: %v", ErrConfigParse, err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Load reads and parses the configuration file at path.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path) //nolint:gosec // operator supplied path
	if err != nil {
		return Config{}, fmt.Errorf("%w: %v", ErrConfigParse, err)
	}
	return Parse(data)
}

// Validate performs field and consistency checks. A missing API key is not a
// configuration error here; lists without credentials fail individually.
func (cfg Config) Validate() error {
	if err := validation.ValidateStruct(&cfg,
		validation.Field(&cfg.BaseURL, validation.Required, validation.By(httpURL)),
	); err != nil {
		return fmt.Errorf("%w: %v", ErrConfigInvalid, err)
	}
	if err := validation.ValidateStruct(&cfg.HTTP,
		validation.Field(&cfg.HTTP.TimeoutMS, validation.Min(1)),
		validation.Field(&cfg.HTTP.MaxRetries, validation.Min(0), validation.Max(10)),
		validation.Field(&cfg.HTTP.BackoffMS, validation.Min(0)),
	); err != nil {
		return fmt.Errorf("%w: http: %v", ErrConfigInvalid, err)
	}
	if err := validation.ValidateStruct(&cfg.Filters,
		validation.Field(&cfg.Filters.DebounceMS, validation.Min(0)),
	); err != nil {
		return fmt.Errorf("%w: filters: %v", ErrConfigInvalid, err)
	}
	if err := validation.ValidateStruct(&cfg.Lists,
		validation.Field(&cfg.Lists.DefaultLimit, validation.Min(1)),
		validation.Field(&cfg.Lists.MaxRepeat, validation.Min(0)),
	); err != nil {
		return fmt.Errorf("%w: lists: %v", ErrConfigInvalid, err)
	}
	if err := validation.ValidateStruct(&cfg.Media,
		validation.Field(&cfg.Media.PathMarker, validation.When(cfg.Media.CDNHost != "", validation.Required)),
	); err != nil {
		return fmt.Errorf("%w: media: %v", ErrConfigInvalid, err)
	}

	provider := strings.ToLower(strings.TrimSpace(cfg.Logging.Provider))
	if provider != "" && provider != "console" && provider != "gologger" {
		return fmt.Errorf("%w: %s", ErrLoggingProviderUnknown, provider)
	}
	if level := strings.TrimSpace(cfg.Logging.Level); level != "" && !isSupportedLevel(level) {
		return fmt.Errorf("%w: %s", ErrLoggingLevelInvalid, level)
	}
	if provider == "gologger" {
		if format := strings.TrimSpace(cfg.Logging.Format); format != "" && !isSupportedFormat(format) {
			return fmt.Errorf("%w: %s", ErrLoggingFormatInvalid, format)
		}
	}
	return nil
}

func httpURL(value any) error {
	raw, _ := value.(string)
	raw = strings.TrimSpace(raw)
	if !strings.HasPrefix(raw, "http://") && !strings.HasPrefix(raw, "https://") {
		return errors.New("must be an http(s) URL")
	}
	return nil
}

func isSupportedLevel(level string) bool {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "trace", "debug", "info", "warn", "warning", "error", "fatal":
		return true
	default:
		return false
	}
}

func isSupportedFormat(format string) bool {
	switch strings.ToLower(strings.TrimSpace(format)) {
	case "json", "console", "pretty":
		return true
	default:
		return false
	}
}
