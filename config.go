package listbind

import "github.com/goliatone/go-listbind/internal/runtimeconfig"

var (
	ErrConfigInvalid          = runtimeconfig.ErrConfigInvalid
	ErrConfigParse            = runtimeconfig.ErrConfigParse
	ErrLoggingProviderUnknown = runtimeconfig.ErrLoggingProviderUnknown
	ErrLoggingLevelInvalid    = runtimeconfig.ErrLoggingLevelInvalid
	ErrLoggingFormatInvalid   = runtimeconfig.ErrLoggingFormatInvalid
)

type (
	Config        = runtimeconfig.Config
	VideoConfig   = runtimeconfig.VideoConfig
	MediaConfig   = runtimeconfig.MediaConfig
	HTTPConfig    = runtimeconfig.HTTPConfig
	FiltersConfig = runtimeconfig.FiltersConfig
	ListsConfig   = runtimeconfig.ListsConfig
	LoggingConfig = runtimeconfig.LoggingConfig
)

func DefaultConfig() Config {
	return runtimeconfig.DefaultConfig()
}

// ParseConfig decodes a JSON or JSONC configuration blob.
func ParseConfig(data []byte) (Config, error) {
	return runtimeconfig.Parse(data)
}

// LoadConfig reads a configuration file.
func LoadConfig(path string) (Config, error) {
	return runtimeconfig.Load(path)
}
