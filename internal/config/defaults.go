package config

// builtinProviders lists the providers shipped with the binary.
var builtinProviders = []string{
	"system", "nvidia", "amd", "intel",
	"steam", "epic", "gog", "ea",
	"unreal", "unity", "browser", "custom",
}

const (
	defaultBackupRoot = "~/ShaderCacheBackups"
	defaultHeadroom   = "1G"
	defaultMaxEntries = 100
	defaultLogLevel   = "warn"
	defaultLogFormat  = "console"
)

// DefaultProviders returns builtin provider settings, all enabled.
func DefaultProviders() map[string]Provider {
	providers := make(map[string]Provider, len(builtinProviders))
	for _, name := range builtinProviders {
		providers[name] = Provider{Enabled: true}
	}
	return providers
}

// DefaultConfig returns config with all default providers.
func DefaultConfig() *Config {
	return &Config{
		SchemaVersion: CurrentSchemaVersion,
		Providers:     DefaultProviders(),
		CustomPaths:   []string{},
		Backup: Backup{
			Auto:     false,
			Root:     defaultBackupRoot,
			Headroom: defaultHeadroom,
		},
		History: History{
			MaxEntries: defaultMaxEntries,
		},
		Log: Log{
			Level:  defaultLogLevel,
			Format: defaultLogFormat,
		},
	}
}
