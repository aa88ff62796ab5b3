package config

const (
	defaultDataDir       = "~/.local/share/lottrace"
	defaultLogDir        = "~/.local/share/lottrace/logs"
	defaultLogFormat     = "console"
	defaultLogLevel      = "info"
	defaultTraceMaxDepth = 10
	defaultWatchDebounce = 250
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			DataDir: defaultDataDir,
			LogDir:  defaultLogDir,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
		Trace: Trace{
			MaxDepth: defaultTraceMaxDepth,
		},
		Watch: Watch{
			DebounceMS: defaultWatchDebounce,
		},
	}
}
