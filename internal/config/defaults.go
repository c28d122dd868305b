package config

const (
	defaultMediaDir         = "~/.local/share/clipforge/media"
	defaultLogDir           = "~/.local/share/clipforge/logs"
	defaultAPIBind          = "127.0.0.1:7943"
	defaultLogFormat        = "console"
	defaultLogLevel         = "info"
	defaultWorkers          = 2
	defaultQueueSize        = 64
	defaultEncodeTimeout    = 3600
	defaultProbeTimeout     = 60
	defaultModerationMode   = "sim"
	defaultRequestTimeout   = 30
	defaultFlagRatio        = 0.1
	defaultAnalysisDelay    = 5
	defaultSubscriberBuffer = 32
	defaultMaxSizeMiB       = 1024
)

var defaultAllowedExtensions = []string{".mp4", ".mov", ".avi", ".wmv", ".flv", ".mkv"}

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			MediaDir: defaultMediaDir,
			LogDir:   defaultLogDir,
			APIBind:  defaultAPIBind,
		},
		Transcode: Transcode{
			Workers:       defaultWorkers,
			QueueSize:     defaultQueueSize,
			EncodeTimeout: defaultEncodeTimeout,
			ProbeTimeout:  defaultProbeTimeout,
		},
		Moderation: Moderation{
			Mode:           defaultModerationMode,
			RequestTimeout: defaultRequestTimeout,
			FlagRatio:      defaultFlagRatio,
			AnalysisDelay:  defaultAnalysisDelay,
		},
		Notify: Notify{
			SubscriberBuffer: defaultSubscriberBuffer,
		},
		Upload: Upload{
			MaxSizeMiB:        defaultMaxSizeMiB,
			AllowedExtensions: append([]string(nil), defaultAllowedExtensions...),
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
