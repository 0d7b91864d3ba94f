package config

const (
	defaultDataDir                 = "~/.local/share/clipforge"
	defaultLogDir                  = "~/.local/share/clipforge/logs"
	defaultOutputDir               = "~/clips"
	defaultWorkDir                 = "~/.local/share/clipforge/work"
	defaultAPIBind                 = "127.0.0.1:7571"
	defaultWorkflow                = "default"
	defaultAutoClipDuration        = 60
	defaultCooldownSeconds         = 10
	defaultProcessorWorkers        = 1
	defaultPollInterval            = 2
	defaultErrorRetryInterval      = 10
	defaultHeartbeatInterval       = 15
	defaultHeartbeatTimeout        = 120
	defaultDurationEpsilon         = 0.5
	defaultFFmpegBinary            = "ffmpeg"
	defaultFFprobeBinary           = "ffprobe"
	defaultFormat                  = "mp4"
	defaultQuality                 = "medium"
	defaultConversionTimeout       = 600
	defaultThumbnailTimeout        = 30
	defaultProbeTimeout            = 30
	defaultExportConcurrency       = 2
	defaultNotifyRequestTimeout    = 10
	defaultCaptureDevice           = "/dev/video0"
	defaultMaintenanceSchedule     = "15 3 * * *"
	defaultMaintenanceRetentionDay = 30
	defaultLogFormat               = "console"
	defaultLogLevel                = "info"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			DataDir:   defaultDataDir,
			LogDir:    defaultLogDir,
			OutputDir: defaultOutputDir,
			WorkDir:   defaultWorkDir,
			APIBind:   defaultAPIBind,
		},
		Triggers: Triggers{
			Workflow:         defaultWorkflow,
			AudioEnabled:     true,
			VisualEnabled:    true,
			AutoClipEnabled:  true,
			AutoClipDuration: defaultAutoClipDuration,
			CooldownSeconds:  defaultCooldownSeconds,
		},
		Processor: Processor{
			Workers:            defaultProcessorWorkers,
			PollInterval:       defaultPollInterval,
			ErrorRetryInterval: defaultErrorRetryInterval,
			HeartbeatInterval:  defaultHeartbeatInterval,
			HeartbeatTimeout:   defaultHeartbeatTimeout,
			DurationEpsilon:    defaultDurationEpsilon,
		},
		Converter: Converter{
			FFmpegBinary:      defaultFFmpegBinary,
			FFprobeBinary:     defaultFFprobeBinary,
			Format:            defaultFormat,
			Quality:           defaultQuality,
			Thumbnail:         true,
			ConversionTimeout: defaultConversionTimeout,
			ThumbnailTimeout:  defaultThumbnailTimeout,
			ProbeTimeout:      defaultProbeTimeout,
		},
		Export: Export{
			Concurrency: defaultExportConcurrency,
		},
		Notifications: Notifications{
			RequestTimeout: defaultNotifyRequestTimeout,
		},
		Capture: Capture{
			Device:         defaultCaptureDevice,
			MonitorEnabled: true,
		},
		Maintenance: Maintenance{
			Schedule:      defaultMaintenanceSchedule,
			RetentionDays: defaultMaintenanceRetentionDay,
			DeleteFiles:   true,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
