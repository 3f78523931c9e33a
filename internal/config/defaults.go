package config

const (
	defaultDataDir              = "~/.local/share/audioserver"
	defaultFilesSubdir          = "files"
	defaultDatabaseFile         = "audioserver.db"
	defaultLogSubdir            = "logs"
	defaultArchiveSubdir        = "archives"
	defaultBind                 = "127.0.0.1:5000"
	defaultMaxUploadMiB         = 200
	defaultReadTimeoutSeconds   = 60
	defaultWriteTimeoutSeconds  = 300
	defaultSamplingResolution   = 0.01
	defaultFailureThreshold     = 5
	defaultMaxClips             = 100
	defaultFFmpegBinary         = "ffmpeg"
	defaultFFprobeBinary        = "ffprobe"
	defaultTranscodeTimeoutSecs = 60
	defaultLogFormat            = "console"
	defaultLogLevel             = "info"
	defaultLogRetentionDays     = 14
)

// Default returns a Config populated with repository defaults. Directory paths
// left empty are derived from DataDir during normalization.
func Default() Config {
	return Config{
		Paths: Paths{
			DataDir: defaultDataDir,
		},
		Server: Server{
			Bind:                defaultBind,
			MaxUploadMiB:        defaultMaxUploadMiB,
			ReadTimeoutSeconds:  defaultReadTimeoutSeconds,
			WriteTimeoutSeconds: defaultWriteTimeoutSeconds,
		},
		Sampling: Sampling{
			Resolution:       defaultSamplingResolution,
			FailureThreshold: defaultFailureThreshold,
			MaxClips:         defaultMaxClips,
		},
		Transcode: Transcode{
			FFmpegBinary:   defaultFFmpegBinary,
			FFprobeBinary:  defaultFFprobeBinary,
			TimeoutSeconds: defaultTranscodeTimeoutSecs,
		},
		Logging: Logging{
			Format:        defaultLogFormat,
			Level:         defaultLogLevel,
			RetentionDays: defaultLogRetentionDays,
		},
	}
}
