package config

const (
	defaultOutputDir              = "./output"
	defaultLogDir                 = "./logs"
	defaultBaseURL                = "https://radiko.jp"
	defaultAreaID                 = "JP13"
	defaultSessionTTL             = 3600
	defaultAuthRequestTimeout     = 10
	defaultRetryAttempts          = 3
	defaultAuthRetryBaseDelayMS   = 500
	defaultAuthRetryMaxDelayMS    = 5000
	defaultRetentionDays          = 7
	defaultChunkLength            = 15
	defaultPlaylistTimeout        = 10
	defaultSegmentPrefetch        = 1
	defaultSegmentTimeout         = 15
	defaultSegmentBaseDelayMS     = 250
	defaultSegmentMaxDelayMS      = 3000
	defaultEncoderBinary          = "ffmpeg"
	defaultEncoderKillTimeout     = 5
	defaultEncoderFinalizeTimeout = 30
	defaultSafetyMargin           = 120
	defaultDurationMinutes        = 60
	defaultLogFormat              = "console"
	defaultLogLevel               = "info"
	defaultLogRetentionDays       = 60

	// MaxSegmentPrefetch bounds how far ahead of the ordered writer the
	// fetchers may run.
	MaxSegmentPrefetch = 2
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			OutputDir: defaultOutputDir,
			LogDir:    defaultLogDir,
		},
		Service: Service{
			BaseURL: defaultBaseURL,
			AreaID:  defaultAreaID,
		},
		Auth: Auth{
			SessionTTL:       defaultSessionTTL,
			RequestTimeout:   defaultAuthRequestTimeout,
			RetryAttempts:    defaultRetryAttempts,
			RetryBaseDelayMS: defaultAuthRetryBaseDelayMS,
			RetryMaxDelayMS:  defaultAuthRetryMaxDelayMS,
		},
		Playlist: Playlist{
			RetentionDays:    defaultRetentionDays,
			ChunkLength:      defaultChunkLength,
			RequestTimeout:   defaultPlaylistTimeout,
			RetryAttempts:    defaultRetryAttempts,
			RetryBaseDelayMS: defaultAuthRetryBaseDelayMS,
			RetryMaxDelayMS:  defaultAuthRetryMaxDelayMS,
		},
		Segments: Segments{
			Prefetch:         defaultSegmentPrefetch,
			RequestTimeout:   defaultSegmentTimeout,
			RetryAttempts:    defaultRetryAttempts,
			RetryBaseDelayMS: defaultSegmentBaseDelayMS,
			RetryMaxDelayMS:  defaultSegmentMaxDelayMS,
		},
		Encoder: Encoder{
			Binary:          defaultEncoderBinary,
			KillTimeout:     defaultEncoderKillTimeout,
			FinalizeTimeout: defaultEncoderFinalizeTimeout,
		},
		Recording: Recording{
			SafetyMargin:           defaultSafetyMargin,
			DefaultDurationMinutes: defaultDurationMinutes,
		},
		Logging: Logging{
			Format:        defaultLogFormat,
			Level:         defaultLogLevel,
			RetentionDays: defaultLogRetentionDays,
		},
	}
}
