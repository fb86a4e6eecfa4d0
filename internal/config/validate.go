package config

import (
	"fmt"
	"regexp"
	"strings"
)

var areaIDPattern = regexp.MustCompile(`^JP([1-9]|[1-3][0-9]|4[0-7])$`)

// ValidAreaID reports whether id names one of the 47 prefecture areas
// (JP1 through JP47).
func ValidAreaID(id string) bool {
	return areaIDPattern.MatchString(id)
}

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateService(); err != nil {
		return err
	}
	if err := c.validateDurations(); err != nil {
		return err
	}
	if err := c.validateRetries(); err != nil {
		return err
	}
	if err := c.validateEncoder(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateService() error {
	if !strings.HasPrefix(c.Service.BaseURL, "http://") && !strings.HasPrefix(c.Service.BaseURL, "https://") {
		return fmt.Errorf("service.base_url must start with http:// or https://, got %q", c.Service.BaseURL)
	}
	if !ValidAreaID(c.Service.AreaID) {
		return fmt.Errorf("service.area_id must match JP1 through JP47, got %q", c.Service.AreaID)
	}
	return nil
}

func (c *Config) validateDurations() error {
	return ensurePositiveMap(map[string]int{
		"auth.session_ttl":                   c.Auth.SessionTTL,
		"auth.request_timeout":               c.Auth.RequestTimeout,
		"playlist.retention_days":            c.Playlist.RetentionDays,
		"playlist.chunk_length":              c.Playlist.ChunkLength,
		"playlist.request_timeout":           c.Playlist.RequestTimeout,
		"segments.request_timeout":           c.Segments.RequestTimeout,
		"encoder.kill_timeout":               c.Encoder.KillTimeout,
		"encoder.finalize_timeout":           c.Encoder.FinalizeTimeout,
		"recording.safety_margin":            c.Recording.SafetyMargin,
		"recording.default_duration_minutes": c.Recording.DefaultDurationMinutes,
	})
}

func (c *Config) validateRetries() error {
	if err := validateRetry("auth", c.Auth.RetryAttempts, c.Auth.RetryBaseDelayMS, c.Auth.RetryMaxDelayMS); err != nil {
		return err
	}
	if err := validateRetry("playlist", c.Playlist.RetryAttempts, c.Playlist.RetryBaseDelayMS, c.Playlist.RetryMaxDelayMS); err != nil {
		return err
	}
	return validateRetry("segments", c.Segments.RetryAttempts, c.Segments.RetryBaseDelayMS, c.Segments.RetryMaxDelayMS)
}

func (c *Config) validateEncoder() error {
	if strings.TrimSpace(c.Encoder.Binary) == "" {
		return fmt.Errorf("encoder.binary must be set")
	}
	return nil
}

func validateRetry(section string, attempts, baseMS, maxMS int) error {
	if attempts <= 0 {
		return fmt.Errorf("%s.retry_attempts must be positive", section)
	}
	if baseMS <= 0 {
		return fmt.Errorf("%s.retry_base_delay_ms must be positive", section)
	}
	if maxMS < baseMS {
		return fmt.Errorf("%s.retry_max_delay_ms must be at least %s.retry_base_delay_ms", section, section)
	}
	return nil
}

func ensurePositiveMap(values map[string]int) error {
	for key, value := range values {
		if value <= 0 {
			return fmt.Errorf("%s must be positive", key)
		}
	}
	return nil
}
