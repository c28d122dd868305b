package config

import (
	"fmt"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeAuth()
	c.normalizeTranscode()
	c.normalizeModeration()
	c.normalizeNotify()
	c.normalizeUpload()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if c.Paths.MediaDir, err = expandPath(c.Paths.MediaDir); err != nil {
		return fmt.Errorf("paths.media_dir: %w", err)
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	c.Paths.APIBind = strings.TrimSpace(c.Paths.APIBind)
	return nil
}

func (c *Config) normalizeAuth() {
	for i := range c.Auth.Tokens {
		token := &c.Auth.Tokens[i]
		token.Token = strings.TrimSpace(token.Token)
		token.Tenant = strings.TrimSpace(token.Tenant)
		token.Role = strings.ToLower(strings.TrimSpace(token.Role))
		if token.Role == "" {
			token.Role = "viewer"
		}
	}
}

func (c *Config) normalizeTranscode() {
	if c.Transcode.Workers <= 0 {
		c.Transcode.Workers = defaultWorkers
	}
	if c.Transcode.QueueSize <= 0 {
		c.Transcode.QueueSize = defaultQueueSize
	}
	if c.Transcode.EncodeTimeout <= 0 {
		c.Transcode.EncodeTimeout = defaultEncodeTimeout
	}
	if c.Transcode.ProbeTimeout <= 0 {
		c.Transcode.ProbeTimeout = defaultProbeTimeout
	}
	c.Transcode.FFmpegBinary = strings.TrimSpace(c.Transcode.FFmpegBinary)
	c.Transcode.FFprobeBinary = strings.TrimSpace(c.Transcode.FFprobeBinary)
}

func (c *Config) normalizeModeration() {
	c.Moderation.Mode = strings.ToLower(strings.TrimSpace(c.Moderation.Mode))
	if c.Moderation.Mode == "" {
		c.Moderation.Mode = defaultModerationMode
	}
	c.Moderation.Endpoint = strings.TrimSpace(c.Moderation.Endpoint)
	if c.Moderation.RequestTimeout <= 0 {
		c.Moderation.RequestTimeout = defaultRequestTimeout
	}
	if c.Moderation.FlagRatio < 0 {
		c.Moderation.FlagRatio = 0
	}
	if c.Moderation.AnalysisDelay < 0 {
		c.Moderation.AnalysisDelay = 0
	}
}

func (c *Config) normalizeNotify() {
	if c.Notify.SubscriberBuffer <= 0 {
		c.Notify.SubscriberBuffer = defaultSubscriberBuffer
	}
}

func (c *Config) normalizeUpload() {
	if c.Upload.MaxSizeMiB <= 0 {
		c.Upload.MaxSizeMiB = defaultMaxSizeMiB
	}
	if len(c.Upload.AllowedExtensions) == 0 {
		c.Upload.AllowedExtensions = append([]string(nil), defaultAllowedExtensions...)
	}
	for i, ext := range c.Upload.AllowedExtensions {
		ext = strings.ToLower(strings.TrimSpace(ext))
		if ext != "" && !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		c.Upload.AllowedExtensions[i] = ext
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}
