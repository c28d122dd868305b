package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory and bind address configuration.
type Paths struct {
	MediaDir string `toml:"media_dir"`
	LogDir   string `toml:"log_dir"`
	APIBind  string `toml:"api_bind"`
}

// Token maps a bearer token to a tenant identity and permission level.
type Token struct {
	Token  string `toml:"token"`
	Tenant string `toml:"tenant"`
	Role   string `toml:"role"`
}

// Auth contains the static identity table used to resolve API callers.
type Auth struct {
	Tokens []Token `toml:"token"`
}

// Transcode contains worker pool sizing and external tool settings.
type Transcode struct {
	Workers       int    `toml:"workers"`
	QueueSize     int    `toml:"queue_size"`
	FFmpegBinary  string `toml:"ffmpeg_binary"`
	FFprobeBinary string `toml:"ffprobe_binary"`
	EncodeTimeout int    `toml:"encode_timeout"`
	ProbeTimeout  int    `toml:"probe_timeout"`
}

// Moderation configures the content classification stage.
type Moderation struct {
	// Mode selects the classifier backend: "sim" or "http".
	Mode           string  `toml:"mode"`
	Endpoint       string  `toml:"endpoint"`
	RequestTimeout int     `toml:"request_timeout"`
	FlagRatio      float64 `toml:"flag_ratio"`
	AnalysisDelay  int     `toml:"analysis_delay"`
}

// Notify configures the in-process event hub.
type Notify struct {
	SubscriberBuffer int `toml:"subscriber_buffer"`
}

// Upload configures source file acceptance limits.
type Upload struct {
	MaxSizeMiB        int      `toml:"max_size_mib"`
	AllowedExtensions []string `toml:"allowed_extensions"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Config encapsulates all configuration values for clipforge.
//
// Configuration sections by subsystem:
//   - Paths: media/log directories and API bind address
//   - Auth: bearer token to tenant/role mappings
//   - Transcode: worker pool bounds and ffmpeg/ffprobe settings
//   - Moderation: classifier backend selection
//   - Notify: event hub buffering
//   - Upload: source file acceptance limits
//   - Logging: log format and level
type Config struct {
	Paths      Paths      `toml:"paths"`
	Auth       Auth       `toml:"auth"`
	Transcode  Transcode  `toml:"transcode"`
	Moderation Moderation `toml:"moderation"`
	Notify     Notify     `toml:"notify"`
	Upload     Upload     `toml:"upload"`
	Logging    Logging    `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/clipforge/config.toml")
}

// Load locates, parses, and validates a configuration file. The returned config
// has all path fields expanded and normalized. The second return is the resolved
// path and the third reports whether a file existed there.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("clipforge.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}
	return defaultPath, false, nil
}

// WriteSample writes the embedded sample configuration to the given path.
func WriteSample(path string) error {
	expanded, err := expandPath(path)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(expanded), 0o755); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}
	if _, err := os.Stat(expanded); err == nil {
		return fmt.Errorf("config file already exists at %s", expanded)
	}
	if err := os.WriteFile(expanded, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}

// EnsureDirectories creates required directories for daemon operation.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.MediaDir, c.Paths.LogDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// FFmpegBinary returns the ffmpeg executable name.
func (c *Config) FFmpegBinary() string {
	if strings.TrimSpace(c.Transcode.FFmpegBinary) != "" {
		return c.Transcode.FFmpegBinary
	}
	return "ffmpeg"
}

// FFprobeBinary returns the ffprobe executable name.
func (c *Config) FFprobeBinary() string {
	if strings.TrimSpace(c.Transcode.FFprobeBinary) != "" {
		return c.Transcode.FFprobeBinary
	}
	return "ffprobe"
}

func expandPath(path string) (string, error) {
	trimmed := strings.TrimSpace(path)
	if trimmed == "" {
		return "", nil
	}
	if trimmed == "~" || strings.HasPrefix(trimmed, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if trimmed == "~" {
			return home, nil
		}
		return filepath.Join(home, trimmed[2:]), nil
	}
	abs, err := filepath.Abs(trimmed)
	if err != nil {
		return "", fmt.Errorf("resolve path %q: %w", trimmed, err)
	}
	return abs, nil
}
