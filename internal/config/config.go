package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory and database locations.
type Paths struct {
	DataDir         string `toml:"data_dir"`
	FilesDir        string `toml:"files_dir"`
	DatabasePath    string `toml:"database_path"`
	LogDir          string `toml:"log_dir"`
	ArchiveCacheDir string `toml:"archive_cache_dir"`
}

// Server contains HTTP front end settings.
type Server struct {
	Bind                string `toml:"bind"`
	MaxUploadMiB        int    `toml:"max_upload_mib"`
	ReadTimeoutSeconds  int    `toml:"read_timeout_seconds"`
	WriteTimeoutSeconds int    `toml:"write_timeout_seconds"`
}

// Sampling contains random clip-set generation parameters.
type Sampling struct {
	// Resolution is the granularity, in seconds, of randomly drawn start offsets.
	Resolution float64 `toml:"resolution"`
	// FailureThreshold is the number of duplicate draws tolerated before a
	// sampling run stops early with whatever it accepted.
	FailureThreshold int `toml:"failure_threshold"`
	// MaxClips caps the clip count a single request may ask for.
	MaxClips int `toml:"max_clips"`
}

// Transcode contains settings for rendering clips into WAV fragments.
type Transcode struct {
	FFmpegBinary   string `toml:"ffmpeg_binary"`
	FFprobeBinary  string `toml:"ffprobe_binary"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
}

// Archive contains settings for packaged clip-set archives.
type Archive struct {
	CacheEnabled bool `toml:"cache_enabled"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
	// RetentionDays prunes per-run server logs older than this. Zero keeps them all.
	RetentionDays int `toml:"retention_days"`
}

// Config encapsulates all configuration values for audioserver.
//
// Configuration sections by subsystem:
//   - Paths: raw file storage, database, logs, archive cache
//   - Server: HTTP bind address, upload limit, timeouts
//   - Sampling: random set resolution, duplicate budget, size cap
//   - Transcode: ffmpeg/ffprobe binaries and call timeout
//   - Archive: on-disk archive cache toggle
//   - Logging: log format and level
type Config struct {
	Paths     Paths     `toml:"paths"`
	Server    Server    `toml:"server"`
	Sampling  Sampling  `toml:"sampling"`
	Transcode Transcode `toml:"transcode"`
	Archive   Archive   `toml:"archive"`
	Logging   Logging   `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/audioserver/config.toml")
}

// Load locates, parses, and validates a configuration file. The returned config has all
// path fields expanded and normalized.
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

	projectPath, err := filepath.Abs("audioserver.toml")
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

// EnsureDirectories creates the storage, log, and (when enabled) archive cache directories.
func (c *Config) EnsureDirectories() error {
	dirs := []string{c.Paths.DataDir, c.Paths.FilesDir, c.Paths.LogDir, filepath.Dir(c.Paths.DatabasePath)}
	for _, dir := range dirs {
		if strings.TrimSpace(dir) == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	if c.Archive.CacheEnabled && strings.TrimSpace(c.Paths.ArchiveCacheDir) != "" {
		if err := os.MkdirAll(c.Paths.ArchiveCacheDir, 0o755); err != nil {
			return fmt.Errorf("create archive cache directory %q: %w", c.Paths.ArchiveCacheDir, err)
		}
	}
	return nil
}

// LockPath returns the single-instance lock file used by the server.
func (c *Config) LockPath() string {
	return filepath.Join(c.Paths.DataDir, "audioserver.lock")
}

// LogPath returns the stable log file name. For "serve" it links to the
// current run's log.
func (c *Config) LogPath() string {
	return filepath.Join(c.Paths.LogDir, "audioserver.log")
}

// RunLogPath returns the log file for one server run.
func (c *Config) RunLogPath(runID string) string {
	return filepath.Join(c.Paths.LogDir, "audioserver-"+runID+".log")
}

// TranscodeTimeout returns the upper bound for a single external decode or probe call.
func (c *Config) TranscodeTimeout() time.Duration {
	return time.Duration(c.Transcode.TimeoutSeconds) * time.Second
}

// MaxUploadBytes returns the largest accepted upload body.
func (c *Config) MaxUploadBytes() int64 {
	return int64(c.Server.MaxUploadMiB) * 1024 * 1024
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
