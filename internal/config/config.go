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

// Paths contains directory configuration.
type Paths struct {
	StateDir  string `toml:"state_dir"`
	LogDir    string `toml:"log_dir"`
	IngestDir string `toml:"ingest_dir"`
}

// Catalog contains configuration for the remote video-library catalog API.
type Catalog struct {
	BaseURL        string `toml:"base_url"`
	AccessKey      string `toml:"access_key"`
	RequestTimeout int    `toml:"request_timeout"`
}

// Storage contains configuration for the S3-compatible upload target.
type Storage struct {
	Endpoint  string `toml:"endpoint"`
	AccessKey string `toml:"access_key"`
	SecretKey string `toml:"secret_key"`
	Bucket    string `toml:"bucket"`
	UseSSL    bool   `toml:"use_ssl"`
	// ChunkSizeMiB controls the multipart part size for large transfers.
	ChunkSizeMiB int `toml:"chunk_size_mib"`
}

// Sheet contains the spreadsheet coordinates results are written into.
// Column letters identify where the filename match key, the embed snippet,
// and the optional duration-in-minutes live.
type Sheet struct {
	WorkbookPath   string `toml:"workbook_path"`
	SheetName      string `toml:"sheet_name"`
	NameColumn     string `toml:"name_column"`
	EmbedColumn    string `toml:"embed_column"`
	DurationColumn string `toml:"duration_column"`
	RetryAttempts  int    `toml:"retry_attempts"`
	RetryBackoff   int    `toml:"retry_backoff_seconds"`
}

// Upload contains tuning for the concurrency-bounded upload loop.
type Upload struct {
	MaxConcurrent int    `toml:"max_concurrent"`
	DefaultYear   string `toml:"default_year"`
}

// Matcher carries the empirically tuned confidence thresholds for library
// matching. The values are characterization constants from production use;
// change them only with matching test updates.
type Matcher struct {
	AutoAcceptConfidence  int `toml:"auto_accept_confidence"`
	TeacherCodeConfidence int `toml:"teacher_code_confidence"`
	NamePrefixConfidence  int `toml:"name_prefix_confidence"`
	ConflictConfidence    int `toml:"conflict_confidence"`
	MaxAlternatives       int `toml:"max_alternatives"`
}

// Notifications contains configuration for ntfy push notifications.
type Notifications struct {
	NtfyTopic      string `toml:"ntfy_topic"`
	RequestTimeout int    `toml:"request_timeout"`
	Batch          bool   `toml:"batch"`
	ManualReview   bool   `toml:"manual_review"`
	Errors         bool   `toml:"errors"`
}

// Ingest contains configuration for the directory watcher.
type Ingest struct {
	StabilizeSeconds int      `toml:"stabilize_seconds"`
	Extensions       []string `toml:"extensions"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Config encapsulates all configuration values for lectern.
type Config struct {
	Paths         Paths         `toml:"paths"`
	Catalog       Catalog       `toml:"catalog"`
	Storage       Storage       `toml:"storage"`
	Sheet         Sheet         `toml:"sheet"`
	Upload        Upload        `toml:"upload"`
	Matcher       Matcher       `toml:"matcher"`
	Notifications Notifications `toml:"notifications"`
	Ingest        Ingest        `toml:"ingest"`
	Logging       Logging       `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/lectern/config.toml")
}

// Load locates, parses, and validates a configuration file. The returned
// config has all path fields expanded and normalized. The boolean reports
// whether a config file was actually found at the resolved path.
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

	projectPath, err := filepath.Abs("lectern.toml")
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

// EnsureDirectories creates the directories the pipeline writes into.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.StateDir, c.Paths.LogDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	if strings.TrimSpace(c.Paths.IngestDir) != "" {
		// Best-effort so config load survives a missing watch directory.
		_ = os.MkdirAll(c.Paths.IngestDir, 0o755)
	}
	return nil
}

// WriteSample writes the embedded sample configuration to path, refusing to
// overwrite an existing file.
func WriteSample(path string) error {
	expanded, err := expandPath(path)
	if err != nil {
		return err
	}
	if _, err := os.Stat(expanded); err == nil {
		return fmt.Errorf("config already exists at %s", expanded)
	}
	if err := os.MkdirAll(filepath.Dir(expanded), 0o755); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}
	return os.WriteFile(expanded, []byte(sampleConfig), 0o644)
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
