package config

const (
	defaultStateDir       = "~/.local/share/lectern"
	defaultLogDir         = "~/.local/share/lectern/logs"
	defaultLogFormat      = "console"
	defaultLogLevel       = "info"
	defaultCatalogTimeout = 30
	defaultChunkSizeMiB   = 16
	defaultSheetName      = "Videos"
	defaultNameColumn     = "A"
	defaultEmbedColumn    = "B"
	defaultDurationColumn = "C"
	defaultRetryAttempts  = 3
	defaultRetryBackoff   = 2
	defaultMaxConcurrent  = 2
	defaultNtfyTimeout    = 10
	defaultStabilizeSecs  = 5

	// Matcher thresholds are empirically tuned values carried over from
	// production operation. Characterization tests in internal/match lock
	// this behavior.
	defaultAutoAcceptConfidence  = 80
	defaultTeacherCodeConfidence = 55
	defaultNamePrefixConfidence  = 60
	defaultConflictConfidence    = 55
	defaultMaxAlternatives       = 5
)

var defaultIngestExtensions = []string{".mp4", ".mkv", ".mov", ".avi"}

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			StateDir: defaultStateDir,
			LogDir:   defaultLogDir,
		},
		Catalog: Catalog{
			RequestTimeout: defaultCatalogTimeout,
		},
		Storage: Storage{
			ChunkSizeMiB: defaultChunkSizeMiB,
		},
		Sheet: Sheet{
			SheetName:      defaultSheetName,
			NameColumn:     defaultNameColumn,
			EmbedColumn:    defaultEmbedColumn,
			DurationColumn: defaultDurationColumn,
			RetryAttempts:  defaultRetryAttempts,
			RetryBackoff:   defaultRetryBackoff,
		},
		Upload: Upload{
			MaxConcurrent: defaultMaxConcurrent,
		},
		Matcher: Matcher{
			AutoAcceptConfidence:  defaultAutoAcceptConfidence,
			TeacherCodeConfidence: defaultTeacherCodeConfidence,
			NamePrefixConfidence:  defaultNamePrefixConfidence,
			ConflictConfidence:    defaultConflictConfidence,
			MaxAlternatives:       defaultMaxAlternatives,
		},
		Notifications: Notifications{
			RequestTimeout: defaultNtfyTimeout,
			Batch:          true,
			ManualReview:   true,
			Errors:         true,
		},
		Ingest: Ingest{
			StabilizeSeconds: defaultStabilizeSecs,
			Extensions:       append([]string(nil), defaultIngestExtensions...),
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
