package config

import (
	"fmt"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeCatalog()
	c.normalizeStorage()
	if err := c.normalizeSheet(); err != nil {
		return err
	}
	c.normalizeUpload()
	c.normalizeMatcher()
	c.normalizeIngest()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.StateDir) == "" {
		c.Paths.StateDir = defaultStateDir
	}
	if c.Paths.StateDir, err = expandPath(c.Paths.StateDir); err != nil {
		return fmt.Errorf("paths.state_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		c.Paths.LogDir = defaultLogDir
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.IngestDir) != "" {
		if c.Paths.IngestDir, err = expandPath(c.Paths.IngestDir); err != nil {
			return fmt.Errorf("paths.ingest_dir: %w", err)
		}
	}
	return nil
}

func (c *Config) normalizeCatalog() {
	c.Catalog.BaseURL = strings.TrimRight(strings.TrimSpace(c.Catalog.BaseURL), "/")
	c.Catalog.AccessKey = strings.TrimSpace(c.Catalog.AccessKey)
	if c.Catalog.RequestTimeout <= 0 {
		c.Catalog.RequestTimeout = defaultCatalogTimeout
	}
}

func (c *Config) normalizeStorage() {
	c.Storage.Endpoint = strings.TrimSpace(c.Storage.Endpoint)
	c.Storage.Bucket = strings.TrimSpace(c.Storage.Bucket)
	if c.Storage.ChunkSizeMiB <= 0 {
		c.Storage.ChunkSizeMiB = defaultChunkSizeMiB
	}
}

func (c *Config) normalizeSheet() error {
	var err error
	if strings.TrimSpace(c.Sheet.WorkbookPath) != "" {
		if c.Sheet.WorkbookPath, err = expandPath(c.Sheet.WorkbookPath); err != nil {
			return fmt.Errorf("sheet.workbook_path: %w", err)
		}
	}
	if strings.TrimSpace(c.Sheet.SheetName) == "" {
		c.Sheet.SheetName = defaultSheetName
	}
	c.Sheet.NameColumn = normalizeColumn(c.Sheet.NameColumn, defaultNameColumn)
	c.Sheet.EmbedColumn = normalizeColumn(c.Sheet.EmbedColumn, defaultEmbedColumn)
	c.Sheet.DurationColumn = normalizeColumn(c.Sheet.DurationColumn, defaultDurationColumn)
	if c.Sheet.RetryAttempts <= 0 {
		c.Sheet.RetryAttempts = defaultRetryAttempts
	}
	if c.Sheet.RetryBackoff <= 0 {
		c.Sheet.RetryBackoff = defaultRetryBackoff
	}
	return nil
}

func normalizeColumn(value, fallback string) string {
	trimmed := strings.ToUpper(strings.TrimSpace(value))
	if trimmed == "" {
		return fallback
	}
	return trimmed
}

func (c *Config) normalizeUpload() {
	if c.Upload.MaxConcurrent <= 0 {
		c.Upload.MaxConcurrent = defaultMaxConcurrent
	}
	c.Upload.DefaultYear = strings.TrimSpace(c.Upload.DefaultYear)
}

func (c *Config) normalizeMatcher() {
	if c.Matcher.AutoAcceptConfidence <= 0 {
		c.Matcher.AutoAcceptConfidence = defaultAutoAcceptConfidence
	}
	if c.Matcher.TeacherCodeConfidence <= 0 {
		c.Matcher.TeacherCodeConfidence = defaultTeacherCodeConfidence
	}
	if c.Matcher.NamePrefixConfidence <= 0 {
		c.Matcher.NamePrefixConfidence = defaultNamePrefixConfidence
	}
	if c.Matcher.ConflictConfidence <= 0 {
		c.Matcher.ConflictConfidence = defaultConflictConfidence
	}
	if c.Matcher.MaxAlternatives <= 0 {
		c.Matcher.MaxAlternatives = defaultMaxAlternatives
	}
}

func (c *Config) normalizeIngest() {
	if c.Ingest.StabilizeSeconds <= 0 {
		c.Ingest.StabilizeSeconds = defaultStabilizeSecs
	}
	if len(c.Ingest.Extensions) == 0 {
		c.Ingest.Extensions = append([]string(nil), defaultIngestExtensions...)
	}
	normalized := make([]string, 0, len(c.Ingest.Extensions))
	for _, ext := range c.Ingest.Extensions {
		ext = strings.ToLower(strings.TrimSpace(ext))
		if ext == "" {
			continue
		}
		if !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		normalized = append(normalized, ext)
	}
	c.Ingest.Extensions = normalized
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
