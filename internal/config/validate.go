package config

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
)

var columnPattern = regexp.MustCompile(`^[A-Z]{1,3}$`)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateSheet(); err != nil {
		return err
	}
	if err := c.validateUpload(); err != nil {
		return err
	}
	if err := c.validateMatcher(); err != nil {
		return err
	}
	if err := c.validateLogging(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateSheet() error {
	for name, col := range map[string]string{
		"sheet.name_column":     c.Sheet.NameColumn,
		"sheet.embed_column":    c.Sheet.EmbedColumn,
		"sheet.duration_column": c.Sheet.DurationColumn,
	} {
		if !columnPattern.MatchString(col) {
			return fmt.Errorf("%s must be a spreadsheet column letter, got %q", name, col)
		}
	}
	if c.Sheet.RetryAttempts > 10 {
		return errors.New("sheet.retry_attempts must be 10 or fewer")
	}
	return nil
}

func (c *Config) validateUpload() error {
	if c.Upload.MaxConcurrent > 8 {
		return errors.New("upload.max_concurrent must be 8 or fewer")
	}
	if year := c.Upload.DefaultYear; year != "" && !regexp.MustCompile(`^\d{4}$`).MatchString(year) {
		return fmt.Errorf("upload.default_year must be a four-digit year, got %q", year)
	}
	return nil
}

func (c *Config) validateMatcher() error {
	for name, value := range map[string]int{
		"matcher.auto_accept_confidence":  c.Matcher.AutoAcceptConfidence,
		"matcher.teacher_code_confidence": c.Matcher.TeacherCodeConfidence,
		"matcher.name_prefix_confidence":  c.Matcher.NamePrefixConfidence,
		"matcher.conflict_confidence":     c.Matcher.ConflictConfidence,
	} {
		if value < 1 || value > 100 {
			return fmt.Errorf("%s must be between 1 and 100, got %d", name, value)
		}
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format must be console or json, got %q", c.Logging.Format)
	}
	switch strings.ToLower(c.Logging.Level) {
	case "debug", "info", "warn", "error":
		return nil
	default:
		return fmt.Errorf("logging.level must be debug, info, warn, or error, got %q", c.Logging.Level)
	}
}
