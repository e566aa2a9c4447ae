package config

import (
	"errors"
	"fmt"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateArchive(); err != nil {
		return err
	}
	if err := c.validateClassifier(); err != nil {
		return err
	}
	if err := c.validateLogging(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateArchive() error {
	if c.Archive.MaxTotalBytes <= 0 {
		return errors.New("archive.max_total_bytes must be positive")
	}
	if c.Archive.MaxMemberBytes <= 0 {
		return errors.New("archive.max_member_bytes must be positive")
	}
	if c.Archive.MaxMemberBytes > c.Archive.MaxTotalBytes {
		return errors.New("archive.max_member_bytes must not exceed archive.max_total_bytes")
	}
	if c.Archive.MaxMembers <= 0 {
		return errors.New("archive.max_members must be positive")
	}
	if c.Archive.MaxCompressionRatio < 1 {
		return errors.New("archive.max_compression_ratio must be at least 1")
	}
	return nil
}

func (c *Config) validateClassifier() error {
	if c.Classifier.AssignmentDescriptor == "" {
		return errors.New("classifier.assignment_descriptor must be set")
	}
	if len(c.Classifier.BankKeywords) == 0 {
		return errors.New("classifier.bank_keywords must not be empty")
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format must be console or json, got %q", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level must be one of debug, info, warn, error, got %q", c.Logging.Level)
	}
	return nil
}
