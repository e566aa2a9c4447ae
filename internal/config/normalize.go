package config

import (
	"fmt"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeArchive()
	c.normalizeClassifier()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.OutputDir) == "" {
		c.Paths.OutputDir = defaultOutputDir
	}
	if c.Paths.OutputDir, err = expandPath(c.Paths.OutputDir); err != nil {
		return fmt.Errorf("paths.output_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.ScratchDir) == "" {
		c.Paths.ScratchDir = defaultScratchDir
	}
	if c.Paths.ScratchDir, err = expandPath(c.Paths.ScratchDir); err != nil {
		return fmt.Errorf("paths.scratch_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		c.Paths.LogDir = defaultLogDir
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	return nil
}

func (c *Config) normalizeArchive() {
	if c.Archive.MaxTotalBytes <= 0 {
		c.Archive.MaxTotalBytes = defaultMaxTotalBytes
	}
	if c.Archive.MaxMemberBytes <= 0 {
		c.Archive.MaxMemberBytes = defaultMaxMemberBytes
	}
	if c.Archive.MaxMembers <= 0 {
		c.Archive.MaxMembers = defaultMaxMembers
	}
	if c.Archive.MaxCompressionRatio <= 0 {
		c.Archive.MaxCompressionRatio = defaultMaxCompressionRatio
	}
}

func (c *Config) normalizeClassifier() {
	c.Classifier.AssignmentDescriptor = strings.TrimSpace(c.Classifier.AssignmentDescriptor)
	if c.Classifier.AssignmentDescriptor == "" {
		c.Classifier.AssignmentDescriptor = defaultAssignmentDescriptor
	}
	keywords := make([]string, 0, len(c.Classifier.BankKeywords))
	for _, keyword := range c.Classifier.BankKeywords {
		keyword = strings.ToLower(strings.TrimSpace(keyword))
		if keyword != "" {
			keywords = append(keywords, keyword)
		}
	}
	if len(keywords) == 0 {
		keywords = defaultBankKeywords()
	}
	c.Classifier.BankKeywords = keywords
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
