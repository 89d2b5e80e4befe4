package config

import (
	"fmt"
	"os"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeMatching()
	c.normalizeCarrier(&c.Carriers.A, "a")
	c.normalizeCarrier(&c.Carriers.B, "b")
	c.normalizeReports()
	c.normalizeServer()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.DataDir) == "" {
		c.Paths.DataDir = defaultDataDir
	}
	if c.Paths.DataDir, err = expandPath(c.Paths.DataDir); err != nil {
		return fmt.Errorf("paths.data_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		c.Paths.LogDir = defaultLogDir
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	return nil
}

func (c *Config) normalizeMatching() {
	if c.Matching.GroupCeiling == 0 {
		c.Matching.GroupCeiling = defaultGroupCeiling
	}
	if c.Matching.Workers < 0 {
		c.Matching.Workers = 0
	}
}

func (c *Config) normalizeCarrier(carrier *Carrier, fallbackName string) {
	carrier.Name = strings.ToLower(strings.TrimSpace(carrier.Name))
	if carrier.Name == "" {
		carrier.Name = fallbackName
	}
	carrier.OriginColumn = strings.TrimSpace(carrier.OriginColumn)
	carrier.DestinationColumn = strings.TrimSpace(carrier.DestinationColumn)
	carrier.TimeColumn = strings.TrimSpace(carrier.TimeColumn)
	carrier.DurationColumn = strings.TrimSpace(carrier.DurationColumn)
	if carrier.SignificantDigits < 0 {
		carrier.SignificantDigits = 0
	}
}

func (c *Config) normalizeReports() {
	if len(c.Reports.Formats) == 0 {
		c.Reports.Formats = []string{"csv"}
		return
	}
	formats := make([]string, 0, len(c.Reports.Formats))
	seen := make(map[string]struct{}, len(c.Reports.Formats))
	for _, format := range c.Reports.Formats {
		normalized := strings.ToLower(strings.TrimSpace(format))
		if normalized == "" {
			continue
		}
		if _, exists := seen[normalized]; exists {
			continue
		}
		seen[normalized] = struct{}{}
		formats = append(formats, normalized)
	}
	if len(formats) == 0 {
		formats = []string{"csv"}
	}
	c.Reports.Formats = formats
}

func (c *Config) normalizeServer() {
	c.Server.Bind = strings.TrimSpace(c.Server.Bind)
	if c.Server.Bind == "" {
		c.Server.Bind = defaultServerBind
	}
	c.Server.APIToken = strings.TrimSpace(c.Server.APIToken)
	if c.Server.APIToken == "" {
		if value, ok := os.LookupEnv("CDRECON_API_TOKEN"); ok {
			c.Server.APIToken = strings.TrimSpace(value)
		}
	}
	if c.Server.PollInterval <= 0 {
		c.Server.PollInterval = defaultPollInterval
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	switch c.Logging.Format {
	case "", "console":
		c.Logging.Format = "console"
	case "json":
	default:
		c.Logging.Format = "console"
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}
