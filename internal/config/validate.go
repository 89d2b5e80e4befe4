package config

import (
	"errors"
	"fmt"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateMatching(); err != nil {
		return err
	}
	if err := validateCarrier("carriers.a", c.Carriers.A); err != nil {
		return err
	}
	if err := validateCarrier("carriers.b", c.Carriers.B); err != nil {
		return err
	}
	if c.Carriers.A.Name == c.Carriers.B.Name {
		return fmt.Errorf("carriers.a and carriers.b share the name %q; reports need distinct labels", c.Carriers.A.Name)
	}
	if err := c.validateReports(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateMatching() error {
	if c.Matching.TimeTolerance < 0 {
		return errors.New("matching.time_tolerance must not be negative")
	}
	if c.Matching.DurationTolerance < 0 {
		return errors.New("matching.duration_tolerance must not be negative")
	}
	if c.Matching.GroupCeiling <= 0 {
		return errors.New("matching.group_ceiling must be positive")
	}
	return nil
}

func validateCarrier(section string, carrier Carrier) error {
	columns := []struct {
		key   string
		value string
	}{
		{"origin_column", carrier.OriginColumn},
		{"destination_column", carrier.DestinationColumn},
		{"time_column", carrier.TimeColumn},
		{"duration_column", carrier.DurationColumn},
	}
	for _, column := range columns {
		if column.value == "" {
			return fmt.Errorf("%s.%s must be set", section, column.key)
		}
	}
	return nil
}

func (c *Config) validateReports() error {
	for _, format := range c.Reports.Formats {
		switch format {
		case "csv", "xlsx":
		default:
			return fmt.Errorf("reports.formats: unsupported format %q (expected csv or xlsx)", format)
		}
	}
	return nil
}
