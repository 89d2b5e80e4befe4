package normalize

import (
	"fmt"

	"cdrecon/internal/cdr"
	"cdrecon/internal/config"
)

// Schema describes how to read one carrier's CSV export.
type Schema struct {
	// Carrier labels the dataset in logs, rejects, and report file names.
	Carrier string

	// Side tags every produced record with its dataset of origin.
	Side cdr.Side

	OriginColumn      string
	DestinationColumn string
	TimeColumn        string
	DurationColumn    string

	// SignificantDigits keeps only the trailing digits of each number,
	// absorbing country-code prefixes. Zero keeps the full number.
	SignificantDigits int
}

// SchemaFromConfig builds the schema for one configured carrier.
func SchemaFromConfig(carrier config.Carrier, side cdr.Side) Schema {
	return Schema{
		Carrier:           carrier.Name,
		Side:              side,
		OriginColumn:      carrier.OriginColumn,
		DestinationColumn: carrier.DestinationColumn,
		TimeColumn:        carrier.TimeColumn,
		DurationColumn:    carrier.DurationColumn,
		SignificantDigits: carrier.SignificantDigits,
	}
}

func (s Schema) validate() error {
	if !s.Side.Valid() {
		return fmt.Errorf("schema %q: side must be A or B", s.Carrier)
	}
	for _, column := range []struct {
		name  string
		value string
	}{
		{"origin", s.OriginColumn},
		{"destination", s.DestinationColumn},
		{"time", s.TimeColumn},
		{"duration", s.DurationColumn},
	} {
		if column.value == "" {
			return fmt.Errorf("schema %q: %s column not set", s.Carrier, column.name)
		}
	}
	return nil
}
