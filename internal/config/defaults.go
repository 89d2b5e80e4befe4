package config

const (
	defaultDataDir           = "~/.local/share/cdrecon"
	defaultLogDir            = "~/.local/share/cdrecon/logs"
	defaultTimeTolerance     = 5
	defaultDurationTolerance = 5
	defaultGroupCeiling      = 50
	defaultSignificantDigits = 10
	defaultServerBind        = "127.0.0.1:7519"
	defaultPollInterval      = 5
	defaultLogFormat         = "console"
	defaultLogLevel          = "info"
)

// Default returns a Config populated with repository defaults. The carrier
// schemas mirror the two CSV layouts the tool was built around; both are
// fully overridable.
func Default() Config {
	return Config{
		Paths: Paths{
			DataDir: defaultDataDir,
			LogDir:  defaultLogDir,
		},
		Matching: Matching{
			TimeTolerance:     defaultTimeTolerance,
			DurationTolerance: defaultDurationTolerance,
			GroupCeiling:      defaultGroupCeiling,
		},
		Carriers: Carriers{
			A: Carrier{
				Name:              "airtel",
				OriginColumn:      "a_number",
				DestinationColumn: "b_number",
				TimeColumn:        "call_time",
				DurationColumn:    "duration",
				SignificantDigits: defaultSignificantDigits,
			},
			B: Carrier{
				Name:              "mtn",
				OriginColumn:      "originating_number",
				DestinationColumn: "terminating_number",
				TimeColumn:        "time_field",
				DurationColumn:    "duration",
				SignificantDigits: defaultSignificantDigits,
			},
		},
		Reports: Reports{
			Formats: []string{"csv", "xlsx"},
		},
		Server: Server{
			Bind:         defaultServerBind,
			PollInterval: defaultPollInterval,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
