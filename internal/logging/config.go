package logging

// DestinationConfig is one of the three queue-consumer destinations
// (console, file, database) from spec.md §6: an enabled flag, a default
// priority threshold, and per-subsystem overrides.
type DestinationConfig struct {
	Enabled    bool
	Default    Priority
	Subsystems map[string]Priority
}

// threshold resolves the priority a record on the given subsystem must
// meet or exceed to reach this destination, falling back to the
// destination's default when the subsystem has no override.
func (d DestinationConfig) threshold(subsystem string) Priority {
	if d.Subsystems != nil {
		if p, ok := d.Subsystems[subsystem]; ok {
			return p
		}
	}
	return d.Default
}

// allows reports whether a record at priority on subsystem should reach
// this destination: disabled destinations never emit, ALL always emits,
// NONE never emits, otherwise priority must meet the resolved threshold.
func (d DestinationConfig) allows(subsystem string, priority Priority) bool {
	if !d.Enabled {
		return false
	}
	threshold := d.threshold(subsystem)
	switch threshold {
	case All:
		return true
	case None:
		return false
	default:
		return priority >= threshold
	}
}

// ConfigSource is the read-only configuration contract of spec.md §6. The
// core only ever reads it; parsing config files, `${env.VAR}`
// interpolation, and unit suffixes are the external configuration
// collaborator's job (spec.md §1 Non-goals).
type ConfigSource interface {
	Console() DestinationConfig
	File() DestinationConfig
	Database() DestinationConfig
	StartupLogLevel() Priority
	FilePath() string
}

// StaticConfig is the simplest conforming ConfigSource: values set
// directly in memory, with no parsing of any kind. It exists for tests
// and the demo binary, not as a stand-in for the real configuration
// collaborator.
type StaticConfig struct {
	ConsoleConfig  DestinationConfig
	FileConfig     DestinationConfig
	DatabaseConfig DestinationConfig
	StartupLevel   Priority
	LogFilePath    string
}

func (s *StaticConfig) Console() DestinationConfig  { return s.ConsoleConfig }
func (s *StaticConfig) File() DestinationConfig     { return s.FileConfig }
func (s *StaticConfig) Database() DestinationConfig { return s.DatabaseConfig }
func (s *StaticConfig) StartupLogLevel() Priority   { return s.StartupLevel }
func (s *StaticConfig) FilePath() string            { return s.LogFilePath }

// DefaultStaticConfig returns console enabled at DEBUG, file/database
// disabled (default STATE), and a DEBUG startup level, matching a fresh
// install with no configuration file yet loaded. No destination carries
// per-subsystem overrides, so every subsystem uses the destination
// default.
func DefaultStaticConfig() *StaticConfig {
	return &StaticConfig{
		ConsoleConfig: DestinationConfig{
			Enabled: true,
			Default: Debug,
		},
		FileConfig: DestinationConfig{
			Enabled: false,
			Default: State,
		},
		DatabaseConfig: DestinationConfig{
			Enabled: false,
			Default: State,
		},
		StartupLevel: Debug,
	}
}
