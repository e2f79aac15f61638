package contracts

// CoreMIDIConfig holds configuration for the darwin CoreMIDI backend.
type CoreMIDIConfig struct {
	ClientName string
}

// DeviceOptions configures the construction of a platform InputDevice
// backend (internal/devio). The functional-options shape mirrors the
// rest of this SDK's constructors.
type DeviceOptions struct {
	Logger         Logger
	LogLevel       LogLevel
	CoreMIDIConfig *CoreMIDIConfig
}

// DeviceOption is a function that modifies DeviceOptions.
type DeviceOption func(*DeviceOptions)

// WithLogger sets the logger used by the device backend.
func WithLogger(l Logger) DeviceOption {
	return func(opts *DeviceOptions) {
		opts.Logger = l
	}
}

// WithLogLevel sets the backend's log level.
func WithLogLevel(level LogLevel) DeviceOption {
	return func(opts *DeviceOptions) {
		opts.LogLevel = level
	}
}

// WithCoreMIDIConfig sets the CoreMIDI client configuration.
func WithCoreMIDIConfig(config CoreMIDIConfig) DeviceOption {
	return func(opts *DeviceOptions) {
		opts.CoreMIDIConfig = &config
	}
}
