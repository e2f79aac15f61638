package config

import "github.com/spf13/pflag"

// Flags is a command-line surface of config file path plus log level,
// both overridable at launch without editing the TOML file. The cmd/*
// binaries register their own pflag flags and do not call ParseFlags.
type Flags struct {
	ConfigPath string
	LogLevel   string
}

// ParseFlags registers and parses the shared flag set. args excludes the
// program name (pass os.Args[1:]).
func ParseFlags(args []string, defaultConfigPath string) (Flags, error) {
	fs := pflag.NewFlagSet("midinet", pflag.ContinueOnError)
	configPath := fs.StringP("config", "c", defaultConfigPath, "path to TOML config file")
	logLevel := fs.String("log-level", "info", "log level: debug, info, warn, error")

	if err := fs.Parse(args); err != nil {
		return Flags{}, err
	}
	return Flags{ConfigPath: *configPath, LogLevel: *logLevel}, nil
}
