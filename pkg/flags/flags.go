package flags

import (
	"fmt"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/pflag"
)

// LogOptions holds the logging flags common to all commands.
type LogOptions struct {
	Level  string
	Format string
}

// AddLogFlags adds the log-level and log-format flags to the flagSet and
// returns the options they populate.
func AddLogFlags(f *pflag.FlagSet) *LogOptions {
	opts := &LogOptions{
		Level:  log.InfoLevel.String(),
		Format: "plain",
	}
	f.StringVar(&opts.Level, "log-level", opts.Level,
		"log level, must be one of: panic, fatal, error, warn, info, debug, trace")
	f.StringVar(&opts.Format, "log-format", opts.Format,
		"log format, must be one of: plain, json")
	return opts
}

// Apply configures the standard logger from the options.
func (o *LogOptions) Apply() error {
	level, err := log.ParseLevel(o.Level)
	if err != nil {
		return fmt.Errorf("invalid log-level: %s", o.Level)
	}
	formatter, err := getFormatter(o.Format)
	if err != nil {
		return err
	}

	log.SetLevel(level)
	// set log timestamps
	log.SetFormatter(formatter)
	return nil
}

func getFormatter(format string) (log.Formatter, error) {
	switch format {
	case "json":
		return &log.JSONFormatter{}, nil
	case "plain", "":
		return &log.TextFormatter{FullTimestamp: true}, nil
	default:
		return nil, fmt.Errorf("invalid log-format: %s", format)
	}
}
