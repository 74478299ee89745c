package flags

import (
	"testing"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/pflag"
)

func TestLogOptions(t *testing.T) {
	defer log.SetLevel(log.GetLevel())
	defer log.SetFormatter(log.StandardLogger().Formatter)

	for _, tt := range []struct {
		args  []string
		level log.Level
		valid bool
	}{
		{[]string{}, log.InfoLevel, true},
		{[]string{"--log-level", "debug"}, log.DebugLevel, true},
		{[]string{"--log-level", "warn", "--log-format", "json"}, log.WarnLevel, true},
		{[]string{"--log-level", "loud"}, 0, false},
		{[]string{"--log-format", "xml"}, 0, false},
	} {
		fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
		opts := AddLogFlags(fs)
		if err := fs.Parse(tt.args); err != nil {
			t.Fatalf("failed to parse %v: %s", tt.args, err)
		}

		err := opts.Apply()
		if !tt.valid {
			if err == nil {
				t.Errorf("%v: expected an error", tt.args)
			}
			continue
		}
		if err != nil {
			t.Errorf("%v: unexpected error: %s", tt.args, err)
			continue
		}
		if log.GetLevel() != tt.level {
			t.Errorf("%v: expected level %s, got %s", tt.args, tt.level, log.GetLevel())
		}
	}
}
