// Package logging wires glog into the command line.
package logging

import (
	"flag"
	"fmt"

	"github.com/golang/glog"
	"github.com/spf13/pflag"
)

// AddFlags exposes glog's flags (-v, --logtostderr, --log_dir, ...) on a
// cobra flag set.
func AddFlags(fs *pflag.FlagSet) {
	fs.AddGoFlagSet(flag.CommandLine)
}

// Init applies CLI defaults after flags are parsed: logs go to stderr
// unless a log directory or an explicit logtostderr was given.
func Init(fs *pflag.FlagSet) error {
	if fs.Changed("logtostderr") || fs.Changed("log_dir") || fs.Changed("alsologtostderr") {
		return nil
	}
	if err := flag.Set("logtostderr", "true"); err != nil {
		return fmt.Errorf("logging: %w", err)
	}
	return nil
}

// Flush writes buffered log entries. Call it before the process exits.
func Flush() {
	glog.Flush()
}
