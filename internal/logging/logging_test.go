package logging

import (
	"flag"
	"testing"

	"github.com/spf13/pflag"
)

func lookup(t *testing.T, name string) string {
	t.Helper()
	f := flag.Lookup(name)
	if f == nil {
		t.Fatalf("glog flag %s not registered", name)
	}
	return f.Value.String()
}

func TestInitDefaultsToStderr(t *testing.T) {
	defer flag.Set("logtostderr", lookup(t, "logtostderr"))
	flag.Set("logtostderr", "false")

	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	AddFlags(fs)
	if err := fs.Parse([]string{"--v=2"}); err != nil {
		t.Fatal(err)
	}
	if err := Init(fs); err != nil {
		t.Fatal(err)
	}

	if got := lookup(t, "logtostderr"); got != "true" {
		t.Errorf("expected logtostderr=true, got %s", got)
	}
	if got := lookup(t, "v"); got != "2" {
		t.Errorf("expected v=2, got %s", got)
	}
	flag.Set("v", "0")
}

func TestInitKeepsLogDir(t *testing.T) {
	defer flag.Set("logtostderr", lookup(t, "logtostderr"))
	flag.Set("logtostderr", "false")

	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	AddFlags(fs)
	if err := fs.Parse([]string{"--log_dir=" + t.TempDir()}); err != nil {
		t.Fatal(err)
	}
	if err := Init(fs); err != nil {
		t.Fatal(err)
	}

	if got := lookup(t, "logtostderr"); got != "false" {
		t.Errorf("expected logtostderr left alone, got %s", got)
	}
}
