package main

import (
	"bytes"
	"flag"
	"io/ioutil"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/bottlerocket-os/dnf-helper/pkg/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/urfave/cli/v2"
)

func writeConfig(t *testing.T, body string) string {
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, ioutil.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestMainExitCodes(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "missing")
	cfg := writeConfig(t, `
rpm = "`+missing+`"
dnf = "`+missing+`"
arch = "x86_64"
`)

	tests := []struct {
		name     string
		input    string
		expected int
	}{
		{"end of input", "", 0},
		{"malformed line", "whatinstalled bash\n", 1},
		{"unknown action", `{"action":"erase","provides":"bash"}` + "\n", 1},
		{"missing provides", `{"action":"whatinstalled"}` + "\n", 1},
		{"package manager unavailable", `{"action":"whatinstalled","provides":"bash"}` + "\n", 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var out bytes.Buffer
			code := _main([]string{"dnf-helper", "--config", cfg}, strings.NewReader(tt.input), &out)
			assert.Equal(t, tt.expected, code)
			assert.Empty(t, out.String())
		})
	}
}

// emptyTool writes an executable that succeeds without printing anything, so
// the helper sees no packages at all.
func emptyTool(t *testing.T, dir, name string) string {
	path := filepath.Join(dir, name)
	require.NoError(t, ioutil.WriteFile(path, []byte("#!/bin/sh\nexit 0\n"), 0o755))
	return path
}

func TestMainResultPipeClosed(t *testing.T) {
	dir := t.TempDir()
	cfg := writeConfig(t, `
rpm = "`+emptyTool(t, dir, "rpm")+`"
dnf = "`+emptyTool(t, dir, "dnf")+`"
arch = "x86_64"
system-cache = "`+filepath.Join(dir, "@System.solv")+`"
`)

	r, w, err := os.Pipe()
	require.NoError(t, err)
	require.NoError(t, r.Close())
	defer w.Close()

	input := `{"action":"whatinstalled","provides":"foo"}` + "\n" + `{"action":"whatinstalled","provides":"bar"}` + "\n"
	code := _main([]string{"dnf-helper", "--config", cfg}, strings.NewReader(input), w)
	assert.Equal(t, 0, code, "a reader hanging up is a clean shutdown")
}

func TestMainBadLogLevel(t *testing.T) {
	cfg := writeConfig(t, `log-level = "loud"`)
	code := _main([]string{"dnf-helper", "--config", cfg}, strings.NewReader(""), ioutil.Discard)
	assert.Equal(t, 1, code)
}

func TestMainBadConfig(t *testing.T) {
	cfg := writeConfig(t, "rpm = [")
	code := _main([]string{"dnf-helper", "--config", cfg}, strings.NewReader(""), ioutil.Discard)
	assert.Equal(t, 1, code)
}

func TestLoadConfigOverrides(t *testing.T) {
	path := writeConfig(t, `
dnf = "/opt/bin/dnf"
arch = "aarch64"
`)
	app := newApp(strings.NewReader(""), ioutil.Discard)
	set := flag.NewFlagSet("test", flag.ContinueOnError)
	for _, f := range app.Flags {
		require.NoError(t, f.Apply(set))
	}
	require.NoError(t, set.Parse([]string{"--config", path, "--arch", "ppc64le", "--debug"}))

	cfg, err := loadConfig(cli.NewContext(app, set, nil))
	require.NoError(t, err)
	assert.Equal(t, "ppc64le", cfg.Arch, "flags override the file")
	assert.Equal(t, "/opt/bin/dnf", cfg.DNF, "file overrides defaults")
	assert.Equal(t, config.DefaultRPM, cfg.RPM)
	assert.Equal(t, "debug", cfg.LogLevel)
}
