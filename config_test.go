package main

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/hashicorp/go-multierror"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	platform "github.com/ducbang/OpenNIC-Wizard/dns/platform"
)

var configEnv = []string{
	"CONFIG_FILE",
	platform.T1BootstrapVariable,
	platform.DomainsBootstrapVariable,
	"OPENNIC_RESOLV_CONF",
	"OPENNIC_BACKUP",
	"OPENNIC_LOG_LEVEL",
	"OPENNIC_HTTP_ADDR",
	"OPENNIC_SOCKET",
	"OPENNIC_ENABLE_API",
}

// isolateConfig clears the environment and points CONFIG_FILE at a missing file.
func isolateConfig(t *testing.T) string {
	t.Helper()
	for _, name := range configEnv {
		t.Setenv(name, "")
	}
	path := filepath.Join(t.TempDir(), "resolver.yaml")
	t.Setenv("CONFIG_FILE", path)
	return path
}

func newFlags(t *testing.T, args ...string) *pflag.FlagSet {
	t.Helper()
	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	BindFlags(flags)
	require.NoError(t, flags.Parse(args))
	return flags
}

func TestLoadConfigDefaults(t *testing.T) {
	isolateConfig(t)

	config, err := LoadConfig(newFlags(t))
	require.NoError(t, err)

	assert.Equal(t, "/etc/resolv.conf", config.ResolvConf)
	assert.Equal(t, "/var/resolv.conf.bak", config.BackupPath)
	assert.Equal(t, "INFO", config.LogLevel)
	assert.False(t, config.EnableAPI)
	assert.False(t, config.Simulate)
	assert.Empty(t, config.Servers)
	assert.Equal(t, SourceDefault, config.Source("resolvConf"))
	assert.Equal(t, SourceDefault, config.Source("servers"))
	assert.NoError(t, config.Validate())
}

func TestLoadConfigPrecedence(t *testing.T) {
	path := isolateConfig(t)
	require.NoError(t, os.WriteFile(path, []byte(`
resolvConf: /tmp/file-resolv.conf
logLevel: DEBUG
socketPath: /tmp/file.sock
enableApi: true
servers:
  - 185.121.177.177
  - 169.239.202.202
`), 0o644))

	t.Setenv("OPENNIC_LOG_LEVEL", "WARN")
	t.Setenv("OPENNIC_SOCKET", "/tmp/env.sock")
	t.Setenv(platform.T1BootstrapVariable, "/tmp/env.t1")

	config, err := LoadConfig(newFlags(t, "--log-level", "ERROR", "--simulate"))
	require.NoError(t, err)

	tests := []struct {
		name   string
		key    string
		got    any
		want   any
		source ConfigSource
	}{
		{name: "file only", key: "resolvConf", got: config.ResolvConf, want: "/tmp/file-resolv.conf", source: SourceFile},
		{name: "file bool", key: "enableApi", got: config.EnableAPI, want: true, source: SourceFile},
		{name: "env over file", key: "socketPath", got: config.SocketPath, want: "/tmp/env.sock", source: SourceEnv},
		{name: "cli over env", key: "logLevel", got: config.LogLevel, want: "ERROR", source: SourceCLI},
		{name: "cli bool", key: "simulate", got: config.Simulate, want: true, source: SourceCLI},
		{name: "bootstrap env", key: "t1Bootstrap", got: config.T1Bootstrap, want: "/tmp/env.t1", source: SourceEnv},
		{name: "default kept", key: "backupPath", got: config.BackupPath, want: "/var/resolv.conf.bak", source: SourceDefault},
		{name: "file list", key: "servers", got: config.Servers, want: []string{"185.121.177.177", "169.239.202.202"}, source: SourceFile},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.got)
			assert.Equal(t, tt.source, config.Source(tt.key))
		})
	}
}

func TestLoadConfigFlagOverridesConfigPath(t *testing.T) {
	isolateConfig(t)
	other := filepath.Join(t.TempDir(), "other.yaml")
	require.NoError(t, os.WriteFile(other, []byte("backupPath: /tmp/other.bak\n"), 0o644))

	config, err := LoadConfig(newFlags(t, "--config", other, "--server", "1.1.1.1", "--server", "2.2.2.2"))
	require.NoError(t, err)

	assert.Equal(t, "/tmp/other.bak", config.BackupPath)
	assert.Equal(t, []string{"1.1.1.1", "2.2.2.2"}, config.Servers)
	assert.Equal(t, SourceCLI, config.Source("servers"))
}

func TestLoadConfigErrors(t *testing.T) {
	tests := []struct {
		name  string
		file  string
		env   map[string]string
		error string
	}{
		{name: "invalid yaml", file: "resolvConf: [unterminated", error: "failed to parse config file"},
		{name: "invalid bool", env: map[string]string{"OPENNIC_ENABLE_API": "sometimes"}, error: "OPENNIC_ENABLE_API"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := isolateConfig(t)
			if tt.file != "" {
				require.NoError(t, os.WriteFile(path, []byte(tt.file), 0o644))
			}
			for k, v := range tt.env {
				t.Setenv(k, v)
			}

			_, err := LoadConfig(newFlags(t))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.error)
		})
	}
}

func TestValidateCollectsAllErrors(t *testing.T) {
	config := DefaultConfig()
	config.ResolvConf = "/etc/resolv.conf"
	config.BackupPath = "/etc/resolv.conf"
	config.LogLevel = "LOUD"
	config.EnableAPI = true
	config.SocketPath = ""
	config.Servers = []string{"1.1.1.1", " "}

	err := config.Validate()
	require.Error(t, err)

	var merr *multierror.Error
	require.True(t, errors.As(err, &merr))
	assert.Len(t, merr.Errors, 4)
	assert.Contains(t, err.Error(), "backup must differ")
	assert.Contains(t, err.Error(), `unknown log level "LOUD"`)
	assert.Contains(t, err.Error(), "enable-api requires")
	assert.Contains(t, err.Error(), "server 2 is empty")
}

func TestValidateServers(t *testing.T) {
	tests := []struct {
		name    string
		servers []string
		error   string
	}{
		{name: "valid", servers: []string{"185.121.177.177", "2a05:dfc7:5::53"}},
		{name: "embedded directives", servers: []string{"1.1.1.1\nsearch evil.example"}, error: "server 1"},
		{name: "hostname", servers: []string{"1.1.1.1", "ns0.opennic.glue"}, error: "server 2"},
		{name: "empty", servers: []string{""}, error: "server 1 is empty"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			config := DefaultConfig()
			config.Servers = tt.servers

			err := config.Validate()
			if tt.error == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.error)
		})
	}
}

func TestBootstrapOverrides(t *testing.T) {
	config := DefaultConfig()
	assert.Empty(t, config.BootstrapOverrides())

	config.T1Bootstrap = "/srv/t1"
	config.DomainsBootstrap = "/srv/domains"
	assert.Equal(t, map[string]string{
		platform.T1BootstrapVariable:      "/srv/t1",
		platform.DomainsBootstrapVariable: "/srv/domains",
	}, config.BootstrapOverrides())
}

func TestShowConfig(t *testing.T) {
	isolateConfig(t)
	t.Setenv("OPENNIC_RESOLV_CONF", "/tmp/env-resolv.conf")

	config, err := LoadConfig(newFlags(t, "--http-addr", "127.0.0.1:9453"))
	require.NoError(t, err)

	var out bytes.Buffer
	config.ShowConfig(&out)

	text := out.String()
	assert.Contains(t, text, "Config File Status: not found")
	assert.Contains(t, text, "/tmp/env-resolv.conf [environment]")
	assert.Contains(t, text, "127.0.0.1:9453 [cli]")
	assert.Contains(t, text, "/var/resolv.conf.bak [default]")
}
