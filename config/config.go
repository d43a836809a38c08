// Package config loads and holds the immutable-after-load GlobalConfig:
// listen address, TLS material, API token, CIDR/path/proxy/origin
// allow-lists, backup and temp directories, and the systemctl
// invocation shape.
package config

import (
	"encoding/json"
	"sync"

	"emperror.dev/errors"
	"github.com/creasty/defaults"
	"gopkg.in/yaml.v3"

	"github.com/kraklabs/cmx/pathguard"
)

// Secret accepts either a bare string or a list of strings in
// global.json's "secret" key.
type Secret []string

func (s *Secret) UnmarshalJSON(b []byte) error {
	var single string
	if err := json.Unmarshal(b, &single); err == nil {
		if single == "" {
			*s = nil
		} else {
			*s = Secret{single}
		}
		return nil
	}
	var list []string
	if err := json.Unmarshal(b, &list); err != nil {
		return err
	}
	*s = Secret(list)
	return nil
}

func (s Secret) MarshalJSON() ([]byte, error) {
	return json.Marshal([]string(s))
}

// Configuration is the Go shape of global.json.
type Configuration struct {
	Listen            string   `json:"listen" yaml:"listen" default:"0.0.0.0:8080"`
	SSLEnable         bool     `json:"ssl_enable" yaml:"ssl_enable"`
	SSLCertFile       string   `json:"ssl_cert_file" yaml:"ssl_cert_file"`
	SSLKeyFile        string   `json:"ssl_key_file" yaml:"ssl_key_file"`
	APIToken          string   `json:"api_token" yaml:"api_token"`
	Secret            Secret   `json:"secret" yaml:"secret"`
	AllowedIPs        []string `json:"allowed_ips" yaml:"allowed_ips"`
	AllowedRoots      []string `json:"allowed_roots" yaml:"allowed_roots"`
	TrustedProxies    []string `json:"trusted_proxies" yaml:"trusted_proxies"`
	AllowOrigins      []string `json:"allow_origins" yaml:"allow_origins"`
	LogFile           string   `json:"logfile" yaml:"logfile" default:"/var/log/cmx/cmx.log"`
	BackupDir         string   `json:"backupDir" yaml:"backupDir" default:"/var/lib/cmx/backups"`
	TmpDir            string   `json:"tmpDir" yaml:"tmpDir" default:"/var/lib/cmx/tmp"`
	MaxBackups        int      `json:"maxBackups" yaml:"maxBackups" default:"10"`
	PathGuardMode     string   `json:"path_guard" yaml:"path_guard" default:"audit"`
	ApplyMeta         bool     `json:"apply_meta" yaml:"apply_meta" default:"true"`
	AutoCreateBackups bool     `json:"auto_create_backups" yaml:"auto_create_backups" default:"true"`
	Systemctl         string   `json:"systemctl" yaml:"systemctl" default:"/usr/bin/systemctl"`
	SystemctlFlags    string   `json:"systemctl_flags" yaml:"systemctl_flags"`
	DocsEnabled       bool     `json:"docs_enabled" yaml:"docs_enabled"`
	ExecConcurrency   int      `json:"exec_concurrency" yaml:"exec_concurrency"`

	// ConfigsPath is resolved at boot relative to the binary's
	// directory; it is not itself a global.json key.
	ConfigsPath string `json:"-" yaml:"-"`
}

// GuardMode parses the configured PathGuardMode string.
func (c Configuration) GuardMode() pathguard.Mode {
	return pathguard.ParseMode(c.PathGuardMode)
}

// Redacted returns a copy with the token and TLS key material scrubbed,
// safe to include in a diagnostics bundle or log line.
func (c Configuration) Redacted() Configuration {
	r := c
	if r.APIToken != "" {
		r.APIToken = "(redacted)"
	}
	r.Secret = nil
	r.SSLKeyFile = ""
	return r
}

var (
	mu      sync.RWMutex
	current *Configuration
)

// Set installs c as the package-wide current configuration.
func Set(c *Configuration) {
	mu.Lock()
	defer mu.Unlock()
	current = c
}

// Get returns a copy of the current configuration; callers never hold
// a reference into package state.
func Get() Configuration {
	mu.RLock()
	defer mu.RUnlock()
	if current == nil {
		return Configuration{}
	}
	return *current
}

// FromBytes parses a global.json document, applying struct-tag
// defaults for anything unset and then environment overrides.
func FromBytes(data []byte) (*Configuration, error) {
	c := &Configuration{}
	if err := defaults.Set(c); err != nil {
		return nil, errors.Wrap(err, "apply configuration defaults")
	}
	if err := json.Unmarshal(data, c); err != nil {
		return nil, errors.Wrap(err, "parse global.json")
	}
	applyEnvOverrides(c)
	return c, nil
}

// DumpYAML renders c as YAML for `cmx config dump`, matching the
// human-inspection format the daemon's own boot config historically
// used even though global.json itself is JSON on disk.
func DumpYAML(c Configuration) (string, error) {
	out, err := yaml.Marshal(c)
	if err != nil {
		return "", errors.Wrap(err, "marshal configuration")
	}
	return string(out), nil
}
