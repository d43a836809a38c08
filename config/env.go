package config

import "os"

// Environment overrides applied on top of global.json, per the
// external interface contract.
const (
	EnvAPIToken       = "API_TOKEN"
	EnvPathGuard      = "PATH_GUARD"
	EnvSystemctlFlags = "SYSTEMCTL_FLAGS"
)

func applyEnvOverrides(c *Configuration) {
	if v := os.Getenv(EnvAPIToken); v != "" {
		c.APIToken = v
	}
	if v := os.Getenv(EnvPathGuard); v != "" {
		c.PathGuardMode = v
	}
	if v := os.Getenv(EnvSystemctlFlags); v != "" {
		c.SystemctlFlags = v
	}
}
