// Package cmd is the CLI surface: cmx run, cmx config, cmx diagnostics.
package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/apex/log"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/kraklabs/cmx/config"
	"github.com/kraklabs/cmx/loggers/cli"
	"github.com/kraklabs/cmx/pathguard"
)

var rootArgs struct {
	ConfigDir string
	GuardFlag guardOverride
	LogLevel  string
}

// guardOverride lets --path-guard override global.json's path_guard
// setting from the command line; it implements pflag.Value directly so
// an invalid mode string fails flag parsing instead of silently
// defaulting, the one case where a bad guard setting should stop boot.
type guardOverride struct {
	set bool
	val pathguard.Mode
}

func (g *guardOverride) String() string {
	if !g.set {
		return ""
	}
	return g.val.String()
}

func (g *guardOverride) Set(s string) error {
	switch s {
	case "off", "audit", "on":
		g.val = pathguard.ParseMode(s)
		g.set = true
		return nil
	default:
		return fmt.Errorf("invalid path-guard mode %q (want off|audit|on)", s)
	}
}

func (g *guardOverride) Type() string { return "string" }

var _ pflag.Value = (*guardOverride)(nil)

// Execute runs the root command, exiting the process on error.
func Execute() {
	root := newRootCommand()
	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:           "cmx",
		Short:         "cmx manages declared configuration files and the services bound to them",
		SilenceUsage:  true,
		SilenceErrors: false,
	}

	configDir := "/etc/cmx"
	if exe, err := os.Executable(); err == nil {
		configDir = filepath.Dir(exe)
	}
	root.PersistentFlags().StringVar(&rootArgs.ConfigDir, "config-dir", configDir, "directory containing global.json and configs.json (default: the binary's directory)")
	root.PersistentFlags().StringVar(&rootArgs.LogLevel, "log-level", "info", "log level: debug|info|warn|error")
	root.PersistentFlags().Var(&rootArgs.GuardFlag, "path-guard", "override global.json's path_guard mode (off|audit|on)")

	root.AddCommand(newRunCommand())
	root.AddCommand(newConfigCommand())
	root.AddCommand(newDiagnosticsCommand())

	return root
}

// loadConfig reads and normalises global.json from --config-dir,
// applying the --path-guard override when the flag was set and
// umasking the process (0007) so any file this daemon creates grants
// no rights to others by default.
func loadConfig() (*config.Configuration, error) {
	syscallUmask()

	c, err := config.NewAtPath(rootArgs.ConfigDir)
	if err != nil {
		return nil, err
	}
	if rootArgs.GuardFlag.set {
		c.PathGuardMode = rootArgs.GuardFlag.val.String()
	}
	config.Set(c)
	return c, nil
}

func parseLogLevel() log.Level {
	lvl, err := log.ParseLevel(rootArgs.LogLevel)
	if err != nil {
		return log.InfoLevel
	}
	return lvl
}

func setupLogging(c *config.Configuration) (*log.Entry, func() error) {
	logger, closer, err := cli.Setup(c.LogFile, parseLogLevel())
	if err != nil {
		fmt.Fprintf(os.Stderr, "cmx: falling back to console logging: %v\n", err)
		logger, closer, _ = cli.Setup("", parseLogLevel())
	}
	log.SetHandler(logger.Handler)
	log.SetLevel(logger.Level)
	return log.NewEntry(logger), closer
}
