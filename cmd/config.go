package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kraklabs/cmx/config"
)

func newConfigCommand() *cobra.Command {
	command := &cobra.Command{
		Use:   "config",
		Short: "Inspect the node's configuration",
	}
	command.AddCommand(newConfigDumpCommand())
	return command
}

func newConfigDumpCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "dump",
		Short: "Print the effective, secret-redacted configuration as YAML",
		RunE:  configDumpCmdRun,
	}
}

func configDumpCmdRun(*cobra.Command, []string) error {
	c, err := loadConfig()
	if err != nil {
		return err
	}
	out, err := config.DumpYAML(c.Redacted())
	if err != nil {
		return err
	}
	fmt.Print(out)
	return nil
}
