package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kraklabs/cmx/internal/diagnostics"
	"github.com/kraklabs/cmx/registry"
)

var diagnosticsArgs struct {
	IncludeLogs bool
	Upload      bool
	MclogsURL   string
	LogLines    int
}

func newDiagnosticsCommand() *cobra.Command {
	command := &cobra.Command{
		Use:   "diagnostics",
		Short: "Collect a redacted report of this node's configuration and registry state",
		RunE:  diagnosticsCmdRun,
	}

	command.Flags().BoolVar(&diagnosticsArgs.IncludeLogs, "include-logs", true, "include the tail of the configured log file")
	command.Flags().BoolVar(&diagnosticsArgs.Upload, "upload", false, "upload the report to the mclo.gs-compatible paste endpoint")
	command.Flags().StringVar(&diagnosticsArgs.MclogsURL, "mclogs-api-url", diagnostics.DefaultMclogsAPIURL, "the mclo.gs-compatible API endpoint to use for uploads")
	command.Flags().IntVar(&diagnosticsArgs.LogLines, "log-lines", diagnostics.DefaultLogLines, "the number of trailing log lines to include")

	return command
}

func diagnosticsCmdRun(*cobra.Command, []string) error {
	c, err := loadConfig()
	if err != nil {
		return err
	}

	reg := registry.New(c.BackupDir, c.ConfigsPath)
	if err := reg.ReloadFromDisk(nil); err != nil {
		fmt.Println("Warning: could not load configs.json:", err)
	}

	report, err := diagnostics.GenerateReport(c, reg, diagnosticsArgs.IncludeLogs, diagnosticsArgs.LogLines)
	if err != nil {
		return fmt.Errorf("generate report: %w", err)
	}

	fmt.Println("\n---------------  generated report  ---------------")
	fmt.Println(report)
	fmt.Print("---------------   end of report    ---------------\n\n")

	if !diagnosticsArgs.Upload {
		return nil
	}

	u, err := diagnostics.UploadReport(context.Background(), diagnosticsArgs.MclogsURL, report)
	if err != nil {
		return fmt.Errorf("upload report: %w", err)
	}
	fmt.Println("Your report is available here:", u)
	return nil
}
