package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Aman-CERP/notedex/internal/config"
	"github.com/Aman-CERP/notedex/internal/header"
	"github.com/Aman-CERP/notedex/internal/logging"
	"github.com/Aman-CERP/notedex/pkg/version"
)

// versionReport is the --json shape of the version command.
type versionReport struct {
	version.BuildInfo
	ConfigSchema int    `json:"config_schema"`
	HeaderLines  int    `json:"header_lines"`
	LogFile      string `json:"log_file"`
}

func newVersionReport() versionReport {
	return versionReport{
		BuildInfo:    version.GetInfo(),
		ConfigSchema: config.SchemaVersion,
		HeaderLines:  header.HeaderLines,
		LogFile:      logging.DefaultLogPath(),
	}
}

func newVersionCmd() *cobra.Command {
	var jsonOutput, shortOutput bool

	cmd := &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Long: `Print the notedex build, the config schema and note header layout it
understands, and where it writes its log.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			out := cmd.OutOrStdout()
			if shortOutput {
				_, err := fmt.Fprintln(out, version.Short())
				return err
			}

			report := newVersionReport()
			if jsonOutput {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(report)
			}

			_, err := fmt.Fprintf(out, "%s\n  os/arch:        %s/%s\n  config schema:  v%d\n  header lines:   %d\n  log file:       %s\n",
				version.String(), report.OS, report.Arch, report.ConfigSchema, report.HeaderLines, report.LogFile)
			return err
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output version info as JSON")
	cmd.Flags().BoolVar(&shortOutput, "short", false, "Output only the version number")

	return cmd
}
