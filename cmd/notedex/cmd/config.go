package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/Aman-CERP/notedex/configs"
	"github.com/Aman-CERP/notedex/internal/config"
	"github.com/Aman-CERP/notedex/internal/output"
)

func newConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage configuration",
		Long: `Manage notedex configuration files.

Configuration precedence (lowest to highest):
  1. Hardcoded defaults
  2. User config (~/.config/notedex/config.yaml)
  3. Project config (<notes>/.notedex.yaml)
  4. Environment variables (NOTEDEX_*)`,
		Example: `  # Create .notedex.yaml in the notes directory
  notedex config init

  # Show the effective configuration
  notedex config show

  # Print the config file paths
  notedex config path`,
	}

	cmd.AddCommand(newConfigInitCmd())
	cmd.AddCommand(newConfigShowCmd())
	cmd.AddCommand(newConfigPathCmd())

	return cmd
}

func newConfigInitCmd() *cobra.Command {
	var (
		force bool
		user  bool
	)

	cmd := &cobra.Command{
		Use:   "init [dir]",
		Short: "Create a configuration file from the template",
		Long: `Write a commented configuration template.

Without flags the template is written to .notedex.yaml in the notes
directory. With --user it is written to the user config path instead.

An existing file is left alone unless --force is given, in which case
it is backed up next to itself before being replaced.`,
		Example: `  # Project config for ~/notes
  notedex config init ~/notes

  # Machine-wide defaults
  notedex config init --user

  # Replace an existing file, keeping a backup
  notedex config init --force`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runConfigInit(cmd, dirArg(args), user, force)
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "Overwrite an existing file after backing it up")
	cmd.Flags().BoolVar(&user, "user", false, "Write the user config instead of the project config")

	return cmd
}

func newConfigShowCmd() *cobra.Command {
	var (
		jsonOutput bool
		source     string
	)

	cmd := &cobra.Command{
		Use:   "show [dir]",
		Short: "Show effective configuration",
		Long: `Show the configuration after merging all sources for a notes
directory, or a single source with --source.`,
		Example: `  # Show merged configuration
  notedex config show

  # Show as JSON
  notedex config show --json

  # Show only the project config of ~/notes
  notedex config show ~/notes --source project`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runConfigShow(cmd, dirArg(args), jsonOutput, source)
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")
	cmd.Flags().StringVar(&source, "source", "merged", "Config source: merged, user, project, defaults")

	return cmd
}

func newConfigPathCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "path [dir]",
		Short: "Print config file paths",
		Long: `Print the user config path and, when the notes directory has one,
the project config path.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), config.GetUserConfigPath())
			notesDir, err := config.ResolveNotesDir(dirArg(args))
			if err != nil {
				// The user path alone is still useful.
				return nil
			}
			if path, ok := config.ProjectConfigPath(notesDir); ok {
				_, _ = fmt.Fprintln(cmd.OutOrStdout(), path)
			}
			return nil
		},
	}
}

func runConfigInit(cmd *cobra.Command, arg string, user, force bool) error {
	out := output.New(cmd.OutOrStdout())

	var path, template string
	if user {
		path, template = config.GetUserConfigPath(), configs.UserConfigTemplate
	} else {
		notesDir, err := config.ResolveNotesDir(arg)
		if err != nil {
			return err
		}
		path, template = filepath.Join(notesDir, config.ProjectConfigNames[0]), configs.ProjectConfigTemplate
		if existing, ok := config.ProjectConfigPath(notesDir); ok {
			path = existing
		}
	}

	if _, err := os.Stat(path); err == nil {
		if !force {
			out.Warning("Configuration already exists")
			out.Statusf("", "Location: %s", path)
			out.Hint("use --force to replace it; the old file is backed up first")
			return nil
		}
		backupPath, err := config.BackupFile(path)
		if err != nil {
			return fmt.Errorf("failed to backup config: %w", err)
		}
		out.Statusf("", "Backup: %s", backupPath)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory %s: %w", filepath.Dir(path), err)
	}
	if err := os.WriteFile(path, []byte(template), 0o644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	out.Success("Created configuration")
	out.Statusf("", "Location: %s", path)
	out.Hint("edit the file, then run 'notedex config show' to verify")
	return nil
}

func runConfigShow(cmd *cobra.Command, arg string, jsonOutput bool, source string) error {
	out := output.New(cmd.OutOrStdout())

	var cfg *config.Config
	var sourceDesc string

	switch source {
	case "merged":
		notesDir, err := config.ResolveNotesDir(arg)
		if err != nil {
			return err
		}
		if cfg, err = config.Load(notesDir); err != nil {
			return err
		}
		sourceDesc = "merged (defaults + user + project + env)"

	case "user":
		path := config.GetUserConfigPath()
		if !config.UserConfigExists() {
			out.Warning("No user configuration file found")
			out.Statusf("", "Expected at: %s", path)
			out.Hint("run 'notedex config init --user' to create one")
			return nil
		}
		var err error
		if cfg, err = readConfigFile(path); err != nil {
			return err
		}
		sourceDesc = fmt.Sprintf("user (%s)", path)

	case "project":
		notesDir, err := config.ResolveNotesDir(arg)
		if err != nil {
			return err
		}
		path, ok := config.ProjectConfigPath(notesDir)
		if !ok {
			out.Warning("No project configuration file found")
			out.Statusf("", "Expected at: %s", filepath.Join(notesDir, config.ProjectConfigNames[0]))
			out.Hint("run 'notedex config init' to create one")
			return nil
		}
		if cfg, err = readConfigFile(path); err != nil {
			return err
		}
		sourceDesc = fmt.Sprintf("project (%s)", path)

	case "defaults":
		cfg = config.NewConfig()
		sourceDesc = "defaults (hardcoded)"

	default:
		return fmt.Errorf("invalid source: %s (use: merged, user, project, defaults)", source)
	}

	if jsonOutput {
		data, err := json.MarshalIndent(cfg, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal config: %w", err)
		}
		_, _ = fmt.Fprintln(cmd.OutOrStdout(), string(data))
		return nil
	}

	_, _ = fmt.Fprintf(cmd.OutOrStdout(), "# Configuration source: %s\n", sourceDesc)
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	_, _ = fmt.Fprint(cmd.OutOrStdout(), string(data))
	return nil
}

// readConfigFile decodes one config file on top of the defaults.
func readConfigFile(path string) (*config.Config, error) {
	cfg := config.NewConfig()
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return cfg, nil
}
