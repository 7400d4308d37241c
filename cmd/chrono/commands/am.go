package commands

import (
	"fmt"

	"github.com/pelletier/go-toml/v2"
	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/teranos/chrono/am"
	"github.com/teranos/chrono/display"
	"github.com/teranos/chrono/errors"
)

// AmCmd manages chrono configuration
var AmCmd = &cobra.Command{
	Use:   "am",
	Short: "Manage chrono configuration",
	Long: `am: manage chrono configuration ("I am")

Configuration sources (in order of precedence):
1. Environment variables (CHRONO_* prefix)
2. Project config (./am.toml, searched upwards)
3. User config (~/.chrono/am.toml)
4. System config (/etc/chrono/am.toml)
5. Default values

Examples:
  chrono am show                          # Show current configuration
  chrono am show --format json            # Show configuration in JSON format
  chrono am get evaluator.url             # Get a specific value
  chrono am set server.allowed_origins http://localhost,https://editor.example.com
  chrono am where                         # Where each setting comes from
  chrono am validate                      # Validate current configuration`,
}

var amShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current configuration",
	RunE:  runAmShow,
}

var amGetCmd = &cobra.Command{
	Use:   "get <key>",
	Short: "Get a specific configuration value",
	Long:  "Get a specific configuration value using dot notation (e.g., evaluator.url, database.history_limit)",
	Args:  cobra.ExactArgs(1),
	RunE:  runAmGet,
}

var amSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a value in the project config",
	Long: `Write a value into the project am.toml. Comma-separated values become
lists. A running server picks up allowed origins and the document limit
without a restart.`,
	Args: cobra.ExactArgs(2),
	RunE: runAmSet,
}

var amValidateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate current configuration",
	RunE:  runAmValidate,
}

var amWhereCmd = &cobra.Command{
	Use:   "where",
	Short: "Show where each setting is loaded from",
	RunE:  runAmWhere,
}

var configFormat string

func init() {
	amShowCmd.Flags().StringVar(&configFormat, "format", "toml", "Output format: toml, json, yaml")

	AmCmd.AddCommand(amShowCmd)
	AmCmd.AddCommand(amGetCmd)
	AmCmd.AddCommand(amSetCmd)
	AmCmd.AddCommand(amValidateCmd)
	AmCmd.AddCommand(amWhereCmd)
}

func runAmShow(cmd *cobra.Command, args []string) error {
	cfg, err := am.Load()
	if err != nil {
		return errors.Wrap(err, "failed to load config")
	}

	w := cmd.OutOrStdout()
	switch configFormat {
	case "toml":
		data, err := toml.Marshal(cfg)
		if err != nil {
			return errors.Wrap(err, "failed to marshal config to TOML")
		}
		fmt.Fprintf(w, "# chrono configuration\n%s", string(data))
		return nil
	case "json", "yaml":
		format, err := display.ParseFormat(configFormat)
		if err != nil {
			return err
		}
		return display.Encode(w, cfg, format)
	default:
		return errors.WithHint(
			errors.Newf("unsupported format: %s", configFormat),
			"supported: toml, json, yaml")
	}
}

func runAmGet(cmd *cobra.Command, args []string) error {
	key := args[0]
	if !am.GetViper().IsSet(key) {
		return errors.NewNotFoundError("configuration key %q not found", key)
	}
	fmt.Fprintln(cmd.OutOrStdout(), am.Get(key))
	return nil
}

func runAmSet(cmd *cobra.Command, args []string) error {
	path := am.ProjectConfigPath()
	if err := am.SetValue(path, args[0], args[1]); err != nil {
		return err
	}
	am.Reset()
	cfg, err := am.Load()
	if err != nil {
		return errors.Wrap(err, "failed to reload config")
	}
	if err := cfg.Validate(); err != nil {
		return errors.WithHint(err, "the previous file was kept as "+path+".back1")
	}
	pterm.Success.Printfln("%s = %v (%s)", args[0], am.Get(args[0]), path)
	return nil
}

func runAmValidate(cmd *cobra.Command, args []string) error {
	cfg, err := am.Load()
	if err != nil {
		return errors.Wrap(err, "failed to load config")
	}
	if err := cfg.Validate(); err != nil {
		return errors.Wrap(err, "configuration validation failed")
	}
	pterm.Success.Println("Configuration is valid")
	return nil
}

func runAmWhere(cmd *cobra.Command, args []string) error {
	if _, err := am.Load(); err != nil {
		return errors.Wrap(err, "failed to load config")
	}

	files := pterm.TableData{{"LEVEL", "PATH", "FOUND"}}
	for _, src := range am.ConfigPaths() {
		found := pterm.Gray("missing")
		if fileExists(src.Path) {
			found = pterm.Green("yes")
		}
		files = append(files, []string{string(src.Source), src.Path, found})
	}

	settings := pterm.TableData{{"KEY", "VALUE", "SOURCE"}}
	for _, s := range am.Introspect() {
		source := string(s.Source)
		if s.SourcePath != "" {
			source += " (" + s.SourcePath + ")"
		}
		settings = append(settings, []string{s.Key, fmt.Sprint(s.Value), source})
	}

	for _, data := range []pterm.TableData{files, settings} {
		table, err := pterm.DefaultTable.WithHasHeader().WithData(data).Srender()
		if err != nil {
			return errors.Wrap(err, "failed to render table")
		}
		fmt.Fprintln(cmd.OutOrStdout(), table)
		fmt.Fprintln(cmd.OutOrStdout())
	}
	return nil
}
