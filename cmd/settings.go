package cmd

import (
	"clipwatch/database"
	"clipwatch/models"
	"fmt"
	"io"
	"strconv"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

var settingsCmd = &cobra.Command{
	Use:   "settings",
	Short: "Show or change notification and auto-copy settings",
}

func printSettings(out io.Writer, s models.AppSettings) error {
	writer := new(tabwriter.Writer)
	writer.Init(out, 0, 8, 1, '\t', 0)
	fmt.Fprintln(writer, "KEY\tVALUE")
	fmt.Fprintln(writer, "---\t-----")
	fmt.Fprintf(writer, "%s\t%t\n", models.SettingEnableMatchNotifications, s.EnableMatchNotifications)
	fmt.Fprintf(writer, "%s\t%t\n", models.SettingEnableAutoCopy, s.EnableAutoCopy)
	return writer.Flush()
}

var showSettingsCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current settings",
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := database.GetAppSettings()
		if err != nil {
			return fmt.Errorf("loading settings: %w", err)
		}
		return printSettings(cmd.OutOrStdout(), s)
	},
}

var setSettingCmd = &cobra.Command{
	Use:   "set [key] [true|false]",
	Short: "Change a single setting",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		value, err := strconv.ParseBool(args[1])
		if err != nil {
			return fmt.Errorf("invalid value %q: %w", args[1], err)
		}
		s, err := database.UpdateAppSetting(args[0], value)
		if err != nil {
			return fmt.Errorf("updating %s: %w", args[0], err)
		}
		return printSettings(cmd.OutOrStdout(), s)
	},
}

var resetSettingsCmd = &cobra.Command{
	Use:   "reset",
	Short: "Restore default settings",
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := database.ResetAppSettings()
		if err != nil {
			return fmt.Errorf("resetting settings: %w", err)
		}
		return printSettings(cmd.OutOrStdout(), s)
	},
}

func init() {
	settingsCmd.AddCommand(showSettingsCmd)
	settingsCmd.AddCommand(setSettingCmd)
	settingsCmd.AddCommand(resetSettingsCmd)
	rootCmd.AddCommand(settingsCmd)
}
