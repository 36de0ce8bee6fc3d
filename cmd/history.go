package cmd

import (
	"clipwatch/database"
	"clipwatch/models"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show or clear the extracted value history",
}

func printHistory(out io.Writer, records []models.HistoryRecord) error {
	if len(records) == 0 {
		fmt.Fprintln(out, "No history records found.")
		return nil
	}
	writer := new(tabwriter.Writer)
	writer.Init(out, 0, 8, 1, '\t', 0)
	fmt.Fprintln(writer, "TIME\tTYPE\tVALUE\tURL")
	fmt.Fprintln(writer, "----\t----\t-----\t---")
	for _, rec := range records {
		fmt.Fprintf(writer, "%s\t%s\t%s\t%s\n", rec.Timestamp.Local().Format(time.DateTime), rec.RuleType, rec.Value, rec.URL)
	}
	return writer.Flush()
}

var listHistoryCmd = &cobra.Command{
	Use:   "list",
	Short: "List history records, newest first",
	RunE: func(cmd *cobra.Command, args []string) error {
		records, err := database.GetHistoryRecords()
		if err != nil {
			return fmt.Errorf("listing history: %w", err)
		}
		return printHistory(cmd.OutOrStdout(), records)
	},
}

var searchHistoryCmd = &cobra.Command{
	Use:   "search [keyword]",
	Short: "Search history values, URLs and patterns",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		records, err := database.SearchHistoryRecords(args[0])
		if err != nil {
			return fmt.Errorf("searching history: %w", err)
		}
		return printHistory(cmd.OutOrStdout(), records)
	},
}

var clearHistoryCmd = &cobra.Command{
	Use:   "clear",
	Short: "Remove all history records",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := database.ClearHistoryRecords(); err != nil {
			return fmt.Errorf("clearing history: %w", err)
		}
		fmt.Fprintln(cmd.OutOrStdout(), "History cleared.")
		return nil
	},
}

func init() {
	historyCmd.AddCommand(listHistoryCmd)
	historyCmd.AddCommand(searchHistoryCmd)
	historyCmd.AddCommand(clearHistoryCmd)
	rootCmd.AddCommand(historyCmd)
}
