package cmd

import (
	"clipwatch/api/router/handlers"
	"clipwatch/database"
	"clipwatch/models"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

var (
	groupDescription string
	groupDeleteMode  string
)

var groupsCmd = &cobra.Command{
	Use:   "groups",
	Short: "Manage rule groups",
}

var listGroupsCmd = &cobra.Command{
	Use:   "list",
	Short: "List rule groups",
	RunE: func(cmd *cobra.Command, args []string) error {
		groups, err := database.GetGroups()
		if err != nil {
			return fmt.Errorf("listing groups: %w", err)
		}
		if len(groups) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "No groups found.")
			return nil
		}

		writer := new(tabwriter.Writer)
		writer.Init(cmd.OutOrStdout(), 0, 8, 1, '\t', 0)
		fmt.Fprintln(writer, "ID\tNAME\tDESCRIPTION")
		fmt.Fprintln(writer, "--\t----\t-----------")
		for _, g := range groups {
			fmt.Fprintf(writer, "%s\t%s\t%s\n", g.ID, g.Name, g.Description)
		}
		return writer.Flush()
	},
}

var addGroupCmd = &cobra.Command{
	Use:   "add [name]",
	Short: "Create a rule group",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		group := models.RuleGroup{Name: args[0], Description: groupDescription}
		if err := handlers.ValidateGroup(group); err != nil {
			return fmt.Errorf("invalid group: %w", err)
		}
		created, err := database.AddGroup(group)
		if err != nil {
			return fmt.Errorf("adding group: %w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Group '%s' added with ID: %s\n", created.Name, created.ID)
		return nil
	},
}

var deleteGroupCmd = &cobra.Command{
	Use:   "delete [group-id]",
	Short: "Delete a rule group; --mode=delete also removes its rules",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		mode := models.GroupDeleteMode(groupDeleteMode)
		if mode != models.GroupDeleteUngroup && mode != models.GroupDeleteRules {
			return fmt.Errorf("invalid mode %q: use %q or %q", groupDeleteMode, models.GroupDeleteUngroup, models.GroupDeleteRules)
		}
		affected, err := database.DeleteGroup(args[0], mode)
		if err != nil {
			return fmt.Errorf("deleting group %s: %w", args[0], err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Group %s deleted (%d rules %s).\n", args[0], affected, mode)
		return nil
	},
}

func init() {
	addGroupCmd.Flags().StringVarP(&groupDescription, "description", "d", "", "Group description")
	deleteGroupCmd.Flags().StringVar(&groupDeleteMode, "mode", string(models.GroupDeleteUngroup), "What to do with member rules: ungroup or delete")

	groupsCmd.AddCommand(listGroupsCmd)
	groupsCmd.AddCommand(addGroupCmd)
	groupsCmd.AddCommand(deleteGroupCmd)
	rootCmd.AddCommand(groupsCmd)
}
