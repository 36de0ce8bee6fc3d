package cmd

import (
	"clipwatch/api/router/handlers"
	"clipwatch/database"
	"clipwatch/models"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

var (
	ruleTypeFlag    string
	rulePatternFlag string
	ruleExprFlag    string
	ruleKindFlag    string
	ruleHeaderFlag  string
	ruleParamFlag   string
	ruleGroupFlag   string
	ruleDisabled    bool
	ruleExportFile  string
)

var rulesCmd = &cobra.Command{
	Use:   "rules",
	Short: "Manage extraction rules",
}

var listRulesCmd = &cobra.Command{
	Use:   "list",
	Short: "List all rules in evaluation order",
	RunE: func(cmd *cobra.Command, args []string) error {
		rules, err := database.GetRules()
		if err != nil {
			return fmt.Errorf("listing rules: %w", err)
		}
		if len(rules) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "No rules found.")
			return nil
		}

		writer := new(tabwriter.Writer)
		writer.Init(cmd.OutOrStdout(), 0, 8, 1, '\t', 0)
		fmt.Fprintln(writer, "#\tID\tTYPE\tENABLED\tPATTERN\tTARGET\tLAST VALUE")
		fmt.Fprintln(writer, "-\t--\t----\t-------\t-------\t------\t----------")
		for i, r := range rules {
			lastValue := ""
			if r.LastValue != nil {
				lastValue = r.LastValue.Value
			}
			fmt.Fprintf(writer, "%d\t%s\t%s\t%t\t%s\t%s\t%s\n", i, r.ID, r.RuleType, r.Enabled, r.URLPattern, ruleTarget(r), lastValue)
		}
		return writer.Flush()
	},
}

// ruleTarget names what the rule reads besides the URL.
func ruleTarget(r models.Rule) string {
	switch {
	case r.RuleType.IsHeaderType():
		return r.HeaderName
	case r.RuleType == models.RuleTypeRequestParam:
		return r.ParamName
	case r.RuleType == models.RuleTypeRequestBody:
		return fmt.Sprintf("%s:%s", r.EffectiveMatchKind(), r.MatchExpression)
	}
	return r.MatchExpression
}

var addRuleCmd = &cobra.Command{
	Use:   "add",
	Short: "Add a rule",
	Example: `  clipwatch rules add --type url --pattern 'item/(\d+)' --expr 'id=$1'
  clipwatch rules add --type header --pattern 'api\.example\.com' --header Authorization
  clipwatch rules add --type requestBody --pattern '/login' --kind jsonpath --expr '$.user.name'`,
	RunE: func(cmd *cobra.Command, args []string) error {
		rule := models.Rule{
			RuleType:        models.RuleType(ruleTypeFlag),
			URLPattern:      rulePatternFlag,
			MatchExpression: ruleExprFlag,
			MatchKind:       models.MatchKind(ruleKindFlag),
			HeaderName:      ruleHeaderFlag,
			ParamName:       ruleParamFlag,
			Group:           ruleGroupFlag,
			Enabled:         !ruleDisabled,
		}
		if err := handlers.ValidateRule(rule); err != nil {
			return fmt.Errorf("invalid rule: %w", err)
		}
		created, err := database.AddRule(rule)
		if err != nil {
			return fmt.Errorf("adding rule: %w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Rule added with ID: %s\n", created.ID)
		return nil
	},
}

func setRuleEnabledCmd(use, short string, enabled bool) *cobra.Command {
	return &cobra.Command{
		Use:   use + " [rule-id]",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := database.SetRuleEnabled(args[0], enabled); err != nil {
				return fmt.Errorf("updating rule %s: %w", args[0], err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Rule %s enabled=%t\n", args[0], enabled)
			return nil
		},
	}
}

var deleteRuleCmd = &cobra.Command{
	Use:   "delete [rule-id]",
	Short: "Delete a rule",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := database.DeleteRule(args[0]); err != nil {
			return fmt.Errorf("deleting rule %s: %w", args[0], err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Rule %s deleted.\n", args[0])
		return nil
	},
}

var exportRulesCmd = &cobra.Command{
	Use:   "export",
	Short: "Write all rules as JSON to stdout or --file",
	RunE: func(cmd *cobra.Command, args []string) error {
		rules, err := database.GetRules()
		if err != nil {
			return fmt.Errorf("listing rules: %w", err)
		}

		var out io.Writer = cmd.OutOrStdout()
		if ruleExportFile != "" {
			f, err := os.Create(ruleExportFile)
			if err != nil {
				return fmt.Errorf("creating %s: %w", ruleExportFile, err)
			}
			defer f.Close()
			out = f
		}

		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(rules)
	},
}

var importRulesCmd = &cobra.Command{
	Use:   "import [file]",
	Short: "Replace all rules with the JSON array in file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		data, err := os.ReadFile(args[0])
		if err != nil {
			return fmt.Errorf("reading %s: %w", args[0], err)
		}
		var rules []models.Rule
		if err := json.Unmarshal(data, &rules); err != nil {
			return fmt.Errorf("parsing %s: %w", args[0], err)
		}
		for i, r := range rules {
			if err := handlers.ValidateRule(r); err != nil {
				return fmt.Errorf("rule %d: %w", i, err)
			}
		}
		if err := database.SaveRules(rules); err != nil {
			return fmt.Errorf("saving rules: %w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Imported %d rules.\n", len(rules))
		return nil
	},
}

func init() {
	addRuleCmd.Flags().StringVarP(&ruleTypeFlag, "type", "t", string(models.RuleTypeURL), "Rule type: url, header, responseHeader, requestParam, requestBody")
	addRuleCmd.Flags().StringVarP(&rulePatternFlag, "pattern", "u", "", "URL pattern (regular expression)")
	addRuleCmd.Flags().StringVarP(&ruleExprFlag, "expr", "e", "", "Match expression: template for url rules, extraction expression for requestBody rules")
	addRuleCmd.Flags().StringVar(&ruleKindFlag, "kind", "", "Body match kind: auto, regex, jsonpath, gjson, xpath")
	addRuleCmd.Flags().StringVar(&ruleHeaderFlag, "header", "", "Header name for header and responseHeader rules")
	addRuleCmd.Flags().StringVar(&ruleParamFlag, "param", "", "Query parameter name for requestParam rules")
	addRuleCmd.Flags().StringVarP(&ruleGroupFlag, "group", "g", "", "Group ID")
	addRuleCmd.Flags().BoolVar(&ruleDisabled, "disabled", false, "Create the rule disabled")
	addRuleCmd.MarkFlagRequired("pattern")

	exportRulesCmd.Flags().StringVarP(&ruleExportFile, "file", "f", "", "Write to this file instead of stdout")

	rulesCmd.AddCommand(listRulesCmd)
	rulesCmd.AddCommand(addRuleCmd)
	rulesCmd.AddCommand(setRuleEnabledCmd("enable", "Enable a rule", true))
	rulesCmd.AddCommand(setRuleEnabledCmd("disable", "Disable a rule", false))
	rulesCmd.AddCommand(deleteRuleCmd)
	rulesCmd.AddCommand(exportRulesCmd)
	rulesCmd.AddCommand(importRulesCmd)
	rootCmd.AddCommand(rulesCmd)
}
