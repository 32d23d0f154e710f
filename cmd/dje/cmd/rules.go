package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/balusarakesh/dje-license-search/internal/adapters/catalog"
	"github.com/balusarakesh/dje-license-search/internal/app"
	"github.com/balusarakesh/dje-license-search/internal/domain/index"
)

var rulesCmd = &cobra.Command{
	Use:   "rules",
	Short: "Inspect the detection rule catalog",
}

var rulesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List indexed rules",
	RunE:  runRulesList,
}

var rulesValidateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate the rule catalog and report the first problem",
	RunE:  runRulesValidate,
}

func init() {
	rulesCmd.AddCommand(rulesListCmd)
	rulesCmd.AddCommand(rulesValidateCmd)
}

func runRulesList(cmd *cobra.Command, args []string) error {
	cfg, err := serviceConfig()
	if err != nil {
		return err
	}
	svc := app.NewService(cfg)
	ix, err := svc.Index()
	if err != nil {
		return err
	}

	for _, r := range ix.Rules() {
		kind := "positive"
		if r.Negative() {
			kind = "negative"
		}
		fmt.Printf("%-40s %-8s %3d tokens  %s\n",
			r.Identifier(), kind, r.Length(), licensesOf(r.Licenses))
	}
	fmt.Printf("%d rules\n", ix.Len())
	return nil
}

func licensesOf(keys []string) string {
	if len(keys) == 0 {
		return "-"
	}
	out := keys[0]
	for _, k := range keys[1:] {
		out += " " + k
	}
	return out
}

// runRulesValidate loads the catalog from scratch, bypassing any snapshot,
// so structural problems on disk always surface.
func runRulesValidate(cmd *cobra.Command, args []string) error {
	cfg, err := serviceConfig()
	if err != nil {
		return err
	}

	rules, _, err := catalog.Load(cfg.LicenseDir, cfg.RuleDir)
	if err != nil {
		return err
	}
	ix, err := index.Build(rules)
	if err != nil {
		return err
	}

	fmt.Printf("catalog OK: %d rules\n", ix.Len())
	return nil
}
