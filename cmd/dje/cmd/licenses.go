package cmd

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/balusarakesh/dje-license-search/internal/app"
)

var licensesCmd = &cobra.Command{
	Use:   "licenses",
	Short: "Inspect the license catalog",
}

var licensesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List catalog licenses",
	RunE:  runLicensesList,
}

func init() {
	licensesCmd.AddCommand(licensesListCmd)
}

func runLicensesList(cmd *cobra.Command, args []string) error {
	cfg, err := serviceConfig()
	if err != nil {
		return err
	}
	svc := app.NewService(cfg)
	lics, err := svc.Licenses()
	if err != nil {
		return err
	}

	keys := make([]string, 0, len(lics))
	for k := range lics {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, key := range keys {
		lic := lics[key]
		fmt.Printf("%-28s %-24s %-16s %s\n", lic.Key, lic.ShortName, lic.Category, lic.SPDXKey)
	}
	fmt.Printf("%d licenses\n", len(keys))
	return nil
}
