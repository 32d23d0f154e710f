package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/balusarakesh/dje-license-search/internal/adapters/bbolt"
	"github.com/balusarakesh/dje-license-search/internal/app"
)

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Manage the persistent index snapshot",
}

var cacheStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Report whether the snapshot matches the current catalog",
	RunE:  runCacheStatus,
}

var cacheWipeCmd = &cobra.Command{
	Use:   "wipe",
	Short: "Delete the snapshot database",
	RunE:  runCacheWipe,
}

func init() {
	cacheCmd.AddCommand(cacheStatusCmd)
	cacheCmd.AddCommand(cacheWipeCmd)
}

func runCacheStatus(cmd *cobra.Command, args []string) error {
	cfg, err := serviceConfig()
	if err != nil {
		return err
	}
	if cfg.CacheDB == "" {
		return fmt.Errorf("cache database not set (--cache-db or DJE_CACHE_DB)")
	}
	if _, err := os.Stat(cfg.CacheDB); os.IsNotExist(err) {
		fmt.Println("no snapshot")
		return nil
	}

	sum, err := app.TreeChecksum(cfg.LicenseDir, cfg.RuleDir)
	if err != nil {
		return err
	}

	store, err := bbolt.NewStore(cfg.CacheDB)
	if err != nil {
		return err
	}
	defer store.Close()

	ix, err := store.LoadIndex(sum)
	if err != nil {
		return err
	}
	if ix == nil {
		fmt.Println("snapshot stale: next scan rebuilds from the catalog")
		return nil
	}
	fmt.Printf("snapshot valid: %d rules (catalog %s)\n", ix.Len(), sum[:12])
	return nil
}

func runCacheWipe(cmd *cobra.Command, args []string) error {
	cfg, err := serviceConfig()
	if err != nil {
		return err
	}
	if cfg.CacheDB == "" {
		return fmt.Errorf("cache database not set (--cache-db or DJE_CACHE_DB)")
	}
	if err := os.Remove(cfg.CacheDB); err != nil {
		if os.IsNotExist(err) {
			fmt.Println("no snapshot")
			return nil
		}
		return err
	}
	fmt.Println("snapshot removed")
	return nil
}
