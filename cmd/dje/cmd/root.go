package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/balusarakesh/dje-license-search/internal/app"
)

const version = "v0.1.0"

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "dje",
	Short: "dje — license detection engine",
	Long: `dje scans files for license notices by aligning them against an
indexed catalog of license texts and detection rules.`,
	SilenceErrors: true,
	SilenceUsage:  true,
}

// Execute runs the root command.
func Execute() error {
	err := rootCmd.Execute()
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
	}
	return err
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println("dje " + version)
	},
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: $HOME/.dje/config.yaml)")
	rootCmd.PersistentFlags().String("license-dir", "", "license catalog directory")
	rootCmd.PersistentFlags().String("rule-dir", "", "detection rule directory")
	rootCmd.PersistentFlags().String("cache-db", "", "index snapshot database path (empty disables persistence)")

	_ = viper.BindPFlag("license_dir", rootCmd.PersistentFlags().Lookup("license-dir"))
	_ = viper.BindPFlag("rule_dir", rootCmd.PersistentFlags().Lookup("rule-dir"))
	_ = viper.BindPFlag("cache_db", rootCmd.PersistentFlags().Lookup("cache-db"))

	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(scanCmd)
	rootCmd.AddCommand(rulesCmd)
	rootCmd.AddCommand(licensesCmd)
	rootCmd.AddCommand(cacheCmd)
}

// initConfig reads the config file and DJE_* environment variables.
func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(home + "/.dje")
			viper.SetConfigType("yaml")
			viper.SetConfigName("config")
		}
	}

	viper.SetEnvPrefix("DJE")
	viper.AutomaticEnv()

	_ = viper.ReadInConfig()
}

// serviceConfig resolves the catalog location from flags, config file, and
// environment. Both directories are required.
func serviceConfig() (app.Config, error) {
	cfg := app.Config{
		LicenseDir: viper.GetString("license_dir"),
		RuleDir:    viper.GetString("rule_dir"),
		CacheDB:    viper.GetString("cache_db"),
	}
	if cfg.LicenseDir == "" {
		return cfg, fmt.Errorf("license directory not set (--license-dir or DJE_LICENSE_DIR)")
	}
	if cfg.RuleDir == "" {
		return cfg, fmt.Errorf("rule directory not set (--rule-dir or DJE_RULE_DIR)")
	}
	return cfg, nil
}
