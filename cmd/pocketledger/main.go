// Command pocketledger is the device-side agent of the pocketledger
// personal-finance tracker: a durable local ledger that keeps working
// offline and reconciles with the remote API when connectivity returns.
package main

import (
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/natefinch/lumberjack.v2"
)

var rootCmd = &cobra.Command{
	Use:   "pocketledger",
	Short: "Offline-first personal finance ledger",
	Long: `pocketledger keeps a durable local copy of your financial records and
reconciles it with the remote API whenever the device is online.

Local writes never wait on the network: every mutation is stored
immediately and queued for upload. The daemon watches connectivity and
syncs in the background; every command keeps working offline.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().String("config", "", "config file (default $HOME/.pocketledger/config.yaml)")
	rootCmd.PersistentFlags().String("db", "", "path to the local database")
	rootCmd.PersistentFlags().String("api-url", "", "base URL of the remote API")
	rootCmd.PersistentFlags().String("owner", "", "owner (user) id of this device session")

	_ = viper.BindPFlag("db_path", rootCmd.PersistentFlags().Lookup("db"))
	_ = viper.BindPFlag("api_url", rootCmd.PersistentFlags().Lookup("api-url"))
	_ = viper.BindPFlag("owner_id", rootCmd.PersistentFlags().Lookup("owner"))
}

// initConfig loads configuration from file, environment and flags.
func initConfig() {
	dataDir := defaultDataDir()

	viper.SetDefault("db_path", filepath.Join(dataDir, "ledger.db"))
	viper.SetDefault("api_url", "http://localhost:8080/api")
	viper.SetDefault("owner_id", "")
	viper.SetDefault("listen_addr", ":8787")
	viper.SetDefault("probe_interval", "15s")
	viper.SetDefault("sync_interval", "5m")
	viper.SetDefault("debounce_interval", "2s")
	viper.SetDefault("offline_marker", filepath.Join(dataDir, "offline"))
	viper.SetDefault("log_file", "")

	if cfgFile, _ := rootCmd.PersistentFlags().GetString("config"); cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.AddConfigPath(dataDir)
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")
	}

	viper.SetEnvPrefix("POCKETLEDGER")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		// A missing config file is fine; defaults and env cover it.
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			fmt.Fprintf(os.Stderr, "Warning: failed to read config: %v\n", err)
		}
	}
}

// defaultDataDir returns the per-user data directory.
func defaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".pocketledger"
	}
	return filepath.Join(home, ".pocketledger")
}

// newLogger builds the shared logger. When log_file is set, output
// rotates via lumberjack; otherwise it goes to stderr.
func newLogger(prefix string) *log.Logger {
	var out io.Writer = os.Stderr
	if path := viper.GetString("log_file"); path != "" {
		out = &lumberjack.Logger{
			Filename:   path,
			MaxSize:    10, // MB
			MaxBackups: 3,
			MaxAge:     30, // days
		}
	}
	return log.New(out, prefix, log.LstdFlags)
}

// requireOwner fails fast when no owner id is configured.
func requireOwner() (string, error) {
	owner := viper.GetString("owner_id")
	if owner == "" {
		return "", fmt.Errorf("owner id not configured (set --owner, POCKETLEDGER_OWNER_ID or owner_id in the config file)")
	}
	return owner, nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
