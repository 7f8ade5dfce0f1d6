package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "syncctl",
	Short: "syncctl is a command line tool for the syncbridge sync API",
	Long: `syncctl is the command-line interface for syncbridge.

syncbridge accepts batches of customers, products, orders and employees,
applies each batch atomically and keeps a history entry per attempt.

Common workflows:

  Push a batch from a JSON file holding an array of objects:
    syncctl sync --model customers --file customers.json

  Inspect a history entry:
    syncctl history get 42
    syncctl history get 42 -o yaml

  Retry or delete a failed entry:
    syncctl history retry 42
    syncctl history delete 42

  Show history counts per status:
    syncctl stats

  Follow created-entity events:
    syncctl watch --nats-url nats://localhost:4222

Configuration:
  Set the API endpoint via flag, environment variable or a config file:
    SYNCBRIDGE_URL    API endpoint (default: http://localhost:8000)`,
}

func Execute() error {
	return rootCmd.Execute()
}

func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err != nil {
			fmt.Println(err)
			os.Exit(1)
		}

		// Search config in home directory with name ".syncctl"
		viper.AddConfigPath(home)
		viper.SetConfigName(".syncctl")
		viper.SetConfigType("yaml")
	}

	// Read environment variables that match "SYNCBRIDGE_VARNAME"
	viper.SetEnvPrefix("SYNCBRIDGE")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.syncctl.yaml)")

	rootCmd.PersistentFlags().String("url", "http://localhost:8000", "syncbridge API URL")
	viper.BindPFlag("url", rootCmd.PersistentFlags().Lookup("url"))
}
