package commands

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	cfgFile       string
	apiURL        string
	approveSecret string
	outputJSON    bool
)

var rootCmd = &cobra.Command{
	Use:   "triage",
	Short: "Triage Gateway CLI - Inspect and operate the support triage pipeline",
	Long: `The Triage Gateway CLI classifies support requests locally, scores the
rule engine against golden cases, and resolves pending approvals against a
running gateway.

Examples:
  triage classify "I was charged twice for txn-9931"
  triage eval cases.jsonl
  triage pending 4f2c0c61a1b24f54
  triage approve 4f2c0c61a1b24f54 --reviewer alice
  triage approve 4f2c0c61a1b24f54 --reject`,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		initConfig()
	},
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	// Global flags
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.triage-cli.yaml)")
	rootCmd.PersistentFlags().StringVar(&apiURL, "api-url", "http://localhost:8080", "Gateway API URL")
	rootCmd.PersistentFlags().StringVar(&approveSecret, "approve-secret", "", "Approval shared secret")
	rootCmd.PersistentFlags().BoolVar(&outputJSON, "json", false, "Output results in JSON format")

	// Bind flags to viper
	viper.BindPFlag("api.url", rootCmd.PersistentFlags().Lookup("api-url"))
	viper.BindPFlag("api.approve_secret", rootCmd.PersistentFlags().Lookup("approve-secret"))
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

		viper.AddConfigPath(home)
		viper.SetConfigType("yaml")
		viper.SetConfigName(".triage-cli")
	}

	viper.SetEnvPrefix("TRIAGE")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil {
		if !outputJSON {
			fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
		}
	}

	if apiURL != "" && apiURL != "http://localhost:8080" {
		viper.Set("api.url", apiURL)
	}
	if approveSecret != "" {
		viper.Set("api.approve_secret", approveSecret)
	}
}
