package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	cfgFile string
	version = "0.1.0"
)

var rootCmd = &cobra.Command{
	Use:   "monlite",
	Short: "Lightweight CryptoNote-family wallet engine",
	Long: `monlite is a light-client wallet engine for a CryptoNote-family coin:
key derivation, block scanning, an output ledger, input/decoy selection,
fee estimation, CLSAG transaction signing, and encrypted on-disk
persistence.`,
	Version: version,
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.monlite.yaml)")
	rootCmd.PersistentFlags().String("wallet-file", "wallet.monrs", "path to the encrypted wallet file")
	rootCmd.PersistentFlags().String("daemon-address", "http://127.0.0.1:18081", "daemon RPC address")
	rootCmd.PersistentFlags().String("network", "mainnet", "network: mainnet, testnet, or stagenet")
	rootCmd.PersistentFlags().Bool("verbose", false, "verbose output")

	viper.BindPFlag("wallet-file", rootCmd.PersistentFlags().Lookup("wallet-file"))
	viper.BindPFlag("daemon-address", rootCmd.PersistentFlags().Lookup("daemon-address"))
	viper.BindPFlag("network", rootCmd.PersistentFlags().Lookup("network"))
	viper.BindPFlag("verbose", rootCmd.PersistentFlags().Lookup("verbose"))
}

func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		cobra.CheckErr(err)

		viper.AddConfigPath(home)
		viper.SetConfigType("yaml")
		viper.SetConfigName(".monlite")
	}

	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}
