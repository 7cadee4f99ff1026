package cli

import (
	"fmt"

	"github.com/jasony/monlite/internal/wallet"
	"github.com/spf13/viper"
)

func parseNetwork(s string) (wallet.Network, error) {
	switch s {
	case "mainnet", "":
		return wallet.Mainnet, nil
	case "testnet":
		return wallet.Testnet, nil
	case "stagenet":
		return wallet.Stagenet, nil
	default:
		return 0, fmt.Errorf("unknown network %q (want mainnet, testnet, or stagenet)", s)
	}
}

func currentConfig() (wallet.Config, error) {
	network, err := parseNetwork(viper.GetString("network"))
	if err != nil {
		return wallet.Config{}, err
	}
	cfg := wallet.DefaultConfig(network)
	cfg.DaemonAddress = viper.GetString("daemon-address")
	return cfg, nil
}

func walletFilePath() string {
	return viper.GetString("wallet-file")
}
