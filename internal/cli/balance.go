package cli

import (
	"context"
	"fmt"

	httprpc "github.com/jasony/monlite/internal/rpc/http"
	"github.com/jasony/monlite/internal/wallet"
	"github.com/spf13/cobra"
)

var balanceCmd = &cobra.Command{
	Use:   "balance",
	Short: "Show wallet balance",
	Long:  `Print the wallet's total and unlocked balance, querying the daemon for the current height.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		password, _ := cmd.Flags().GetString("password")

		cfg, err := currentConfig()
		if err != nil {
			return err
		}
		ws, err := wallet.OpenWallet(walletFilePath(), password, cfg)
		if err != nil {
			return fmt.Errorf("opening wallet: %w", err)
		}
		defer ws.Close()

		ctx := context.Background()
		client, err := httprpc.Dial(ctx, cfg.DaemonAddress, cfg.Timeout)
		if err != nil {
			return fmt.Errorf("connecting to daemon: %w", err)
		}
		height, err := client.GetHeight(ctx)
		if err != nil {
			return fmt.Errorf("querying daemon height: %w", err)
		}

		fmt.Printf("Balance:          %d\n", ws.Balance())
		fmt.Printf("Unlocked balance: %d\n", ws.UnlockedBalance(height))
		return nil
	},
}

func init() {
	balanceCmd.Flags().StringP("password", "p", "", "wallet file password")
	balanceCmd.MarkFlagRequired("password")
	rootCmd.AddCommand(balanceCmd)
}
