package cli

import (
	"context"
	"fmt"

	httprpc "github.com/jasony/monlite/internal/rpc/http"
	"github.com/jasony/monlite/internal/wallet"
	"github.com/spf13/cobra"
)

var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "Sync an open wallet against a daemon",
	Long:  `Connect to the configured daemon and scan every block up to its current height.`,
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
		if err := ws.Connect(ctx, httprpc.ConnectFunc, client); err != nil {
			return fmt.Errorf("connecting: %w", err)
		}
		defer ws.Disconnect()

		height, err := client.GetHeight(ctx)
		if err != nil {
			return fmt.Errorf("querying daemon height: %w", err)
		}

		fmt.Printf("Scanning to height %d...\n", height)
		if err := ws.SyncToHeight(ctx, height); err != nil {
			return fmt.Errorf("scanning: %w", err)
		}

		if err := ws.Save(walletFilePath(), password); err != nil {
			return fmt.Errorf("saving wallet: %w", err)
		}

		fmt.Printf("Scanned up to height %d. Balance: %d\n", height, ws.Balance())
		return nil
	},
}

func init() {
	scanCmd.Flags().StringP("password", "p", "", "wallet file password")
	scanCmd.MarkFlagRequired("password")
	rootCmd.AddCommand(scanCmd)
}
