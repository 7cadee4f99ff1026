package cli

import (
	"context"
	"fmt"

	httprpc "github.com/jasony/monlite/internal/rpc/http"
	"github.com/jasony/monlite/internal/wallet"
	"github.com/spf13/cobra"
)

var sendCmd = &cobra.Command{
	Use:   "send",
	Short: "Build, sign, and broadcast a transaction",
	RunE: func(cmd *cobra.Command, args []string) error {
		password, _ := cmd.Flags().GetString("password")
		toAddr, _ := cmd.Flags().GetString("to")
		amount, _ := cmd.Flags().GetUint64("amount")
		priorityFlag, _ := cmd.Flags().GetString("priority")
		sweepAll, _ := cmd.Flags().GetBool("sweep-all")

		priority, err := parsePriority(priorityFlag)
		if err != nil {
			return err
		}

		dest, err := wallet.DecodeAddress(toAddr)
		if err != nil {
			return fmt.Errorf("decoding destination address: %w", err)
		}
		if amount == 0 {
			return fmt.Errorf("amount must be nonzero")
		}

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

		txHash, err := ws.Send(ctx, []wallet.Destination{{Address: dest, Amount: amount}}, wallet.TxConfig{
			Priority: priority,
			SweepAll: sweepAll,
		})
		if err != nil {
			return fmt.Errorf("sending: %w", err)
		}

		if err := ws.Save(walletFilePath(), password); err != nil {
			return fmt.Errorf("saving wallet: %w", err)
		}

		fmt.Printf("Broadcast transaction %x\n", txHash)
		return nil
	},
}

func parsePriority(s string) (wallet.TransactionPriority, error) {
	switch s {
	case "unimportant":
		return wallet.PriorityUnimportant, nil
	case "low":
		return wallet.PriorityLow, nil
	case "default", "":
		return wallet.PriorityDefault, nil
	case "medium":
		return wallet.PriorityMedium, nil
	case "high":
		return wallet.PriorityHigh, nil
	default:
		return 0, fmt.Errorf("unknown priority %q (want unimportant, low, default, medium, or high)", s)
	}
}

func init() {
	sendCmd.Flags().StringP("password", "p", "", "wallet file password")
	sendCmd.Flags().String("to", "", "destination address (required)")
	sendCmd.Flags().Uint64("amount", 0, "amount to send, in the coin's atomic unit")
	sendCmd.Flags().String("priority", "default", "fee priority: unimportant, low, default, medium, or high")
	sendCmd.Flags().Bool("sweep-all", false, "send the entire unlocked balance to the destination")
	sendCmd.MarkFlagRequired("password")
	sendCmd.MarkFlagRequired("to")
	rootCmd.AddCommand(sendCmd)
}
