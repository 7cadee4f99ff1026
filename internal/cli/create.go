package cli

import (
	"fmt"

	"github.com/jasony/monlite/internal/wallet"
	"github.com/spf13/cobra"
)

var createWalletCmd = &cobra.Command{
	Use:   "create-wallet",
	Short: "Create a new encrypted wallet file from a mnemonic",
	RunE: func(cmd *cobra.Command, args []string) error {
		mnemonic, _ := cmd.Flags().GetString("mnemonic")
		language, _ := cmd.Flags().GetString("language")
		password, _ := cmd.Flags().GetString("password")
		refreshFrom, _ := cmd.Flags().GetUint64("refresh-from-height")

		if mnemonic == "" {
			return fmt.Errorf("mnemonic phrase is required (--mnemonic)")
		}
		if password == "" {
			return fmt.Errorf("password is required (--password)")
		}

		seed, err := wallet.DecodeMnemonic(mnemonic, language)
		if err != nil {
			return fmt.Errorf("decoding mnemonic: %w", err)
		}

		cfg, err := currentConfig()
		if err != nil {
			return err
		}
		cfg.RefreshFromHeight = refreshFrom

		ws := wallet.NewWalletFromSeed(seed, cfg)
		defer ws.Close()

		if err := ws.Save(walletFilePath(), password); err != nil {
			return fmt.Errorf("saving wallet: %w", err)
		}

		address := ws.Keys.PrimaryAddress(cfg.Network)
		encoded, err := address.Encode()
		if err != nil {
			return fmt.Errorf("encoding primary address: %w", err)
		}

		fmt.Printf("Created wallet file %s\n", walletFilePath())
		fmt.Printf("Primary address: %s\n", encoded)
		return nil
	},
}

func init() {
	createWalletCmd.Flags().StringP("mnemonic", "m", "", "mnemonic phrase (required)")
	createWalletCmd.Flags().StringP("language", "l", "english", "mnemonic word list language")
	createWalletCmd.Flags().StringP("password", "p", "", "password to encrypt the wallet file (required)")
	createWalletCmd.Flags().Uint64("refresh-from-height", 0, "block height to start scanning from")
	createWalletCmd.MarkFlagRequired("mnemonic")
	createWalletCmd.MarkFlagRequired("password")
	rootCmd.AddCommand(createWalletCmd)
}
