package cli

import (
	"fmt"

	"github.com/jasony/monlite/internal/wallet"
	"github.com/spf13/cobra"
)

var deriveCmd = &cobra.Command{
	Use:   "derive",
	Short: "Derive addresses from a mnemonic seed",
	Long: `Derive the primary address and, optionally, a range of subaddresses
from a mnemonic phrase.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		mnemonic, _ := cmd.Flags().GetString("mnemonic")
		language, _ := cmd.Flags().GetString("language")
		account, _ := cmd.Flags().GetUint32("account")
		count, _ := cmd.Flags().GetUint32("count")

		if mnemonic == "" {
			return fmt.Errorf("mnemonic phrase is required (--mnemonic)")
		}

		seed, err := wallet.DecodeMnemonic(mnemonic, language)
		if err != nil {
			return fmt.Errorf("decoding mnemonic: %w", err)
		}

		cfg, err := currentConfig()
		if err != nil {
			return err
		}
		keys := wallet.DeriveKeys(seed)

		for addr := uint32(0); addr < count; addr++ {
			idx := wallet.SubaddressIndex{Account: account, Address: addr}
			moneroAddr, err := keys.Subaddress(idx, cfg.Network)
			if err != nil {
				return fmt.Errorf("deriving (%d,%d): %w", account, addr, err)
			}
			encoded, err := moneroAddr.Encode()
			if err != nil {
				return fmt.Errorf("encoding (%d,%d): %w", account, addr, err)
			}
			fmt.Printf("(%d,%d): %s\n", account, addr, encoded)
		}

		return nil
	},
}

func init() {
	deriveCmd.Flags().StringP("mnemonic", "m", "", "mnemonic phrase (required)")
	deriveCmd.Flags().StringP("language", "l", "english", "mnemonic word list language")
	deriveCmd.Flags().Uint32P("account", "a", 0, "subaddress account index")
	deriveCmd.Flags().Uint32P("count", "c", 1, "number of addresses to derive")
	deriveCmd.MarkFlagRequired("mnemonic")
	rootCmd.AddCommand(deriveCmd)
}
