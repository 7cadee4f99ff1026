package cli

import (
	"crypto/rand"
	"fmt"

	"github.com/jasony/monlite/internal/wallet"
	"github.com/spf13/cobra"
)

var generateSeedCmd = &cobra.Command{
	Use:   "generate-seed",
	Short: "Generate a new 25-word mnemonic seed",
	Long: `Generate a new wallet seed from fresh entropy and print its 25-word
mnemonic phrase (24 data words plus a checksum word).`,
	RunE: func(cmd *cobra.Command, args []string) error {
		language, _ := cmd.Flags().GetString("language")

		var seed wallet.Seed
		if _, err := rand.Read(seed.Entropy[:]); err != nil {
			return fmt.Errorf("reading entropy: %w", err)
		}

		phrase, err := seed.EncodeMnemonic(language)
		if err != nil {
			return fmt.Errorf("encoding mnemonic: %w", err)
		}

		cfg, err := currentConfig()
		if err != nil {
			return err
		}
		keys := wallet.DeriveKeys(seed)
		address := keys.PrimaryAddress(cfg.Network)
		encoded, err := address.Encode()
		if err != nil {
			return fmt.Errorf("encoding primary address: %w", err)
		}

		fmt.Println("Mnemonic seed:")
		fmt.Println(phrase)
		fmt.Println()
		fmt.Println("Primary address:")
		fmt.Println(encoded)
		fmt.Println()
		fmt.Println("Anyone with this phrase can spend every output this wallet ever receives.")
		fmt.Println("Write it down and keep it offline.")

		return nil
	},
}

func init() {
	generateSeedCmd.Flags().StringP("language", "l", "english", "mnemonic word list language")
	rootCmd.AddCommand(generateSeedCmd)
}
