package cli

import (
	"fmt"
	"os"

	"github.com/jasony/monlite/internal/wallet"
	"github.com/spf13/cobra"
)

var exportKeyImagesCmd = &cobra.Command{
	Use:   "export-key-images",
	Short: "Export key images for view-only reconciliation",
	RunE: func(cmd *cobra.Command, args []string) error {
		password, _ := cmd.Flags().GetString("password")
		out, _ := cmd.Flags().GetString("out")

		cfg, err := currentConfig()
		if err != nil {
			return err
		}
		ws, err := wallet.OpenWallet(walletFilePath(), password, cfg)
		if err != nil {
			return fmt.Errorf("opening wallet: %w", err)
		}
		defer ws.Close()

		data, err := ws.ExportKeyImages()
		if err != nil {
			return fmt.Errorf("exporting key images: %w", err)
		}
		if err := os.WriteFile(out, data, 0600); err != nil {
			return fmt.Errorf("writing %s: %w", out, err)
		}

		fmt.Printf("Wrote %d bytes to %s\n", len(data), out)
		return nil
	},
}

var importKeyImagesCmd = &cobra.Command{
	Use:   "import-key-images",
	Short: "Import a key image export file",
	RunE: func(cmd *cobra.Command, args []string) error {
		password, _ := cmd.Flags().GetString("password")
		in, _ := cmd.Flags().GetString("in")

		cfg, err := currentConfig()
		if err != nil {
			return err
		}
		ws, err := wallet.OpenWallet(walletFilePath(), password, cfg)
		if err != nil {
			return fmt.Errorf("opening wallet: %w", err)
		}
		defer ws.Close()

		data, err := os.ReadFile(in)
		if err != nil {
			return fmt.Errorf("reading %s: %w", in, err)
		}

		result, err := ws.ImportKeyImages(data)
		if err != nil {
			return fmt.Errorf("importing key images: %w", err)
		}

		if err := ws.Save(walletFilePath(), password); err != nil {
			return fmt.Errorf("saving wallet: %w", err)
		}

		fmt.Printf("Newly marked spent: %d, already spent: %d\n", result.NewlySpent, result.AlreadySpent)
		return nil
	},
}

func init() {
	exportKeyImagesCmd.Flags().StringP("password", "p", "", "wallet file password")
	exportKeyImagesCmd.Flags().StringP("out", "o", "key_images.export", "output file path")
	exportKeyImagesCmd.MarkFlagRequired("password")
	rootCmd.AddCommand(exportKeyImagesCmd)

	importKeyImagesCmd.Flags().StringP("password", "p", "", "wallet file password")
	importKeyImagesCmd.Flags().StringP("in", "i", "key_images.export", "input file path")
	importKeyImagesCmd.MarkFlagRequired("password")
	rootCmd.AddCommand(importKeyImagesCmd)
}
