package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/fpang/product-craft/internal/auth"
	"github.com/fpang/product-craft/internal/chat"
	"github.com/fpang/product-craft/internal/config"
	"github.com/fpang/product-craft/internal/logging"
)

// Flags shared by every subcommand.
var (
	imageModelFlag string
	textModelFlag  string
)

var appConfig *config.Config

var rootCmd = &cobra.Command{
	Use:   "productcraft-cli",
	Short: "Edit product photos and write product copy with Gemini",
	Long: `ProductCraft CLI runs one editing step on a product photo, or asks Gemini
for marketing copy and product analysis, straight from the terminal.

Examples:
  productcraft-cli edit -i mug.jpg -t enhance
  productcraft-cli edit -i mug.jpg -t localized-edit --x 410 --y 220 --instruction "remove the scratch"
  productcraft-cli edit -t filter --instruction "warm film look"   # picks the photo in a dialog
  productcraft-cli writeup --platform instagram --brief "hand-thrown ceramic mug"
  productcraft-cli analyze "stainless steel water bottle, 750ml"
  productcraft-cli backgrounds "leather wallet"`,
	SilenceUsage: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		logging.Init()
		appConfig = config.Load()
		auth.MetricsNamespace = ""
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&imageModelFlag, "model", "m", "", "Gemini image model for edits")
	rootCmd.PersistentFlags().StringVar(&textModelFlag, "text-model", "", "Gemini text model for copy and key validation")

	rootCmd.AddCommand(editCmd, writeupCmd, analyzeCmd, suggestCmd, backgroundsCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func imageModel() string {
	if imageModelFlag != "" {
		return imageModelFlag
	}
	if appConfig.Gemini.ImageModel != "" {
		return appConfig.Gemini.ImageModel
	}
	return chat.GetImageModelName()
}

func textModel() string {
	if textModelFlag != "" {
		return textModelFlag
	}
	if appConfig.Gemini.TextModel != "" {
		return appConfig.Gemini.TextModel
	}
	return chat.GetTextModelName()
}
