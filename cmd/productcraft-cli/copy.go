package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/fpang/product-craft/internal/chat"
	"github.com/fpang/product-craft/internal/cli"
)

var (
	platformFlag  string
	wordLimitFlag int
	toneFlag      string
	briefFlag     string
)

var writeupCmd = &cobra.Command{
	Use:   "writeup",
	Short: "Write a social media post for a product",
	Run: func(cmd *cobra.Command, args []string) {
		brief := briefFlag
		if brief == "" {
			brief = cli.Prompt(os.Stdin, os.Stdout, "Product brief", "")
		}
		ctx, copywriter := newCopywriter()
		text, err := copywriter.GenerateSocialWriteup(ctx, chat.WriteupRequest{
			Platform:  platformFlag,
			WordLimit: wordLimitFlag,
			Tone:      toneFlag,
			Brief:     brief,
		})
		if err != nil {
			log.Fatal().Err(err).Msg("Write-up failed")
		}
		printResult("Write-up", text)
	},
}

var analyzeCmd = &cobra.Command{
	Use:   "analyze [description]",
	Short: "Analyze a product for positioning and audience",
	Run: func(cmd *cobra.Command, args []string) {
		description := argsOrPrompt(args, "Product description")
		ctx, copywriter := newCopywriter()
		text, err := copywriter.AnalyzeProduct(ctx, description)
		if err != nil {
			log.Fatal().Err(err).Msg("Analysis failed")
		}
		printResult("Product analysis", text)
	},
}

var suggestCmd = &cobra.Command{
	Use:   "suggest [product type]",
	Short: "Suggest photography improvements for a product type",
	Run: func(cmd *cobra.Command, args []string) {
		productType := argsOrPrompt(args, "Product type")
		ctx, copywriter := newCopywriter()
		text, err := copywriter.SuggestEnhancements(ctx, productType)
		if err != nil {
			log.Fatal().Err(err).Msg("Suggestions failed")
		}
		printResult("Photography suggestions", text)
	},
}

var backgroundsCmd = &cobra.Command{
	Use:   "backgrounds [product type]",
	Short: "Suggest backgrounds for a product photo",
	Run: func(cmd *cobra.Command, args []string) {
		productType := argsOrPrompt(args, "Product type")
		ctx, copywriter := newCopywriter()
		var b strings.Builder
		for i, bg := range copywriter.SuggestBackgrounds(ctx, productType) {
			fmt.Fprintf(&b, "%d. %s\n", i+1, bg)
		}
		printResult("Background ideas", b.String())
	},
}

func init() {
	writeupCmd.Flags().StringVarP(&platformFlag, "platform", "p", chat.DefaultPlatform, "Target platform")
	writeupCmd.Flags().IntVarP(&wordLimitFlag, "words", "w", chat.DefaultWordLimit, "Approximate word limit")
	writeupCmd.Flags().StringVar(&toneFlag, "tone", chat.DefaultTone, "Tone of voice")
	writeupCmd.Flags().StringVarP(&briefFlag, "brief", "b", "", "What the post is about")
}

func newCopywriter() (context.Context, *chat.Copywriter) {
	ctx := context.Background()
	model := textModel()
	_, client := cli.InitGemini(ctx, model)
	return ctx, chat.NewCopywriter(client.Models, model)
}

func argsOrPrompt(args []string, label string) string {
	if len(args) > 0 {
		return strings.Join(args, " ")
	}
	return cli.Prompt(os.Stdin, os.Stdout, label, "")
}

func printResult(title, text string) {
	fmt.Println()
	fmt.Println("============================================")
	fmt.Println(title)
	fmt.Println("============================================")
	fmt.Println(strings.TrimSpace(text))
	fmt.Println()
}
