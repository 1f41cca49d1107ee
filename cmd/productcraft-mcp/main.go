package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/fpang/product-craft/internal/auth"
	"github.com/fpang/product-craft/internal/chat"
	"github.com/fpang/product-craft/internal/cli"
	"github.com/fpang/product-craft/internal/config"
	"github.com/fpang/product-craft/internal/editor"
	"github.com/fpang/product-craft/internal/logging"
	"github.com/fpang/product-craft/internal/mcpserver"
	"github.com/fpang/product-craft/internal/store"
)

// CLI flags
var (
	modelFlag      string
	textModelFlag  string
	archiveDirFlag string
	projectFlag    string
)

var rootCmd = &cobra.Command{
	Use:   "productcraft-mcp",
	Short: "MCP server exposing a product photo editing session",
	Long: `ProductCraft MCP serves one editing session over the Model Context
Protocol on stdin/stdout. An assistant loads a photo, picks tools, sets the
hotspot and instruction, submits AI edits, and walks the undo history.

Logs go to stderr; stdout carries the protocol.

Examples:
  productcraft-mcp
  productcraft-mcp --archive-dir ~/ProductCraft --project "Spring catalog"`,
	Run: runMain,
}

func init() {
	rootCmd.Flags().StringVarP(&modelFlag, "model", "m", "", "Gemini image model for edits")
	rootCmd.Flags().StringVar(&textModelFlag, "text-model", "", "Gemini text model used to validate the API key")
	rootCmd.Flags().StringVar(&archiveDirFlag, "archive-dir", "", "Enable the save tool, writing projects under this directory")
	rootCmd.Flags().StringVar(&projectFlag, "project", "", "Project name for saved versions")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func runMain(cmd *cobra.Command, args []string) {
	logging.Init()
	cfg := config.Load()
	// EMF lines would corrupt the stdio stream.
	auth.MetricsNamespace = ""

	imageModel := firstNonEmpty(modelFlag, cfg.Gemini.ImageModel, chat.GetImageModelName())
	textModel := firstNonEmpty(textModelFlag, cfg.Gemini.TextModel, chat.GetTextModelName())

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	apiKey, _ := cli.InitGemini(ctx, textModel)

	opts := []editor.SessionOption{
		editor.WithOrchestratorOptions(editor.WithTimeout(cfg.Session.EditTimeout)),
	}
	archiveDir := firstNonEmpty(archiveDirFlag, cfg.Storage.ArchiveDir)
	if archiveDir != "" {
		archive, err := store.NewDirArchive(archiveDir)
		if err != nil {
			log.Fatal().Err(err).Str("dir", archiveDir).Msg("Failed to open archive directory")
		}
		opts = append(opts, editor.WithArchive(archive))
	}
	if projectFlag != "" {
		opts = append(opts, editor.WithProjectName(projectFlag))
	}
	session := editor.NewSession(chat.NewGeminiImageClient(apiKey).WithModel(imageModel), opts...)

	logging.NewStartupLogger("productcraft-mcp").
		CommitHash(commitHash).
		Config("buildTime", buildTime).
		Config("imageModel", imageModel).
		Config("session", session.ID()).
		Feature("save", archiveDir != "").
		Log()

	server := mcpserver.New(session, commitHash)
	if err := server.Run(ctx, &mcp.StdioTransport{}); err != nil && ctx.Err() == nil {
		log.Fatal().Err(err).Msg("MCP server stopped")
	}
	log.Info().Msg("MCP server stopped")
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
