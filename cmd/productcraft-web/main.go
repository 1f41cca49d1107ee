package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/fpang/product-craft/internal/api"
	"github.com/fpang/product-craft/internal/auth"
	"github.com/fpang/product-craft/internal/chat"
	"github.com/fpang/product-craft/internal/cli"
	"github.com/fpang/product-craft/internal/config"
	"github.com/fpang/product-craft/internal/editor"
	"github.com/fpang/product-craft/internal/lambdaboot"
	"github.com/fpang/product-craft/internal/logging"
	"github.com/fpang/product-craft/internal/store"
)

// CLI flags
var (
	portFlag       int
	modelFlag      string
	textModelFlag  string
	archiveDirFlag string
	metricsFlag    bool
)

var rootCmd = &cobra.Command{
	Use:   "productcraft-web",
	Short: "Local API server for product photo editing sessions",
	Long: `ProductCraft Web starts a local HTTP server exposing the image editing
session API: upload a product photo, pick a tool, click the canvas, submit
edits, undo and redo, and save versions to a project archive.

Examples:
  productcraft-web
  productcraft-web --port 9090
  productcraft-web --archive-dir ./projects
  productcraft-web --model gemini-3-pro-image-preview`,
	Run: runMain,
}

func init() {
	rootCmd.Flags().IntVar(&portFlag, "port", 0, "Port to listen on (default $PORT or 8080)")
	rootCmd.Flags().StringVarP(&modelFlag, "model", "m", "", "Gemini image model for edits")
	rootCmd.Flags().StringVar(&textModelFlag, "text-model", "", "Gemini text model for copywriting")
	rootCmd.Flags().StringVar(&archiveDirFlag, "archive-dir", "", "Save versions under this directory")
	rootCmd.Flags().BoolVar(&metricsFlag, "metrics", false, "Emit EMF metrics to stdout")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func runMain(cmd *cobra.Command, args []string) {
	initStart := time.Now()
	logging.Init()
	cfg := config.Load()

	port := cfg.App.Port
	if portFlag > 0 {
		port = portFlag
	}
	imageModel := firstNonEmpty(modelFlag, cfg.Gemini.ImageModel, chat.GetImageModelName())
	textModel := firstNonEmpty(textModelFlag, cfg.Gemini.TextModel, chat.GetTextModelName())
	namespace := ""
	if metricsFlag {
		namespace = cfg.Metrics.Namespace
	}

	auth.MetricsNamespace = namespace

	ctx := context.Background()
	apiKey, client := cli.InitGemini(ctx, textModel)

	archive, archiveLocation := openArchive(cfg.Storage, archiveDirFlag)

	server := api.NewServer(api.Config{
		Service:          "productcraft-web",
		Backend:          chat.NewGeminiImageClient(apiKey).WithModel(imageModel),
		Archive:          archive,
		Copywriter:       chat.NewCopywriter(client.Models, textModel),
		SessionTTL:       cfg.Session.TTL,
		EditTimeout:      cfg.Session.EditTimeout,
		MaxUpload:        cfg.Session.MaxUpload,
		MetricsNamespace: namespace,
		AllowedOrigin:    cfg.App.AllowedOrigin,
	})

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", port),
		Handler:      server.Handler(),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: writeTimeout(cfg.Session.EditTimeout),
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh
		log.Info().Msg("Shutting down...")
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(ctx); err != nil {
			log.Warn().Err(err).Msg("Shutdown did not complete cleanly")
		}
	}()

	logging.NewStartupLogger("productcraft-web").
		CommitHash(commitHash).
		Config("buildTime", buildTime).
		Config("port", strconv.Itoa(port)).
		Config("imageModel", imageModel).
		Config("textModel", textModel).
		Config("archive", archiveLocation).
		Feature("save", archive != nil).
		Feature("metrics", namespace != "").
		InitDuration(time.Since(initStart)).
		Log()

	fmt.Printf("\n  ProductCraft API: http://localhost:%d/api/health\n\n", port)

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatal().Err(err).Msg("Server failed")
	}
}

// openArchive picks where saved versions go: the --archive-dir flag, then the
// S3 + DynamoDB archive, then PROJECT_ARCHIVE_DIR. A nil Archive disables saving.
func openArchive(storage config.StorageConfig, dirFlag string) (editor.Archive, string) {
	dir := dirFlag
	if dir == "" && storage.CloudArchive() {
		clients := lambdaboot.InitAWS()
		return lambdaboot.InitArchive(clients.Config, storage.Bucket, storage.Table, storage.Retention),
			fmt.Sprintf("s3://%s (table %s)", storage.Bucket, storage.Table)
	}
	if dir == "" {
		dir = storage.ArchiveDir
	}
	if dir == "" {
		log.Info().Msg("No archive configured, saving disabled")
		return nil, "none"
	}
	archive, err := store.NewDirArchive(dir)
	if err != nil {
		log.Fatal().Err(err).Str("dir", dir).Msg("Failed to open archive directory")
	}
	return archive, archive.Root()
}

// writeTimeout leaves room for a full edit round trip plus the response body.
func writeTimeout(editTimeout time.Duration) time.Duration {
	if editTimeout+30*time.Second > 120*time.Second {
		return editTimeout + 30*time.Second
	}
	return 120 * time.Second
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
