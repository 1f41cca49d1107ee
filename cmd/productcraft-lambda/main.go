// Command productcraft-lambda serves the editing session API behind API
// Gateway. Sessions live in the function's memory, so the function is
// deployed with reserved concurrency of one; saved versions go to S3 with a
// DynamoDB project record.
package main

import (
	"context"
	"os"
	"time"

	"github.com/aws/aws-lambda-go/lambda"
	"github.com/awslabs/aws-lambda-go-api-proxy/httpadapter"
	"github.com/rs/zerolog/log"

	"github.com/fpang/product-craft/internal/api"
	"github.com/fpang/product-craft/internal/chat"
	"github.com/fpang/product-craft/internal/config"
	"github.com/fpang/product-craft/internal/editor"
	"github.com/fpang/product-craft/internal/lambdaboot"
	"github.com/fpang/product-craft/internal/logging"
)

var server *api.Server

func init() {
	initStart := time.Now()
	logging.InitJSON()

	cfg := config.FromEnv()
	clients := lambdaboot.InitAWS()

	ctx := context.Background()
	apiKey, err := lambdaboot.LoadGeminiKey(ctx, clients.SSM)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load Gemini API key")
	}

	textModel := chat.GetTextModelName()
	imageModel := chat.GetImageModelName()

	var copywriter api.Copywriter
	genaiClient, err := chat.NewGeminiClient(ctx, apiKey)
	if err != nil {
		log.Error().Err(err).Msg("Failed to create Gemini client, copy endpoints disabled")
	} else {
		copywriter = chat.NewCopywriter(genaiClient.Models, textModel)
	}

	var archive editor.Archive
	if a := lambdaboot.InitArchive(clients.Config, cfg.Storage.Bucket, cfg.Storage.Table, cfg.Storage.Retention); a != nil {
		archive = a
	}

	server = api.NewServer(api.Config{
		Service:          "productcraft-lambda",
		Backend:          chat.NewGeminiImageClient(apiKey).WithModel(imageModel),
		Archive:          archive,
		Copywriter:       copywriter,
		SessionTTL:       cfg.Session.TTL,
		EditTimeout:      cfg.Session.EditTimeout,
		MaxUpload:        cfg.Session.MaxUpload,
		MetricsNamespace: cfg.Metrics.Namespace,
		AllowedOrigin:    cfg.App.AllowedOrigin,
	})

	ssmParam := os.Getenv("SSM_API_KEY_PARAM")
	if ssmParam == "" {
		ssmParam = lambdaboot.DefaultAPIKeyParam
	}

	// Emit consolidated cold-start log for troubleshooting.
	lambdaboot.StartupLog("productcraft-lambda", initStart).
		CommitHash(commitHash).
		Config("buildTime", buildTime).
		Config("imageModel", imageModel).
		Config("textModel", textModel).
		Config("editTimeout", cfg.Session.EditTimeout.String()).
		S3Bucket("projects", cfg.Storage.Bucket).
		DynamoTable("projects", cfg.Storage.Table).
		SSMParam("geminiApiKey", ssmParam).
		Feature("save", archive != nil).
		Feature("copy", copywriter != nil).
		Feature("metrics", cfg.Metrics.Namespace != "").
		Log()
}

func main() {
	adapter := httpadapter.NewV2(server.Handler())
	lambda.Start(adapter.ProxyWithContext)
}
