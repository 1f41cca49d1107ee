// Package lambdaboot holds the Lambda cold-start bootstrap: AWS config, the
// project archive, the Gemini key from SSM and the startup log.
package lambdaboot

import (
	"context"
	"os"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/ssm"
	"github.com/rs/zerolog/log"

	"github.com/fpang/product-craft/internal/logging"
	"github.com/fpang/product-craft/internal/store"
)

// DefaultAPIKeyParam is the SSM parameter read when SSM_API_KEY_PARAM is unset.
const DefaultAPIKeyParam = "/product-craft/prod/gemini-api-key"

// AWSClients holds the AWS config and the SSM client.
type AWSClients struct {
	Config aws.Config
	SSM    *ssm.Client
}

// InitAWS loads the default AWS config. Fatals on error.
func InitAWS() AWSClients {
	cfg, err := awsconfig.LoadDefaultConfig(context.Background())
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load AWS config")
	}
	log.Debug().Str("region", cfg.Region).Msg("AWS config loaded")
	return AWSClients{
		Config: cfg,
		SSM:    ssm.NewFromConfig(cfg),
	}
}

// InitArchive builds the S3 + DynamoDB project archive. It returns nil, with a
// warning, when bucket or table is empty so the service runs without Save.
func InitArchive(cfg aws.Config, bucket, table string, retention time.Duration) *store.S3Archive {
	if bucket == "" || table == "" {
		log.Warn().Str("bucket", bucket).Str("table", table).Msg("Project bucket or table not set, saving disabled")
		return nil
	}
	s3Client := s3.NewFromConfig(cfg)
	projects := store.NewDynamoProjectStore(dynamodb.NewFromConfig(cfg), table, retention)
	return store.NewS3Archive(s3Client, s3.NewPresignClient(s3Client), bucket, projects)
}

// ParameterGetter is the SSM call LoadGeminiKey needs.
type ParameterGetter interface {
	GetParameter(ctx context.Context, params *ssm.GetParameterInput, optFns ...func(*ssm.Options)) (*ssm.GetParameterOutput, error)
}

// LoadGeminiKey returns GEMINI_API_KEY, fetching it from SSM Parameter Store
// (and exporting it) when the variable is unset.
func LoadGeminiKey(ctx context.Context, client ParameterGetter) (string, error) {
	if key := os.Getenv("GEMINI_API_KEY"); key != "" {
		return key, nil
	}
	paramName := os.Getenv("SSM_API_KEY_PARAM")
	if paramName == "" {
		paramName = DefaultAPIKeyParam
	}
	ssmStart := time.Now()
	result, err := client.GetParameter(ctx, &ssm.GetParameterInput{
		Name:           &paramName,
		WithDecryption: aws.Bool(true),
	})
	if err != nil {
		return "", err
	}
	key := aws.ToString(result.Parameter.Value)
	os.Setenv("GEMINI_API_KEY", key)
	log.Debug().Str("param", paramName).Dur("elapsed", time.Since(ssmStart)).Msg("Gemini API key loaded from SSM")
	return key, nil
}

// StartupLog starts a startup summary with the elapsed init time.
func StartupLog(name string, initStart time.Time) *logging.StartupLogger {
	return logging.NewStartupLogger(name).InitDuration(time.Since(initStart))
}
