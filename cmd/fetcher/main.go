// Command fetcher runs one aggregation cycle: it pulls upcoming meetings
// from every configured Zoom account and publishes the combined listing.
package main

import (
	"context"
	"flag"
	"os"
	"time"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"

	"github.com/BostonDSA/members/config"
	"github.com/BostonDSA/members/logger"
	"github.com/BostonDSA/members/meetings"
	"github.com/BostonDSA/members/publish"
	"github.com/BostonDSA/members/ratelimit"
	"github.com/BostonDSA/members/secrets"
	"github.com/BostonDSA/members/storage"
	"github.com/BostonDSA/members/zoom"
)

func main() {
	cfgPath := flag.String("config", "./config.yaml", "path to config file")
	flag.Parse()

	log := logger.New("fetcher", "info")

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		log.Error().Err(err).Msg("failed to load config")
		os.Exit(1)
	}
	log = logger.New("fetcher", cfg.LogLevel)
	log.Info().Int("accounts", len(cfg.Accounts)).Int("horizon_days", cfg.HorizonDays).Msg("config loaded")

	ctx := context.Background()

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx)
	if err != nil {
		log.Error().Err(err).Msg("failed to load AWS config")
		os.Exit(1)
	}

	if cfg.AWS.SecretID != "" {
		values, err := secrets.NewManager(secretsmanager.NewFromConfig(awsCfg)).Fetch(ctx, cfg.AWS.SecretID)
		if err != nil {
			log.Error().Err(err).Msg("failed to fetch secrets")
			os.Exit(1)
		}
		cfg.ApplySecrets(values)
	}

	tokens, err := zoom.NewTokenSource(cfg.Zoom)
	if err != nil {
		log.Error().Err(err).Msg("failed to build token source")
		os.Exit(1)
	}

	timeout := time.Duration(cfg.FetchTimeoutSec) * time.Second
	client := zoom.NewClientWithBaseURL(tokens, cfg.Zoom.BaseURL, timeout)

	limiter := ratelimit.New(ratelimit.Config{
		Reservoir:  cfg.RateLimit.Reservoir,
		Interval:   time.Duration(cfg.RateLimit.IntervalMS) * time.Millisecond,
		MinSpacing: time.Duration(cfg.RateLimit.MinSpacingMS) * time.Millisecond,
	})
	defer limiter.Close()

	resolver := meetings.NewOccurrenceResolver(client, limiter, log)
	normalizer := meetings.NewNormalizer(resolver, cfg.HorizonDays, log)
	fetcher := meetings.NewAccountFetcher(client, normalizer, cfg.PageSize, log)

	var sink publish.Sink
	if cfg.AWS.LocalDir != "" {
		sink, err = publish.NewFileSink(cfg.AWS.LocalDir)
		if err != nil {
			log.Error().Err(err).Msg("failed to create local sink")
			os.Exit(1)
		}
	} else {
		sink = publish.NewS3Sink(s3.NewFromConfig(awsCfg), cfg.AWS.Bucket)
	}

	store, err := storage.New(cfg.DBPath)
	if err != nil {
		log.Error().Err(err).Msg("failed to initialize storage")
		os.Exit(1)
	}
	defer store.Close()

	agg := meetings.NewAggregator(fetcher, meetings.AccountsFromConfig(cfg.Accounts), sink, tokens, store, cfg.AWS.ArtifactKey, log)

	if _, err := agg.Run(ctx); err != nil {
		log.Error().Err(err).Msg("fetch run failed")
		os.Exit(1)
	}
}
