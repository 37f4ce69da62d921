// Command portal serves the member web portal. With fetch_enabled it also
// runs the daily meeting fetch in-process on a cron schedule.
package main

import (
	"context"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/rs/zerolog"

	"github.com/BostonDSA/members/config"
	"github.com/BostonDSA/members/logger"
	"github.com/BostonDSA/members/meetings"
	"github.com/BostonDSA/members/portal"
	"github.com/BostonDSA/members/publish"
	"github.com/BostonDSA/members/ratelimit"
	"github.com/BostonDSA/members/scheduler"
	"github.com/BostonDSA/members/secrets"
	slackinvite "github.com/BostonDSA/members/slack"
	"github.com/BostonDSA/members/storage"
	"github.com/BostonDSA/members/zoom"
)

func main() {
	cfgPath := flag.String("config", "./config.yaml", "path to config file")
	flag.Parse()

	log := logger.New("portal", "info")

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		log.Error().Err(err).Msg("failed to load config")
		os.Exit(1)
	}
	log = logger.New("portal", cfg.LogLevel)

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

	store, err := storage.New(cfg.DBPath)
	if err != nil {
		log.Error().Err(err).Msg("failed to initialize storage")
		os.Exit(1)
	}
	defer store.Close()

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

	idp := portal.NewOIDCClient(cfg.Portal.IssuerURL, cfg.Portal.ClientID, cfg.Portal.ClientSecret, cfg.Portal.RedirectURL)
	lookup := slackinvite.NewWebLookup(cfg.Slack.Token)
	inviter := slackinvite.NewInviter(sns.NewFromConfig(awsCfg), cfg.AWS.SlackTopicARN, cfg.Slack.InviteChannel, log)

	srv, err := portal.New(cfg, idp, lookup, inviter, store, sink, log)
	if err != nil {
		log.Error().Err(err).Msg("failed to create portal server")
		os.Exit(1)
	}

	if cfg.Portal.FetchEnabled {
		sched, err := startFetchSchedule(cfg, awsCfg, sink, store, log)
		if err != nil {
			log.Error().Err(err).Msg("failed to schedule fetch")
			os.Exit(1)
		}
		defer sched.Stop()
	}

	httpServer := &http.Server{
		Addr:    cfg.Portal.Addr,
		Handler: srv.Routes(),
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigCh
		log.Info().Str("signal", sig.String()).Msg("received signal, shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("shutdown failed")
		}
	}()

	log.Info().Str("addr", cfg.Portal.Addr).Msg("portal listening")
	if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Error().Err(err).Msg("portal stopped with error")
		os.Exit(1)
	}
	log.Info().Msg("shutdown complete")
}

// startFetchSchedule wires the aggregation pipeline and schedules it daily.
func startFetchSchedule(cfg config.Config, awsCfg aws.Config, sink publish.Sink, store *storage.Store, log zerolog.Logger) (*scheduler.Scheduler, error) {
	tokens, err := zoom.NewTokenSource(cfg.Zoom)
	if err != nil {
		return nil, err
	}

	timeout := time.Duration(cfg.FetchTimeoutSec) * time.Second
	client := zoom.NewClientWithBaseURL(tokens, cfg.Zoom.BaseURL, timeout)

	limiter := ratelimit.New(ratelimit.Config{
		Reservoir:  cfg.RateLimit.Reservoir,
		Interval:   time.Duration(cfg.RateLimit.IntervalMS) * time.Millisecond,
		MinSpacing: time.Duration(cfg.RateLimit.MinSpacingMS) * time.Millisecond,
	})

	resolver := meetings.NewOccurrenceResolver(client, limiter, log)
	normalizer := meetings.NewNormalizer(resolver, cfg.HorizonDays, log)
	fetcher := meetings.NewAccountFetcher(client, normalizer, cfg.PageSize, log)
	agg := meetings.NewAggregator(fetcher, meetings.AccountsFromConfig(cfg.Accounts), sink, tokens, store, cfg.AWS.ArtifactKey, log)

	sched, err := scheduler.New(cfg.Timezone, log)
	if err != nil {
		return nil, err
	}
	if err := sched.Schedule(cfg.FetchTime, func() {
		if _, err := agg.Run(context.Background()); err != nil {
			log.Error().Err(err).Msg("scheduled fetch failed")
		}
	}); err != nil {
		return nil, err
	}
	sched.Start()
	return sched, nil
}
