package meetings

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	json "github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/BostonDSA/members/metrics"
)

// Account pairs a display label with the Zoom account email it covers.
type Account struct {
	Label string
	Email string
}

// AccountsFromConfig turns the configured label→email map into a slice in
// ascending label order, so flattening is deterministic across runs.
func AccountsFromConfig(accounts map[string]string) []Account {
	labels := make([]string, 0, len(accounts))
	for label := range accounts {
		labels = append(labels, label)
	}
	sort.Strings(labels)

	out := make([]Account, len(labels))
	for i, label := range labels {
		out[i] = Account{Label: label, Email: accounts[label]}
	}
	return out
}

// Fetcher retrieves one account's decorated meetings.
type Fetcher interface {
	FetchAccount(ctx context.Context, label, email string) []DecoratedMeeting
}

// Sink stores the serialized artifact.
type Sink interface {
	Put(ctx context.Context, key string, body []byte) error
}

// TokenPreflight mints the bearer token the fetchers will use. A failure
// here is fatal to the run.
type TokenPreflight interface {
	Token(ctx context.Context) (string, error)
}

// RunRecord summarizes one aggregation run for the history log.
type RunRecord struct {
	ID         string
	StartedAt  time.Time
	FinishedAt time.Time
	Accounts   int
	Meetings   int
	Status     string
	Error      string
}

// RunSaver persists run records. Saving is best-effort; failures are logged
// and never fail the run.
type RunSaver interface {
	SaveRun(rec RunRecord) error
}

// Aggregator runs the full pipeline: token preflight, concurrent account
// fan-out, deterministic sort and bucketing, and artifact publication.
type Aggregator struct {
	fetcher     Fetcher
	accounts    []Account
	sink        Sink
	tokens      TokenPreflight
	runs        RunSaver
	artifactKey string
	log         zerolog.Logger
}

// NewAggregator creates an Aggregator. tokens and runs may be nil, in which
// case the preflight and the run history are skipped.
func NewAggregator(fetcher Fetcher, accounts []Account, sink Sink, tokens TokenPreflight, runs RunSaver, artifactKey string, log zerolog.Logger) *Aggregator {
	return &Aggregator{
		fetcher:     fetcher,
		accounts:    accounts,
		sink:        sink,
		tokens:      tokens,
		runs:        runs,
		artifactKey: artifactKey,
		log:         log,
	}
}

// Run executes one aggregation cycle and publishes the replacement artifact.
// A single account's total failure does not fail the run; serialization and
// publish failures do.
func (a *Aggregator) Run(ctx context.Context) (*AggregateResult, error) {
	started := time.Now()
	runID := uuid.NewString()
	log := a.log.With().Str("run_id", runID).Logger()

	if a.tokens != nil {
		if _, err := a.tokens.Token(ctx); err != nil {
			a.record(log, runID, started, 0, "failed", err)
			return nil, fmt.Errorf("obtaining access token: %w", err)
		}
	}

	results := make([][]DecoratedMeeting, len(a.accounts))
	var wg sync.WaitGroup
	for i, acct := range a.accounts {
		wg.Add(1)
		go func(i int, acct Account) {
			defer wg.Done()
			log.Info().Str("account", acct.Label).Msg("fetching meetings")
			results[i] = a.fetcher.FetchAccount(ctx, acct.Label, acct.Email)
		}(i, acct)
	}
	wg.Wait()
	log.Info().Msg("all accounts fetched, assembling data")

	var all []DecoratedMeeting
	for _, rs := range results {
		all = append(all, rs...)
	}

	// Stable sort: ties keep their arrival order (account order, then
	// upstream list order within an account).
	sort.SliceStable(all, func(i, j int) bool { return all[i].Millis < all[j].Millis })

	result := Bucket(all)

	body, err := json.Marshal(result)
	if err != nil {
		a.record(log, runID, started, len(all), "failed", err)
		return nil, fmt.Errorf("serializing aggregate result: %w", err)
	}

	if err := a.sink.Put(ctx, a.artifactKey, body); err != nil {
		a.record(log, runID, started, len(all), "failed", err)
		return nil, fmt.Errorf("publishing %s: %w", a.artifactKey, err)
	}

	a.record(log, runID, started, len(all), "succeeded", nil)
	metrics.MeetingsPublished.Set(float64(len(all)))
	log.Info().Int("meetings", len(all)).Int("dates", len(result.Dates)).Str("key", a.artifactKey).Msg("aggregate published")
	return result, nil
}

// Bucket groups millis-sorted meetings by short date. Within each bucket the
// input order is preserved; the date keys come out sorted and de-duplicated.
func Bucket(sorted []DecoratedMeeting) *AggregateResult {
	result := &AggregateResult{
		Meetings: make(map[string][]DecoratedMeeting),
		Dates:    []string{},
	}
	for _, m := range sorted {
		if _, ok := result.Meetings[m.ShortDate]; !ok {
			result.Dates = append(result.Dates, m.ShortDate)
		}
		result.Meetings[m.ShortDate] = append(result.Meetings[m.ShortDate], m)
	}
	sort.Strings(result.Dates)
	return result
}

func (a *Aggregator) record(log zerolog.Logger, runID string, started time.Time, meetings int, status string, runErr error) {
	metrics.RunsTotal.WithLabelValues(status).Inc()
	if a.runs == nil {
		return
	}

	rec := RunRecord{
		ID:         runID,
		StartedAt:  started,
		FinishedAt: time.Now(),
		Accounts:   len(a.accounts),
		Meetings:   meetings,
		Status:     status,
	}
	if runErr != nil {
		rec.Error = runErr.Error()
	}
	if err := a.runs.SaveRun(rec); err != nil {
		log.Error().Err(err).Msg("failed to record run")
	}
}
