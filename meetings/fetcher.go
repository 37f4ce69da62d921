package meetings

import (
	"context"
	"errors"

	"github.com/rs/zerolog"

	"github.com/BostonDSA/members/metrics"
	"github.com/BostonDSA/members/zoom"
)

// ListClient is the slice of the Zoom API used when fetching an account's
// meeting list.
type ListClient interface {
	GetUser(ctx context.Context, email string) (*zoom.User, error)
	ListMeetings(ctx context.Context, email string, pageSize int) ([]zoom.Meeting, error)
}

// MeetingNormalizer decorates raw meetings, rejecting those outside the
// relevance window.
type MeetingNormalizer interface {
	Normalize(ctx context.Context, m zoom.Meeting, account string) (DecoratedMeeting, error)
}

// AccountFetcher retrieves and normalizes one account's meetings. Failures
// degrade to an empty contribution; they never propagate to the caller.
type AccountFetcher struct {
	client     ListClient
	normalizer MeetingNormalizer
	pageSize   int
	log        zerolog.Logger
}

// NewAccountFetcher creates an AccountFetcher requesting up to pageSize
// meetings per account.
func NewAccountFetcher(client ListClient, normalizer MeetingNormalizer, pageSize int, log zerolog.Logger) *AccountFetcher {
	return &AccountFetcher{
		client:     client,
		normalizer: normalizer,
		pageSize:   pageSize,
		log:        log,
	}
}

// FetchAccount resolves the account's upstream identity, lists its meetings,
// drops entries hosted elsewhere (cross-posted duplicates), and normalizes
// the rest. One bad meeting never drops the rest of the batch.
func (f *AccountFetcher) FetchAccount(ctx context.Context, label, email string) []DecoratedMeeting {
	log := f.log.With().Str("account", label).Logger()

	user, err := f.client.GetUser(ctx, email)
	if err != nil {
		log.Error().Err(err).Msg("account lookup failed")
		metrics.AccountFailures.Inc()
		return nil
	}

	list, err := f.client.ListMeetings(ctx, email, f.pageSize)
	if err != nil {
		log.Error().Err(err).Msg("meeting list fetch failed")
		metrics.AccountFailures.Inc()
		return nil
	}

	var accepted []DecoratedMeeting
	for _, m := range list {
		if m.HostID != user.ID {
			log.Debug().Int64("meeting_id", m.ID).Str("topic", m.Topic).Msg("skipping meeting hosted by another account")
			continue
		}

		dm, err := f.normalizer.Normalize(ctx, m, label)
		if err != nil {
			if errors.Is(err, ErrNotSoon) {
				log.Debug().Str("topic", m.Topic).Str("start_time", m.StartTime).Msg("skipping meeting outside window")
			} else {
				log.Error().Err(err).Str("topic", m.Topic).Msg("skipping meeting")
			}
			continue
		}
		accepted = append(accepted, dm)
	}

	log.Info().Int("meetings", len(accepted)).Msg("fetched account meetings")
	return accepted
}
