package meetings

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/BostonDSA/members/zoom"
)

// ErrNotSoon marks a meeting rejected because its resolved start time falls
// outside the relevance window, or could not be determined at all. Callers
// skip such meetings without aborting the batch.
var ErrNotSoon = errors.New("meeting is not soon")

// Display layouts for the decorated fields.
const (
	timeLayout      = "3:04 PM"
	medDateLayout   = "Jan 2, 2006"
	shortDateLayout = "20060102"
)

// StartResolver yields the next actionable start time for a recurring
// meeting, or false when none could be determined.
type StartResolver interface {
	ResolveStart(ctx context.Context, meetingID int64) (string, bool)
}

// Normalizer converts raw meetings into DecoratedMeetings, rejecting those
// outside the relevance window: (now-1d, now+horizon) evaluated in the
// meeting's own timezone.
type Normalizer struct {
	resolver    StartResolver
	horizonDays int
	now         func() time.Time
	log         zerolog.Logger
}

// NewNormalizer creates a Normalizer with the given occurrence resolver and
// horizon in days.
func NewNormalizer(resolver StartResolver, horizonDays int, log zerolog.Logger) *Normalizer {
	return &Normalizer{
		resolver:    resolver,
		horizonDays: horizonDays,
		now:         time.Now,
		log:         log,
	}
}

// Normalize decorates a raw meeting for the given account label. The input
// is never mutated; for recurring meetings the resolved occurrence start
// replaces the possibly stale list start before decoration. Rejections are
// reported as errors matching ErrNotSoon.
func (n *Normalizer) Normalize(ctx context.Context, m zoom.Meeting, account string) (DecoratedMeeting, error) {
	if m.Type == zoom.MeetingTypeRecurringFixed && n.resolver != nil {
		n.log.Debug().Int64("meeting_id", m.ID).Str("account", account).Msg("recurring meeting, resolving next occurrence")
		if start, ok := n.resolver.ResolveStart(ctx, m.ID); ok {
			m.StartTime = start
		}
	}

	loc, err := time.LoadLocation(m.Timezone)
	if err != nil {
		return DecoratedMeeting{}, fmt.Errorf("meeting %d has invalid timezone %q: %w", m.ID, m.Timezone, ErrNotSoon)
	}

	start, err := time.Parse(time.RFC3339, m.StartTime)
	if err != nil {
		return DecoratedMeeting{}, fmt.Errorf("meeting %d has unparsable start time %q: %w", m.ID, m.StartTime, ErrNotSoon)
	}
	start = start.In(loc)

	now := n.now().In(loc)
	lower := now.AddDate(0, 0, -1)
	upper := now.AddDate(0, 0, n.horizonDays)
	if !start.After(lower) || !start.Before(upper) {
		return DecoratedMeeting{}, ErrNotSoon
	}

	end := start.Add(time.Duration(m.Duration) * time.Minute)

	return DecoratedMeeting{
		Meeting:     m,
		TimeRange:   start.Format(timeLayout) + "–" + end.Format(timeLayout),
		MedDate:     start.Format(medDateLayout),
		ZoomAccount: account,
		ShortDate:   start.Format(shortDateLayout),
		Millis:      start.UnixMilli(),
	}, nil
}
