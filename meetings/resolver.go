package meetings

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/BostonDSA/members/zoom"
)

// occurrenceAvailable is the occurrence status that marks an instance as
// still actionable.
const occurrenceAvailable = "available"

// Scheduler admits rate-limited work in submission order.
type Scheduler interface {
	Schedule(ctx context.Context, task func() error) error
}

// DetailClient is the slice of the Zoom API the resolver uses.
type DetailClient interface {
	GetMeeting(ctx context.Context, id int64) (*zoom.MeetingDetail, error)
}

// OccurrenceResolver determines the next actionable start time for a
// recurring meeting by querying its detail through the shared rate limiter.
type OccurrenceResolver struct {
	client  DetailClient
	limiter Scheduler
	log     zerolog.Logger
}

// NewOccurrenceResolver creates a resolver that issues detail lookups
// through the given limiter.
func NewOccurrenceResolver(client DetailClient, limiter Scheduler, log zerolog.Logger) *OccurrenceResolver {
	return &OccurrenceResolver{client: client, limiter: limiter, log: log}
}

// ResolveStart returns the start time of the first occurrence in upstream
// order whose status is available. Lookup errors are logged and yield
// ("", false), leaving the caller to fall back to the meeting's own start.
func (r *OccurrenceResolver) ResolveStart(ctx context.Context, meetingID int64) (string, bool) {
	var detail *zoom.MeetingDetail
	err := r.limiter.Schedule(ctx, func() error {
		d, err := r.client.GetMeeting(ctx, meetingID)
		if err != nil {
			return err
		}
		detail = d
		return nil
	})
	if err != nil {
		r.log.Error().Err(err).Int64("meeting_id", meetingID).Msg("occurrence lookup failed")
		return "", false
	}

	for _, occ := range detail.Occurrences {
		if occ.Status == occurrenceAvailable {
			return occ.StartTime, true
		}
	}
	return "", false
}
