// Package meetings implements the aggregation pipeline: it fans out across
// the configured Zoom accounts, resolves next occurrences for recurring
// meetings, filters to the relevance window, de-duplicates cross-posted
// entries, and produces the date-bucketed artifact the portal renders.
package meetings

import (
	"github.com/BostonDSA/members/zoom"
)

// DecoratedMeeting wraps a raw meeting with the display and sort fields
// computed at normalization time. It is never mutated after construction.
type DecoratedMeeting struct {
	zoom.Meeting

	// TimeRange is the formatted start and end time joined by an en-dash.
	TimeRange string `json:"time_range"`
	// MedDate is the medium-verbosity date string for display.
	MedDate string `json:"med_date"`
	// ZoomAccount is the configured account label the meeting came from.
	ZoomAccount string `json:"zoom_account"`
	// ShortDate is the zero-padded YYYYMMDD bucketing key.
	ShortDate string `json:"short_date"`
	// Millis is the resolved start in epoch milliseconds, the canonical
	// sort key.
	Millis int64 `json:"millis"`
}

// AggregateResult is the published artifact: meetings bucketed by short
// date, chronological within each bucket, plus the ordered date keys.
type AggregateResult struct {
	Meetings map[string][]DecoratedMeeting `json:"meetings"`
	Dates    []string                      `json:"dates"`
}
