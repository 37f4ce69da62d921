package meetings

import (
	"context"
	"fmt"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"

	"github.com/BostonDSA/members/zoom"
)

type mockDetailClient struct {
	details map[int64]*zoom.MeetingDetail
	err     error
	calls   int
}

func (m *mockDetailClient) GetMeeting(ctx context.Context, id int64) (*zoom.MeetingDetail, error) {
	m.calls++
	if m.err != nil {
		return nil, m.err
	}
	d, ok := m.details[id]
	if !ok {
		return nil, fmt.Errorf("meeting %d not found", id)
	}
	return d, nil
}

// passthroughScheduler runs tasks inline, bypassing rate limiting in tests.
type passthroughScheduler struct {
	scheduled int
}

func (p *passthroughScheduler) Schedule(ctx context.Context, task func() error) error {
	p.scheduled++
	return task()
}

func TestResolveStartPicksFirstAvailable(t *testing.T) {
	client := &mockDetailClient{details: map[int64]*zoom.MeetingDetail{
		42: {Occurrences: []zoom.Occurrence{
			{OccurrenceID: "o1", StartTime: "2026-09-02T22:00:00Z", Status: "deleted"},
			{OccurrenceID: "o2", StartTime: "2026-09-09T22:00:00Z", Status: "available"},
			{OccurrenceID: "o3", StartTime: "2026-09-16T22:00:00Z", Status: "available"},
		}},
	}}
	sched := &passthroughScheduler{}
	r := NewOccurrenceResolver(client, sched, zerolog.Nop())

	start, ok := r.ResolveStart(context.Background(), 42)
	assert.True(t, ok)
	assert.Equal(t, "2026-09-09T22:00:00Z", start)
	assert.Equal(t, 1, sched.scheduled)
}

func TestResolveStartNoneAvailable(t *testing.T) {
	client := &mockDetailClient{details: map[int64]*zoom.MeetingDetail{
		42: {Occurrences: []zoom.Occurrence{
			{OccurrenceID: "o1", Status: "deleted"},
		}},
	}}
	r := NewOccurrenceResolver(client, &passthroughScheduler{}, zerolog.Nop())

	_, ok := r.ResolveStart(context.Background(), 42)
	assert.False(t, ok)
}

func TestResolveStartEmptyOccurrences(t *testing.T) {
	client := &mockDetailClient{details: map[int64]*zoom.MeetingDetail{42: {}}}
	r := NewOccurrenceResolver(client, &passthroughScheduler{}, zerolog.Nop())

	_, ok := r.ResolveStart(context.Background(), 42)
	assert.False(t, ok)
}

func TestResolveStartLookupErrorDegrades(t *testing.T) {
	client := &mockDetailClient{err: fmt.Errorf("upstream down")}
	r := NewOccurrenceResolver(client, &passthroughScheduler{}, zerolog.Nop())

	_, ok := r.ResolveStart(context.Background(), 42)
	assert.False(t, ok)
}
