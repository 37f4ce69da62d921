package meetings

import (
	"context"
	"fmt"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BostonDSA/members/zoom"
)

type mockListClient struct {
	users    map[string]*zoom.User
	meetings map[string][]zoom.Meeting
	userErr  error
	listErr  error
}

func (m *mockListClient) GetUser(ctx context.Context, email string) (*zoom.User, error) {
	if m.userErr != nil {
		return nil, m.userErr
	}
	u, ok := m.users[email]
	if !ok {
		return nil, fmt.Errorf("user %s not found", email)
	}
	return u, nil
}

func (m *mockListClient) ListMeetings(ctx context.Context, email string, pageSize int) ([]zoom.Meeting, error) {
	if m.listErr != nil {
		return nil, m.listErr
	}
	return m.meetings[email], nil
}

// acceptAllNormalizer decorates every meeting it sees, recording the account
// labels passed to it.
type acceptAllNormalizer struct {
	rejectIDs map[int64]error
	accounts  []string
}

func (n *acceptAllNormalizer) Normalize(ctx context.Context, m zoom.Meeting, account string) (DecoratedMeeting, error) {
	n.accounts = append(n.accounts, account)
	if err, ok := n.rejectIDs[m.ID]; ok {
		return DecoratedMeeting{}, err
	}
	return DecoratedMeeting{Meeting: m, ZoomAccount: account}, nil
}

func TestFetchAccountFiltersCrossPosted(t *testing.T) {
	client := &mockListClient{
		users: map[string]*zoom.User{"info@bostondsa.org": {ID: "u-1"}},
		meetings: map[string][]zoom.Meeting{
			"info@bostondsa.org": {
				{ID: 1, Topic: "Hosted here", HostID: "u-1"},
				{ID: 2, Topic: "Cross-posted", HostID: "u-other"},
				{ID: 3, Topic: "Also hosted here", HostID: "u-1"},
			},
		},
	}
	f := NewAccountFetcher(client, &acceptAllNormalizer{}, 300, zerolog.Nop())

	got := f.FetchAccount(context.Background(), "1", "info@bostondsa.org")
	require.Len(t, got, 2)
	assert.Equal(t, int64(1), got[0].ID)
	assert.Equal(t, int64(3), got[1].ID)
}

func TestFetchAccountSkipsRejectedMeetings(t *testing.T) {
	client := &mockListClient{
		users: map[string]*zoom.User{"info@bostondsa.org": {ID: "u-1"}},
		meetings: map[string][]zoom.Meeting{
			"info@bostondsa.org": {
				{ID: 1, HostID: "u-1"},
				{ID: 2, HostID: "u-1"},
				{ID: 3, HostID: "u-1"},
			},
		},
	}
	normalizer := &acceptAllNormalizer{rejectIDs: map[int64]error{2: ErrNotSoon}}
	f := NewAccountFetcher(client, normalizer, 300, zerolog.Nop())

	got := f.FetchAccount(context.Background(), "1", "info@bostondsa.org")
	require.Len(t, got, 2)
	assert.Equal(t, int64(1), got[0].ID)
	assert.Equal(t, int64(3), got[1].ID)
}

func TestFetchAccountUserLookupFailure(t *testing.T) {
	client := &mockListClient{userErr: fmt.Errorf("upstream down")}
	f := NewAccountFetcher(client, &acceptAllNormalizer{}, 300, zerolog.Nop())

	got := f.FetchAccount(context.Background(), "1", "info@bostondsa.org")
	assert.Empty(t, got)
}

func TestFetchAccountListFailure(t *testing.T) {
	client := &mockListClient{
		users:   map[string]*zoom.User{"info@bostondsa.org": {ID: "u-1"}},
		listErr: fmt.Errorf("timeout"),
	}
	f := NewAccountFetcher(client, &acceptAllNormalizer{}, 300, zerolog.Nop())

	got := f.FetchAccount(context.Background(), "1", "info@bostondsa.org")
	assert.Empty(t, got)
}

func TestFetchAccountPassesLabel(t *testing.T) {
	client := &mockListClient{
		users:    map[string]*zoom.User{"treasurer@bostondsa.org": {ID: "u-2"}},
		meetings: map[string][]zoom.Meeting{"treasurer@bostondsa.org": {{ID: 9, HostID: "u-2"}}},
	}
	normalizer := &acceptAllNormalizer{}
	f := NewAccountFetcher(client, normalizer, 300, zerolog.Nop())

	got := f.FetchAccount(context.Background(), "2", "treasurer@bostondsa.org")
	require.Len(t, got, 1)
	assert.Equal(t, []string{"2"}, normalizer.accounts)
	assert.Equal(t, "2", got[0].ZoomAccount)
}
