package zoom

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type staticTokens struct {
	token string
	err   error
}

func (s *staticTokens) Token(ctx context.Context) (string, error) {
	return s.token, s.err
}

func newTestClient(t *testing.T, handler http.Handler) Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClientWithBaseURL(&staticTokens{token: "test-token"}, srv.URL, 5*time.Second)
}

func TestGetUser(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/users/info@bostondsa.org", r.URL.Path)
		assert.Equal(t, "Bearer test-token", r.Header.Get("Authorization"))
		fmt.Fprint(w, `{"id":"u-123","email":"info@bostondsa.org"}`)
	}))

	user, err := client.GetUser(context.Background(), "info@bostondsa.org")
	require.NoError(t, err)
	assert.Equal(t, "u-123", user.ID)
	assert.Equal(t, "info@bostondsa.org", user.Email)
}

func TestGetUserNotFound(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))

	_, err := client.GetUser(context.Background(), "nobody@bostondsa.org")
	assert.ErrorContains(t, err, "not found")
}

func TestListMeetings(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/users/info@bostondsa.org/meetings", r.URL.Path)
		assert.Equal(t, "300", r.URL.Query().Get("page_size"))
		fmt.Fprint(w, `{
			"page_size": 300,
			"total_records": 2,
			"meetings": [
				{"id": 1, "topic": "General Meeting", "type": 2, "host_id": "u-123",
				 "start_time": "2026-09-01T23:00:00Z", "duration": 90, "timezone": "America/New_York"},
				{"id": 2, "topic": "Tech Committee", "type": 8, "host_id": "u-123",
				 "start_time": "2026-01-01T00:00:00Z", "duration": 60, "timezone": "America/New_York"}
			]
		}`)
	}))

	meetings, err := client.ListMeetings(context.Background(), "info@bostondsa.org", 300)
	require.NoError(t, err)
	require.Len(t, meetings, 2)
	assert.Equal(t, "General Meeting", meetings[0].Topic)
	assert.Equal(t, MeetingTypeRecurringFixed, meetings[1].Type)
}

func TestGetMeeting(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/meetings/42", r.URL.Path)
		fmt.Fprint(w, `{
			"id": 42, "topic": "Tech Committee", "type": 8,
			"occurrences": [
				{"occurrence_id": "o1", "start_time": "2026-09-02T22:00:00Z", "duration": 60, "status": "deleted"},
				{"occurrence_id": "o2", "start_time": "2026-09-09T22:00:00Z", "duration": 60, "status": "available"}
			]
		}`)
	}))

	detail, err := client.GetMeeting(context.Background(), 42)
	require.NoError(t, err)
	require.Len(t, detail.Occurrences, 2)
	assert.Equal(t, "deleted", detail.Occurrences[0].Status)
	assert.Equal(t, "available", detail.Occurrences[1].Status)
}

func TestGetMeetingServerError(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))

	_, err := client.GetMeeting(context.Background(), 42)
	assert.ErrorContains(t, err, "status 500")
}

func TestTokenSourceFailurePropagates(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("no request expected when token minting fails")
	}))
	defer srv.Close()

	client := NewClientWithBaseURL(&staticTokens{err: fmt.Errorf("no credentials")}, srv.URL, time.Second)
	_, err := client.GetUser(context.Background(), "info@bostondsa.org")
	assert.ErrorContains(t, err, "no credentials")
}
