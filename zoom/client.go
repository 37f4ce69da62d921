// Package zoom is a minimal client for the Zoom REST API v2, covering the
// user, meeting-list, and meeting-detail endpoints the aggregation pipeline
// uses. All calls are bearer-authenticated through a TokenSource.
package zoom

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/go-resty/resty/v2"
	json "github.com/goccy/go-json"
)

// BaseURL is the production Zoom API endpoint.
const BaseURL = "https://api.zoom.us/v2"

// Client interface for Zoom API operations.
type Client interface {
	GetUser(ctx context.Context, email string) (*User, error)
	ListMeetings(ctx context.Context, email string, pageSize int) ([]Meeting, error)
	GetMeeting(ctx context.Context, id int64) (*MeetingDetail, error)
}

type apiClient struct {
	http   *resty.Client
	tokens TokenSource
}

// NewClient creates a Zoom API client with the given token source and
// per-call timeout.
func NewClient(tokens TokenSource, timeout time.Duration) Client {
	return NewClientWithBaseURL(tokens, BaseURL, timeout)
}

// NewClientWithBaseURL creates a client against a custom base URL (for testing).
func NewClientWithBaseURL(tokens TokenSource, baseURL string, timeout time.Duration) Client {
	return &apiClient{
		http:   resty.New().SetBaseURL(baseURL).SetTimeout(timeout),
		tokens: tokens,
	}
}

func (c *apiClient) get(ctx context.Context, path string, query map[string]string) ([]byte, error) {
	token, err := c.tokens.Token(ctx)
	if err != nil {
		return nil, fmt.Errorf("obtaining token: %w", err)
	}

	req := c.http.R().SetContext(ctx).SetAuthToken(token)
	if len(query) > 0 {
		req.SetQueryParams(query)
	}

	resp, err := req.Get(path)
	if err != nil {
		return nil, fmt.Errorf("requesting %s: %w", path, err)
	}
	if resp.StatusCode() == http.StatusNotFound {
		return nil, fmt.Errorf("%s not found", path)
	}
	if resp.StatusCode() != http.StatusOK {
		return nil, fmt.Errorf("%s returned status %d", path, resp.StatusCode())
	}
	return resp.Body(), nil
}

// GetUser resolves a user by email, returning its upstream identifier.
func (c *apiClient) GetUser(ctx context.Context, email string) (*User, error) {
	body, err := c.get(ctx, "/users/"+url.PathEscape(email), nil)
	if err != nil {
		return nil, fmt.Errorf("fetching user %s: %w", email, err)
	}

	var u User
	if err := json.Unmarshal(body, &u); err != nil {
		return nil, fmt.Errorf("decoding user %s: %w", email, err)
	}
	return &u, nil
}

// ListMeetings fetches the account's scheduled meetings. A single page of up
// to pageSize entries is requested; the next-page cursor is not followed.
func (c *apiClient) ListMeetings(ctx context.Context, email string, pageSize int) ([]Meeting, error) {
	body, err := c.get(ctx, "/users/"+url.PathEscape(email)+"/meetings", map[string]string{
		"page_size": strconv.Itoa(pageSize),
	})
	if err != nil {
		return nil, fmt.Errorf("fetching meetings for %s: %w", email, err)
	}

	var list meetingListResponse
	if err := json.Unmarshal(body, &list); err != nil {
		return nil, fmt.Errorf("decoding meetings for %s: %w", email, err)
	}
	return list.Meetings, nil
}

// GetMeeting fetches a single meeting's detail, including occurrences.
func (c *apiClient) GetMeeting(ctx context.Context, id int64) (*MeetingDetail, error) {
	body, err := c.get(ctx, "/meetings/"+strconv.FormatInt(id, 10), nil)
	if err != nil {
		return nil, fmt.Errorf("fetching meeting %d: %w", id, err)
	}

	var d MeetingDetail
	if err := json.Unmarshal(body, &d); err != nil {
		return nil, fmt.Errorf("decoding meeting %d: %w", id, err)
	}
	return &d, nil
}
