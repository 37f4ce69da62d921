package zoom

// Meeting types, per the Zoom API meeting object.
const (
	// MeetingTypeScheduled is a one-time scheduled meeting.
	MeetingTypeScheduled = 2
	// MeetingTypeRecurringFixed is a recurring meeting with fixed occurrences.
	MeetingTypeRecurringFixed = 8
)

// User is the subset of the Zoom user object the pipeline needs.
type User struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}

// Meeting is a raw scheduled meeting as returned by the list endpoint. For
// recurring meetings StartTime may be stale; the next occurrence is resolved
// from the detail endpoint.
type Meeting struct {
	ID        int64  `json:"id"`
	Topic     string `json:"topic"`
	Type      int    `json:"type"`
	HostID    string `json:"host_id"`
	StartTime string `json:"start_time"`
	Duration  int    `json:"duration"`
	Timezone  string `json:"timezone"`
	JoinURL   string `json:"join_url,omitempty"`
	Agenda    string `json:"agenda,omitempty"`
}

// Occurrence is one concrete scheduled instance of a recurring meeting.
type Occurrence struct {
	OccurrenceID string `json:"occurrence_id"`
	StartTime    string `json:"start_time"`
	Duration     int    `json:"duration"`
	Status       string `json:"status"`
}

// MeetingDetail is the detail endpoint response, including occurrences for
// recurring meetings.
type MeetingDetail struct {
	Meeting
	Occurrences []Occurrence `json:"occurrences"`
}

type meetingListResponse struct {
	PageSize      int       `json:"page_size"`
	TotalRecords  int       `json:"total_records"`
	NextPageToken string    `json:"next_page_token"`
	Meetings      []Meeting `json:"meetings"`
}
