// Package metrics exposes the Prometheus collectors for the aggregation
// pipeline and the portal.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RunsTotal counts aggregation runs by final status.
	RunsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "members_fetch_runs_total",
		Help: "Aggregation runs by status.",
	}, []string{"status"})

	// MeetingsPublished reports how many meetings the last published
	// artifact contained.
	MeetingsPublished = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "members_meetings_published",
		Help: "Meetings in the last published artifact.",
	})

	// AccountFailures counts per-account fetch failures that degraded to an
	// empty contribution.
	AccountFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "members_account_fetch_failures_total",
		Help: "Account-level fetch failures.",
	})

	// InviteRequests counts Slack invite requests submitted through the
	// portal.
	InviteRequests = promauto.NewCounter(prometheus.CounterOpts{
		Name: "members_slack_invite_requests_total",
		Help: "Slack invite requests submitted.",
	})
)
