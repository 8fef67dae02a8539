package metrics

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"

	"docreview/internal/models"
)

var (
	submissionsDesc = prometheus.NewDesc(
		"docreview_submissions",
		"Current number of submissions by status",
		[]string{"status"},
		nil,
	)

	reviewsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "docreview_reviews_total",
			Help: "Total review decisions recorded by outcome",
		},
		[]string{"decision"},
	)

	notificationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "docreview_notifications_total",
			Help: "Total notification emails by event and outcome",
		},
		[]string{"event", "outcome"},
	)

	sweptUploadsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "docreview_swept_uploads_total",
			Help: "Total orphaned upload files removed by the sweeper",
		},
	)
)

// StatusCounter is satisfied by the submission store.
type StatusCounter interface {
	CountByStatus(ctx context.Context, ownerID *uuid.UUID) (models.StatusCounts, error)
}

// SubmissionCollector is a custom Prometheus collector that reads submission
// counts from the database on each scrape.
type SubmissionCollector struct {
	store StatusCounter
}

// Describe sends the metric descriptor to the channel.
func (c *SubmissionCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- submissionsDesc
}

// Collect queries the store for per-status counts and emits them as gauges.
func (c *SubmissionCollector) Collect(ch chan<- prometheus.Metric) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	counts, err := c.store.CountByStatus(ctx, nil)
	if err != nil {
		slog.Error("failed to collect submission metrics", "error", err)
		return
	}
	for status, n := range map[models.Status]int{
		models.StatusPending:  counts.Pending,
		models.StatusApproved: counts.Approved,
		models.StatusRejected: counts.Rejected,
	} {
		ch <- prometheus.MustNewConstMetric(submissionsDesc, prometheus.GaugeValue, float64(n), string(status))
	}
}

var initOnce sync.Once

// Init registers the collector and counters. Must be called once at startup.
func Init(store StatusCounter) {
	initOnce.Do(func() {
		prometheus.MustRegister(
			&SubmissionCollector{store: store},
			reviewsTotal,
			notificationsTotal,
			sweptUploadsTotal,
		)
	})
}

// RecordReview counts a recorded review decision.
func RecordReview(status models.Status) {
	reviewsTotal.WithLabelValues(string(status)).Inc()
}

// RecordNotification counts a notification attempt; outcome is "sent",
// "failed" or "skipped".
func RecordNotification(event, outcome string) {
	notificationsTotal.WithLabelValues(event, outcome).Inc()
}

// RecordSweptUploads counts files removed by the upload sweeper.
func RecordSweptUploads(n int) {
	sweptUploadsTotal.Add(float64(n))
}
