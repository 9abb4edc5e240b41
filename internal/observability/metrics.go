package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// ContentEvents counts post and comment mutations by kind and action.
	ContentEvents = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "poetportal_content_events_total",
		Help: "Total number of post and comment mutations",
	}, []string{"kind", "action"})

	// GraphEvents counts follow and like mutations by edge kind and action.
	GraphEvents = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "poetportal_graph_events_total",
		Help: "Total number of follow and like mutations",
	}, []string{"edge", "action"})

	// AuthAttempts counts register and login attempts by outcome.
	AuthAttempts = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "poetportal_auth_attempts_total",
		Help: "Total number of authentication attempts by outcome",
	}, []string{"operation", "outcome"})

	// RedisErrorRate counts Redis errors by operation type.
	RedisErrorRate = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "poetportal_redis_error_rate_total",
		Help: "Total number of Redis errors by operation type",
	}, []string{"operation"})

	// CommentTreeFaults counts comments dropped from a tree because their
	// parent chain does not reach the post.
	CommentTreeFaults = promauto.NewCounter(prometheus.CounterOpts{
		Name: "poetportal_comment_tree_faults_total",
		Help: "Total number of comments rejected during tree assembly",
	})

	// FeedAssemblyLatency records how long building a page of post views takes.
	FeedAssemblyLatency = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "poetportal_feed_assembly_seconds",
		Help:    "Feed assembly latency in seconds",
		Buckets: prometheus.DefBuckets,
	})
)

// TrackFeedAssembly returns a function that records the elapsed time when called.
func TrackFeedAssembly() func() {
	start := time.Now()
	return func() {
		FeedAssemblyLatency.Observe(time.Since(start).Seconds())
	}
}
