package metrics

import (
	"bufio"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	httpRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "assessly",
		Name:      "http_requests_total",
		Help:      "Total number of HTTP requests received",
	}, []string{"method", "path", "status"})

	httpLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "assessly",
		Name:      "http_request_duration_seconds",
		Help:      "Duration of HTTP requests in seconds",
		Buckets:   prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	executions = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "assessly",
		Name:      "executions_total",
		Help:      "Code executions dispatched, by language and outcome",
	}, []string{"language", "status"})

	executionDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "assessly",
		Name:      "execution_duration_seconds",
		Help:      "Wall-clock duration of code executions",
		Buckets:   prometheus.ExponentialBuckets(0.01, 2, 10),
	}, []string{"language"})

	channelMessages = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "assessly",
		Name:      "channel_messages_total",
		Help:      "Messages published to room channels, by purpose",
	}, []string{"purpose"})

	subscriptions = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "assessly",
		Name:      "channel_subscriptions",
		Help:      "Currently open channel subscriptions, by purpose",
	}, []string{"purpose"})

	sessionParticipants = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "assessly",
		Name:      "session_participants",
		Help:      "Participants attached to a live session document",
	}, []string{"interview_id"})
)

func ObserveExecution(language, status string, d time.Duration) {
	executions.WithLabelValues(language, status).Inc()
	executionDuration.WithLabelValues(language).Observe(d.Seconds())
}

func ChannelMessagePublished(purpose string) {
	channelMessages.WithLabelValues(purpose).Inc()
}

func SubscriptionOpened(purpose string) {
	subscriptions.WithLabelValues(purpose).Inc()
}

func SubscriptionClosed(purpose string) {
	subscriptions.WithLabelValues(purpose).Dec()
}

// SessionParticipants records a room's live participant count. The label is
// dropped when the room empties so finished interviews do not accumulate.
func SessionParticipants(interviewID string, count int) {
	if count <= 0 {
		sessionParticipants.DeleteLabelValues(interviewID)
		return
	}
	sessionParticipants.WithLabelValues(interviewID).Set(float64(count))
}

type responseRecorder struct {
	http.ResponseWriter
	status int
}

func (r *responseRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func (r *responseRecorder) Write(b []byte) (int, error) {
	if r.status == 0 {
		r.status = http.StatusOK
	}
	return r.ResponseWriter.Write(b)
}

func (r *responseRecorder) Flush() {
	if f, ok := r.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

// Hijack is required so websocket upgrades keep working behind the recorder.
func (r *responseRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	if h, ok := r.ResponseWriter.(http.Hijacker); ok {
		return h.Hijack()
	}
	return nil, nil, fmt.Errorf("metrics: underlying ResponseWriter does not support hijacking")
}

// Middleware records request metrics with Prometheus labels.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec := &responseRecorder{ResponseWriter: w, status: http.StatusOK}
		start := time.Now()

		next.ServeHTTP(rec, r)

		labels := prometheus.Labels{
			"method": r.Method,
			"path":   r.URL.Path,
			"status": strconv.Itoa(rec.status),
		}
		httpRequests.With(labels).Inc()
		httpLatency.With(labels).Observe(time.Since(start).Seconds())
	})
}

// Handler exposes the default Prometheus metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}
