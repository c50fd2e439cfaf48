package observability

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "plantrack"

var (
	mutationsCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "store",
		Name:      "mutations_total",
		Help:      "Number of mutation operations, labeled by operation and result.",
	}, []string{"op", "result"})

	savesCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "persist",
		Name:      "saves_total",
		Help:      "Number of collection saves through the persistence gateway.",
	}, []string{"collection", "result"})

	undoCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "store",
		Name:      "undo_total",
		Help:      "Number of undo requests, labeled by whether a deletion was restored.",
	}, []string{"applied"})

	projectsGauge = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "store",
		Name:      "projects",
		Help:      "Number of projects in the last persisted snapshot.",
	})

	holidayFetchCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "holiday",
		Name:      "fetches_total",
		Help:      "Number of holiday calendar fetches, labeled by result.",
	}, []string{"result"})

	publishCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "events",
		Name:      "published_total",
		Help:      "Number of change events sent to Kafka, labeled by result.",
	}, []string{"result"})

	toolCallDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "mcp",
		Name:      "tool_call_duration_seconds",
		Help:      "Time spent serving MCP tool calls.",
		Buckets:   prometheus.ExponentialBuckets(0.001, 2, 12),
	}, []string{"tool", "result"})
)

func init() {
	prometheus.MustRegister(mutationsCounter, savesCounter, undoCounter, projectsGauge,
		holidayFetchCounter, publishCounter, toolCallDuration)
}

func result(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}

// RecordMutation counts one mutation attempt.
func RecordMutation(op string, err error) {
	mutationsCounter.WithLabelValues(op, result(err)).Inc()
}

// RecordSave counts one collection save.
func RecordSave(collection string, err error) {
	savesCounter.WithLabelValues(collection, result(err)).Inc()
}

// RecordUndo counts one undo request.
func RecordUndo(applied bool) {
	label := "false"
	if applied {
		label = "true"
	}
	undoCounter.WithLabelValues(label).Inc()
}

// SetProjectCount reports the current number of projects.
func SetProjectCount(n int) {
	projectsGauge.Set(float64(n))
}

// RecordHolidayFetch counts one holiday calendar fetch.
func RecordHolidayFetch(err error) {
	holidayFetchCounter.WithLabelValues(result(err)).Inc()
}

// RecordPublish counts one change event publish.
func RecordPublish(err error) {
	publishCounter.WithLabelValues(result(err)).Inc()
}

// ObserveToolCall records the duration of one MCP tool call.
func ObserveToolCall(tool string, seconds float64, err error) {
	toolCallDuration.WithLabelValues(tool, result(err)).Observe(seconds)
}

// Handler exposes the registered metrics for scraping.
func Handler() http.Handler {
	return promhttp.Handler()
}
