// Package observability provides Prometheus metrics for monitoring.
package observability

import (
	"net/http"
	"sync/atomic"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the application.
type Metrics struct {
	// Codec metrics
	EventsDecoded         *prometheus.CounterVec
	DecodeErrors          prometheus.Counter
	UnknownDiscriminators prometheus.Counter

	// Indexer metrics
	EventsApplied      *prometheus.CounterVec
	DuplicateEvents     prometheus.Counter
	StoreBatchDuration  prometheus.Histogram
	StoreBatchErrors    prometheus.Counter
	MintQueueDepth      prometheus.Gauge
	ActiveMintWorkers   prometheus.Gauge

	// Bus metrics
	SubscriptionsActive prometheus.Gauge
	DeltasPublished     *prometheus.CounterVec
	OutboxDropsTotal    prometheus.Counter

	// Listener metrics
	ListenerState        prometheus.Gauge
	ReconnectAttempts    prometheus.Counter
	WatchdogTimeouts     prometheus.Counter
	HighestSlotSeen      prometheus.Gauge

	// Query metrics
	QueryDuration *prometheus.HistogramVec
	QueryErrors   *prometheus.CounterVec

	// Materialize metrics
	MaterializeCandlesInserted prometheus.Counter
	MaterializeErrors          prometheus.Counter
	MaterializeQueueDrops      prometheus.Counter
	CheckpointWrites           prometheus.Counter
	CheckpointErrors           prometheus.Counter
}

// NewMetrics creates a new Metrics instance with all metrics registered.
func NewMetrics(namespace string) *Metrics {
	if namespace == "" {
		namespace = "spinpet_indexer"
	}

	return &Metrics{
		EventsDecoded: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "codec",
			Name:      "events_decoded_total",
			Help:      "Total number of program events decoded, by kind",
		}, []string{"kind"}),
		DecodeErrors: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "codec",
			Name:      "decode_errors_total",
			Help:      "Total number of malformed event payloads",
		}),
		UnknownDiscriminators: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "codec",
			Name:      "unknown_discriminators_total",
			Help:      "Total number of program-data logs with an unrecognized discriminator",
		}),

		EventsApplied: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "indexer",
			Name:      "events_applied_total",
			Help:      "Total number of events committed to the store, by kind",
		}, []string{"kind"}),
		DuplicateEvents: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "indexer",
			Name:      "duplicate_events_total",
			Help:      "Total number of events skipped because their tr: row already existed",
		}),
		StoreBatchDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "indexer",
			Name:      "store_batch_duration_seconds",
			Help:      "Duration of Store.BatchApply calls",
			Buckets:   prometheus.DefBuckets,
		}),
		StoreBatchErrors: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "indexer",
			Name:      "store_batch_errors_total",
			Help:      "Total number of failed Store.BatchApply calls",
		}),
		MintQueueDepth: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "indexer",
			Name:      "mint_queue_depth",
			Help:      "Sum of queued events across all active per-mint workers",
		}),
		ActiveMintWorkers: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "indexer",
			Name:      "active_mint_workers",
			Help:      "Number of currently running per-mint worker goroutines",
		}),

		SubscriptionsActive: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "bus",
			Name:      "subscriptions_active",
			Help:      "Number of currently registered live subscriptions",
		}),
		DeltasPublished: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "bus",
			Name:      "deltas_published_total",
			Help:      "Total number of deltas fanned out, by kind",
		}, []string{"kind"}),
		OutboxDropsTotal: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "bus",
			Name:      "outbox_drops_total",
			Help:      "Total number of frames dropped because a subscription's outbox was full",
		}),

		ListenerState: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "listener",
			Name:      "state",
			Help:      "Current listener state machine node, as an enumerated value",
		}),
		ReconnectAttempts: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "listener",
			Name:      "reconnect_attempts_total",
			Help:      "Total number of reconnect attempts made",
		}),
		WatchdogTimeouts: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "listener",
			Name:      "watchdog_timeouts_total",
			Help:      "Total number of idle-watchdog-triggered transitions to backoff",
		}),
		HighestSlotSeen: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "listener",
			Name:      "highest_slot_seen",
			Help:      "Highest chain slot observed in a log notification",
		}),

		QueryDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "query",
			Name:      "duration_seconds",
			Help:      "Duration of query operations, by operation name",
			Buckets:   prometheus.DefBuckets,
		}, []string{"operation"}),
		QueryErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "query",
			Name:      "errors_total",
			Help:      "Total number of query operations that returned a client error",
		}, []string{"operation", "code"}),

		MaterializeCandlesInserted: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "materialize",
			Name:      "candles_inserted_total",
			Help:      "Total number of sealed candles mirrored to ClickHouse",
		}),
		MaterializeErrors: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "materialize",
			Name:      "errors_total",
			Help:      "Total number of failed ClickHouse candle-mirror flushes",
		}),
		MaterializeQueueDrops: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "materialize",
			Name:      "queue_drops_total",
			Help:      "Total number of candles dropped because the mirror queue was full",
		}),
		CheckpointWrites: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "materialize",
			Name:      "checkpoint_writes_total",
			Help:      "Total number of ingestion checkpoint upserts to Postgres",
		}),
		CheckpointErrors: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "materialize",
			Name:      "checkpoint_errors_total",
			Help:      "Total number of failed ingestion checkpoint upserts",
		}),
	}
}

// Handler exposes metrics for scraping.
func Handler() http.Handler {
	return promhttp.Handler()
}

// DefaultMetrics is the default metrics instance.
var DefaultMetrics = NewMetrics("")

// RecordEventDecoded increments the decoded-events counter for one kind.
func RecordEventDecoded(kind string) {
	DefaultMetrics.EventsDecoded.WithLabelValues(kind).Inc()
}

// RecordDecodeError increments the malformed-payload counter.
func RecordDecodeError() {
	DefaultMetrics.DecodeErrors.Inc()
}

// RecordUnknownDiscriminator increments the unrecognized-discriminator counter.
func RecordUnknownDiscriminator() {
	DefaultMetrics.UnknownDiscriminators.Inc()
}

// RecordEventApplied increments the applied-events counter for one kind.
func RecordEventApplied(kind string) {
	DefaultMetrics.EventsApplied.WithLabelValues(kind).Inc()
}

// RecordDuplicateEvent increments the duplicate-skip counter.
func RecordDuplicateEvent() {
	DefaultMetrics.DuplicateEvents.Inc()
}

// RecordStoreBatch records one BatchApply call's duration and outcome.
func RecordStoreBatch(seconds float64, err error) {
	DefaultMetrics.StoreBatchDuration.Observe(seconds)
	if err != nil {
		DefaultMetrics.StoreBatchErrors.Inc()
	}
}

// UpdateMintWorkerStats updates the mint-worker gauges.
func UpdateMintWorkerStats(activeWorkers, queueDepth int) {
	DefaultMetrics.ActiveMintWorkers.Set(float64(activeWorkers))
	DefaultMetrics.MintQueueDepth.Set(float64(queueDepth))
}

// RecordDeltaPublished increments the published-deltas counter for one kind.
func RecordDeltaPublished(kind string) {
	DefaultMetrics.DeltasPublished.WithLabelValues(kind).Inc()
}

// RecordOutboxDrop increments the outbox-drop counter.
func RecordOutboxDrop() {
	DefaultMetrics.OutboxDropsTotal.Inc()
}

// UpdateSubscriptionsActive sets the active-subscriptions gauge.
func UpdateSubscriptionsActive(n int) {
	DefaultMetrics.SubscriptionsActive.Set(float64(n))
}

// listenerStateValues maps each State to a stable numeric value for the
// ListenerState gauge, in state-machine declaration order.
var listenerStateValues = map[string]float64{
	"disconnected": 0,
	"connecting":   1,
	"subscribing":  2,
	"streaming":    3,
	"backoff":      4,
	"terminated":   5,
}

// UpdateListenerState sets the listener state gauge from its string value.
func UpdateListenerState(state string) {
	if v, ok := listenerStateValues[state]; ok {
		DefaultMetrics.ListenerState.Set(v)
	}
}

// RecordReconnectAttempt increments the reconnect-attempts counter.
func RecordReconnectAttempt() {
	DefaultMetrics.ReconnectAttempts.Inc()
}

// RecordWatchdogTimeout increments the watchdog-timeout counter.
func RecordWatchdogTimeout() {
	DefaultMetrics.WatchdogTimeouts.Inc()
}

// highestSlot backs UpdateHighestSlot so the gauge never moves down.
var highestSlot atomic.Int64

// UpdateHighestSlot updates the highest slot seen gauge.
func UpdateHighestSlot(slot int64) {
	for {
		cur := highestSlot.Load()
		if slot <= cur {
			return
		}
		if highestSlot.CompareAndSwap(cur, slot) {
			DefaultMetrics.HighestSlotSeen.Set(float64(slot))
			return
		}
	}
}

// RecordQuery records one query operation's duration and outcome.
func RecordQuery(operation string, seconds float64, errCode string) {
	DefaultMetrics.QueryDuration.WithLabelValues(operation).Observe(seconds)
	if errCode != "" {
		DefaultMetrics.QueryErrors.WithLabelValues(operation, errCode).Inc()
	}
}

// RecordMaterializeFlush records the outcome of one ClickHouse batch flush.
func RecordMaterializeFlush(inserted int, err error) {
	if err != nil {
		DefaultMetrics.MaterializeErrors.Inc()
		return
	}
	DefaultMetrics.MaterializeCandlesInserted.Add(float64(inserted))
}

// RecordMaterializeQueueDrop increments the mirror-queue-drop counter.
func RecordMaterializeQueueDrop() {
	DefaultMetrics.MaterializeQueueDrops.Inc()
}

// RecordCheckpointWrite records the outcome of one checkpoint upsert.
func RecordCheckpointWrite(err error) {
	if err != nil {
		DefaultMetrics.CheckpointErrors.Inc()
		return
	}
	DefaultMetrics.CheckpointWrites.Inc()
}
