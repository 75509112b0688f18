package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// MQ 消费延迟（毫秒）
	MQConsumeLatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "mq_consume_latency_ms",
			Help:    "MQ message consumption latency in milliseconds",
			Buckets: prometheus.ExponentialBuckets(10, 2, 10), // 10ms to ~10s
		},
		[]string{"routing_key", "queue"},
	)

	// 查询网关调用延迟（毫秒）
	GatewayCallLatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "gateway_call_latency_ms",
			Help:    "Enrichment gateway call latency in milliseconds",
			Buckets: prometheus.ExponentialBuckets(5, 2, 10), // 5ms to ~5s
		},
		[]string{"operation", "status"}, // status: ok, not_found, error, open
	)

	// 数据库查询延迟（秒）
	DBQueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "db_query_duration_seconds",
			Help:    "Database query duration in seconds",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 12), // 1ms to ~4s
		},
		[]string{"operation", "table"},
	)

	SlowQueryCount = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "db_slow_query_count",
			Help: "Total number of queries slower than the configured threshold",
		},
	)

	// HTTP 请求延迟（秒）
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 12), // 1ms to ~4s
		},
		[]string{"method", "path", "status"},
	)

	// 事件发布计数
	EventsPublished = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "events_published_total",
			Help: "Total number of domain events published to the hub",
		},
		[]string{"kind"},
	)

	// 批内条目处理结果
	ItemOutcomes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "batch_item_outcomes_total",
			Help: "Per-item outcomes of notification batches",
		},
		[]string{"batch_kind", "status"}, // status: ok, failed, panic
	)

	BatchDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "batch_duration_seconds",
			Help:    "Time until every item of a batch has settled",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 14), // 1ms to ~16s
		},
		[]string{"batch_kind"},
	)

	// 去重命中计数
	DedupSuppressed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dedup_suppressed_total",
			Help: "Notifications suppressed by a recency cache",
		},
		[]string{"cache"}, // cache: recall, sent
	)

	SubscriberFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hub_subscriber_failures_total",
			Help: "Subscriber handler errors and panics",
		},
		[]string{"kind"},
	)

	// 对外推送失败（按适配器）
	AdapterFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "network_adapter_failures_total",
			Help: "Envelopes an outward adapter failed to deliver",
		},
		[]string{"adapter"},
	)
)

// RecordMQConsumeLatency 记录 MQ 消费延迟
func RecordMQConsumeLatency(routingKey, queue string, duration time.Duration) {
	MQConsumeLatency.WithLabelValues(routingKey, queue).Observe(float64(duration.Milliseconds()))
}

// RecordGatewayCallLatency 记录网关调用延迟
func RecordGatewayCallLatency(operation, status string, duration time.Duration) {
	GatewayCallLatency.WithLabelValues(operation, status).Observe(float64(duration.Milliseconds()))
}

// RecordDBQueryDuration 记录数据库查询延迟
func RecordDBQueryDuration(operation, table string, duration time.Duration) {
	DBQueryDuration.WithLabelValues(operation, table).Observe(duration.Seconds())
}

func IncrementSlowQuery() {
	SlowQueryCount.Inc()
}

// RecordHTTPRequestDuration 记录 HTTP 请求延迟
func RecordHTTPRequestDuration(method, path, status string, duration time.Duration) {
	HTTPRequestDuration.WithLabelValues(method, path, status).Observe(duration.Seconds())
}

func IncrementEventPublished(kind string) {
	EventsPublished.WithLabelValues(kind).Inc()
}

func IncrementItemOutcome(batchKind, status string) {
	ItemOutcomes.WithLabelValues(batchKind, status).Inc()
}

func RecordBatchDuration(batchKind string, duration time.Duration) {
	BatchDuration.WithLabelValues(batchKind).Observe(duration.Seconds())
}

func IncrementDedupSuppressed(cache string) {
	DedupSuppressed.WithLabelValues(cache).Inc()
}

func IncrementSubscriberFailure(kind string) {
	SubscriberFailures.WithLabelValues(kind).Inc()
}

func IncrementAdapterFailure(adapter string) {
	AdapterFailures.WithLabelValues(adapter).Inc()
}
