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
			Buckets: prometheus.ExponentialBuckets(10, 2, 10),
		},
		[]string{"routing_key", "queue"},
	)

	// LLM 调用延迟（毫秒）
	LLMCallLatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "llm_call_latency_ms",
			Help:    "Anthropic API call latency in milliseconds",
			Buckets: prometheus.ExponentialBuckets(100, 2, 10),
		},
		[]string{"operation", "status"},
	)

	// 搜索调用延迟（毫秒）
	SearchCallLatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "search_call_latency_ms",
			Help:    "Tavily search call latency in milliseconds",
			Buckets: prometheus.ExponentialBuckets(50, 2, 10),
		},
		[]string{"status"},
	)

	SearchCacheCount = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "search_cache_total",
			Help: "Search cache lookups by result",
		},
		[]string{"result"}, // hit, miss
	)

	// HTTP 请求延迟（秒）
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 12),
		},
		[]string{"method", "route", "status"},
	)

	HTTPRequestsInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "http_in_flight_requests",
			Help: "Current number of in-flight HTTP requests",
		},
	)

	SlowQueryCount = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "db_slow_query_total",
			Help: "Queries slower than the configured threshold",
		},
		[]string{"sql"},
	)

	SlowQueryDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "db_slow_query_duration_seconds",
			Help:    "Duration of slow queries in seconds",
			Buckets: prometheus.ExponentialBuckets(0.1, 2, 8),
		},
	)

	// 任务创建计数
	TaskCreatedCount = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "task_created_total",
			Help: "Total number of tasks created",
		},
		[]string{"source"}, // manual, brain_dump, chat, ai
	)

	StepGenerationCount = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "step_generation_total",
			Help: "Step breakdowns by outcome",
		},
		[]string{"outcome"}, // ai, fallback
	)

	RewardPointsGranted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "reward_points_granted_total",
			Help: "Reward points granted by reason",
		},
		[]string{"reason"}, // step, task, habit
	)

	RateLimitedCount = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rate_limited_total",
			Help: "Requests rejected by the rate limiter",
		},
		[]string{"scope"},
	)
)

// RecordMQConsumeLatency 记录 MQ 消费延迟
func RecordMQConsumeLatency(routingKey, queue string, duration time.Duration) {
	MQConsumeLatency.WithLabelValues(routingKey, queue).Observe(float64(duration.Milliseconds()))
}

// RecordLLMCallLatency 记录 LLM 调用延迟
func RecordLLMCallLatency(operation, status string, duration time.Duration) {
	LLMCallLatency.WithLabelValues(operation, status).Observe(float64(duration.Milliseconds()))
}

func RecordSearchCallLatency(status string, duration time.Duration) {
	SearchCallLatency.WithLabelValues(status).Observe(float64(duration.Milliseconds()))
}

func RecordSearchCache(hit bool) {
	if hit {
		SearchCacheCount.WithLabelValues("hit").Inc()
		return
	}
	SearchCacheCount.WithLabelValues("miss").Inc()
}

// RecordHTTPRequestDuration 记录 HTTP 请求延迟
func RecordHTTPRequestDuration(method, route, status string, duration time.Duration) {
	HTTPRequestDuration.WithLabelValues(method, route, status).Observe(duration.Seconds())
}

// IncrementSlowQuery 记录慢查询
func IncrementSlowQuery(sql string, duration time.Duration) {
	SlowQueryCount.WithLabelValues(sql).Inc()
	SlowQueryDuration.Observe(duration.Seconds())
}

// IncrementTaskCreated 增加任务创建计数
func IncrementTaskCreated(source string) {
	TaskCreatedCount.WithLabelValues(source).Inc()
}

func IncrementStepGeneration(outcome string) {
	StepGenerationCount.WithLabelValues(outcome).Inc()
}

func AddRewardPoints(reason string, points int) {
	RewardPointsGranted.WithLabelValues(reason).Add(float64(points))
}

func IncrementRateLimited(scope string) {
	RateLimitedCount.WithLabelValues(scope).Inc()
}
