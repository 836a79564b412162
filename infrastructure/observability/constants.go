package observability

// Metric name prefixes
const (
	MetricPrefix = "totopool"
)

// Metric names
const (
	// Coupon metrics
	CouponsPlacedTotal  = MetricPrefix + ".coupons.placed_total"
	VariantsPlacedTotal = MetricPrefix + ".coupons.variants_total"

	// Round metrics
	RoundTransitionsTotal = MetricPrefix + ".rounds.transitions_total"
	RoundsSettledTotal    = MetricPrefix + ".rounds.settled_total"
	SettlementDuration    = MetricPrefix + ".rounds.settlement_duration"

	// Result source metrics
	ResultSourceFailuresTotal = MetricPrefix + ".result_source.failures_total"

	// Jackpot metrics
	JackpotAmount = MetricPrefix + ".jackpot.amount"

	// NATS metrics
	NATSMessagesPublishedTotal = MetricPrefix + ".nats.messages_published_total"

	// Pool cache metrics
	PoolCacheLookupsTotal = MetricPrefix + ".pool_cache.lookups_total"
)

// Label keys
const (
	LabelType      = "type"
	LabelEventType = "event_type"
	LabelPolicy    = "policy"
	LabelStatus    = "status"
	LabelResult    = "result"
)

// Pool cache lookup results
const (
	CacheHit  = "hit"
	CacheMiss = "miss"
)
