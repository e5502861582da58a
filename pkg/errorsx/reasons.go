package errorsx

// ReasonCode is a short machine-readable error reason.
type ReasonCode string

const (
	ReasonUnknown ReasonCode = "unknown"

	ReasonClassifierConnect      ReasonCode = "classifier_connect"
	ReasonClassifierGenerate     ReasonCode = "classifier_generate"
	ReasonClassifierRateLimit    ReasonCode = "classifier_rate_limit"
	ReasonClassifierCircuitOpen  ReasonCode = "classifier_circuit_open"
	ReasonClassifierParse        ReasonCode = "classifier_parse"
	ReasonClassifierUnconfigured ReasonCode = "classifier_unconfigured"

	ReasonStoreOpen  ReasonCode = "store_open"
	ReasonStoreWrite ReasonCode = "store_write"
	ReasonStoreQuery ReasonCode = "store_query"

	ReasonFeedUpgrade ReasonCode = "feed_upgrade"
	ReasonFeedSend    ReasonCode = "feed_send"

	ReasonConfigInvalid ReasonCode = "config_invalid"
)
