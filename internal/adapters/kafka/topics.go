package kafka

// Topic definitions for Kafka event streaming
const (
	// Signal events
	TopicBiasUpdated      = "signals.bias.updated"
	TopicReleaseProcessed = "signals.release.processed"

	// Quality events
	TopicQualityFailed = "signals.quality.failed"
)
