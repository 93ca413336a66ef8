package kafka_config

const (
	// Empty disables publishing
	EnvKafkaBrokers = "KAFKA_BROKERS"

	EnvKafkaTopic    = "KAFKA_SLOT_EVENTS_TOPIC"
	EnvKafkaDLQTopic = "KAFKA_SLOT_EVENTS_DLQ_TOPIC"

	EnvKafkaProducerMaxAttempts  = "KAFKA_PRODUCER_MAX_ATTEMPTS"
	EnvKafkaProducerBatchTimeout = "KAFKA_PRODUCER_BATCH_TIMEOUT"
	EnvKafkaProducerRequireAcks  = "KAFKA_PRODUCER_REQUIRE_ACKS"
	EnvKafkaProducerCompression  = "KAFKA_PRODUCER_COMPRESSION"
	EnvKafkaProducerAsync        = "KAFKA_PRODUCER_ASYNC"

	EnvKafkaEnableMiddleware = "KAFKA_ENABLE_MIDDLEWARE"
)
