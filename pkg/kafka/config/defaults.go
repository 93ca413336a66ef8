package kafka_config

import "time"

const (
	DefaultKafkaBrokers = ""

	DefaultTopic    = "slot-events"
	DefaultDLQTopic = ""

	DefaultProducerMaxAttempts  = 3
	DefaultProducerBatchTimeout = 10 * time.Millisecond
	DefaultProducerRequireAcks  = -1 // Require all replicas
	DefaultProducerCompression  = "snappy"
	DefaultProducerAsync        = false

	DefaultEnableMiddleware = true
)
