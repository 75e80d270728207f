package kafka

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Consumer outcomes recorded in kafka_consumer_messages_total.
const (
	outcomeReceived  = "received"
	outcomeProcessed = "processed"
	outcomeFailed    = "failed"
	outcomeMalformed = "malformed"
	outcomeDLQ       = "dead_lettered"
)

var (
	consumerMessages = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "kafka_consumer_messages_total",
		Help: "Kafka messages seen by consumers, by outcome.",
	}, []string{"topic", "consumer_group", "outcome"})

	consumerDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "kafka_consumer_processing_duration_seconds",
		Help:    "Time spent handling one message, retries included.",
		Buckets: prometheus.DefBuckets,
	}, []string{"topic", "consumer_group"})

	producerMessages = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "kafka_producer_messages_total",
		Help: "Kafka publish attempts, by result.",
	}, []string{"topic", "result"})

	producerDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "kafka_producer_publish_duration_seconds",
		Help:    "Kafka publish latency.",
		Buckets: prometheus.DefBuckets,
	}, []string{"topic"})
)
