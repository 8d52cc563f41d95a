package app

import (
	"courier-dispatch/internal/config"
	"courier-dispatch/internal/logx"
	"courier-dispatch/internal/service/location"
	"courier-dispatch/internal/transport/kafka"
)

// newLocationConsumer wires the location ingest pipeline to the courier
// position topic. Returns a nil consumer when kafka is not configured; the
// worker then serves only the dispatch sweep.
func newLocationConsumer(cfg *config.Config, ing *location.Ingest, logger logx.Logger) (*kafka.Consumer, error) {
	return kafka.NewConsumer(cfg.Kafka.Brokers, cfg.Kafka.GroupID, cfg.Kafka.Topic, ing.Handle, logger)
}
