// Command fanout-worker consumes fanout jobs from Kafka and writes follower
// timeline entries.
package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"
	"time"

	"feedline/internal/bootstrap"
	"feedline/internal/config"
	"feedline/internal/fanout"
)

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return err
	}
	if cfg.FanoutMode != config.FanoutModeKafka {
		log.Printf("warning: FANOUT_MODE=%s, the API publishes no fanout jobs", cfg.FanoutMode)
	}

	shutdownTracing, err := bootstrap.InitTracing(cfg, "feedline-fanout-worker")
	if err != nil {
		return err
	}
	defer func() { _ = shutdownTracing(context.Background()) }()

	rt, err := bootstrap.InitRuntime(cfg, bootstrap.Options{InlineFanout: true})
	if err != nil {
		return err
	}
	defer func() {
		if err := rt.Close(); err != nil {
			log.Printf("runtime close error: %v", err)
		}
	}()

	sched, err := rt.StartRedelivery()
	if err != nil {
		return err
	}
	defer func() {
		select {
		case <-sched.Stop().Done():
		case <-time.After(10 * time.Second):
			log.Println("redelivery still running at shutdown")
		}
	}()

	reader := fanout.NewKafkaReader(cfg.Brokers(), cfg.KafkaFanoutTopic, cfg.KafkaConsumerGroup)
	worker := fanout.NewWorker(reader, rt.TimelineService, rt.TimelineService.Reporter(), cfg.KafkaFanoutTopic)
	defer func() { _ = worker.Close() }()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	log.Printf("fanout worker consuming %s as %s", cfg.KafkaFanoutTopic, cfg.KafkaConsumerGroup)
	if err := worker.Run(ctx); err != nil {
		return err
	}
	log.Println("fanout worker stopped")
	return nil
}
