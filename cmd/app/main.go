package main

import (
	"flag"
	"log"
	"os"

	"SigFuse/internal/di"
	"SigFuse/pkg/config"
)

func main() {
	// Parse flags
	configPath := flag.String("config", "config/config.yaml", "config file path")
	flag.Parse()

	// Load config
	cfg, err := config.LoadWithEnv(*configPath)
	if err != nil {
		log.Fatalf("config load failed: %v", err)
	}

	log.Printf("env=%s instrument=%s buckets=%d", cfg.Environment, cfg.MarketData.Instrument, len(cfg.Buckets))

	// Wire DI: Initialize all dependencies
	app, err := di.InitializeApp(cfg)
	if err != nil {
		log.Fatalf("app initialization failed: %v", err)
	}

	log.Printf("clickhouse: connected, schema ready db=%s", cfg.ClickHouse.Database)
	log.Printf("kafka: connected brokers=%v decisions=%s outcomes=%s", cfg.Kafka.Brokers, cfg.Kafka.DecisionsTopic, cfg.Kafka.OutcomesTopic)

	// Run application (blocks until signal)
	if err := app.Run(); err != nil {
		log.Printf("app error: %v", err)
		os.Exit(1)
	}
}
