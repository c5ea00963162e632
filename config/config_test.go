package config

import "testing"

func TestValidateRejectsUnknownLogLevel(t *testing.T) {
	c := &Config{LogLevel: "verbose", LogFormat: "json", NatsURL: "nats://x"}
	if err := c.Validate(); err == nil {
		t.Fatal("expected an error for an unknown log level")
	}
}

func TestValidateRejectsEmptyNatsURL(t *testing.T) {
	c := &Config{LogLevel: "info", LogFormat: "json"}
	if err := c.Validate(); err == nil {
		t.Fatal("expected an error for a missing NATS URL")
	}
}

func TestValidateRejectsZeroDispatcherShards(t *testing.T) {
	c := &Config{LogLevel: "info", LogFormat: "json", NatsURL: "nats://x", DispatcherShards: 0}
	if err := c.Validate(); err == nil {
		t.Fatal("expected an error for zero dispatcher shards")
	}
}

func TestValidateAcceptsDefaults(t *testing.T) {
	c := &Config{LogLevel: "info", LogFormat: "json", NatsURL: "nats://127.0.0.1:4222", DispatcherShards: 16}
	if err := c.Validate(); err != nil {
		t.Fatalf("expected defaults to validate, got %v", err)
	}
}
