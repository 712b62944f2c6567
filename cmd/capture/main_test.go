package main

import (
	"testing"

	"github.com/rs/zerolog"

	"github.com/snarg/notetaker/internal/config"
)

func TestNewSource(t *testing.T) {
	tests := []struct {
		name     string
		cfg      config.CaptureConfig
		wantName string
		wantErr  bool
	}{
		{"default_stdin", config.CaptureConfig{}, "stdin", false},
		{"file", config.CaptureConfig{Source: "file", SourceFile: "/tmp/captions.jsonl"}, "file", false},
		{"file_without_path", config.CaptureConfig{Source: "file"}, "", true},
		{"mqtt", config.CaptureConfig{Source: "mqtt", MQTTBrokerURL: "tcp://localhost:1883", MQTTTopic: "t"}, "mqtt", false},
		{"mqtt_without_broker", config.CaptureConfig{Source: "mqtt"}, "", true},
		{"unknown", config.CaptureConfig{Source: "dom"}, "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			src, err := newSource(&tt.cfg, zerolog.Nop())
			if (err != nil) != tt.wantErr {
				t.Fatalf("newSource() err = %v, wantErr %v", err, tt.wantErr)
			}
			if err == nil && src.Name() != tt.wantName {
				t.Errorf("Name() = %q, want %q", src.Name(), tt.wantName)
			}
		})
	}
}
