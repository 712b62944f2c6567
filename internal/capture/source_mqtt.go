package capture

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/snarg/notetaker/internal/mqttclient"
)

// MQTTSource receives JSON observations published by the browser
// automation layer on an MQTT topic.
type MQTTSource struct {
	opts mqttclient.Options
	log  zerolog.Logger
}

func NewMQTTSource(opts mqttclient.Options, log zerolog.Logger) *MQTTSource {
	return &MQTTSource{opts: opts, log: log.With().Str("component", "source").Str("source", "mqtt").Logger()}
}

func (s *MQTTSource) Name() string { return "mqtt" }

func (s *MQTTSource) Run(ctx context.Context, out chan<- Observation) error {
	opts := s.opts
	opts.Log = s.log
	opts.Handler = func(topic string, payload []byte) {
		o, err := decodeObservation(payload)
		if err != nil {
			s.log.Warn().Err(err).Str("topic", topic).Msg("skipping malformed observation")
			return
		}
		send(ctx, out, o)
	}

	client, err := mqttclient.Connect(opts)
	if err != nil {
		return err
	}
	defer client.Close()

	<-ctx.Done()
	return nil
}
