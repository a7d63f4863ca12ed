package events

import (
	"encoding/json"
	"testing"

	"github.com/nats-io/nats.go"
)

func TestHeaderCarrier(t *testing.T) {
	msg := &nats.Msg{}
	c := (*headerCarrier)(msg)

	if got := c.Get("traceparent"); got != "" {
		t.Errorf("empty carrier Get = %q", got)
	}
	if keys := c.Keys(); keys != nil {
		t.Errorf("empty carrier Keys = %v", keys)
	}

	c.Set("traceparent", "00-abc-def-01")
	if got := c.Get("traceparent"); got != "00-abc-def-01" {
		t.Errorf("Get = %q", got)
	}
	if keys := c.Keys(); len(keys) != 1 {
		t.Errorf("Keys = %v", keys)
	}
	// Set must write through to the underlying message.
	if msg.Header.Get("traceparent") != "00-abc-def-01" {
		t.Error("carrier must mutate the message header")
	}
}

func TestEnvelopeRoundTrip(t *testing.T) {
	payload, _ := json.Marshal(map[string]any{"trip_id": 42})
	env := Envelope{EventID: "e1", Subject: "sarathi.trip.logged", Payload: payload}

	data, err := json.Marshal(env)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var got Envelope
	if err := json.Unmarshal(data, &got); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if got.EventID != "e1" || got.Subject != "sarathi.trip.logged" {
		t.Errorf("envelope = %+v", got)
	}
	var inner map[string]any
	if err := json.Unmarshal(got.Payload, &inner); err != nil {
		t.Fatalf("payload: %v", err)
	}
	if inner["trip_id"].(float64) != 42 {
		t.Errorf("payload = %v", inner)
	}
}
