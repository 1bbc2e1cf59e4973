package webhook

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"time"

	"scorekit/core"
	"scorekit/engine"
)

// Sink posts domain events to configured HTTP endpoints. It is synchronous
// for determinism; keep endpoints fast or dispatch it on an async bus.
type Sink struct {
	client    *http.Client
	endpoints []string
}

// Option configures a Sink.
type Option func(*Sink)

// WithClient overrides the HTTP client (defaults to 2s timeout).
func WithClient(c *http.Client) Option {
	return func(s *Sink) {
		if c != nil {
			s.client = c
		}
	}
}

// New creates a webhook sink.
func New(endpoints []string, opts ...Option) *Sink {
	s := &Sink{
		client: &http.Client{Timeout: 2 * time.Second},
	}
	for _, opt := range opts {
		opt(s)
	}
	s.endpoints = append([]string{}, endpoints...)
	return s
}

// Attach subscribes the sink to the event types worth telling the outside
// world about. It returns an unsubscribe func covering all registrations.
func (s *Sink) Attach(c *engine.Coordinator) func() {
	unsubs := []func(){
		c.Subscribe(core.EventLeaderboardChanged, func(_ context.Context, e core.Event) { s.OnEvent(e) }),
		c.Subscribe(core.EventDriftRepaired, func(_ context.Context, e core.Event) { s.OnEvent(e) }),
	}
	return func() {
		for _, u := range unsubs {
			u()
		}
	}
}

// OnEvent posts the event JSON to all endpoints. Delivery is best effort;
// a dead endpoint never blocks score processing.
func (s *Sink) OnEvent(e core.Event) {
	if len(s.endpoints) == 0 {
		return
	}
	body, err := json.Marshal(e)
	if err != nil {
		return
	}
	for _, ep := range s.endpoints {
		req, err := http.NewRequestWithContext(context.Background(), http.MethodPost, ep, bytes.NewReader(body))
		if err != nil {
			continue
		}
		req.Header.Set("Content-Type", "application/json")
		resp, err := s.client.Do(req)
		if err != nil {
			continue
		}
		resp.Body.Close()
	}
}
