package server

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog/log"

	"github.com/numgate/numgate-server/internal/tenant"
)

// DomainChangedSubject carries domain mapping invalidations between gateway
// instances. An empty domain in the payload means "flush everything".
const DomainChangedSubject = "numgate.domain.changed"

// NATSSubscriber applies cache invalidations published by sibling instances
type NATSSubscriber struct {
	nc    *nats.Conn
	cache *tenant.Cache
	subs  []*nats.Subscription
}

// NewNATSSubscriber creates NATS subscriber
func NewNATSSubscriber(nc *nats.Conn, cache *tenant.Cache) *NATSSubscriber {
	return &NATSSubscriber{
		nc:    nc,
		cache: cache,
		subs:  make([]*nats.Subscription, 0),
	}
}

// Start starts subscriptions and blocks until the context is cancelled
func (s *NATSSubscriber) Start(ctx context.Context) error {
	sub, err := s.nc.Subscribe(DomainChangedSubject, s.handleDomainChanged)
	if err != nil {
		return fmt.Errorf("subscribe domain changed: %w", err)
	}
	s.subs = append(s.subs, sub)

	log.Info().
		Int("subscriptions", len(s.subs)).
		Msg("NATS subscriber started")

	<-ctx.Done()

	for _, sub := range s.subs {
		sub.Unsubscribe()
	}

	return ctx.Err()
}

// handleDomainChanged handles domain mapping change notifications
func (s *NATSSubscriber) handleDomainChanged(msg *nats.Msg) {
	log.Debug().
		Str("subject", msg.Subject).
		Int("size", len(msg.Data)).
		Msg("Received domain change notification")

	var changeMsg struct {
		Domain string `json:"domain"`
	}

	if err := json.Unmarshal(msg.Data, &changeMsg); err != nil {
		log.Error().Err(err).Msg("Failed to unmarshal domain change notification")
		return
	}

	if changeMsg.Domain == "" {
		s.cache.InvalidateAll()
		log.Info().Msg("Tenant resolution cache flushed")
		return
	}

	s.cache.Invalidate(changeMsg.Domain)
	log.Info().
		Str("domain", changeMsg.Domain).
		Msg("Tenant resolution cache entry invalidated")
}
