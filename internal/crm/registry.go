package crm

import (
	"context"
	"fmt"
	"log"

	"shoplocal-backend/internal/models"
)

// Channel names for the delivery registry.
const (
	ChannelWebhook = "WEBHOOK"
	ChannelSlack   = "SLACK"
)

// Registry holds the mapping between channel names and their Notifier
// implementations.
type Registry struct {
	channels map[string]Notifier
	order    []string
}

// NewRegistry creates a new delivery channel registry.
func NewRegistry() *Registry {
	return &Registry{channels: make(map[string]Notifier)}
}

// Register adds a delivery channel to the registry.
func (r *Registry) Register(name string, notifier Notifier) {
	if _, exists := r.channels[name]; exists {
		log.Printf("WARN [CRMRegistry] Channel '%s' is already registered. Overwriting.", name)
	} else {
		r.order = append(r.order, name)
	}
	r.channels[name] = notifier
	log.Printf("[CRMRegistry] Registered delivery channel: %s", name)
}

// Get retrieves a delivery channel from the registry by name.
func (r *Registry) Get(name string) (Notifier, error) {
	notifier, exists := r.channels[name]
	if !exists {
		return nil, fmt.Errorf("no delivery channel registered for: %s", name)
	}
	return notifier, nil
}

// Compile-time check to ensure Service implements Notifier
var _ Notifier = (*Service)(nil)

// Service fans a finalized transcript out to every registered channel. The
// primary channel must succeed for the delivery to count; every other channel
// is best-effort and only logged on failure.
type Service struct {
	registry *Registry
	primary  string
}

// NewService creates a delivery service over the registry with the given
// primary channel.
func NewService(registry *Registry, primary string) *Service {
	return &Service{registry: registry, primary: primary}
}

// Deliver sends the transcript to the primary channel, then copies it to the
// remaining channels.
func (s *Service) Deliver(ctx context.Context, user *models.User, transcript []models.Message) error {
	primary, err := s.registry.Get(s.primary)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrNotConfigured, err)
	}

	if err := primary.Deliver(ctx, user, transcript); err != nil {
		return err
	}

	for _, name := range s.registry.order {
		if name == s.primary {
			continue
		}
		if err := s.registry.channels[name].Deliver(ctx, user, transcript); err != nil {
			log.Printf("WARN [CRMRegistry] Best-effort channel %s failed: %v", name, err)
		}
	}

	return nil
}
