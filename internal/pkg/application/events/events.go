package events

import (
	"context"
	"errors"
	"fmt"
	"io"

	cloudevents "github.com/cloudevents/sdk-go/v2"
	"github.com/diwise/iot-inventory-admin/internal/pkg/infrastructure/logging"
	"github.com/diwise/iot-inventory-admin/pkg/types"
	"golang.org/x/sys/unix"
	yaml "gopkg.in/yaml.v2"
)

const InventoryChangedType string = "diwise.inventory.changed"

//go:generate moq -rm -out eventsender_mock.go . EventSender

type EventSender interface {
	Send(ctx context.Context, e types.EntityChanged) error
}

type cloudEventSender struct {
	subscribers []SubscriberConfig
	newClient   func() (cloudevents.Client, error)
}

// New returns a sender that posts change events as cloud events to every
// subscriber of the inventory changed notification type.
func New(cfg *Config) EventSender {
	e := &cloudEventSender{
		subscribers: []SubscriberConfig{},
		newClient: func() (cloudevents.Client, error) {
			return cloudevents.NewClientHTTP()
		},
	}

	if cfg != nil {
		for _, n := range cfg.Notifications {
			if n.Type == InventoryChangedType {
				e.subscribers = append(e.subscribers, n.Subscribers...)
			}
		}
	}

	return e
}

func (e *cloudEventSender) Send(ctx context.Context, changed types.EntityChanged) error {
	if len(e.subscribers) == 0 {
		return nil
	}

	c, err := e.newClient()
	if err != nil {
		return err
	}

	event := cloudevents.NewEvent()
	event.SetID(fmt.Sprintf("%s:%s:%s:%d", changed.Entity, changed.ID, changed.Action, changed.Timestamp.UnixNano()))
	event.SetTime(changed.Timestamp)
	event.SetSource("github.com/diwise/iot-inventory-admin")
	event.SetType(InventoryChangedType)
	event.SetSubject(string(changed.Entity))

	err = event.SetData(cloudevents.ApplicationJSON, changed)
	if err != nil {
		return err
	}

	logger := logging.GetLoggerFromContext(ctx)

	var errs []error

	for _, s := range e.subscribers {
		if !s.Accepts(changed.Entity) {
			continue
		}

		ctxWithTarget := cloudevents.ContextWithTarget(ctx, s.Endpoint)

		result := c.Send(ctxWithTarget, event)
		if cloudevents.IsUndelivered(result) || errors.Is(result, unix.ECONNREFUSED) {
			logger.Error().Err(result).Msgf("failed to send event to %s", s.Endpoint)
			errs = append(errs, fmt.Errorf("%s: %w", s.Endpoint, result))
		}
	}

	return errors.Join(errs...)
}

type SubscriberConfig struct {
	Endpoint string   `yaml:"endpoint"`
	Entities []string `yaml:"entities"`
}

// Accepts reports whether the subscriber wants events about entity. A
// subscriber without an entity list gets everything.
func (s SubscriberConfig) Accepts(entity types.Entity) bool {
	if len(s.Entities) == 0 {
		return true
	}
	for _, e := range s.Entities {
		if e == string(entity) {
			return true
		}
	}
	return false
}

type Notification struct {
	ID          string             `yaml:"id"`
	Name        string             `yaml:"name"`
	Type        string             `yaml:"type"`
	Subscribers []SubscriberConfig `yaml:"subscribers"`
}

type Config struct {
	Notifications []Notification `yaml:"notifications"`
}

func LoadConfiguration(data io.Reader) (*Config, error) {
	buf, err := io.ReadAll(data)
	if err != nil {
		return nil, err
	}

	cfg := Config{}
	if err := yaml.Unmarshal(buf, &cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}
