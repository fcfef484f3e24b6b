package inventory

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/diwise/iot-inventory-admin/internal/pkg/application/events"
	"github.com/diwise/iot-inventory-admin/internal/pkg/infrastructure/logging"
	"github.com/diwise/iot-inventory-admin/internal/pkg/infrastructure/metrics"
	"github.com/diwise/iot-inventory-admin/internal/pkg/infrastructure/repositories/persistence"
	"github.com/diwise/iot-inventory-admin/pkg/types"
	"github.com/google/uuid"
	"golang.org/x/text/language"
)

// Store owns the users, groups and devices of the inventory. Writers are
// serialised and every change is persisted before it becomes visible, readers
// always see a complete snapshot and never wait for a writer.
type Store struct {
	mu      sync.Mutex
	current atomic.Pointer[state]
	seq     uint64

	// held while change events are sent, taken before mu is released
	sending sync.Mutex

	backend persistence.Backend
	senders []events.EventSender
	hasher  PasswordHasher
	locale  language.Tag
	now     func() time.Time
	newID   func() string

	dummyOnce sync.Once
	dummyHash string
}

type Option func(*Store)

func WithEventSenders(senders ...events.EventSender) Option {
	return func(s *Store) {
		s.senders = append(s.senders, senders...)
	}
}

func WithPasswordHasher(hasher PasswordHasher) Option {
	return func(s *Store) {
		s.hasher = hasher
	}
}

func WithLocale(locale language.Tag) Option {
	return func(s *Store) {
		s.locale = locale
	}
}

func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		s.now = now
	}
}

func WithIDGenerator(newID func() string) Option {
	return func(s *Store) {
		s.newID = newID
	}
}

// New creates a store and loads its content from the backend.
func New(ctx context.Context, backend persistence.Backend, opts ...Option) (*Store, error) {
	s := &Store{
		backend: backend,
		hasher:  NewBcryptHasher(0),
		locale:  language.English,
		now:     func() time.Time { return time.Now().UTC() },
		newID:   uuid.NewString,
	}

	for _, opt := range opts {
		opt(s)
	}

	st, err := s.load(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrPersistence, err.Error())
	}

	s.current.Store(st)

	return s, nil
}

func (s *Store) load(ctx context.Context) (*state, error) {
	log := logging.GetLoggerFromContext(ctx)

	users, err := persistence.Load[types.User](ctx, s.backend, persistence.UsersBlob)
	if err != nil {
		return nil, err
	}
	groups, err := persistence.Load[types.Group](ctx, s.backend, persistence.GroupsBlob)
	if err != nil {
		return nil, err
	}
	devices, err := persistence.Load[types.Device](ctx, s.backend, persistence.DevicesBlob)
	if err != nil {
		return nil, err
	}

	st := newState()
	for _, u := range users {
		st.users.put(u.ID, u)
	}
	for _, g := range groups {
		st.groups.put(g.ID, g)
	}
	for _, d := range devices {
		st.devices.put(d.ID, d)
	}

	if repaired := reconcile(st); repaired > 0 {
		log.Warn().Int("repaired", repaired).Msg("repaired inconsistent links in loaded inventory")
	}

	log.Info().
		Int("users", st.users.len()).
		Int("groups", st.groups.len()).
		Int("devices", st.devices.len()).
		Msg("inventory loaded")

	return st, nil
}

func (s *Store) snapshot() *state {
	return s.current.Load()
}

// change applies fn to a copy of the current state. The copy is persisted and
// then swapped in, an error from fn or from the backend leaves the current
// state as it was.
func (s *Store) change(ctx context.Context, entity types.Entity, action types.Action, fn func(tx *state) (string, error)) error {
	return s.apply(ctx, string(entity), string(action), func(tx *state) ([]types.EntityChanged, error) {
		id, err := fn(tx)
		if err != nil {
			return nil, err
		}
		return []types.EntityChanged{{Entity: entity, ID: id, Action: action}}, nil
	})
}

// apply commits the changes made by fn as one unit and then sends one event
// per reported change. Events are sent in commit order. When fn reports no
// changes nothing is persisted.
func (s *Store) apply(ctx context.Context, entity, action string, fn func(tx *state) ([]types.EntityChanged, error)) error {
	s.mu.Lock()
	locked := true
	defer func() {
		if locked {
			s.mu.Unlock()
		}
	}()

	changes, err := s.commit(ctx, entity, action, fn)
	if err != nil || len(changes) == 0 {
		return err
	}

	now := s.now()
	for i := range changes {
		s.seq++
		changes[i].Sequence = s.seq
		changes[i].Timestamp = now
	}

	s.sending.Lock()
	defer s.sending.Unlock()

	s.mu.Unlock()
	locked = false

	for _, e := range changes {
		s.notify(ctx, e)
	}

	return nil
}

// commit must be called with s.mu held.
func (s *Store) commit(ctx context.Context, entity, action string, fn func(tx *state) ([]types.EntityChanged, error)) ([]types.EntityChanged, error) {
	log := logging.GetLoggerFromContext(ctx)

	current := s.current.Load()
	tx := current.clone()

	changes, err := fn(tx)
	if err != nil {
		metrics.StoreOperations.WithLabelValues(entity, action, "rejected").Inc()
		return nil, err
	}

	if len(changes) == 0 {
		return nil, nil
	}

	err = s.persist(ctx, current, tx)
	if err != nil {
		metrics.StoreOperations.WithLabelValues(entity, action, "failed").Inc()
		metrics.PersistenceFailures.Inc()
		log.Error().Err(err).Str("entity", entity).Str("action", action).Msg("failed to persist inventory")
		return nil, fmt.Errorf("%w: %s", ErrPersistence, err.Error())
	}

	s.current.Store(tx)
	metrics.StoreOperations.WithLabelValues(entity, action, "ok").Inc()

	return changes, nil
}

// persist writes all three collections of next. When a write fails the
// collections already written are restored from previous.
func (s *Store) persist(ctx context.Context, previous, next *state) error {
	log := logging.GetLoggerFromContext(ctx)

	steps := []struct {
		name string
		save func(*state) error
	}{
		{persistence.UsersBlob, func(st *state) error {
			return persistence.Save(ctx, s.backend, persistence.UsersBlob, st.users.values())
		}},
		{persistence.GroupsBlob, func(st *state) error {
			return persistence.Save(ctx, s.backend, persistence.GroupsBlob, st.groups.values())
		}},
		{persistence.DevicesBlob, func(st *state) error {
			return persistence.Save(ctx, s.backend, persistence.DevicesBlob, st.devices.values())
		}},
	}

	for i, step := range steps {
		err := step.save(next)
		if err == nil {
			continue
		}

		for _, written := range steps[:i] {
			if restoreErr := written.save(previous); restoreErr != nil {
				log.Error().Err(restoreErr).Str("blob", written.name).Msg("failed to restore blob after aborted commit")
			}
		}

		return err
	}

	return nil
}

func (s *Store) notify(ctx context.Context, e types.EntityChanged) {
	log := logging.GetLoggerFromContext(ctx)

	for _, sender := range s.senders {
		if err := sender.Send(ctx, e); err != nil {
			log.Warn().Err(err).Str("entity", string(e.Entity)).Str("id", e.ID).Msg("failed to send change event")
		}
	}
}
