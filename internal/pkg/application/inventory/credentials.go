package inventory

import (
	"context"
	"errors"

	"github.com/diwise/iot-inventory-admin/internal/pkg/infrastructure/logging"
	"github.com/diwise/iot-inventory-admin/internal/pkg/infrastructure/metrics"
	"github.com/diwise/iot-inventory-admin/pkg/types"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

// MaxPasswordLength is the longest password, in bytes, that bcrypt accepts.
const MaxPasswordLength int = 72

type PasswordHasher interface {
	Hash(password string) (string, error)
	Compare(hash, password string) error
}

type bcryptHasher struct {
	cost int
}

// NewBcryptHasher returns a hasher using the given cost, or the bcrypt
// default cost when cost is zero.
func NewBcryptHasher(cost int) PasswordHasher {
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	return &bcryptHasher{cost: cost}
}

func (h *bcryptHasher) Hash(password string) (string, error) {
	b, err := bcrypt.GenerateFromPassword([]byte(password), h.cost)
	if errors.Is(err, bcrypt.ErrPasswordTooLong) {
		return "", validationError("password must be at most %d bytes", MaxPasswordLength)
	}
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func (h *bcryptHasher) Compare(hash, password string) error {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
}

func (s *Store) hashPassword(password string) (string, error) {
	if len(password) > MaxPasswordLength {
		return "", validationError("password must be at most %d bytes", MaxPasswordLength)
	}
	return s.hasher.Hash(password)
}

// unknownUserHash returns the hash that passwords for unknown usernames are
// compared against.
func (s *Store) unknownUserHash() string {
	s.dummyOnce.Do(func() {
		s.dummyHash, _ = s.hasher.Hash(uuid.NewString())
	})
	return s.dummyHash
}

// Authenticate returns the user with the given username if the password
// matches. Unknown users and wrong passwords give the same error.
func (s *Store) Authenticate(ctx context.Context, username, password string) (types.User, error) {
	log := logging.GetLoggerFromContext(ctx)

	u, err := s.GetUserByUsername(ctx, username)
	if errors.Is(err, ErrNotFound) {
		_ = s.hasher.Compare(s.unknownUserHash(), password)
		metrics.LoginAttempts.WithLabelValues("unknown_user").Inc()
		log.Info().Str("username", username).Msg("login attempt for unknown user")
		return types.User{}, ErrInvalidCredentials
	}

	if err := s.hasher.Compare(u.Password, password); err != nil {
		metrics.LoginAttempts.WithLabelValues("bad_password").Inc()
		log.Info().Str("username", username).Msg("login attempt with wrong password")
		return types.User{}, ErrInvalidCredentials
	}

	metrics.LoginAttempts.WithLabelValues("ok").Inc()

	return u, nil
}
