package inventory

import (
	"context"
	"fmt"
	"io"

	"github.com/diwise/iot-inventory-admin/internal/pkg/infrastructure/logging"
	"github.com/diwise/iot-inventory-admin/pkg/types"
	"gopkg.in/yaml.v2"
)

type SeedDevice struct {
	types.DeviceInput `yaml:",inline"`
	Group             string `yaml:"group"`
	User              string `yaml:"user"`
}

// SeedData describes an initial inventory. Devices refer to their group by
// name and to their user by username.
type SeedData struct {
	Users   []types.UserInput  `yaml:"users"`
	Groups  []types.GroupInput `yaml:"groups"`
	Devices []SeedDevice       `yaml:"devices"`
}

func LoadSeed(data io.Reader) (*SeedData, error) {
	buf, err := io.ReadAll(data)
	if err != nil {
		return nil, err
	}

	seed := SeedData{}
	if err := yaml.Unmarshal(buf, &seed); err != nil {
		return nil, err
	}

	return &seed, nil
}

// Seed populates an empty store in a single change, either the whole seed is
// stored or nothing is. A store that already holds any entity is left
// untouched. The seed must contain at least one admin.
func (s *Store) Seed(ctx context.Context, seed *SeedData) error {
	log := logging.GetLoggerFromContext(ctx)

	if !s.snapshot().empty() {
		log.Info().Msg("inventory is not empty, skipping seed")
		return nil
	}

	users := make([]types.UserInput, 0, len(seed.Users))
	hashes := make([]string, 0, len(seed.Users))
	hasAdmin := false

	for _, in := range seed.Users {
		in, hash, err := s.prepareUser(in)
		if err != nil {
			return fmt.Errorf("failed to seed user %s: %w", in.Username, err)
		}
		hasAdmin = hasAdmin || in.Role == types.RoleAdmin
		users = append(users, in)
		hashes = append(hashes, hash)
	}

	if !hasAdmin {
		return fmt.Errorf("seed contains no admin user: %w", ErrLastAdmin)
	}

	for _, in := range seed.Groups {
		if err := validateGroup(in); err != nil {
			return fmt.Errorf("failed to seed group %s: %w", in.Name, err)
		}
	}

	devices := make([]SeedDevice, 0, len(seed.Devices))
	for _, sd := range seed.Devices {
		in, err := validateDevice(sd.DeviceInput)
		if err != nil {
			return fmt.Errorf("failed to seed device %s: %w", sd.Name, err)
		}
		sd.DeviceInput = in
		devices = append(devices, sd)
	}

	seeded := false

	err := s.apply(ctx, "inventory", "seeded", func(tx *state) ([]types.EntityChanged, error) {
		if !tx.empty() {
			return nil, nil
		}

		changes := []types.EntityChanged{}
		created := func(entity types.Entity, id string) {
			changes = append(changes, types.EntityChanged{Entity: entity, ID: id, Action: types.ActionCreated})
		}

		usersByName := map[string]string{}
		for i, in := range users {
			u, err := s.insertUser(tx, in, hashes[i])
			if err != nil {
				return nil, fmt.Errorf("failed to seed user %s: %w", in.Username, err)
			}
			usersByName[u.Username] = u.ID
			created(types.EntityUsers, u.ID)
		}

		groupsByName := map[string]string{}
		for _, in := range seed.Groups {
			if _, ok := groupsByName[in.Name]; ok {
				return nil, validationError("seeded group name %q is not unique", in.Name)
			}
			g := s.insertGroup(tx, in)
			groupsByName[g.Name] = g.ID
			created(types.EntityGroups, g.ID)
		}

		for _, sd := range devices {
			in := sd.DeviceInput

			if sd.Group != "" {
				id, ok := groupsByName[sd.Group]
				if !ok {
					return nil, validationError("seeded device %s refers to unknown group %s", in.Name, sd.Group)
				}
				in.GroupID = id
			}
			if sd.User != "" {
				id, ok := usersByName[sd.User]
				if !ok {
					return nil, validationError("seeded device %s refers to unknown user %s", in.Name, sd.User)
				}
				in.UserID = id
			}

			d, err := s.insertDevice(tx, in)
			if err != nil {
				return nil, fmt.Errorf("failed to seed device %s: %w", in.Name, err)
			}
			created(types.EntityDevices, d.ID)
		}

		seeded = true

		return changes, nil
	})
	if err != nil {
		return err
	}

	if !seeded {
		log.Info().Msg("inventory is not empty, skipping seed")
		return nil
	}

	log.Info().
		Int("users", len(seed.Users)).
		Int("groups", len(seed.Groups)).
		Int("devices", len(seed.Devices)).
		Msg("seeded inventory")

	return nil
}
