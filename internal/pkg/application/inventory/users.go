package inventory

import (
	"context"

	"github.com/diwise/iot-inventory-admin/internal/pkg/application/query"
	"github.com/diwise/iot-inventory-admin/pkg/types"
)

func (s *Store) ListUsers(ctx context.Context, filter *types.FilterOptions, sort *types.SortOptions) []types.User {
	users := s.snapshot().users.values()
	for i := range users {
		users[i] = users[i].Clone()
	}

	return query.ApplySorting(query.ApplyFilters(users, filter), sort, s.locale)
}

func (s *Store) GetUser(ctx context.Context, id string) (types.User, error) {
	u, ok := s.snapshot().users.get(id)
	if !ok {
		return types.User{}, notFound("user", id)
	}
	return u.Clone(), nil
}

func (s *Store) GetUserByUsername(ctx context.Context, username string) (types.User, error) {
	u, ok := s.snapshot().users.find(func(u types.User) bool {
		return u.Username == username
	})
	if !ok {
		return types.User{}, notFound("user", username)
	}
	return u.Clone(), nil
}

func (s *Store) CreateUser(ctx context.Context, in types.UserInput) (types.User, error) {
	in, hash, err := s.prepareUser(in)
	if err != nil {
		return types.User{}, err
	}

	var created types.User

	err = s.change(ctx, types.EntityUsers, types.ActionCreated, func(tx *state) (string, error) {
		u, err := s.insertUser(tx, in, hash)
		if err != nil {
			return "", err
		}
		created = u

		return u.ID, nil
	})
	if err != nil {
		return types.User{}, err
	}

	return created.Clone(), nil
}

// prepareUser validates a new user and hashes its password outside of any
// change.
func (s *Store) prepareUser(in types.UserInput) (types.UserInput, string, error) {
	if in.Role == "" {
		in.Role = types.RoleUser
	}

	if in.Name == "" || in.Username == "" || in.Password == "" {
		return in, "", validationError("name, username and password are required")
	}
	if !in.Role.Valid() {
		return in, "", validationError("invalid role %q", in.Role)
	}

	hash, err := s.hashPassword(in.Password)
	if err != nil {
		return in, "", err
	}

	return in, hash, nil
}

func (s *Store) insertUser(tx *state, in types.UserInput, hash string) (types.User, error) {
	if usernameTaken(tx, in.Username, "") {
		return types.User{}, validationError("username %q is already taken", in.Username)
	}

	now := s.now()
	u := types.User{
		ID:        s.newID(),
		Name:      in.Name,
		Username:  in.Username,
		Password:  hash,
		Role:      in.Role,
		DeviceIDs: []string{},
		CreatedAt: now,
		UpdatedAt: now,
	}
	tx.users.put(u.ID, u)

	return u, nil
}

func (s *Store) UpdateUser(ctx context.Context, id string, in types.UserUpdate) (types.User, error) {
	var hash string
	if in.Password != nil && *in.Password != "" {
		var err error
		if hash, err = s.hashPassword(*in.Password); err != nil {
			return types.User{}, err
		}
	}

	var updated types.User

	err := s.change(ctx, types.EntityUsers, types.ActionUpdated, func(tx *state) (string, error) {
		u, ok := tx.users.get(id)
		if !ok {
			return "", notFound("user", id)
		}

		if in.Name != nil {
			if *in.Name == "" {
				return "", validationError("name must not be empty")
			}
			u.Name = *in.Name
		}

		if in.Username != nil && *in.Username != u.Username {
			if *in.Username == "" {
				return "", validationError("username must not be empty")
			}
			if usernameTaken(tx, *in.Username, id) {
				return "", validationError("username %q is already taken", *in.Username)
			}
			u.Username = *in.Username
		}

		if in.Role != nil && *in.Role != u.Role {
			if !in.Role.Valid() {
				return "", validationError("invalid role %q", *in.Role)
			}
			if u.Role == types.RoleAdmin && tx.adminCount() <= 1 {
				return "", ErrLastAdmin
			}
			u.Role = *in.Role
		}

		if hash != "" {
			u.Password = hash
		}

		u.UpdatedAt = s.now()
		tx.users.put(id, u)
		updated = u

		return id, nil
	})
	if err != nil {
		return types.User{}, err
	}

	return updated.Clone(), nil
}

// DeleteUser removes the user and clears it as responsible party on all of
// its devices. The last remaining admin cannot be deleted.
func (s *Store) DeleteUser(ctx context.Context, id string) error {
	return s.change(ctx, types.EntityUsers, types.ActionDeleted, func(tx *state) (string, error) {
		u, ok := tx.users.get(id)
		if !ok {
			return "", notFound("user", id)
		}

		if u.Role == types.RoleAdmin && tx.adminCount() <= 1 {
			return "", ErrLastAdmin
		}

		now := s.now()
		for _, d := range tx.devices.values() {
			if d.UserID == id {
				d.UserID = ""
				d.UpdatedAt = now
				tx.devices.put(d.ID, d)
			}
		}

		tx.users.remove(id)

		return id, nil
	})
}

func usernameTaken(tx *state, username, exceptID string) bool {
	_, taken := tx.users.find(func(u types.User) bool {
		return u.Username == username && u.ID != exceptID
	})
	return taken
}
