package inventory

import (
	"context"

	"github.com/diwise/iot-inventory-admin/internal/pkg/application/query"
	"github.com/diwise/iot-inventory-admin/pkg/types"
)

func (s *Store) ListGroups(ctx context.Context, filter *types.FilterOptions, sort *types.SortOptions) []types.Group {
	groups := s.snapshot().groups.values()
	for i := range groups {
		groups[i] = groups[i].Clone()
	}

	return query.ApplySorting(query.ApplyFilters(groups, filter), sort, s.locale)
}

func (s *Store) GetGroup(ctx context.Context, id string) (types.Group, error) {
	g, ok := s.snapshot().groups.get(id)
	if !ok {
		return types.Group{}, notFound("group", id)
	}
	return g.Clone(), nil
}

func (s *Store) CreateGroup(ctx context.Context, in types.GroupInput) (types.Group, error) {
	if err := validateGroup(in); err != nil {
		return types.Group{}, err
	}

	var created types.Group

	err := s.change(ctx, types.EntityGroups, types.ActionCreated, func(tx *state) (string, error) {
		created = s.insertGroup(tx, in)
		return created.ID, nil
	})
	if err != nil {
		return types.Group{}, err
	}

	return created.Clone(), nil
}

func validateGroup(in types.GroupInput) error {
	if in.Name == "" || in.Prefix == "" {
		return validationError("name and prefix are required")
	}
	return nil
}

func (s *Store) insertGroup(tx *state, in types.GroupInput) types.Group {
	now := s.now()
	g := types.Group{
		ID:        s.newID(),
		Name:      in.Name,
		Location:  in.Location,
		Prefix:    in.Prefix,
		DeviceIDs: []string{},
		CreatedAt: now,
		UpdatedAt: now,
	}
	tx.groups.put(g.ID, g)

	return g
}

// UpdateGroup changes the group and, when the prefix changes, the display
// name of every device in it.
func (s *Store) UpdateGroup(ctx context.Context, id string, in types.GroupUpdate) (types.Group, error) {
	var updated types.Group

	err := s.change(ctx, types.EntityGroups, types.ActionUpdated, func(tx *state) (string, error) {
		g, ok := tx.groups.get(id)
		if !ok {
			return "", notFound("group", id)
		}

		now := s.now()

		if in.Name != nil {
			if *in.Name == "" {
				return "", validationError("name must not be empty")
			}
			g.Name = *in.Name
		}
		if in.Location != nil {
			g.Location = *in.Location
		}

		prefixChanged := false
		if in.Prefix != nil && *in.Prefix != g.Prefix {
			if *in.Prefix == "" {
				return "", validationError("prefix must not be empty")
			}
			g.Prefix = *in.Prefix
			prefixChanged = true
		}

		g.UpdatedAt = now
		tx.groups.put(id, g)

		if prefixChanged {
			for _, deviceID := range g.DeviceIDs {
				d, ok := tx.devices.get(deviceID)
				if !ok {
					continue
				}
				d.DisplayName = tx.displayName(d)
				d.UpdatedAt = now
				tx.devices.put(d.ID, d)
			}
		}

		updated = g

		return id, nil
	})
	if err != nil {
		return types.Group{}, err
	}

	return updated.Clone(), nil
}

// DeleteGroup removes the group. Its devices are kept but lose the group
// and fall back to their bare name.
func (s *Store) DeleteGroup(ctx context.Context, id string) error {
	return s.change(ctx, types.EntityGroups, types.ActionDeleted, func(tx *state) (string, error) {
		if _, ok := tx.groups.get(id); !ok {
			return "", notFound("group", id)
		}

		tx.groups.remove(id)

		now := s.now()
		for _, d := range tx.devices.values() {
			if d.GroupID == id {
				d.GroupID = ""
				d.DisplayName = d.Name
				d.UpdatedAt = now
				tx.devices.put(d.ID, d)
			}
		}

		return id, nil
	})
}
