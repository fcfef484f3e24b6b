package inventory

import (
	"context"
	"time"

	"github.com/diwise/iot-inventory-admin/internal/pkg/application/query"
	"github.com/diwise/iot-inventory-admin/pkg/types"
)

func (s *Store) ListDevices(ctx context.Context, filter *types.FilterOptions, sort *types.SortOptions) []types.Device {
	devices := s.snapshot().devices.values()
	for i := range devices {
		devices[i] = devices[i].Clone()
	}

	return query.ApplySorting(query.ApplyFilters(devices, filter), sort, s.locale)
}

func (s *Store) GetDevice(ctx context.Context, id string) (types.Device, error) {
	d, ok := s.snapshot().devices.get(id)
	if !ok {
		return types.Device{}, notFound("device", id)
	}
	return d.Clone(), nil
}

// CreateDevice adds a device and links it to its group and responsible user
// in the same change.
func (s *Store) CreateDevice(ctx context.Context, in types.DeviceInput) (types.Device, error) {
	in, err := validateDevice(in)
	if err != nil {
		return types.Device{}, err
	}

	var created types.Device

	err = s.change(ctx, types.EntityDevices, types.ActionCreated, func(tx *state) (string, error) {
		d, err := s.insertDevice(tx, in)
		if err != nil {
			return "", err
		}
		created = d

		return d.ID, nil
	})
	if err != nil {
		return types.Device{}, err
	}

	return created.Clone(), nil
}

func validateDevice(in types.DeviceInput) (types.DeviceInput, error) {
	if in.Status == "" {
		in.Status = types.StatusPending
	}

	if in.Name == "" {
		return in, validationError("name is required")
	}
	if !in.Status.Valid() {
		return in, validationError("invalid status %q", in.Status)
	}

	return in, nil
}

func (s *Store) insertDevice(tx *state, in types.DeviceInput) (types.Device, error) {
	now := s.now()

	d := types.Device{
		ID:         s.newID(),
		Name:       in.Name,
		IPAddress:  in.IPAddress,
		MACAddress: in.MACAddress,
		Status:     in.Status,
		LastActive: now,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if in.LastActive != nil {
		d.LastActive = *in.LastActive
	}
	if in.Specs != nil {
		specs := *in.Specs
		d.Specs = &specs
	}

	if err := linkGroup(tx, &d, in.GroupID, now); err != nil {
		return types.Device{}, err
	}
	if err := linkUser(tx, &d, in.UserID, now); err != nil {
		return types.Device{}, err
	}

	d.DisplayName = tx.displayName(d)
	tx.devices.put(d.ID, d)

	return d, nil
}

func (s *Store) UpdateDevice(ctx context.Context, id string, in types.DeviceUpdate) (types.Device, error) {
	var updated types.Device

	err := s.change(ctx, types.EntityDevices, types.ActionUpdated, func(tx *state) (string, error) {
		d, ok := tx.devices.get(id)
		if !ok {
			return "", notFound("device", id)
		}

		now := s.now()

		if in.Name != nil {
			if *in.Name == "" {
				return "", validationError("name must not be empty")
			}
			d.Name = *in.Name
		}
		if in.IPAddress != nil {
			d.IPAddress = *in.IPAddress
		}
		if in.MACAddress != nil {
			d.MACAddress = *in.MACAddress
		}
		if in.Status != nil {
			if !in.Status.Valid() {
				return "", validationError("invalid status %q", *in.Status)
			}
			d.Status = *in.Status
		}
		if in.LastActive != nil {
			d.LastActive = *in.LastActive
		}
		if in.Specs != nil {
			specs := *in.Specs
			d.Specs = &specs
		}

		if in.GroupID != nil {
			if err := linkGroup(tx, &d, *in.GroupID, now); err != nil {
				return "", err
			}
		}
		if in.UserID != nil {
			if err := linkUser(tx, &d, *in.UserID, now); err != nil {
				return "", err
			}
		}

		d.DisplayName = tx.displayName(d)
		d.UpdatedAt = now
		tx.devices.put(id, d)
		updated = d

		return id, nil
	})
	if err != nil {
		return types.Device{}, err
	}

	return updated.Clone(), nil
}

func (s *Store) DeleteDevice(ctx context.Context, id string) error {
	return s.change(ctx, types.EntityDevices, types.ActionDeleted, func(tx *state) (string, error) {
		d, ok := tx.devices.get(id)
		if !ok {
			return "", notFound("device", id)
		}

		now := s.now()

		if err := linkGroup(tx, &d, "", now); err != nil {
			return "", err
		}
		if err := linkUser(tx, &d, "", now); err != nil {
			return "", err
		}

		tx.devices.remove(id)

		return id, nil
	})
}

// linkGroup moves d from its current group to groupID, an empty groupID
// only detaches. Linking to the group d already belongs to is a no-op.
func linkGroup(tx *state, d *types.Device, groupID string, now time.Time) error {
	if groupID != "" {
		if _, ok := tx.groups.get(groupID); !ok {
			return validationError("group %q does not exist", groupID)
		}
	}

	if d.GroupID != "" && d.GroupID != groupID {
		if old, ok := tx.groups.get(d.GroupID); ok {
			old.DeviceIDs = detach(old.DeviceIDs, d.ID)
			old.UpdatedAt = now
			tx.groups.put(old.ID, old)
		}
	}

	if groupID != "" {
		g, _ := tx.groups.get(groupID)
		if ids := attach(g.DeviceIDs, d.ID); len(ids) != len(g.DeviceIDs) {
			g.DeviceIDs = ids
			g.UpdatedAt = now
			tx.groups.put(g.ID, g)
		}
	}

	d.GroupID = groupID

	return nil
}

func linkUser(tx *state, d *types.Device, userID string, now time.Time) error {
	if userID != "" {
		if _, ok := tx.users.get(userID); !ok {
			return validationError("user %q does not exist", userID)
		}
	}

	if d.UserID != "" && d.UserID != userID {
		if old, ok := tx.users.get(d.UserID); ok {
			old.DeviceIDs = detach(old.DeviceIDs, d.ID)
			old.UpdatedAt = now
			tx.users.put(old.ID, old)
		}
	}

	if userID != "" {
		u, _ := tx.users.get(userID)
		if ids := attach(u.DeviceIDs, d.ID); len(ids) != len(u.DeviceIDs) {
			u.DeviceIDs = ids
			u.UpdatedAt = now
			tx.users.put(u.ID, u)
		}
	}

	d.UserID = userID

	return nil
}
