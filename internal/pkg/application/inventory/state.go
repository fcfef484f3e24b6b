package inventory

import (
	"maps"
	"slices"

	"github.com/diwise/iot-inventory-admin/pkg/types"
	"github.com/samber/lo"
)

// arena keeps entities by id together with their insertion order. Values are
// never modified in place, a changed entity is written back with put.
type arena[T any] struct {
	order []string
	items map[string]T
}

func newArena[T any]() arena[T] {
	return arena[T]{order: []string{}, items: map[string]T{}}
}

func (a arena[T]) clone() arena[T] {
	return arena[T]{order: slices.Clone(a.order), items: maps.Clone(a.items)}
}

func (a arena[T]) get(id string) (T, bool) {
	v, ok := a.items[id]
	return v, ok
}

func (a *arena[T]) put(id string, v T) {
	if _, ok := a.items[id]; !ok {
		a.order = append(a.order, id)
	}
	a.items[id] = v
}

func (a *arena[T]) remove(id string) {
	delete(a.items, id)
	a.order = slices.DeleteFunc(a.order, func(existing string) bool {
		return existing == id
	})
}

func (a arena[T]) len() int {
	return len(a.order)
}

func (a arena[T]) values() []T {
	result := make([]T, 0, len(a.order))
	for _, id := range a.order {
		result = append(result, a.items[id])
	}
	return result
}

func (a arena[T]) find(predicate func(T) bool) (T, bool) {
	for _, id := range a.order {
		if v := a.items[id]; predicate(v) {
			return v, true
		}
	}
	var zero T
	return zero, false
}

type state struct {
	users   arena[types.User]
	groups  arena[types.Group]
	devices arena[types.Device]
}

func newState() *state {
	return &state{
		users:   newArena[types.User](),
		groups:  newArena[types.Group](),
		devices: newArena[types.Device](),
	}
}

func (s *state) clone() *state {
	return &state{
		users:   s.users.clone(),
		groups:  s.groups.clone(),
		devices: s.devices.clone(),
	}
}

func (s *state) empty() bool {
	return s.users.len() == 0 && s.groups.len() == 0 && s.devices.len() == 0
}

func (s *state) adminCount() int {
	return lo.CountBy(s.users.values(), func(u types.User) bool {
		return u.Role == types.RoleAdmin
	})
}

func (s *state) displayName(d types.Device) string {
	if d.GroupID != "" {
		if g, ok := s.groups.get(d.GroupID); ok {
			return g.Prefix + "-" + d.Name
		}
	}
	return d.Name
}

// attach returns ids with id appended unless it is already present. The
// input slice is never written to.
func attach(ids []string, id string) []string {
	if slices.Contains(ids, id) {
		return ids
	}
	return append(slices.Clip(ids), id)
}

func detach(ids []string, id string) []string {
	return lo.Without(ids, id)
}

// reconcile repairs the links in a loaded state so that every foreign key
// points at an existing entity and every reverse list matches the foreign
// keys. It returns the number of entities that had to be changed.
func reconcile(s *state) int {
	repaired := 0

	for _, d := range s.devices.values() {
		changed := false

		if _, ok := s.groups.get(d.GroupID); d.GroupID != "" && !ok {
			d.GroupID = ""
			changed = true
		}
		if _, ok := s.users.get(d.UserID); d.UserID != "" && !ok {
			d.UserID = ""
			changed = true
		}
		if name := s.displayName(d); name != d.DisplayName {
			d.DisplayName = name
			changed = true
		}

		if changed {
			s.devices.put(d.ID, d)
			repaired++
		}
	}

	for _, g := range s.groups.values() {
		ids := linkedDevices(s, g.DeviceIDs, func(d types.Device) bool { return d.GroupID == g.ID })
		if !slices.Equal(ids, g.DeviceIDs) {
			g.DeviceIDs = ids
			s.groups.put(g.ID, g)
			repaired++
		}
	}

	for _, u := range s.users.values() {
		ids := linkedDevices(s, u.DeviceIDs, func(d types.Device) bool { return d.UserID == u.ID })
		if !slices.Equal(ids, u.DeviceIDs) {
			u.DeviceIDs = ids
			s.users.put(u.ID, u)
			repaired++
		}
	}

	return repaired
}

// linkedDevices keeps the known order of ids that still link back and
// appends devices that link to the owner but were missing from the list.
func linkedDevices(s *state, ids []string, linked func(types.Device) bool) []string {
	result := []string{}

	for _, id := range ids {
		if d, ok := s.devices.get(id); ok && linked(d) {
			result = attach(result, id)
		}
	}

	for _, d := range s.devices.values() {
		if linked(d) {
			result = attach(result, d.ID)
		}
	}

	return result
}
