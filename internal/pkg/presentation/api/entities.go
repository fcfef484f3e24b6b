package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/diwise/iot-inventory-admin/pkg/types"
	"github.com/samber/lo"
)

func parseQuery(r *http.Request) (*types.FilterOptions, *types.SortOptions, error) {
	q := r.URL.Query()

	var filter *types.FilterOptions
	f := types.FilterOptions{
		Search:  q.Get("search"),
		Status:  q.Get("status"),
		Role:    q.Get("role"),
		GroupID: q.Get("groupId"),
		UserID:  q.Get("userId"),
	}
	if f != (types.FilterOptions{}) {
		filter = &f
	}

	var sort *types.SortOptions
	if field := q.Get("sortBy"); field != "" {
		direction := types.SortDirection(strings.ToLower(q.Get("sortDirection")))
		switch direction {
		case "":
			direction = types.SortAscending
		case types.SortAscending, types.SortDescending:
		default:
			return nil, nil, fmt.Errorf("%w: sortDirection must be asc or desc", errMalformedRequest)
		}
		sort = &types.SortOptions{Field: field, Direction: direction}
	}

	return filter, sort, nil
}

func withoutPasswords(users []types.User) []types.User {
	return lo.Map(users, func(u types.User, _ int) types.User {
		return u.WithoutPassword()
	})
}

func listEntities(ctx context.Context, store Inventory, entity types.Entity, filter *types.FilterOptions, sort *types.SortOptions) any {
	switch entity {
	case types.EntityUsers:
		return withoutPasswords(store.ListUsers(ctx, filter, sort))
	case types.EntityGroups:
		return store.ListGroups(ctx, filter, sort)
	default:
		return store.ListDevices(ctx, filter, sort)
	}
}

func getEntity(ctx context.Context, store Inventory, entity types.Entity, id string) (any, error) {
	switch entity {
	case types.EntityUsers:
		u, err := store.GetUser(ctx, id)
		return u.WithoutPassword(), err
	case types.EntityGroups:
		return store.GetGroup(ctx, id)
	default:
		return store.GetDevice(ctx, id)
	}
}

func decode[T any](body []byte) (T, error) {
	var v T
	if err := json.Unmarshal(body, &v); err != nil {
		return v, fmt.Errorf("%w: %s", errMalformedRequest, err.Error())
	}
	return v, nil
}

func createEntity(ctx context.Context, store Inventory, entity types.Entity, body []byte) (any, error) {
	switch entity {
	case types.EntityUsers:
		in, err := decode[types.UserInput](body)
		if err != nil {
			return nil, err
		}
		u, err := store.CreateUser(ctx, in)
		return u.WithoutPassword(), err
	case types.EntityGroups:
		in, err := decode[types.GroupInput](body)
		if err != nil {
			return nil, err
		}
		return store.CreateGroup(ctx, in)
	default:
		in, err := decode[types.DeviceInput](body)
		if err != nil {
			return nil, err
		}
		return store.CreateDevice(ctx, in)
	}
}

func updateEntity(ctx context.Context, store Inventory, entity types.Entity, id string, body []byte) (any, error) {
	switch entity {
	case types.EntityUsers:
		in, err := decode[types.UserUpdate](body)
		if err != nil {
			return nil, err
		}
		u, err := store.UpdateUser(ctx, id, in)
		return u.WithoutPassword(), err
	case types.EntityGroups:
		in, err := decode[types.GroupUpdate](body)
		if err != nil {
			return nil, err
		}
		return store.UpdateGroup(ctx, id, in)
	default:
		in, err := decode[types.DeviceUpdate](body)
		if err != nil {
			return nil, err
		}
		return store.UpdateDevice(ctx, id, in)
	}
}

func deleteEntity(ctx context.Context, store Inventory, entity types.Entity, id string) error {
	switch entity {
	case types.EntityUsers:
		return store.DeleteUser(ctx, id)
	case types.EntityGroups:
		return store.DeleteGroup(ctx, id)
	default:
		return store.DeleteDevice(ctx, id)
	}
}
