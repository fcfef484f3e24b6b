package types

import (
	"fmt"
	"time"
)

type Entity string

const (
	EntityUsers   Entity = "users"
	EntityGroups  Entity = "groups"
	EntityDevices Entity = "devices"
)

func (e Entity) Valid() bool {
	return e == EntityUsers || e == EntityGroups || e == EntityDevices
}

type Action string

const (
	ActionCreated Action = "created"
	ActionUpdated Action = "updated"
	ActionDeleted Action = "deleted"
)

type EntityChanged struct {
	Entity    Entity    `json:"entity"`
	ID        string    `json:"id"`
	Action    Action    `json:"action"`
	Timestamp time.Time `json:"timestamp"`
	Sequence  uint64    `json:"sequence"`
}

func (e *EntityChanged) ContentType() string {
	return "application/json"
}

func (e *EntityChanged) TopicName() string {
	return fmt.Sprintf("inventory.%s.%s", e.Entity, e.Action)
}
