package types

import (
	"slices"
	"time"
)

type Role string

const (
	RoleAdmin Role = "admin"
	RoleUser  Role = "user"
)

func (r Role) Valid() bool {
	return r == RoleAdmin || r == RoleUser
}

type DeviceStatus string

const (
	StatusOnline  DeviceStatus = "online"
	StatusOffline DeviceStatus = "offline"
	StatusPending DeviceStatus = "pending"
)

func (s DeviceStatus) Valid() bool {
	return s == StatusOnline || s == StatusOffline || s == StatusPending
}

type User struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Username  string    `json:"username"`
	Password  string    `json:"password,omitempty"`
	Role      Role      `json:"role"`
	DeviceIDs []string  `json:"deviceIds"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func (u User) Clone() User {
	u.DeviceIDs = cloneIDs(u.DeviceIDs)
	return u
}

// WithoutPassword returns a copy that is safe to hand out over the API.
func (u User) WithoutPassword() User {
	u = u.Clone()
	u.Password = ""
	return u
}

func (u User) Attributes() map[string]string {
	return map[string]string{
		"id":       u.ID,
		"name":     u.Name,
		"username": u.Username,
		"role":     string(u.Role),
	}
}

type Group struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Location  string    `json:"location"`
	Prefix    string    `json:"prefix"`
	DeviceIDs []string  `json:"deviceIds"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func (g Group) Clone() Group {
	g.DeviceIDs = cloneIDs(g.DeviceIDs)
	return g
}

func (g Group) Attributes() map[string]string {
	return map[string]string{
		"id":       g.ID,
		"name":     g.Name,
		"location": g.Location,
		"prefix":   g.Prefix,
	}
}

type Specs struct {
	CPU    string `json:"cpu,omitempty" yaml:"cpu"`
	Memory string `json:"memory,omitempty" yaml:"memory"`
	Disk   string `json:"disk,omitempty" yaml:"disk"`
	OS     string `json:"os,omitempty" yaml:"os"`
}

type Device struct {
	ID          string       `json:"id"`
	Name        string       `json:"name"`
	DisplayName string       `json:"displayName"`
	IPAddress   string       `json:"ipAddress"`
	MACAddress  string       `json:"macAddress"`
	GroupID     string       `json:"groupId,omitempty"`
	UserID      string       `json:"userId,omitempty"`
	Status      DeviceStatus `json:"status"`
	LastActive  time.Time    `json:"lastActive"`
	Specs       *Specs       `json:"specs,omitempty"`
	CreatedAt   time.Time    `json:"createdAt"`
	UpdatedAt   time.Time    `json:"updatedAt"`
}

func (d Device) Clone() Device {
	if d.Specs != nil {
		specs := *d.Specs
		d.Specs = &specs
	}
	return d
}

func (d Device) Attributes() map[string]string {
	return map[string]string{
		"id":          d.ID,
		"name":        d.Name,
		"displayName": d.DisplayName,
		"ipAddress":   d.IPAddress,
		"macAddress":  d.MACAddress,
		"groupId":     d.GroupID,
		"userId":      d.UserID,
		"status":      string(d.Status),
	}
}

type UserInput struct {
	Name     string `json:"name" yaml:"name"`
	Username string `json:"username" yaml:"username"`
	Password string `json:"password" yaml:"password"`
	Role     Role   `json:"role" yaml:"role"`
}

// UserUpdate holds the fields to change, nil means leave as is.
type UserUpdate struct {
	Name     *string `json:"name,omitempty"`
	Username *string `json:"username,omitempty"`
	Password *string `json:"password,omitempty"`
	Role     *Role   `json:"role,omitempty"`
}

type GroupInput struct {
	Name     string `json:"name" yaml:"name"`
	Location string `json:"location" yaml:"location"`
	Prefix   string `json:"prefix" yaml:"prefix"`
}

type GroupUpdate struct {
	Name     *string `json:"name,omitempty"`
	Location *string `json:"location,omitempty"`
	Prefix   *string `json:"prefix,omitempty"`
}

type DeviceInput struct {
	Name       string       `json:"name" yaml:"name"`
	IPAddress  string       `json:"ipAddress" yaml:"ipAddress"`
	MACAddress string       `json:"macAddress" yaml:"macAddress"`
	GroupID    string       `json:"groupId,omitempty" yaml:"groupId"`
	UserID     string       `json:"userId,omitempty" yaml:"userId"`
	Status     DeviceStatus `json:"status" yaml:"status"`
	LastActive *time.Time   `json:"lastActive,omitempty" yaml:"lastActive"`
	Specs      *Specs       `json:"specs,omitempty" yaml:"specs"`
}

// DeviceUpdate holds the fields to change. An empty GroupID or UserID
// detaches the device.
type DeviceUpdate struct {
	Name       *string       `json:"name,omitempty"`
	IPAddress  *string       `json:"ipAddress,omitempty"`
	MACAddress *string       `json:"macAddress,omitempty"`
	GroupID    *string       `json:"groupId,omitempty"`
	UserID     *string       `json:"userId,omitempty"`
	Status     *DeviceStatus `json:"status,omitempty"`
	LastActive *time.Time    `json:"lastActive,omitempty"`
	Specs      *Specs        `json:"specs,omitempty"`
}

type FilterOptions struct {
	Search  string `json:"search,omitempty"`
	Status  string `json:"status,omitempty"`
	Role    string `json:"role,omitempty"`
	GroupID string `json:"groupId,omitempty"`
	UserID  string `json:"userId,omitempty"`
}

type SortDirection string

const (
	SortAscending  SortDirection = "asc"
	SortDescending SortDirection = "desc"
)

type SortOptions struct {
	Field     string        `json:"field"`
	Direction SortDirection `json:"direction"`
}

type Summary struct {
	Users            int       `json:"users"`
	Groups           int       `json:"groups"`
	Devices          int       `json:"devices"`
	Online           int       `json:"online"`
	Offline          int       `json:"offline"`
	Pending          int       `json:"pending"`
	OnlinePercentage int       `json:"onlinePercentage"`
	RecentActivity   []Device  `json:"recentActivity"`
	GeneratedAt      time.Time `json:"generatedAt"`
}

func cloneIDs(ids []string) []string {
	if ids == nil {
		return []string{}
	}
	return slices.Clone(ids)
}
