package client

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/diwise/iot-inventory-admin/pkg/types"
	"github.com/matryer/is"
)

func TestListDevices(t *testing.T) {
	is := is.New(t)

	requests := make(chan *http.Request, 1)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests <- r
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(devicesJson))
	}))
	defer server.Close()

	c := New(server.URL+"/", "admin", "admin123")

	devices, err := c.ListDevices(context.Background(),
		&types.FilterOptions{Status: "online"},
		&types.SortOptions{Field: "name", Direction: types.SortDescending},
	)
	is.NoErr(err)
	is.Equal(len(devices), 1)
	is.Equal(devices[0].DisplayName, "HQ-srv1")

	r := <-requests
	is.Equal(r.URL.Path, "/api/v0/devices")
	is.Equal(r.URL.Query().Get("status"), "online")
	is.Equal(r.URL.Query().Get("sortDirection"), "desc")

	username, password, ok := r.BasicAuth()
	is.True(ok)
	is.Equal(username, "admin")
	is.Equal(password, "admin123")
}

func TestGetUnknownDevice(t *testing.T) {
	is := is.New(t)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	_, err := New(server.URL, "admin", "admin123").GetDevice(context.Background(), "nosuchdevice")
	is.True(errors.Is(err, ErrNotFound))
}

func TestSummaryWithBadCredentials(t *testing.T) {
	is := is.New(t)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer server.Close()

	_, err := New(server.URL, "admin", "wrong").Summary(context.Background())
	is.True(errors.Is(err, ErrUnauthorized))
}

func TestSummary(t *testing.T) {
	is := is.New(t)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/v0/summary" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"users":2,"groups":1,"devices":4,"online":3,"offline":1,"pending":0,"onlinePercentage":75,"recentActivity":[]}`))
	}))
	defer server.Close()

	summary, err := New(server.URL, "admin", "admin123").Summary(context.Background())
	is.NoErr(err)
	is.Equal(summary.Devices, 4)
	is.Equal(summary.OnlinePercentage, 75)
}

const devicesJson string = `[{"id":"d1","name":"srv1","displayName":"HQ-srv1","ipAddress":"10.0.0.1","macAddress":"","groupId":"g1","status":"online","lastActive":"2024-01-02T03:04:05Z","createdAt":"2024-01-01T00:00:00Z","updatedAt":"2024-01-01T00:00:00Z"}]`
