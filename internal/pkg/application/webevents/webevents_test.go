package webevents

import (
	"bufio"
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/diwise/iot-inventory-admin/pkg/types"
	"github.com/matryer/is"
)

func TestThatConnectedClientReceivesChange(t *testing.T) {
	is := is.New(t)

	we := New()
	defer we.Shutdown()

	server := httptest.NewServer(we.Handler())
	defer server.Close()

	resp, err := http.Get(server.URL + "/api/v0/events")
	is.NoErr(err)
	defer resp.Body.Close()

	lines := make(chan string, 16)
	go func() {
		scanner := bufio.NewScanner(resp.Body)
		for scanner.Scan() {
			lines <- scanner.Text()
		}
		close(lines)
	}()

	changed := types.EntityChanged{Entity: types.EntityGroups, ID: "g1", Action: types.ActionDeleted}

	ticker := time.NewTicker(50 * time.Millisecond)
	defer ticker.Stop()
	timeout := time.After(2 * time.Second)

	for {
		select {
		case <-ticker.C:
			is.NoErr(we.Send(context.Background(), changed))
		case line, ok := <-lines:
			is.True(ok)
			if strings.HasPrefix(line, "event: ") {
				is.Equal(line, "event: groups.deleted")
				return
			}
		case <-timeout:
			t.Fatal("no event received")
		}
	}
}
