package webevents

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	gosse "github.com/alexandrevicenzi/go-sse"
	"github.com/diwise/iot-inventory-admin/pkg/types"
)

// WebEvents pushes inventory changes to connected dashboards as server
// sent events named <entity>.<action>.
type WebEvents interface {
	Handler() http.Handler
	Send(ctx context.Context, e types.EntityChanged) error
	Shutdown()
}

type webEvents struct {
	s *gosse.Server
}

func New() WebEvents {
	return &webEvents{
		s: gosse.NewServer(&gosse.Options{
			ChannelNameFunc: func(*http.Request) string {
				return "inventory"
			},
		}),
	}
}

func (we *webEvents) Handler() http.Handler {
	return we.s
}

func (we *webEvents) Shutdown() {
	we.s.Shutdown()
}

func (we *webEvents) Send(_ context.Context, e types.EntityChanged) error {
	b, err := json.Marshal(e)
	if err != nil {
		return err
	}

	message := gosse.NewMessage("", string(b), fmt.Sprintf("%s.%s", e.Entity, e.Action))
	we.s.SendMessage("", message)

	return nil
}
