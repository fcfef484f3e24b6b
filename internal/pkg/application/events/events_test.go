package events

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/diwise/iot-inventory-admin/pkg/types"
	"github.com/diwise/messaging-golang/pkg/messaging"
	"github.com/matryer/is"
)

func TestConfig(t *testing.T) {
	is := setupTest(t)
	config := strings.NewReader(`
notifications:
  - id: inventory
    name: Inventory changes
    type: diwise.inventory.changed
    subscribers:
    - endpoint: http://api-notification:8990
      entities:
      - devices
`)
	cfg, err := LoadConfiguration(config)

	is.NoErr(err)
	is.Equal(len(cfg.Notifications), 1)
	is.Equal(cfg.Notifications[0].ID, "inventory")
	is.True(cfg.Notifications[0].Subscribers[0].Accepts(types.EntityDevices))
	is.True(!cfg.Notifications[0].Subscribers[0].Accepts(types.EntityUsers))
}

func TestThatChangeEventIsPostedToSubscriber(t *testing.T) {
	is := setupTest(t)

	received := make(chan types.EntityChanged, 1)
	ceType := make(chan string, 1)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		e := types.EntityChanged{}
		json.Unmarshal(body, &e)
		ceType <- r.Header.Get("Ce-Type")
		received <- e
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	sender := New(&Config{Notifications: []Notification{{
		Type:        InventoryChangedType,
		Subscribers: []SubscriberConfig{{Endpoint: server.URL}},
	}}})

	err := sender.Send(context.Background(), changedEvent())
	is.NoErr(err)

	e := <-received
	is.Equal(<-ceType, InventoryChangedType)
	is.Equal(e.ID, "d1")
	is.Equal(e.Action, types.ActionCreated)
}

func TestThatSendWithoutSubscribersIsNoop(t *testing.T) {
	is := setupTest(t)

	sender := New(nil)
	is.NoErr(sender.Send(context.Background(), changedEvent()))
}

func TestThatUnreachableSubscriberReturnsError(t *testing.T) {
	is := setupTest(t)

	server := httptest.NewServer(http.NotFoundHandler())
	endpoint := server.URL
	server.Close()

	sender := New(&Config{Notifications: []Notification{{
		Type:        InventoryChangedType,
		Subscribers: []SubscriberConfig{{Endpoint: endpoint}},
	}}})

	err := sender.Send(context.Background(), changedEvent())
	is.True(err != nil)
}

func TestThatTopicSenderPublishesOnEntityTopic(t *testing.T) {
	is := setupTest(t)

	publisher := &recordingPublisher{}

	err := NewTopicSender(publisher).Send(context.Background(), changedEvent())
	is.NoErr(err)
	is.Equal(publisher.topics, []string{"inventory.devices.created"})
	is.Equal(publisher.contentTypes, []string{"application/json"})
}

type recordingPublisher struct {
	topics       []string
	contentTypes []string
}

func (p *recordingPublisher) PublishOnTopic(ctx context.Context, message messaging.TopicMessage) error {
	p.topics = append(p.topics, message.TopicName())
	p.contentTypes = append(p.contentTypes, message.ContentType())
	return nil
}

func changedEvent() types.EntityChanged {
	return types.EntityChanged{
		Entity:    types.EntityDevices,
		ID:        "d1",
		Action:    types.ActionCreated,
		Timestamp: time.Date(2023, 3, 1, 12, 0, 0, 0, time.UTC),
	}
}

func setupTest(t *testing.T) *is.I {
	is := is.New(t)

	return is
}
