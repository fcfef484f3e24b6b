package events

import (
	"context"

	"github.com/diwise/iot-inventory-admin/pkg/types"
	"github.com/diwise/messaging-golang/pkg/messaging"
)

// TopicPublisher is the part of the messaging context needed to publish.
type TopicPublisher interface {
	PublishOnTopic(ctx context.Context, message messaging.TopicMessage) error
}

type topicSender struct {
	publisher TopicPublisher
}

// NewTopicSender publishes change events on the message bus with the topic
// inventory.<entity>.<action>.
func NewTopicSender(publisher TopicPublisher) EventSender {
	return &topicSender{publisher: publisher}
}

func (t *topicSender) Send(ctx context.Context, e types.EntityChanged) error {
	return t.publisher.PublishOnTopic(ctx, &e)
}
