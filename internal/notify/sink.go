package notify

import (
	"context"
	"encoding/json"
	"os"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	log "github.com/sirupsen/logrus"

	"github.com/tourmates/backend/internal/db"
	"github.com/tourmates/backend/internal/models"
)

// Pusher delivers an event to a connected user's realtime channel.
type Pusher interface {
	SendToUser(userID string, event string, payload interface{})
}

// Sink is the notification outlet for membership decisions. It persists a
// notification record for the recipient's inbox, publishes the event to the
// MQTT broker, and pushes it over the websocket channel. Every leg is best
// effort: the trip mutation has already committed by the time a notification
// reaches the sink, so failures are logged and swallowed.
type Sink struct {
	notifications db.NotificationCollection
	broker        mqtt.Client
	pusher        Pusher
}

// NewSink creates a notification sink. Broker and pusher may be nil; the
// corresponding legs are skipped.
func NewSink(notifications db.NotificationCollection, broker mqtt.Client, pusher Pusher) *Sink {
	return &Sink{
		notifications: notifications,
		broker:        broker,
		pusher:        pusher,
	}
}

// ConnectBroker connects to the MQTT broker named by the MQTT_BROKER
// environment variable. Returns nil without error when no broker is
// configured; the sink then runs without the MQTT leg.
func ConnectBroker() (mqtt.Client, error) {
	brokerURL := os.Getenv("MQTT_BROKER")
	if brokerURL == "" {
		return nil, nil
	}

	opts := mqtt.NewClientOptions().
		AddBroker(brokerURL).
		SetClientID("tourmates-api").
		SetConnectTimeout(10 * time.Second).
		SetAutoReconnect(true)

	client := mqtt.NewClient(opts)
	token := client.Connect()
	if token.Wait() && token.Error() != nil {
		return nil, token.Error()
	}
	return client, nil
}

// Notify fans the notification out to all configured legs. Never returns an
// error and never blocks on broker delivery.
func (s *Sink) Notify(ctx context.Context, n models.Notification) {
	if s.notifications != nil {
		if err := s.notifications.InsertNotification(ctx, &n); err != nil {
			log.WithError(err).WithFields(log.Fields{
				"user_id": n.User.Hex(),
				"type":    n.Type,
			}).Error("Failed to persist notification")
		}
	}

	payload, err := json.Marshal(n)
	if err != nil {
		log.WithError(err).Error("Failed to encode notification")
		return
	}

	if s.broker != nil {
		topic := "tourmates/notifications/" + n.User.Hex()
		token := s.broker.Publish(topic, 0, false, payload)
		go func() {
			if token.Wait() && token.Error() != nil {
				log.WithError(token.Error()).WithField("topic", topic).Error("Failed to publish notification")
			}
		}()
	}

	if s.pusher != nil {
		s.pusher.SendToUser(n.User.Hex(), "notification", n)
	}
}
