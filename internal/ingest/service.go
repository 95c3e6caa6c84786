package ingest

import (
	"fmt"
	"log"
	"sort"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/henryleach/store-mqtt-data/config"
)

// Subscription pairs a topic filter with its message callback.
type Subscription struct {
	Topic   string
	QoS     byte
	Handler mqtt.MessageHandler
}

// Service owns the MQTT client and keeps the subscriptions alive.
type Service struct {
	cfg    *config.MQTTConfig
	subs   []Subscription
	client mqtt.Client
}

// NewService builds the MQTT client for the given handler. One env
// subscription is made per configured measure key, plus the gas topic.
func NewService(cfg *config.MQTTConfig, measures map[string]config.Measure, handler *Handler) *Service {
	keys := make([]string, 0, len(measures))
	for key := range measures {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	subs := make([]Subscription, 0, len(keys)+1)
	for _, key := range keys {
		subs = append(subs, Subscription{
			Topic:   fmt.Sprintf("env/%s/+", key),
			QoS:     0,
			Handler: handler.HandleEnvMessage,
		})
	}
	subs = append(subs, Subscription{
		Topic:   "utility/gas/+",
		QoS:     0,
		Handler: handler.HandleGasMessage,
	})

	s := &Service{cfg: cfg, subs: subs}

	opts := mqtt.NewClientOptions().
		AddBroker(fmt.Sprintf("tcp://%s:%d", cfg.Host, cfg.Port)).
		SetClientID(cfg.ClientID).
		SetConnectTimeout(time.Duration(cfg.TimeoutSeconds) * time.Second).
		SetAutoReconnect(true).
		// Subscribing in OnConnect means a reconnect renews the
		// subscriptions. Don't wildcard-subscribe to everything.
		SetOnConnectHandler(s.onConnect)
	if cfg.Username != "" {
		opts.SetUsername(cfg.Username)
		opts.SetPassword(cfg.Password)
	}

	s.client = mqtt.NewClient(opts)
	return s
}

func (s *Service) onConnect(client mqtt.Client) {
	log.Printf("connected to %s:%d", s.cfg.Host, s.cfg.Port)
	for _, sub := range s.subs {
		if token := client.Subscribe(sub.Topic, sub.QoS, sub.Handler); token.Wait() && token.Error() != nil {
			log.Printf("Error: failed to subscribe to %q: %v", sub.Topic, token.Error())
			continue
		}
		log.Printf("subscribed to %q", sub.Topic)
	}
}

// Start connects to the broker. Message dispatch then runs on the
// client's own goroutines until Stop is called.
func (s *Service) Start() error {
	if token := s.client.Connect(); token.Wait() && token.Error() != nil {
		return fmt.Errorf("failed to connect to %s:%d: %w", s.cfg.Host, s.cfg.Port, token.Error())
	}
	return nil
}

// Stop disconnects from the broker, allowing in-flight work to finish.
func (s *Service) Stop() {
	s.client.Disconnect(250)
	log.Println("MQTT client disconnected")
}
