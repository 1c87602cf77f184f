// Package publish mirrors scene state to an MQTT broker as retained
// messages so dashboards and home automation can follow the sky.
package publish

import (
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/litescript/ls-skyline/internal/astro"
	"github.com/litescript/ls-skyline/internal/logging"
	"github.com/litescript/ls-skyline/internal/theme"
)

type Config struct {
	Enabled     bool
	Broker      string
	ClientID    string
	Username    string
	Password    string
	TopicPrefix string
}

// Message is one MQTT publication.
type Message struct {
	Topic    string
	Payload  []byte
	Retained bool
}

type Publisher struct {
	client  mqtt.Client
	prefix  string
	enabled bool
	log     *logging.Logger
	send    func(Message) error

	mu          sync.Mutex
	lastVersion uint64
	published   bool
}

// NewPublisher connects to the broker. A disabled config returns a
// publisher whose methods do nothing.
func NewPublisher(cfg Config, log *logging.Logger) (*Publisher, error) {
	if log == nil {
		log = logging.Discard()
	}
	if !cfg.Enabled {
		return &Publisher{enabled: false, log: log}, nil
	}

	opts := mqtt.NewClientOptions().
		AddBroker(cfg.Broker).
		SetClientID(cfg.ClientID).
		SetAutoReconnect(true).
		SetConnectRetry(true).
		SetConnectRetryInterval(5 * time.Second).
		SetConnectionLostHandler(func(c mqtt.Client, err error) {
			log.Warn("MQTT connection lost: %v", err)
		}).
		SetOnConnectHandler(func(c mqtt.Client) {
			log.Info("MQTT connected to %s", cfg.Broker)
		})

	if cfg.Username != "" {
		opts.SetUsername(cfg.Username)
		opts.SetPassword(cfg.Password)
	}

	client := mqtt.NewClient(opts)
	token := client.Connect()
	if token.WaitTimeout(10*time.Second) && token.Error() != nil {
		return nil, fmt.Errorf("failed to connect to MQTT broker: %w", token.Error())
	}

	p := &Publisher{
		client:  client,
		prefix:  strings.TrimRight(cfg.TopicPrefix, "/"),
		enabled: true,
		log:     log,
	}
	p.send = p.publishMQTT
	return p, nil
}

// Enabled reports whether messages are actually sent.
func (p *Publisher) Enabled() bool {
	return p.enabled
}

func (p *Publisher) publishMQTT(m Message) error {
	token := p.client.Publish(m.Topic, 0, m.Retained, m.Payload)
	token.Wait()
	return token.Error()
}

type scenePayload struct {
	Mode        theme.Mode      `json:"mode"`
	Weather     string          `json:"weather"`
	TimeOfDay   string          `json:"time_of_day"`
	Selection   theme.Selection `json:"selection"`
	Positions   astro.Positions `json:"positions"`
	Location    string          `json:"location,omitempty"`
	LastError   string          `json:"last_error,omitempty"`
	ConfigError string          `json:"config_error,omitempty"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

// Messages builds the publications for a snapshot at now.
func Messages(prefix string, s theme.Snapshot, now time.Time) ([]Message, error) {
	pos := s.Positions(now)
	payload := scenePayload{
		Mode:        s.Mode,
		Weather:     string(s.Weather),
		TimeOfDay:   string(pos.TimeOfDay),
		Selection:   s.Selection,
		Positions:   pos,
		LastError:   s.LastError,
		ConfigError: s.ConfigError,
		UpdatedAt:   now,
	}
	if s.Location != nil {
		payload.Location = s.Location.Label()
	}

	scene, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal scene: %w", err)
	}

	msgs := []Message{
		{Topic: prefix + "/scene", Payload: scene, Retained: true},
		{Topic: prefix + "/mode", Payload: []byte(s.Mode), Retained: true},
		{Topic: prefix + "/weather", Payload: []byte(s.Weather), Retained: true},
		{Topic: prefix + "/time_of_day", Payload: []byte(pos.TimeOfDay), Retained: true},
	}

	if s.Environment != nil {
		env, err := json.Marshal(s.Environment)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal environment: %w", err)
		}
		msgs = append(msgs, Message{Topic: prefix + "/environment", Payload: env, Retained: true})
	}
	return msgs, nil
}

// PublishSnapshot sends s unless it has already been published.
func (p *Publisher) PublishSnapshot(s theme.Snapshot, now time.Time) error {
	if !p.enabled {
		return nil
	}

	p.mu.Lock()
	if p.published && s.Version == p.lastVersion {
		p.mu.Unlock()
		return nil
	}
	p.lastVersion, p.published = s.Version, true
	p.mu.Unlock()

	msgs, err := Messages(p.prefix, s, now)
	if err != nil {
		return err
	}

	var failed int
	for _, m := range msgs {
		if err := p.send(m); err != nil {
			failed++
			p.log.Warn("Failed to publish to %s: %v", m.Topic, err)
		}
	}
	if failed > 0 {
		return fmt.Errorf("failed to publish %d of %d messages", failed, len(msgs))
	}
	return nil
}

// Close disconnects from the broker.
func (p *Publisher) Close() {
	if !p.enabled || p.client == nil {
		return
	}
	p.client.Disconnect(250)
}
