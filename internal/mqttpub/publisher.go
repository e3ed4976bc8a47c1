// Package mqttpub publishes engine events to an MQTT broker, so home
// automation and scripting listeners can react to gestures without
// talking to the daemon directly.
package mqttpub

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"
	"sync"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"myohub/internal/events"
)

var newClientFn = mqtt.NewClient

type Config struct {
	Enable bool

	Broker      string // default tcp://127.0.0.1:1883
	ClientID    string // default myohub
	TopicPrefix string // default myohub
}

// Publisher forwards every event JSON-encoded to <prefix>/events.
// Gestures additionally land on <prefix>/gesture as the bare label and
// lock changes on <prefix>/lock as "locked"/"unlocked", retained so late
// subscribers see the current state.
type Publisher struct {
	cfg Config

	mu     sync.Mutex
	client mqtt.Client

	stopOnce sync.Once
}

func New(cfg Config) *Publisher {
	if cfg.Broker == "" {
		cfg.Broker = "tcp://127.0.0.1:1883"
	}
	if cfg.ClientID == "" {
		cfg.ClientID = "myohub"
	}
	if cfg.TopicPrefix == "" {
		cfg.TopicPrefix = "myohub"
	}
	cfg.TopicPrefix = strings.TrimSuffix(cfg.TopicPrefix, "/")
	return &Publisher{cfg: cfg}
}

// Start connects to the broker. The initial connect fails fast so a
// missing broker surfaces at startup; once up, the client reconnects on
// its own.
func (p *Publisher) Start(ctx context.Context) error {
	if p == nil {
		return fmt.Errorf("mqttpub: publisher is nil")
	}
	if !p.cfg.Enable {
		return nil
	}

	opts := mqtt.NewClientOptions().
		AddBroker(p.cfg.Broker).
		SetClientID(p.cfg.ClientID).
		SetAutoReconnect(true).
		SetOnConnectHandler(func(mqtt.Client) {
			log.Printf("mqttpub: connected to %s", p.cfg.Broker)
		}).
		SetConnectionLostHandler(func(_ mqtt.Client, err error) {
			log.Printf("mqttpub: connection lost: %v", err)
		})

	client := newClientFn(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		return fmt.Errorf("mqttpub: connect %s: %w", p.cfg.Broker, token.Error())
	}

	p.mu.Lock()
	p.client = client
	p.mu.Unlock()

	go func() {
		<-ctx.Done()
		p.Close()
	}()
	return nil
}

func (p *Publisher) HandleEvent(ev events.Event) {
	if p == nil {
		return
	}
	p.mu.Lock()
	client := p.client
	p.mu.Unlock()
	if client == nil {
		return
	}

	payload, err := json.Marshal(ev)
	if err != nil {
		log.Printf("mqttpub: marshal event: %v", err)
		return
	}
	p.publish(client, p.cfg.TopicPrefix+"/events", false, payload)

	switch ev.Kind {
	case events.KindGesture:
		p.publish(client, p.cfg.TopicPrefix+"/gesture", false, []byte(ev.Gesture))
	case events.KindLock:
		state := "unlocked"
		if ev.Locked {
			state = "locked"
		}
		p.publish(client, p.cfg.TopicPrefix+"/lock", true, []byte(state))
	}
}

func (p *Publisher) publish(client mqtt.Client, topic string, retained bool, payload []byte) {
	if token := client.Publish(topic, 0, retained, payload); token.Wait() && token.Error() != nil {
		log.Printf("mqttpub: publish %s: %v", topic, token.Error())
	}
}

// Run consumes events from ch until ctx is done or the channel closes.
func (p *Publisher) Run(ctx context.Context, ch <-chan events.Event) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-ch:
			if !ok {
				return
			}
			p.HandleEvent(ev)
		}
	}
}

func (p *Publisher) Close() {
	if p == nil {
		return
	}
	p.stopOnce.Do(func() {
		p.mu.Lock()
		client := p.client
		p.client = nil
		p.mu.Unlock()
		if client != nil {
			client.Disconnect(250)
		}
	})
}
