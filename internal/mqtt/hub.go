// Package mqtt lets remote desktop terminals act as the assistant's
// microphone and speaker over an MQTT broker.
package mqtt

import (
	"context"
	"encoding/json"
	"strings"
	"sync"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"mailvoice/internal/speech"
)

const (
	defaultQueueSize = 16
	publishTimeout   = 5 * time.Second
	busyReply        = "I'm still working on your last request."
)

type HubConfig struct {
	BrokerURL   string
	ClientID    string
	Username    string
	Password    string
	TopicPrefix string
	QueueSize   int
}

// Utterance is one recognized phrase reported by a terminal.
type Utterance struct {
	ID         string `json:"utterance_id,omitempty"`
	TerminalID string `json:"terminal_id,omitempty"`
	Text       string `json:"text"`
}

type speakPayload struct {
	UtteranceID string `json:"utterance_id,omitempty"`
	Text        string `json:"text"`
}

type publishFunc func(topic string, payload []byte) error

// Hub implements speech.Input and speech.Output. Capture returns utterances
// from any terminal in arrival order, and Speak answers the terminal whose
// utterance was captured last.
type Hub struct {
	cfg     HubConfig
	client  paho.Client
	logger  *zap.Logger
	publish publishFunc
	queue   chan Utterance

	mu      sync.Mutex
	current Utterance
	online  map[string]bool
}

var (
	_ speech.Input  = (*Hub)(nil)
	_ speech.Output = (*Hub)(nil)
)

func NewHub(cfg HubConfig, logger *zap.Logger) *Hub {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = defaultQueueSize
	}
	return &Hub{
		cfg:    cfg,
		logger: logger,
		queue:  make(chan Utterance, cfg.QueueSize),
		online: make(map[string]bool),
	}
}

func (h *Hub) Start(ctx context.Context) error {
	opts := paho.NewClientOptions().
		AddBroker(h.cfg.BrokerURL).
		SetClientID(h.cfg.ClientID).
		SetAutoReconnect(true).
		SetConnectRetry(true)

	if h.cfg.Username != "" {
		opts.SetUsername(h.cfg.Username)
		opts.SetPassword(h.cfg.Password)
	}

	opts.SetConnectionLostHandler(func(_ paho.Client, err error) {
		h.logger.Error("mqtt connection lost", zap.Error(err))
	})
	// Subscriptions are not persisted by the broker for clean sessions.
	opts.SetOnConnectHandler(func(_ paho.Client) {
		if err := h.subscribeHandlers(); err != nil {
			h.logger.Error("mqtt subscribe failed", zap.Error(err))
		}
	})

	h.client = paho.NewClient(opts)
	h.publish = h.pahoPublish

	// The connect token stays pending while paho retries an unreachable broker.
	go func() {
		<-ctx.Done()
		h.client.Disconnect(100)
	}()

	token := h.client.Connect()
	select {
	case <-token.Done():
		if err := token.Error(); err != nil {
			return err
		}
	case <-ctx.Done():
		return ctx.Err()
	}

	h.logger.Info("mqtt bridge connected", zap.String("broker", h.cfg.BrokerURL), zap.String("prefix", h.cfg.TopicPrefix))
	return nil
}

func (h *Hub) subscribeHandlers() error {
	if token := h.client.Subscribe(TopicTerminalUtterance(h.cfg.TopicPrefix), 1, h.handleUtterance); token.Wait() && token.Error() != nil {
		return token.Error()
	}
	if token := h.client.Subscribe(TopicTerminalOnline(h.cfg.TopicPrefix), 1, h.handleOnline); token.Wait() && token.Error() != nil {
		return token.Error()
	}
	return nil
}

func (h *Hub) pahoPublish(topic string, payload []byte) error {
	token := h.client.Publish(topic, 1, false, payload)
	if !token.WaitTimeout(publishTimeout) {
		return context.DeadlineExceeded
	}
	return token.Error()
}

func (h *Hub) handleUtterance(_ paho.Client, msg paho.Message) {
	terminalID, err := ParseTerminalID(msg.Topic(), h.cfg.TopicPrefix)
	if err != nil {
		h.logger.Warn("skip invalid utterance topic", zap.String("topic", msg.Topic()), zap.Error(err))
		return
	}

	var u Utterance
	if err := json.Unmarshal(msg.Payload(), &u); err != nil {
		// plain-text payloads are accepted as the utterance itself
		u = Utterance{Text: string(msg.Payload())}
	}
	u.TerminalID = terminalID
	u.Text = strings.TrimSpace(u.Text)
	if u.ID == "" {
		u.ID = uuid.NewString()
	}

	h.mu.Lock()
	h.online[terminalID] = true
	h.mu.Unlock()

	select {
	case h.queue <- u:
		h.logger.Debug("utterance queued", zap.String("terminal_id", terminalID), zap.String("utterance_id", u.ID))
	default:
		h.logger.Warn("utterance queue full, rejecting", zap.String("terminal_id", terminalID))
		if err := h.send(u, busyReply); err != nil {
			h.logger.Warn("publish busy reply failed", zap.Error(err))
		}
	}
}

func (h *Hub) handleOnline(_ paho.Client, msg paho.Message) {
	terminalID, err := ParseTerminalID(msg.Topic(), h.cfg.TopicPrefix)
	if err != nil {
		h.logger.Warn("skip invalid online topic", zap.String("topic", msg.Topic()), zap.Error(err))
		return
	}

	payload := strings.TrimSpace(strings.ToLower(string(msg.Payload())))
	online := payload == "1" || payload == "true" || payload == "online"
	h.mu.Lock()
	h.online[terminalID] = online
	h.mu.Unlock()
	h.logger.Info("terminal online status", zap.String("terminal_id", terminalID), zap.Bool("online", online))
}

func (h *Hub) Capture(ctx context.Context) (string, error) {
	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case u := <-h.queue:
		h.mu.Lock()
		h.current = u
		h.mu.Unlock()
		return u.Text, nil
	}
}

func (h *Hub) Speak(_ context.Context, text string) error {
	h.mu.Lock()
	u := h.current
	h.mu.Unlock()
	if u.TerminalID == "" {
		h.logger.Warn("no terminal to speak to", zap.String("text", text))
		return nil
	}
	return h.send(u, text)
}

func (h *Hub) send(u Utterance, text string) error {
	body, err := json.Marshal(speakPayload{UtteranceID: u.ID, Text: text})
	if err != nil {
		return err
	}
	if h.publish == nil {
		return nil
	}
	return h.publish(TopicSpeak(h.cfg.TopicPrefix, u.TerminalID), body)
}

// Online lists terminals currently reported online.
func (h *Hub) Online() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]string, 0, len(h.online))
	for id, ok := range h.online {
		if ok {
			out = append(out, id)
		}
	}
	return out
}
