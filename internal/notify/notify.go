// Package notify pushes appliance events to Pushover, ntfy.sh, and
// Telegram. Every configured service is tried; a failing one never blocks
// the others.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/MrSnakeDoc/hometools/internal/logger"
	"github.com/MrSnakeDoc/hometools/internal/utils"
)

// Notifier delivers one message to one service.
type Notifier interface {
	Send(ctx context.Context, title, message string) error
	Name() string
}

const sendTimeout = 10 * time.Second

func newHTTPClient() *http.Client {
	return &http.Client{Timeout: sendTimeout}
}

// Pushover sends through the Pushover message API.
type Pushover struct {
	AppToken string
	UserKey  string
	BaseURL  string // test override; empty means the public API
	client   *http.Client
}

func NewPushover(appToken, userKey string) *Pushover {
	return &Pushover{
		AppToken: appToken,
		UserKey:  userKey,
		client:   newHTTPClient(),
	}
}

func (p *Pushover) Name() string { return "pushover" }

func (p *Pushover) Send(ctx context.Context, title, message string) error {
	base := p.BaseURL
	if base == "" {
		base = "https://api.pushover.net"
	}

	form := url.Values{
		"token":    {p.AppToken},
		"user":     {p.UserKey},
		"title":    {title},
		"message":  {message},
		"priority": {"1"},
		"sound":    {"pushover"},
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		base+"/1/messages.json", strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("failed to build pushover request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	return checkResponse(p.client, req, "pushover")
}

// Ntfy publishes to an ntfy.sh topic.
type Ntfy struct {
	Topic   string
	BaseURL string // test override; empty means ntfy.sh
	client  *http.Client
}

func NewNtfy(topic string) *Ntfy {
	return &Ntfy{Topic: topic, client: newHTTPClient()}
}

func (n *Ntfy) Name() string { return "ntfy" }

func (n *Ntfy) Send(ctx context.Context, title, message string) error {
	base := n.BaseURL
	if base == "" {
		base = "https://ntfy.sh"
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		base+"/"+n.Topic, strings.NewReader(message))
	if err != nil {
		return fmt.Errorf("failed to build ntfy request: %w", err)
	}
	req.Header.Set("Title", title)
	req.Header.Set("Priority", "high")
	req.Header.Set("Tags", "white_check_mark")

	return checkResponse(n.client, req, "ntfy")
}

// Telegram sends through a bot's sendMessage endpoint.
type Telegram struct {
	BotToken string
	ChatID   string
	BaseURL  string // test override; empty means api.telegram.org
	client   *http.Client
}

func NewTelegram(botToken, chatID string) *Telegram {
	return &Telegram{BotToken: botToken, ChatID: chatID, client: newHTTPClient()}
}

func (t *Telegram) Name() string { return "telegram" }

func (t *Telegram) Send(ctx context.Context, title, message string) error {
	base := t.BaseURL
	if base == "" {
		base = "https://api.telegram.org"
	}

	body, err := json.Marshal(map[string]string{
		"chat_id":    t.ChatID,
		"text":       fmt.Sprintf("<b>%s</b>\n%s", title, message),
		"parse_mode": "HTML",
	})
	if err != nil {
		return fmt.Errorf("failed to encode telegram payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		fmt.Sprintf("%s/bot%s/sendMessage", base, t.BotToken), bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to build telegram request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	return checkResponse(t.client, req, "telegram")
}

func checkResponse(client *http.Client, req *http.Request, service string) error {
	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("%s request failed: %w", service, err)
	}
	defer utils.Close(resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 256))
		return fmt.Errorf("%s returned status %d: %s", service, resp.StatusCode, strings.TrimSpace(string(snippet)))
	}
	return nil
}

// Dispatcher fans a message out to every configured service.
type Dispatcher struct {
	services []Notifier
	logger   logger.Logger
}

func NewDispatcher(log logger.Logger, services ...Notifier) *Dispatcher {
	return &Dispatcher{services: services, logger: log}
}

// NewDispatcherFromEnv builds a dispatcher from whichever services have
// credentials in the environment. An empty dispatcher is valid; it logs a
// warning and drops messages.
func NewDispatcherFromEnv(log logger.Logger) *Dispatcher {
	var services []Notifier

	if token, user := os.Getenv("PUSHOVER_APP_TOKEN"), os.Getenv("PUSHOVER_USER_KEY"); token != "" && user != "" {
		services = append(services, NewPushover(token, user))
	}
	if topic := os.Getenv("NTFY_TOPIC"); topic != "" {
		services = append(services, NewNtfy(topic))
	}
	if token, chat := os.Getenv("TELEGRAM_BOT_TOKEN"), os.Getenv("TELEGRAM_CHAT_ID"); token != "" && chat != "" {
		services = append(services, NewTelegram(token, chat))
	}

	if len(services) == 0 {
		log.Warn("⚠️ no notification services configured, cycle events will only be logged")
	} else {
		names := make([]string, 0, len(services))
		for _, svc := range services {
			names = append(names, svc.Name())
		}
		log.Info("✅ notification services ready", logger.String("services", strings.Join(names, ",")))
	}

	return NewDispatcher(log, services...)
}

// Configured reports whether at least one service will receive messages.
func (d *Dispatcher) Configured() bool { return len(d.services) > 0 }

// Send delivers the message to every service. Per-service failures are
// logged and swallowed; a cycle event must never crash the monitor.
func (d *Dispatcher) Send(ctx context.Context, title, message string) {
	for _, svc := range d.services {
		if err := svc.Send(ctx, title, message); err != nil {
			d.logger.Error("❌ notification failed",
				logger.String("service", svc.Name()),
				logger.Error(err))
			continue
		}
		d.logger.Info("📨 notification sent", logger.String("service", svc.Name()))
	}
}
