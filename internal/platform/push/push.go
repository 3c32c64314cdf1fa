// Package push delivers completion notifications to user devices through an
// FCM-compatible HTTP endpoint. Delivery is best-effort; the pipeline never
// fails a request because a notification could not be sent.
package push

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/orasync/orasync-backend/internal/platform/envutil"
	"github.com/orasync/orasync-backend/internal/platform/logger"
)

// Notifier sends a titled message with optional data fields to one device.
type Notifier interface {
	Notify(ctx context.Context, deviceToken, title, body string, data map[string]string) error
}

type notifier struct {
	log        *logger.Logger
	endpoint   string
	serverKey  string
	httpClient *http.Client
}

// NewNotifier reads PUSH_ENDPOINT and PUSH_SERVER_KEY. When either is unset
// it returns a no-op notifier so callers need no nil checks.
func NewNotifier(log *logger.Logger) Notifier {
	endpoint := strings.TrimSpace(envutil.String("PUSH_ENDPOINT", ""))
	serverKey := strings.TrimSpace(envutil.String("PUSH_SERVER_KEY", ""))
	serviceLog := log.With("service", "PushNotifier")
	if endpoint == "" || serverKey == "" {
		serviceLog.Info("Push notifications disabled; endpoint or key not configured")
		return noopNotifier{}
	}
	return &notifier{
		log:        serviceLog,
		endpoint:   endpoint,
		serverKey:  serverKey,
		httpClient: &http.Client{Timeout: 15 * time.Second},
	}
}

type noopNotifier struct{}

func (noopNotifier) Notify(context.Context, string, string, string, map[string]string) error {
	return nil
}

type pushMessage struct {
	To           string            `json:"to"`
	Notification pushNotification  `json:"notification"`
	Data         map[string]string `json:"data,omitempty"`
}

type pushNotification struct {
	Title string `json:"title"`
	Body  string `json:"body"`
}

func (n *notifier) Notify(ctx context.Context, deviceToken, title, body string, data map[string]string) error {
	deviceToken = strings.TrimSpace(deviceToken)
	if deviceToken == "" {
		return nil
	}

	payload, err := json.Marshal(pushMessage{
		To:           deviceToken,
		Notification: pushNotification{Title: title, Body: body},
		Data:         data,
	})
	if err != nil {
		return fmt.Errorf("marshal push payload: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.endpoint, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("build push request: %w", err)
	}
	req.Header.Set("Authorization", "key="+n.serverKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("send push: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("push failed: status=%d body=%s", resp.StatusCode, strings.TrimSpace(string(raw)))
	}
	return nil
}
