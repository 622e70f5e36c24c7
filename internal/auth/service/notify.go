package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"time"
)

// Notifier tells the end-user's device that a backchannel request awaits
// a decision. Notify must not block on delivery and its failure never
// fails the request.
type Notifier interface {
	Notify(ctx context.Context, authReqID, deviceToken string)
}

// ClientNotifier calls a client back after a decision or an expiry.
// Calls are fire-and-forget.
type ClientNotifier interface {
	// Ping tells a ping-mode client that the result can be fetched.
	Ping(ctx context.Context, endpoint, notificationToken, authReqID string)

	// Push delivers the result itself to a push-mode client.
	Push(ctx context.Context, endpoint, notificationToken string, payload any)
}

// deliverer POSTs JSON documents in the background with bounded retries.
type deliverer struct {
	Client  *http.Client
	Logger  *slog.Logger
	Retries int
	Backoff time.Duration

	wg sync.WaitGroup
}

func newDeliverer(client *http.Client, logger *slog.Logger) *deliverer {
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &deliverer{Client: client, Logger: logger, Retries: 3, Backoff: 500 * time.Millisecond}
}

// send posts body to url in a goroutine. The caller's context only
// contributes values; its cancellation does not stop delivery.
func (d *deliverer) send(ctx context.Context, what, url, bearer string, body any) {
	payload, err := json.Marshal(body)
	if err != nil {
		d.Logger.Error("failed to encode notification", slog.String("kind", what), slog.Any("err", err))
		return
	}

	ctx = context.WithoutCancel(ctx)
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()

		backoff := d.Backoff
		var lastErr error
		for attempt := 0; attempt <= d.Retries; attempt++ {
			if attempt > 0 {
				time.Sleep(backoff)
				backoff *= 2
			}
			if lastErr = d.post(ctx, url, bearer, payload); lastErr == nil {
				d.Logger.Debug("notification delivered", slog.String("kind", what), slog.String("url", url))
				return
			}
		}
		d.Logger.Warn("notification delivery failed",
			slog.String("kind", what),
			slog.String("url", url),
			slog.Int("attempts", d.Retries+1),
			slog.Any("err", lastErr),
		)
	}()
}

func (d *deliverer) post(ctx context.Context, url, bearer string, payload []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}

	resp, err := d.Client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	return nil
}

// Wait blocks until in-flight deliveries finish.
func (d *deliverer) Wait() { d.wg.Wait() }

// PushGateway forwards device notifications to a push service. With no
// endpoint configured it only logs them.
type PushGateway struct {
	Endpoint string
	*deliverer
}

func NewPushGateway(endpoint string, client *http.Client, logger *slog.Logger) *PushGateway {
	return &PushGateway{Endpoint: endpoint, deliverer: newDeliverer(client, logger)}
}

type pushMessage struct {
	AuthReqID   string `json:"auth_req_id"`
	DeviceToken string `json:"device_token"`
}

func (g *PushGateway) Notify(ctx context.Context, authReqID, deviceToken string) {
	if g.Endpoint == "" {
		g.Logger.Info("device notification (no push gateway configured)", slog.String("auth_req_id", authReqID))
		return
	}
	g.send(ctx, "device", g.Endpoint, "", pushMessage{AuthReqID: authReqID, DeviceToken: deviceToken})
}

// HTTPClientNotifier performs ping and push callbacks over HTTP.
type HTTPClientNotifier struct {
	*deliverer
}

func NewHTTPClientNotifier(client *http.Client, logger *slog.Logger) *HTTPClientNotifier {
	return &HTTPClientNotifier{deliverer: newDeliverer(client, logger)}
}

func (n *HTTPClientNotifier) Ping(ctx context.Context, endpoint, notificationToken, authReqID string) {
	if endpoint == "" {
		n.Logger.Warn("ping client has no notification endpoint", slog.String("auth_req_id", authReqID))
		return
	}
	n.send(ctx, "ping", endpoint, notificationToken, map[string]string{"auth_req_id": authReqID})
}

func (n *HTTPClientNotifier) Push(ctx context.Context, endpoint, notificationToken string, payload any) {
	if endpoint == "" {
		n.Logger.Warn("push client has no notification endpoint")
		return
	}
	n.send(ctx, "push", endpoint, notificationToken, payload)
}

// PushTokenResult is the body of a successful push-mode callback.
type PushTokenResult struct {
	AuthReqID    string `json:"auth_req_id"`
	AccessToken  string `json:"access_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int    `json:"expires_in"`
	RefreshToken string `json:"refresh_token,omitempty"`
	IDToken      string `json:"id_token"`
}

// PushErrorResult is the body of a push-mode callback for a denied or
// expired request.
type PushErrorResult struct {
	AuthReqID        string `json:"auth_req_id"`
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description,omitempty"`
}
