package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/rowjay/scenesnap/internal/config"
)

type Event struct {
	Type       string         `json:"type"`
	Message    string         `json:"message"`
	Status     string         `json:"status"`
	Target     string         `json:"target"`
	Snapshot   string         `json:"snapshot,omitempty"`
	Categories []string       `json:"categories,omitempty"`
	Counts     map[string]int `json:"counts,omitempty"`
	StartedAt  time.Time      `json:"started_at"`
	EndedAt    time.Time      `json:"ended_at"`
	Duration   string         `json:"duration"`
	Error      string         `json:"error,omitempty"`
}

// Text is the one-line chat rendering of e, e.g.
// "[partial] restore nightly (Level/Props) materials=4 hierarchy=12".
func (e Event) Text() string {
	var b strings.Builder
	fmt.Fprintf(&b, "[%s] %s", e.Status, e.Message)
	if e.Target != "" && !strings.Contains(e.Message, e.Target) {
		fmt.Fprintf(&b, " (%s)", e.Target)
	}
	keys := make([]string, 0, len(e.Counts))
	for k := range e.Counts {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(&b, " %s=%d", k, e.Counts[k])
	}
	if e.Error != "" {
		b.WriteString(": " + e.Error)
	}
	return b.String()
}

type Notifier interface {
	Notify(ctx context.Context, event Event) error
}

type Multi struct {
	Targets []Notifier
}

// Notify delivers to every target; one failing target does not stop the others.
func (m Multi) Notify(ctx context.Context, event Event) error {
	var errs []error
	for _, target := range m.Targets {
		if target == nil {
			continue
		}
		if err := target.Notify(ctx, event); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

type Webhook struct {
	Name    string
	URL     string
	Headers map[string]string
}

func (w Webhook) Notify(ctx context.Context, event Event) error {
	body, err := json.Marshal(event)
	if err != nil {
		return err
	}
	return post(ctx, "webhook "+w.Name, w.URL, body, w.Headers)
}

type Mattermost struct {
	Name string
	URL  string
}

func (m Mattermost) Notify(ctx context.Context, event Event) error {
	body, err := json.Marshal(map[string]string{"username": "scenesnap", "text": event.Text()})
	if err != nil {
		return err
	}
	return post(ctx, "mattermost "+m.Name, m.URL, body, nil)
}

type Matrix struct {
	Name        string
	ServerURL   string
	AccessToken string
	RoomID      string
}

func (m Matrix) Notify(ctx context.Context, event Event) error {
	endpoint := fmt.Sprintf("%s/_matrix/client/v3/rooms/%s/send/m.room.message/%s",
		strings.TrimRight(m.ServerURL, "/"), url.PathEscape(m.RoomID), uuid.NewString())
	body, err := json.Marshal(map[string]any{"msgtype": "m.text", "body": event.Text()})
	if err != nil {
		return err
	}
	return post(ctx, "matrix "+m.Name, endpoint, body, map[string]string{"Authorization": "Bearer " + m.AccessToken})
}

func post(ctx context.Context, name, url string, body []byte, headers map[string]string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	resp, err := httpClient().Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return fmt.Errorf("%s returned %s", name, resp.Status)
	}
	return nil
}

func FromConfig(cfg config.NotificationsConfig) Multi {
	var targets []Notifier
	for _, w := range cfg.Webhooks {
		targets = append(targets, Webhook{Name: w.Name, URL: w.URL, Headers: w.Headers})
	}
	for _, mm := range cfg.Mattermost {
		targets = append(targets, Mattermost{Name: mm.Name, URL: mm.URL})
	}
	for _, mx := range cfg.Matrix {
		targets = append(targets, Matrix{Name: mx.Name, ServerURL: mx.ServerURL, AccessToken: mx.AccessToken, RoomID: mx.RoomID})
	}
	return Multi{Targets: targets}
}

func httpClient() *http.Client {
	return &http.Client{Timeout: 10 * time.Second}
}
