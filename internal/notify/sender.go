package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const defaultSendTimeout = 15 * time.Second

func newHTTPClient(timeout time.Duration) *http.Client {
	if timeout <= 0 {
		timeout = defaultSendTimeout
	}
	return &http.Client{Timeout: timeout}
}

func postJSON(ctx context.Context, client *http.Client, url string, payload any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encoding payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	defer io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("unexpected status %s", resp.Status)
	}
	return nil
}

// EmailSender posts alert emails to a relay service.
type EmailSender struct {
	client   *http.Client
	endpoint string
	from     string
}

func NewEmailSender(endpoint, from string, timeout time.Duration) *EmailSender {
	return &EmailSender{client: newHTTPClient(timeout), endpoint: endpoint, from: from}
}

func (s *EmailSender) Name() string { return ChannelEmail }

type emailPayload struct {
	From    string `json:"from"`
	To      string `json:"to"`
	Subject string `json:"subject"`
	Body    string `json:"body"`
}

func (s *EmailSender) Send(ctx context.Context, event *Event) error {
	payload := emailPayload{
		From:    s.from,
		To:      event.User.Email,
		Subject: fmt.Sprintf("Job match: %s at %s", event.Posting.Title, event.Posting.Company),
		Body:    emailBody(event),
	}
	if payload.To == "" {
		return fmt.Errorf("user %s has no email address", event.User.ID)
	}
	return postJSON(ctx, s.client, s.endpoint, payload)
}

func emailBody(event *Event) string {
	var b strings.Builder

	fmt.Fprintf(&b, "%s at %s scored %d/100 for you.\n\n", event.Posting.Title, event.Posting.Company, event.Match.Score)

	if len(event.Match.Reasons) > 0 {
		b.WriteString("Why it fits:\n")
		for _, reason := range event.Match.Reasons {
			fmt.Fprintf(&b, "  - %s\n", reason)
		}
		b.WriteString("\n")
	}
	if len(event.Match.Weaknesses) > 0 {
		b.WriteString("Watch out for:\n")
		for _, weakness := range event.Match.Weaknesses {
			fmt.Fprintf(&b, "  - %s\n", weakness)
		}
		b.WriteString("\n")
	}
	if event.Posting.URL != "" {
		fmt.Fprintf(&b, "Posting: %s\n", event.Posting.URL)
	}

	return b.String()
}

// PushSender posts alerts to a mobile push gateway.
type PushSender struct {
	client   *http.Client
	endpoint string
}

func NewPushSender(endpoint string, timeout time.Duration) *PushSender {
	return &PushSender{client: newHTTPClient(timeout), endpoint: endpoint}
}

func (s *PushSender) Name() string { return ChannelPush }

type pushPayload struct {
	UserID string `json:"userId"`
	Title  string `json:"title"`
	Body   string `json:"body"`
	URL    string `json:"url,omitempty"`
}

func (s *PushSender) Send(ctx context.Context, event *Event) error {
	payload := pushPayload{
		UserID: event.User.ID,
		Title:  fmt.Sprintf("Match: %s", event.Posting.Title),
		Body:   fmt.Sprintf("%s scored %d/100 for your search", event.Posting.Company, event.Match.Score),
		URL:    event.Posting.URL,
	}
	return postJSON(ctx, s.client, s.endpoint, payload)
}
