package server

import (
	"context"
	"encoding/json"
	"net/url"
	"os"
	"sync"
	"time"
)

// fileOutbox appends password reset links to a file, one JSON object per
// line, for a mail relay to pick up.
type fileOutbox struct {
	mu      sync.Mutex
	path    string
	baseURL string
	now     func() time.Time
}

type outboxMessage struct {
	Kind      string    `json:"kind"`
	To        string    `json:"to"`
	Link      string    `json:"link"`
	CreatedAt time.Time `json:"created_at"`
}

func newFileOutbox(path, baseURL string) *fileOutbox {
	return &fileOutbox{path: path, baseURL: baseURL, now: time.Now}
}

func (o *fileOutbox) NotifyPasswordReset(_ context.Context, email, token string) error {
	link, err := url.Parse(o.baseURL)
	if err != nil {
		return err
	}
	q := link.Query()
	q.Set("token", token)
	link.RawQuery = q.Encode()

	line, err := json.Marshal(outboxMessage{
		Kind:      "password_reset",
		To:        email,
		Link:      link.String(),
		CreatedAt: o.now().UTC(),
	})
	if err != nil {
		return err
	}

	o.mu.Lock()
	defer o.mu.Unlock()

	f, err := os.OpenFile(o.path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o600)
	if err != nil {
		return err
	}
	if _, err := f.Write(append(line, '\n')); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}
