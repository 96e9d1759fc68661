package notifications

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/thatsimonsguy/cnc-control/internal/logging"
)

var (
	mu          sync.RWMutex
	client      *http.Client
	topic       string
	initialized bool

	baseURL = "https://ntfy.sh"
)

// Init initializes the notification client. An empty topic disables notifications.
func Init(ntfyTopic string) {
	mu.Lock()
	defer mu.Unlock()

	if ntfyTopic == "" {
		initialized = false
		log.Warn().Msg("Ntfy topic not configured - notifications disabled")
		return
	}

	client = &http.Client{
		Timeout: 10 * time.Second,
	}
	topic = ntfyTopic
	initialized = true

	log.Info().
		Str("topic", topic).
		Msg("Ntfy notifications initialized")
}

// Send sends a notification to ntfy.sh
func Send(title, message string) error {
	mu.RLock()
	ok, c, t, base := initialized, client, topic, baseURL
	mu.RUnlock()
	if !ok {
		return fmt.Errorf("notifications not initialized")
	}

	payload := map[string]interface{}{
		"topic":   t,
		"title":   title,
		"message": message,
	}

	jsonData, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal notification: %w", err)
	}

	req, err := http.NewRequest("POST", fmt.Sprintf("%s/%s", base, t), bytes.NewBuffer(jsonData))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send notification: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("ntfy returned non-success status: %d", resp.StatusCode)
	}

	log.Debug().
		Str("title", title).
		Int("status", resp.StatusCode).
		Msg("Notification sent successfully")

	return nil
}

// Sink forwards error diagnostics to ntfy. Sending happens in the background
// so Emit never blocks its caller.
type Sink struct {
	Title string
}

func (s Sink) Emit(level logging.Level, msg string) {
	if level != logging.LevelError {
		return
	}
	mu.RLock()
	ok := initialized
	mu.RUnlock()
	if !ok {
		return
	}
	title := s.Title
	if title == "" {
		title = "cnc-control"
	}
	go func() {
		if err := Send(title, msg); err != nil {
			log.Warn().Err(err).Msg("Failed to send notification")
		}
	}()
}
