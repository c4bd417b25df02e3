package dispatch

import (
	"bytes"
	"context"
	"encoding/json"
	"log"
	"net/http"
	"time"

	"github.com/bookcast/ingest/internal/core"
)

// WebhookNotifier posts the one-shot job status callback. Delivery is best
// effort: failures are logged, never retried.
type WebhookNotifier struct {
	client *http.Client
}

func NewWebhookNotifier(timeout time.Duration) *WebhookNotifier {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &WebhookNotifier{client: &http.Client{Timeout: timeout}}
}

type callbackPayload struct {
	BookID  string `json:"book_id"`
	Status  string `json:"status"`
	Message string `json:"message"`
}

func (n *WebhookNotifier) Notify(ctx context.Context, callbackURL, bookID, status, message string) {
	if callbackURL == "" {
		return
	}

	body, err := json.Marshal(callbackPayload{BookID: bookID, Status: status, Message: message})
	if err != nil {
		log.Printf("Webhook: failed to encode payload for book %s: %v", bookID, err)
		return
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, callbackURL, bytes.NewReader(body))
	if err != nil {
		log.Printf("Webhook: invalid callback url %q: %v", callbackURL, err)
		return
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.client.Do(req)
	if err != nil {
		log.Printf("Webhook: callback for book %s failed: %v", bookID, err)
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		log.Printf("Webhook: callback for book %s got status %d", bookID, resp.StatusCode)
	}
}

var _ core.Notifier = (*WebhookNotifier)(nil)
