// Package notify delivers operator notifications (Discord-style webhooks) and
// fans engine events out to websocket subscribers.
package notify

import (
	"fmt"
	"sync"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/sirupsen/logrus"
)

var log = logrus.WithField("module", "notify")

// maxContent is the webhook message length limit.
const maxContent = 2000

// Webhook posts {"content": ...} to a webhook URL. The URL is resolved per
// message so settings updates apply immediately; an empty URL drops the
// message.
type Webhook struct {
	target func() string
	client *resty.Client
	wg     sync.WaitGroup
}

func NewWebhook(target func() string) *Webhook {
	return &Webhook{
		target: target,
		client: resty.New().SetTimeout(10 * time.Second),
	}
}

// StaticURL returns a target that always resolves to url.
func StaticURL(url string) func() string {
	return func() string { return url }
}

// Notify sends in the background; failures are only logged.
func (w *Webhook) Notify(message string, ping bool) {
	if w == nil || w.target == nil {
		return
	}
	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		url := w.target()
		if url == "" {
			return
		}
		if err := w.post(url, content(message, ping)); err != nil {
			log.Warnf("webhook delivery failed: %v", err)
		}
	}()
}

// Flush waits for in-flight deliveries.
func (w *Webhook) Flush() {
	if w != nil {
		w.wg.Wait()
	}
}

func (w *Webhook) post(url, text string) error {
	resp, err := w.client.R().
		SetHeader("Content-Type", "application/json").
		SetBody(map[string]string{"content": text}).
		Post(url)
	if err != nil {
		return err
	}
	if resp.IsError() {
		return &deliveryError{status: resp.StatusCode(), body: resp.String()}
	}
	return nil
}

func content(message string, ping bool) string {
	if ping {
		message = "@everyone " + message
	}
	if r := []rune(message); len(r) > maxContent {
		message = string(r[:maxContent-3]) + "..."
	}
	return message
}

type deliveryError struct {
	status int
	body   string
}

func (e *deliveryError) Error() string {
	return fmt.Sprintf("webhook http %d: %s", e.status, e.body)
}
