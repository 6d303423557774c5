package jobs

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/IBM/sarama"

	"github.com/brunocserra/extincor-pdf-function/internal/config"
	"github.com/brunocserra/extincor-pdf-function/internal/models"
)

// Notifier delivers the per-job result message. Delivery is best effort:
// a failed notification is logged by the caller, never turned into a job
// failure of its own.
type Notifier interface {
	Notify(ctx context.Context, result models.Result) error
}

// KafkaNotifier publishes results on the outbound results topic, keyed by
// report identifier. EncodeBase64 wraps the JSON for storage-queue-style
// consumers that expect base64 message bodies.
type KafkaNotifier struct {
	producer     sarama.SyncProducer
	topic        string
	encodeBase64 bool
}

func NewKafkaNotifier(producer sarama.SyncProducer, topic string, encodeBase64 bool) *KafkaNotifier {
	return &KafkaNotifier{producer: producer, topic: topic, encodeBase64: encodeBase64}
}

func (n *KafkaNotifier) Notify(ctx context.Context, result models.Result) error {
	data, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("failed to marshal result: %w", err)
	}
	if n.encodeBase64 {
		data = []byte(base64.StdEncoding.EncodeToString(data))
	}

	msg := &sarama.ProducerMessage{
		Topic: n.topic,
		Key:   sarama.StringEncoder(result.ReportID),
		Value: sarama.ByteEncoder(data),
	}
	if _, _, err := n.producer.SendMessage(msg); err != nil {
		return fmt.Errorf("failed to publish result: %w", err)
	}
	return nil
}

// NewNotifier picks the result transport: a configured webhook URL takes
// precedence over the Kafka results topic.
func NewNotifier(cfg *config.Config, producer sarama.SyncProducer) Notifier {
	if cfg.Results.WebhookURL != "" {
		return NewWebhookNotifier(cfg.Results.WebhookURL)
	}
	return NewKafkaNotifier(producer, cfg.Kafka.ResultsTopic, cfg.Results.EncodeBase64)
}

// WebhookNotifier posts results to an HTTP endpoint instead of a topic.
type WebhookNotifier struct {
	URL    string
	client *http.Client
}

func NewWebhookNotifier(url string) *WebhookNotifier {
	return &WebhookNotifier{
		URL:    url,
		client: &http.Client{Timeout: 10 * time.Second},
	}
}

func (n *WebhookNotifier) Notify(ctx context.Context, result models.Result) error {
	data, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("failed to marshal result: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.URL, bytes.NewBuffer(data))
	if err != nil {
		return fmt.Errorf("failed to create webhook request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send webhook request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("webhook request failed with status %d", resp.StatusCode)
	}
	return nil
}

// MockNotifier records results for tests.
type MockNotifier struct {
	Results []models.Result
	Err     error
	mu      sync.Mutex
}

func (m *MockNotifier) Notify(ctx context.Context, result models.Result) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Results = append(m.Results, result)
	return m.Err
}
