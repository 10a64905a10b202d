package notify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/iammusic/submissions/internal/model"
)

// KafkaConfig configures the Kafka publisher.
type KafkaConfig struct {
	Brokers      []string      `yaml:"brokers"`
	Topic        string        `yaml:"topic"`
	WriteTimeout time.Duration `yaml:"write_timeout"`
	BatchTimeout time.Duration `yaml:"batch_timeout"`
	RequiredAcks string        `yaml:"required_acks"` // none | one | all
	// Sync waits for the broker ack inside Publish. Off by default: the
	// writer queues the record and reports delivery failures through the log.
	Sync bool `yaml:"sync"`
}

// Enabled reports whether enough is configured to publish.
func (c KafkaConfig) Enabled() bool { return len(c.Brokers) > 0 || c.Topic != "" }

// Message is the JSON value written for each accepted record.
type Message struct {
	ID        string    `json:"id"`
	Text      string    `json:"text"`
	IP        *string   `json:"ip"`
	Country   *string   `json:"country"`
	Region    *string   `json:"region"`
	City      *string   `json:"city"`
	Location  *string   `json:"location"`
	OS        *string   `json:"os"`
	Timestamp time.Time `json:"timestamp"`
}

// messageWriter is the subset of *kafka.Writer used here.
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Kafka publishes accepted records keyed by record ID.
type Kafka struct {
	w       messageWriter
	timeout time.Duration // bounds each Publish
	log     *zap.Logger
}

// NewKafka validates cfg and builds the writer.
func NewKafka(cfg KafkaConfig, log *zap.Logger) (*Kafka, error) {
	if len(cfg.Brokers) == 0 || cfg.Topic == "" {
		return nil, errors.New("kafka publisher configuration incomplete: both brokers and topic are required")
	}

	w := newWriter(cfg, log)
	log.Info("kafka publisher created",
		zap.Strings("brokers", cfg.Brokers),
		zap.String("topic", cfg.Topic),
		zap.Bool("async", w.Async),
	)
	return &Kafka{w: w, timeout: w.WriteTimeout, log: log}, nil
}

func newWriter(cfg KafkaConfig, log *zap.Logger) *kafka.Writer {
	var acks kafka.RequiredAcks
	switch cfg.RequiredAcks {
	case "none":
		acks = kafka.RequireNone
	case "all":
		acks = kafka.RequireAll
	default:
		acks = kafka.RequireOne
	}

	writeTimeout := cfg.WriteTimeout
	if writeTimeout == 0 {
		writeTimeout = 2 * time.Second
	}
	batchTimeout := cfg.BatchTimeout
	if batchTimeout == 0 {
		batchTimeout = 100 * time.Millisecond
	}

	w := &kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers...),
		Topic:        cfg.Topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: acks,
		Async:        !cfg.Sync,
		BatchTimeout: batchTimeout,
		WriteTimeout: writeTimeout,
		ErrorLogger: kafka.LoggerFunc(func(msg string, args ...interface{}) {
			log.Warn("kafka writer", zap.String("detail", fmt.Sprintf(msg, args...)))
		}),
	}
	if cfg.Sync {
		// one record per request; flush without waiting for BatchTimeout
		w.BatchSize = 1
	} else {
		w.Completion = func(msgs []kafka.Message, err error) {
			if err != nil {
				log.Warn("kafka delivery failed", zap.Int("messages", len(msgs)), zap.Error(err))
			}
		}
	}
	return w
}

// Publish writes rec as JSON.
func (k *Kafka) Publish(ctx context.Context, rec model.Submission) error {
	value, err := json.Marshal(toMessage(rec))
	if err != nil {
		return fmt.Errorf("serialize submission: %w", err)
	}

	if k.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, k.timeout)
		defer cancel()
	}
	if err := k.w.WriteMessages(ctx, kafka.Message{Key: []byte(rec.ID.String()), Value: value}); err != nil {
		return fmt.Errorf("write to kafka: %w", err)
	}
	return nil
}

// Close flushes and closes the writer.
func (k *Kafka) Close() error { return k.w.Close() }

func toMessage(rec model.Submission) Message {
	return Message{
		ID:        rec.ID.String(),
		Text:      rec.Text,
		IP:        rec.IP,
		Country:   rec.Country,
		Region:    rec.Region,
		City:      rec.City,
		Location:  rec.Location,
		OS:        rec.OS,
		Timestamp: rec.Timestamp,
	}
}
