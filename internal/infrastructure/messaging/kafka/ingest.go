package kafka

import (
	"context"
	"encoding/json"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/turtacn/CaseLaw-Intelligence/internal/config"
	"github.com/turtacn/CaseLaw-Intelligence/internal/domain/judgment"
	"github.com/turtacn/CaseLaw-Intelligence/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/CaseLaw-Intelligence/pkg/errors"
)

const (
	sourceService      = "caselaw-ingest"
	defaultIdleTimeout = 5 * time.Second
)

// DecodeDocument parses a raw-topic message value.
func DecodeDocument(value []byte) (judgment.RawDocument, error) {
	var doc judgment.RawDocument
	if len(value) == 0 {
		return doc, errors.New(errors.ErrCodeDocumentDecode, "empty document message")
	}
	if err := json.Unmarshal(value, &doc); err != nil {
		return doc, errors.Wrap(err, errors.ErrCodeDocumentDecode, "failed to decode document message")
	}
	return doc, nil
}

// DocumentHandler adapts fn into a MessageHandler for the raw topic.
// Undecodable messages fail every retry and end up dead-lettered.
func DocumentHandler(fn func(ctx context.Context, doc judgment.RawDocument) error) MessageHandler {
	return func(ctx context.Context, msg *Message) error {
		doc, err := DecodeDocument(msg.Value)
		if err != nil {
			return err
		}
		return fn(ctx, doc)
	}
}

// DocumentBatch is one fetched slice of the raw topic.  It must be committed
// after its documents were handled.
type DocumentBatch struct {
	Documents []judgment.RawDocument
	Malformed int
	messages  []kafka.Message
}

// Len is the number of messages in the batch, malformed ones included.
func (b *DocumentBatch) Len() int { return len(b.messages) }

// DocumentConsumer pulls raw documents in bounded batches.
type DocumentConsumer struct {
	reader ReaderInterface
	idle   time.Duration
	logger logging.Logger
}

// NewDocumentConsumer joins cfg.GroupID on cfg.RawTopic.
func NewDocumentConsumer(cfg config.KafkaConfig, logger logging.Logger) (*DocumentConsumer, error) {
	cc := ConsumerConfig{
		Brokers:         cfg.Brokers,
		GroupID:         cfg.GroupID,
		Topics:          []string{cfg.RawTopic},
		AutoOffsetReset: cfg.AutoOffsetReset,
	}
	if err := ValidateConsumerConfig(cc); err != nil {
		return nil, err
	}
	start := kafka.FirstOffset
	if cfg.AutoOffsetReset == "latest" {
		start = kafka.LastOffset
	}
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:     cfg.Brokers,
		GroupID:     cfg.GroupID,
		Topic:       cfg.RawTopic,
		MinBytes:    1,
		MaxBytes:    10 * 1024 * 1024,
		MaxWait:     time.Second,
		StartOffset: start,
	})
	return newDocumentConsumer(reader, defaultIdleTimeout, logger), nil
}

func newDocumentConsumer(r ReaderInterface, idle time.Duration, logger logging.Logger) *DocumentConsumer {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	if idle <= 0 {
		idle = defaultIdleTimeout
	}
	return &DocumentConsumer{reader: r, idle: idle, logger: logger.Named("document_consumer")}
}

// FetchBatch reads up to max messages.  It returns early once no message
// arrives within the idle timeout; an empty batch means the topic is drained.
func (c *DocumentConsumer) FetchBatch(ctx context.Context, max int) (*DocumentBatch, error) {
	if max <= 0 {
		return nil, errors.New(errors.ErrCodeValidation, "batch size must be > 0")
	}
	batch := &DocumentBatch{}
	for len(batch.messages) < max {
		fctx, cancel := context.WithTimeout(ctx, c.idle)
		m, err := c.reader.FetchMessage(fctx)
		cancel()
		if err != nil {
			if ctx.Err() != nil {
				return nil, errors.Wrap(ctx.Err(), errors.ErrCodeTimeout, "document fetch cancelled")
			}
			if errors.Is(err, context.DeadlineExceeded) {
				break
			}
			return nil, errors.Wrap(err, errors.ErrCodeMessagingError, "failed to fetch document")
		}
		batch.messages = append(batch.messages, m)

		doc, err := DecodeDocument(m.Value)
		if err != nil {
			batch.Malformed++
			c.logger.Warn("Skipping malformed document",
				logging.Int64("offset", m.Offset),
				logging.Int("partition", m.Partition),
				logging.Err(err))
			continue
		}
		batch.Documents = append(batch.Documents, doc)
	}
	c.logger.Debug("Fetched document batch",
		logging.Int("documents", len(batch.Documents)),
		logging.Int("malformed", batch.Malformed))
	return batch, nil
}

// Commit acknowledges every message in b.
func (c *DocumentConsumer) Commit(ctx context.Context, b *DocumentBatch) error {
	if b == nil || len(b.messages) == 0 {
		return nil
	}
	if err := c.reader.CommitMessages(ctx, b.messages...); err != nil {
		return errors.Wrap(err, errors.ErrCodeMessagingError, "failed to commit document batch")
	}
	return nil
}

// Close releases the reader.
func (c *DocumentConsumer) Close() error { return c.reader.Close() }

// BatchPublisher is the batch side of Producer.
type BatchPublisher interface {
	PublishBatch(ctx context.Context, msgs []*ProducerMessage) (*BatchPublishResult, error)
}

// RejectionPayload describes a dropped document.
type RejectionPayload struct {
	RunID      string `json:"run_id"`
	Index      int    `json:"index"`
	Identifier string `json:"identifier"`
	Reason     string `json:"reason"`
	Detail     string `json:"detail"`
}

// RecordPublisher emits normalized records as event envelopes keyed by
// identifier.
type RecordPublisher struct {
	producer BatchPublisher
	topic    string
	logger   logging.Logger
}

// NewRecordPublisher publishes to topic through p.
func NewRecordPublisher(p BatchPublisher, topic string, logger logging.Logger) *RecordPublisher {
	if topic == "" {
		topic = TopicJudgmentNormalized
	}
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	return &RecordPublisher{producer: p, topic: topic, logger: logger.Named("record_publisher")}
}

// PublishRecords sends one judgment.normalized event per record.
func (p *RecordPublisher) PublishRecords(ctx context.Context, runID string, records []*judgment.JudgmentRecord) (*BatchPublishResult, error) {
	if len(records) == 0 {
		return &BatchPublishResult{}, nil
	}
	msgs := make([]*ProducerMessage, 0, len(records))
	for _, rec := range records {
		msg, err := p.message(EventJudgmentNormalized, runID, rec.Identifier, rec)
		if err != nil {
			return nil, err
		}
		msgs = append(msgs, msg)
	}
	return p.publish(ctx, msgs)
}

// PublishRejections sends one judgment.rejected event per rejection.
func (p *RecordPublisher) PublishRejections(ctx context.Context, rejections []RejectionPayload) (*BatchPublishResult, error) {
	if len(rejections) == 0 {
		return &BatchPublishResult{}, nil
	}
	msgs := make([]*ProducerMessage, 0, len(rejections))
	for _, r := range rejections {
		msg, err := p.message(EventJudgmentRejected, r.RunID, r.Identifier, r)
		if err != nil {
			return nil, err
		}
		msgs = append(msgs, msg)
	}
	return p.publish(ctx, msgs)
}

func (p *RecordPublisher) message(eventType, runID, key string, payload any) (*ProducerMessage, error) {
	env, err := NewEventEnvelope(eventType, sourceService, payload)
	if err != nil {
		return nil, err
	}
	if runID != "" {
		env.Metadata = map[string]string{HeaderRunID: runID}
	}
	return env.ToMessage(p.topic, []byte(key))
}

func (p *RecordPublisher) publish(ctx context.Context, msgs []*ProducerMessage) (*BatchPublishResult, error) {
	res, err := p.producer.PublishBatch(ctx, msgs)
	if err != nil {
		return nil, err
	}
	if res.Failed > 0 {
		p.logger.Warn("Some events were not published",
			logging.String("topic", p.topic),
			logging.Int("failed", res.Failed))
	}
	return res, nil
}
