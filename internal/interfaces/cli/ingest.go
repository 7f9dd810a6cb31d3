package cli

import (
	"context"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/turtacn/CaseLaw-Intelligence/internal/application/pipeline"
	"github.com/turtacn/CaseLaw-Intelligence/internal/config"
	"github.com/turtacn/CaseLaw-Intelligence/internal/domain/judgment"
	"github.com/turtacn/CaseLaw-Intelligence/internal/infrastructure/messaging/kafka"
	"github.com/turtacn/CaseLaw-Intelligence/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/CaseLaw-Intelligence/internal/infrastructure/monitoring/prometheus"
	"github.com/turtacn/CaseLaw-Intelligence/pkg/errors"
)

type ingestOptions struct {
	max          int
	batches      int
	follow       bool
	createTopics bool
	storeRecords bool
}

// NewIngestCmd normalizes documents from the raw topic and publishes the
// records.
func NewIngestCmd() *cobra.Command {
	opts := &ingestOptions{}
	cmd := &cobra.Command{
		Use:   "ingest",
		Short: "Normalize documents from Kafka and publish the records",
		Long: "Consume raw documents from kafka.raw_topic in batches, normalize them and\n" +
			"publish judgment.normalized and judgment.rejected events to\n" +
			"kafka.normalized_topic.  A batch is committed only after its events were\n" +
			"published.  Without --follow the command stops once the topic is drained;\n" +
			"with --follow it handles documents one by one until interrupted, sending\n" +
			"failures to kafka.dead_letter_topic.",
		Example: "  caselaw ingest --create-topics --max 200\n" +
			"  caselaw ingest --follow --store-records",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runIngest(cmd, opts)
		},
	}
	f := cmd.Flags()
	f.IntVar(&opts.max, "max", 0, "documents per batch (default kafka.batch_size)")
	f.IntVar(&opts.batches, "batches", 0, "stop after this many batches (0 drains the topic)")
	f.BoolVar(&opts.follow, "follow", false, "keep consuming until interrupted")
	f.BoolVar(&opts.createTopics, "create-topics", false, "create the raw, normalized and dead-letter topics first")
	f.BoolVar(&opts.storeRecords, "store-records", false, "also upsert records into PostgreSQL")
	return cmd
}

func runIngest(cmd *cobra.Command, opts *ingestOptions) error {
	cliCtx, err := GetCLIContext(cmd)
	if err != nil {
		return err
	}
	kcfg := cliCtx.Config.Kafka
	log := cliCtx.Logger

	var (
		ctx    context.Context
		cancel context.CancelFunc
	)
	if opts.follow {
		ctx, cancel = signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	} else {
		ctx, cancel = operationContext(cmd, cliCtx)
	}
	defer cancel()

	if opts.createTopics {
		if err := ensureTopics(ctx, kcfg, log); err != nil {
			return err
		}
	}

	b := newBackends(cliCtx)
	defer b.Close()

	producer, err := kafka.NewProducer(kafka.ProducerConfig{
		Brokers:    kcfg.Brokers,
		Acks:       "all",
		MaxRetries: kcfg.MaxRetries,
	}, log)
	if err != nil {
		return err
	}
	defer producer.Close()

	ing := &ingester{
		pipeline:  b.pipeline(),
		publisher: kafka.NewRecordPublisher(producer, kcfg.NormalizedTopic, log),
		metrics:   b.metrics,
		rawTopic:  kcfg.RawTopic,
		outTopic:  kcfg.NormalizedTopic,
		log:       log.Named("ingest"),
	}
	if opts.storeRecords {
		if ing.store, err = b.judgments(ctx); err != nil {
			return err
		}
	}

	if opts.follow {
		return ing.follow(ctx, kcfg)
	}

	consumer, err := kafka.NewDocumentConsumer(kcfg, log)
	if err != nil {
		return err
	}
	defer consumer.Close()

	max := opts.max
	if max <= 0 {
		max = kcfg.BatchSize
	}
	stats, err := ing.drain(ctx, consumer, max, opts.batches)
	if err != nil {
		return err
	}
	return PrintResult(cmd, stats)
}

func ensureTopics(ctx context.Context, kcfg config.KafkaConfig, log logging.Logger) error {
	tm, err := kafka.NewTopicManager(kcfg.Brokers, log)
	if err != nil {
		return err
	}
	defer tm.Close()
	return tm.EnsureTopics(ctx, kafka.DefaultTopics(kcfg.RawTopic, kcfg.NormalizedTopic, kcfg.DeadLetterTopic))
}

// documentSource is the batch side of kafka.DocumentConsumer.
type documentSource interface {
	FetchBatch(ctx context.Context, max int) (*kafka.DocumentBatch, error)
	Commit(ctx context.Context, b *kafka.DocumentBatch) error
}

// recordSink is the publishing side of kafka.RecordPublisher.
type recordSink interface {
	PublishRecords(ctx context.Context, runID string, records []*judgment.JudgmentRecord) (*kafka.BatchPublishResult, error)
	PublishRejections(ctx context.Context, rejections []kafka.RejectionPayload) (*kafka.BatchPublishResult, error)
}

type ingester struct {
	pipeline  *pipeline.Pipeline
	publisher recordSink
	store     judgment.Repository
	metrics   *prometheus.AppMetrics
	rawTopic  string
	outTopic  string
	log       logging.Logger
}

// IngestStats totals an ingest session.
type IngestStats struct {
	Batches   int `json:"batches"`
	Documents int `json:"documents"`
	Malformed int `json:"malformed"`
	Records   int `json:"records"`
	Rejected  int `json:"rejected"`
	Published int `json:"published"`
	Failed    int `json:"failed"`
}

func (s *IngestStats) Header() []string { return []string{"metric", "value"} }

func (s *IngestStats) Rows() [][]string {
	return [][]string{
		{"batches", strconv.Itoa(s.Batches)},
		{"documents", strconv.Itoa(s.Documents)},
		{"malformed", strconv.Itoa(s.Malformed)},
		{"records", strconv.Itoa(s.Records)},
		{"rejected", strconv.Itoa(s.Rejected)},
		{"published", strconv.Itoa(s.Published)},
		{"failed", strconv.Itoa(s.Failed)},
	}
}

// drain handles batches until the source is empty or limit batches were
// handled.  A batch whose events could not all be published is not
// committed and ends the session with an error.
func (i *ingester) drain(ctx context.Context, src documentSource, max, limit int) (*IngestStats, error) {
	stats := &IngestStats{}
	for limit <= 0 || stats.Batches < limit {
		batch, err := src.FetchBatch(ctx, max)
		if err != nil {
			return stats, err
		}
		if len(batch.Documents) == 0 && batch.Malformed == 0 {
			break
		}
		stats.Batches++
		stats.Documents += len(batch.Documents)
		stats.Malformed += batch.Malformed
		i.metrics.MessagesTotal.WithLabelValues(i.rawTopic, "consumed").Add(float64(len(batch.Documents)))
		i.metrics.MessagesTotal.WithLabelValues(i.rawTopic, "malformed").Add(float64(batch.Malformed))

		if err := i.handle(ctx, batch.Documents, stats); err != nil {
			return stats, err
		}
		if err := src.Commit(ctx, batch); err != nil {
			return stats, err
		}
		i.log.Info("Ingested batch",
			logging.Int("batch", stats.Batches),
			logging.Int("documents", len(batch.Documents)),
			logging.Int("malformed", batch.Malformed))
	}
	return stats, nil
}

// handle normalizes docs and publishes the records and rejections.
func (i *ingester) handle(ctx context.Context, docs []judgment.RawDocument, stats *IngestStats) error {
	if len(docs) == 0 {
		return nil
	}
	start := time.Now()
	res, err := i.pipeline.Process(ctx, docs)
	if err != nil {
		return err
	}
	stats.Records += len(res.Records)
	stats.Rejected += res.RejectedTotal()

	rejections := make([]kafka.RejectionPayload, len(res.Rejections))
	for n, r := range res.Rejections {
		rejections[n] = kafka.RejectionPayload{
			RunID:      res.RunID,
			Index:      r.Index,
			Identifier: r.Identifier,
			Reason:     string(r.Reason),
			Detail:     r.Detail,
		}
	}

	for _, publish := range []func() (*kafka.BatchPublishResult, error){
		func() (*kafka.BatchPublishResult, error) {
			return i.publisher.PublishRecords(ctx, res.RunID, res.Records)
		},
		func() (*kafka.BatchPublishResult, error) { return i.publisher.PublishRejections(ctx, rejections) },
	} {
		pr, err := publish()
		if err != nil {
			return err
		}
		stats.Published += pr.Succeeded
		stats.Failed += pr.Failed
		i.metrics.MessagesTotal.WithLabelValues(i.outTopic, "published").Add(float64(pr.Succeeded))
		i.metrics.MessagesTotal.WithLabelValues(i.outTopic, "failed").Add(float64(pr.Failed))
		if pr.Failed > 0 {
			return errors.New(errors.ErrCodeMessagingError, "events were not published; batch left uncommitted").
				WithDetail("failed=" + strconv.Itoa(pr.Failed))
		}
	}

	if i.store != nil {
		if err := i.store.SaveBatch(ctx, res.Records); err != nil {
			return err
		}
	}
	logging.LogOperationDuration(i.log, "ingest_batch", start,
		logging.String(logging.FieldRunID, res.RunID),
		logging.Int(logging.FieldRecordCount, len(res.Records)))
	return nil
}

// follow handles documents one at a time through a group consumer.  A
// document whose records cannot be published fails its message, which is
// retried and then dead-lettered.
func (i *ingester) follow(ctx context.Context, kcfg config.KafkaConfig) error {
	consumer, err := kafka.NewConsumer(kafka.ConsumerConfig{
		Brokers:         kcfg.Brokers,
		GroupID:         kcfg.GroupID,
		Topics:          []string{kcfg.RawTopic},
		AutoOffsetReset: kcfg.AutoOffsetReset,
		RetryConfig: kafka.RetryConfig{
			MaxRetries:      kcfg.MaxRetries,
			RetryBackoff:    200 * time.Millisecond,
			MaxRetryBackoff: 5 * time.Second,
			DeadLetterTopic: kcfg.DeadLetterTopic,
		},
	}, i.log)
	if err != nil {
		return err
	}
	defer consumer.Close()

	stats := &IngestStats{}
	consumer.Subscribe(kcfg.RawTopic, kafka.DocumentHandler(func(ctx context.Context, doc judgment.RawDocument) error {
		i.metrics.MessagesTotal.WithLabelValues(i.rawTopic, "consumed").Inc()
		return i.handle(ctx, []judgment.RawDocument{doc}, stats)
	}))
	if err := consumer.Start(ctx); err != nil {
		return err
	}
	i.log.Info("Following raw topic", logging.String("topic", kcfg.RawTopic))
	<-ctx.Done()
	consumer.Wait()
	i.log.Info("Stopped following",
		logging.Int64("processed", consumer.Processed()),
		logging.Int64("dead_lettered", consumer.DeadLettered()))
	return nil
}
