// Package queue ranks batches delivered over AMQP and replies on the
// delivery's reply-to queue.
package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"candidaterank/internal/config"
	"candidaterank/internal/errors"
	"candidaterank/internal/types"

	"github.com/google/uuid"
	"github.com/streadway/amqp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// Ranker ranks a batch of candidates against one job
type Ranker interface {
	Rank(ctx context.Context, job types.Job, candidates []types.Candidate) (*types.RankOutput, error)
}

// publisher is the part of *amqp.Channel used to send replies
type publisher interface {
	Publish(exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
}

// Worker consumes ranking requests from a durable queue
type Worker struct {
	cfg           config.QueueConfig
	maxCandidates int
	ranker        Ranker
	logger        *errors.Logger
}

// NewWorker creates a Worker. The ranker is shared by all consumers.
// Batches above maxCandidates are rejected; zero means no limit.
func NewWorker(cfg config.QueueConfig, maxCandidates int, ranker Ranker, logger *errors.Logger) *Worker {
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	if logger == nil {
		logger = errors.NewNopLogger()
	}
	return &Worker{cfg: cfg, maxCandidates: maxCandidates, ranker: ranker, logger: logger}
}

// Run consumes until ctx is cancelled or the broker connection closes
func (w *Worker) Run(ctx context.Context) error {
	conn, err := amqp.Dial(w.cfg.URL)
	if err != nil {
		return errors.NewNetworkError(errors.ErrCodeNetworkTimeout, "failed to connect to message broker", err)
	}
	defer func() {
		if err := conn.Close(); err != nil && err != amqp.ErrClosed {
			w.logger.LogError(err, "Failed to close broker connection")
		}
	}()

	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("failed to open channel: %w", err)
	}

	if _, err := ch.QueueDeclare(w.cfg.RequestQueue, true, false, false, false, nil); err != nil {
		return fmt.Errorf("failed to declare queue %s: %w", w.cfg.RequestQueue, err)
	}
	if w.cfg.Prefetch > 0 {
		if err := ch.Qos(w.cfg.Prefetch, 0, false); err != nil {
			return fmt.Errorf("failed to set prefetch: %w", err)
		}
	}

	deliveries, err := ch.Consume(w.cfg.RequestQueue, "candidaterank-"+uuid.NewString()[:8], false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("failed to start consuming: %w", err)
	}

	w.logger.Info("Queue worker started",
		"queue", w.cfg.RequestQueue,
		"workers", w.cfg.Workers,
		"prefetch", w.cfg.Prefetch)

	closed := conn.NotifyClose(make(chan *amqp.Error, 1))

	var wg sync.WaitGroup
	for range w.cfg.Workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for d := range deliveries {
				w.handle(ctx, d, ch)
			}
		}()
	}

	var runErr error
	select {
	case <-ctx.Done():
		w.logger.Info("Stopping queue worker")
		// Closing the channel ends the deliveries stream; unacked messages return to the queue.
		if err := ch.Close(); err != nil {
			w.logger.LogError(err, "Failed to close channel")
		}
	case amqpErr := <-closed:
		if amqpErr != nil {
			runErr = errors.NewNetworkError(errors.ErrCodeNetworkTimeout, "broker connection closed", amqpErr)
		}
	}

	wg.Wait()
	return runErr
}

// handle ranks one delivery, replies, and settles it
func (w *Worker) handle(ctx context.Context, d amqp.Delivery, pub publisher) {
	ctx, span := otel.Tracer("candidaterank.queue").Start(ctx, "queue.handle")
	defer span.End()
	span.SetAttributes(
		attribute.String("messaging.message_id", d.MessageId),
		attribute.String("messaging.correlation_id", d.CorrelationId),
		attribute.Bool("messaging.redelivered", d.Redelivered),
	)

	logger := w.logger.With("correlation_id", d.CorrelationId, "delivery_tag", d.DeliveryTag)

	reply, retry := w.process(ctx, d.Body)
	if retry && !d.Redelivered {
		span.SetStatus(codes.Error, "requeued")
		logger.Warn("Ranking failed, requeueing message")
		if err := d.Nack(false, true); err != nil {
			logger.LogError(err, "Failed to nack message")
		}
		return
	}

	if d.ReplyTo != "" {
		if err := w.reply(pub, d, reply); err != nil {
			span.RecordError(err)
			logger.LogError(err, "Failed to publish reply", "reply_to", d.ReplyTo)
		}
	} else {
		logger.Info("Processed message without reply-to", "result", summary(reply))
	}

	if err := d.Ack(false); err != nil {
		logger.LogError(err, "Failed to ack message")
	}
}

// process turns a request body into a reply. retry reports a transient
// failure worth one more delivery.
func (w *Worker) process(ctx context.Context, body []byte) (reply any, retry bool) {
	var req types.RankRequest
	if err := json.Unmarshal(body, &req); err != nil {
		return types.ErrorResponse{Error: errors.ErrCodeInvalidFormat, Message: err.Error()}, false
	}
	if err := req.Validate(); err != nil {
		return types.ErrorResponse{Error: errors.ErrCodeInvalidRequest, Message: err.Error()}, false
	}
	if err := req.CheckBatchSize(w.maxCandidates); err != nil {
		return types.ErrorResponse{Error: errors.ErrCodeInvalidRequest, Message: err.Error()}, false
	}

	job, candidates := req.ToDomain()
	out, err := w.ranker.Rank(ctx, job, candidates)
	if err != nil {
		if appErr, ok := errors.AsAppError(err); ok && errors.IsBatchFatal(err) {
			return types.ErrorResponse{Error: appErr.Code, Message: appErr.Message}, false
		}
		w.logger.LogError(err, "Ranking failed", "candidates", len(candidates))
		return types.ErrorResponse{Error: errors.CodeOf(err), Message: "ranking failed"}, true
	}
	return types.NewRankResponse(out), false
}

func (w *Worker) reply(pub publisher, d amqp.Delivery, reply any) error {
	body, err := json.Marshal(reply)
	if err != nil {
		return fmt.Errorf("failed to encode reply: %w", err)
	}

	correlationID := d.CorrelationId
	if correlationID == "" {
		correlationID = uuid.NewString()
	}

	return pub.Publish("", d.ReplyTo, false, false, amqp.Publishing{
		ContentType:   "application/json",
		CorrelationId: correlationID,
		DeliveryMode:  amqp.Persistent,
		Body:          body,
	})
}

func summary(reply any) string {
	switch r := reply.(type) {
	case types.RankResponse:
		return fmt.Sprintf("ranked %d of %d candidates", len(r.RankedCandidates), r.TotalCandidates)
	case types.ErrorResponse:
		return r.Error
	default:
		return "unknown"
	}
}
