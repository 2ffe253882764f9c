package workers

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"gtm-backend/internal/common/logger"
)

const (
	DefaultGroup    = "gtm_workers"
	DefaultConsumer = "worker_1"

	maxDeliveries = 5
	readBlock     = 5 * time.Second
	errorBackoff  = time.Second
)

// Handler processes one job payload. Returning ErrPermanent (wrapped) drops
// the job instead of leaving it for a retry.
type Handler func(ctx context.Context, payload []byte) error

var ErrPermanent = errors.New("permanent job failure")

type StreamConfig struct {
	Stream     string
	Group      string
	Consumer   string
	JobTimeout time.Duration
}

// StreamWorker consumes jobs through a consumer group. Failed jobs stay
// pending and are picked up again by ReclaimStale.
type StreamWorker struct {
	rdb      redis.Cmdable
	cfg      StreamConfig
	handlers map[string]Handler
	block    time.Duration
	log      zerolog.Logger
}

func NewStreamWorker(rdb redis.Cmdable, cfg StreamConfig, handlers map[string]Handler) *StreamWorker {
	if cfg.Stream == "" {
		cfg.Stream = DefaultStream
	}
	if cfg.Group == "" {
		cfg.Group = DefaultGroup
	}
	if cfg.Consumer == "" {
		cfg.Consumer = DefaultConsumer
	}
	if cfg.JobTimeout <= 0 {
		cfg.JobTimeout = 2 * time.Minute
	}
	return &StreamWorker{
		rdb:      rdb,
		cfg:      cfg,
		handlers: handlers,
		block:    readBlock,
		log:      logger.Component("stream_worker"),
	}
}

// EnsureGroup creates the stream and consumer group if missing.
func (w *StreamWorker) EnsureGroup(ctx context.Context) error {
	err := w.rdb.XGroupCreateMkStream(ctx, w.cfg.Stream, w.cfg.Group, "0").Err()
	if err != nil && !strings.Contains(err.Error(), "BUSYGROUP") {
		return err
	}
	return nil
}

// Start blocks until ctx is done.
func (w *StreamWorker) Start(ctx context.Context) error {
	if err := w.EnsureGroup(ctx); err != nil {
		return err
	}
	w.log.Info().Str("stream", w.cfg.Stream).Str("group", w.cfg.Group).Str("consumer", w.cfg.Consumer).Msg("stream worker started")

	for {
		select {
		case <-ctx.Done():
			w.log.Info().Msg("stream worker stopped")
			return nil
		default:
		}

		if _, err := w.poll(ctx); err != nil {
			if ctx.Err() != nil {
				continue
			}
			w.log.Error().Err(err).Msg("stream read failed")
			select {
			case <-ctx.Done():
			case <-time.After(errorBackoff):
			}
		}
	}
}

// poll reads and handles one batch of new messages.
func (w *StreamWorker) poll(ctx context.Context) (int, error) {
	streams, err := w.rdb.XReadGroup(ctx, &redis.XReadGroupArgs{
		Group:    w.cfg.Group,
		Consumer: w.cfg.Consumer,
		Streams:  []string{w.cfg.Stream, ">"},
		Count:    10,
		Block:    w.block,
	}).Result()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}

	n := 0
	for _, s := range streams {
		for _, msg := range s.Messages {
			w.handle(ctx, msg)
			n++
		}
	}
	return n, nil
}

// ReclaimStale takes over jobs pending longer than minIdle and runs them
// again. Jobs delivered too many times are dropped.
func (w *StreamWorker) ReclaimStale(ctx context.Context, minIdle time.Duration) (int, error) {
	start := "0-0"
	total := 0
	for {
		msgs, next, err := w.rdb.XAutoClaim(ctx, &redis.XAutoClaimArgs{
			Stream:   w.cfg.Stream,
			Group:    w.cfg.Group,
			Consumer: w.cfg.Consumer,
			MinIdle:  minIdle,
			Start:    start,
			Count:    50,
		}).Result()
		if err != nil {
			return total, err
		}

		for _, msg := range msgs {
			if w.deliveries(ctx, msg.ID) > maxDeliveries {
				w.log.Error().Str("message_id", msg.ID).Interface("values", msg.Values).Msg("job exceeded delivery limit, dropping")
				w.ack(ctx, msg.ID)
				continue
			}
			w.handle(ctx, msg)
			total++
		}

		if next == "0-0" || next == "" || len(msgs) == 0 {
			return total, nil
		}
		start = next
	}
}

func (w *StreamWorker) deliveries(ctx context.Context, id string) int64 {
	pending, err := w.rdb.XPendingExt(ctx, &redis.XPendingExtArgs{
		Stream: w.cfg.Stream,
		Group:  w.cfg.Group,
		Start:  id,
		End:    id,
		Count:  1,
	}).Result()
	if err != nil || len(pending) == 0 {
		return 0
	}
	return pending[0].RetryCount
}

func (w *StreamWorker) handle(ctx context.Context, msg redis.XMessage) {
	job, err := jobFromMessage(msg)
	if err != nil {
		w.log.Warn().Err(err).Msg("malformed job, dropping")
		w.ack(ctx, msg.ID)
		return
	}

	handler, ok := w.handlers[job.Type]
	if !ok {
		w.log.Warn().Str("job_id", job.ID).Str("type", job.Type).Msg("no handler for job type, dropping")
		w.ack(ctx, msg.ID)
		return
	}

	jctx, cancel := context.WithTimeout(ctx, w.cfg.JobTimeout)
	defer cancel()

	started := time.Now()
	err = handler(jctx, job.Payload)
	switch {
	case err == nil:
		w.log.Info().Str("job_id", job.ID).Str("type", job.Type).Dur("took", time.Since(started)).Msg("job done")
		w.ack(ctx, msg.ID)
	case errors.Is(err, ErrPermanent):
		w.log.Error().Err(err).Str("job_id", job.ID).Str("type", job.Type).Msg("job failed permanently")
		w.ack(ctx, msg.ID)
	default:
		w.log.Warn().Err(err).Str("job_id", job.ID).Str("type", job.Type).Msg("job failed, left pending for retry")
	}
}

func (w *StreamWorker) ack(ctx context.Context, id string) {
	if err := w.rdb.XAck(ctx, w.cfg.Stream, w.cfg.Group, id).Err(); err != nil {
		w.log.Error().Err(err).Str("message_id", id).Msg("ack failed")
	}
}
