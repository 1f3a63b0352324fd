package scheduler

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/sourcegraph/conc/pool"

	"subastas-marketplace/internal/domain/shared"
	"subastas-marketplace/internal/ports/inbound"
	"subastas-marketplace/internal/ports/outbound"
)

const (
	startsKey      = "auction:starts"
	expirationsKey = "auction:expirations"

	defaultInterval   = time.Second
	defaultBatchSize  = 10
	defaultRetryDelay = 5 * time.Second
)

// queue is the sorted-set surface the scheduler needs
type queue interface {
	Add(ctx context.Context, key, member string, at time.Time) error
	Due(ctx context.Context, key string, now time.Time, count int64) ([]string, error)
	// Claim removes member and reports whether this caller removed it
	Claim(ctx context.Context, key, member string) (bool, error)
}

// redisQueue scores members by unix milliseconds
type redisQueue struct {
	client *redis.Client
}

func (q redisQueue) Add(ctx context.Context, key, member string, at time.Time) error {
	return q.client.ZAdd(ctx, key, redis.Z{Score: float64(at.UnixMilli()), Member: member}).Err()
}

func (q redisQueue) Due(ctx context.Context, key string, now time.Time, count int64) ([]string, error) {
	return q.client.ZRangeByScore(ctx, key, &redis.ZRangeBy{
		Min:   "-inf",
		Max:   strconv.FormatInt(now.UnixMilli(), 10),
		Count: count,
	}).Result()
}

func (q redisQueue) Claim(ctx context.Context, key, member string) (bool, error) {
	n, err := q.client.ZRem(ctx, key, member).Result()
	return n == 1, err
}

// AuctionScheduler opens and closes auctions when their times pass. Several
// nodes may poll the same sets; only the node whose ZREM succeeds acts.
type AuctionScheduler struct {
	queue      queue
	lifecycle  inbound.AuctionLifecycle
	interval   time.Duration
	batchSize  int64
	retryDelay time.Duration
	now        func() time.Time
	logger     zerolog.Logger
	ctx        context.Context
	cancel     context.CancelFunc
	wg         sync.WaitGroup
}

type AuctionSchedulerParams struct {
	RedisClient *redis.Client
	Lifecycle   inbound.AuctionLifecycle
	Interval    time.Duration
	BatchSize   int64
	RetryDelay  time.Duration
	Clock       func() time.Time
	Logger      zerolog.Logger
}

func NewAuctionScheduler(params AuctionSchedulerParams) *AuctionScheduler {
	return newScheduler(redisQueue{client: params.RedisClient}, params)
}

func newScheduler(q queue, params AuctionSchedulerParams) *AuctionScheduler {
	ctx, cancel := context.WithCancel(context.Background())

	s := &AuctionScheduler{
		queue:      q,
		lifecycle:  params.Lifecycle,
		interval:   params.Interval,
		batchSize:  params.BatchSize,
		retryDelay: params.RetryDelay,
		now:        params.Clock,
		logger:     params.Logger.With().Str("component", "auction_scheduler").Logger(),
		ctx:        ctx,
		cancel:     cancel,
	}
	if s.interval <= 0 {
		s.interval = defaultInterval
	}
	if s.batchSize <= 0 {
		s.batchSize = defaultBatchSize
	}
	if s.retryDelay <= 0 {
		s.retryDelay = defaultRetryDelay
	}
	if s.now == nil {
		s.now = time.Now
	}
	return s
}

// SetLifecycle wires the service the scheduler drives. The auction service
// also depends on the scheduler, so one side is attached after construction.
func (s *AuctionScheduler) SetLifecycle(lifecycle inbound.AuctionLifecycle) {
	s.lifecycle = lifecycle
}

// ScheduleStart registers the moment an auction must open
func (s *AuctionScheduler) ScheduleStart(ctx context.Context, auctionID uuid.UUID, at time.Time) error {
	return s.schedule(ctx, startsKey, auctionID, at)
}

// ScheduleEnd registers the moment an auction must close
func (s *AuctionScheduler) ScheduleEnd(ctx context.Context, auctionID uuid.UUID, at time.Time) error {
	return s.schedule(ctx, expirationsKey, auctionID, at)
}

// Unschedule drops both pending entries of an auction
func (s *AuctionScheduler) Unschedule(ctx context.Context, auctionID uuid.UUID) error {
	for _, key := range []string{startsKey, expirationsKey} {
		if _, err := s.queue.Claim(ctx, key, auctionID.String()); err != nil {
			return fmt.Errorf("failed to unschedule auction: %w", err)
		}
	}
	s.logger.Debug().Str("auction_id", auctionID.String()).Msg("Auction unscheduled")
	return nil
}

func (s *AuctionScheduler) schedule(ctx context.Context, key string, auctionID uuid.UUID, at time.Time) error {
	if err := s.queue.Add(ctx, key, auctionID.String(), at); err != nil {
		s.logger.Error().Err(err).Str("auction_id", auctionID.String()).Str("set", key).Msg("Failed to schedule auction")
		return fmt.Errorf("failed to schedule auction: %w", err)
	}

	s.logger.Info().
		Str("auction_id", auctionID.String()).
		Str("set", key).
		Time("at", at).
		Msg("Auction scheduled")
	return nil
}

// Start begins the scheduler loop
func (s *AuctionScheduler) Start() {
	s.logger.Info().Dur("interval", s.interval).Msg("Starting auction scheduler")

	s.wg.Add(1)
	go s.schedulerLoop()
}

// Stop gracefully stops the scheduler and waits for the batch in flight
func (s *AuctionScheduler) Stop() {
	s.logger.Info().Msg("Stopping auction scheduler")
	s.cancel()
	s.wg.Wait()
}

func (s *AuctionScheduler) schedulerLoop() {
	defer s.wg.Done()

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.tick(s.ctx)
		case <-s.ctx.Done():
			s.logger.Info().Msg("Scheduler loop stopped")
			return
		}
	}
}

// tick runs due starts before due expirations so an auction whose whole
// window passed while the node was down still opens and then closes
func (s *AuctionScheduler) tick(ctx context.Context) {
	s.process(ctx, startsKey, s.lifecycle.StartScheduled)
	s.process(ctx, expirationsKey, s.lifecycle.ExpireScheduled)
}

func (s *AuctionScheduler) process(ctx context.Context, key string, run func(context.Context, uuid.UUID) error) {
	due, err := s.queue.Due(ctx, key, s.now(), s.batchSize)
	if err != nil {
		s.logger.Error().Err(err).Str("set", key).Msg("Failed to get due auctions")
		return
	}
	if len(due) == 0 {
		return
	}

	s.logger.Debug().Int("count", len(due)).Str("set", key).Msg("Found due auctions")

	p := pool.New().WithMaxGoroutines(len(due))
	for _, member := range due {
		p.Go(func() {
			s.handle(ctx, key, member, run)
		})
	}
	p.Wait()
}

func (s *AuctionScheduler) handle(ctx context.Context, key, member string, run func(context.Context, uuid.UUID) error) {
	claimed, err := s.queue.Claim(ctx, key, member)
	if err != nil {
		s.logger.Error().Err(err).Str("auction_id", member).Msg("Failed to claim scheduled auction")
		return
	}
	if !claimed {
		return
	}

	auctionID, err := uuid.Parse(member)
	if err != nil {
		s.logger.Error().Err(err).Str("auction_id", member).Msg("Invalid auction ID")
		return
	}

	err = run(ctx, auctionID)
	switch {
	case err == nil:
		s.logger.Info().Str("auction_id", member).Str("set", key).Msg("Scheduled auction processed")
	case errors.Is(err, shared.ErrAuctionNotFound):
		s.logger.Warn().Str("auction_id", member).Msg("Scheduled auction no longer exists")
	default:
		retryAt := s.now().Add(s.retryDelay)
		s.logger.Error().Err(err).Str("auction_id", member).Time("retry_at", retryAt).Msg("Failed to process scheduled auction")
		if err := s.queue.Add(ctx, key, member, retryAt); err != nil {
			s.logger.Error().Err(err).Str("auction_id", member).Msg("Failed to requeue scheduled auction")
		}
	}
}

var _ outbound.AuctionScheduler = (*AuctionScheduler)(nil)
