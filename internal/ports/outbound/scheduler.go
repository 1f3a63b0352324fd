package outbound

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// AuctionScheduler registers the moments an auction must open and close
type AuctionScheduler interface {
	ScheduleStart(ctx context.Context, auctionID uuid.UUID, at time.Time) error
	ScheduleEnd(ctx context.Context, auctionID uuid.UUID, at time.Time) error

	// Unschedule drops both pending entries of an auction
	Unschedule(ctx context.Context, auctionID uuid.UUID) error
}
