package services

import (
	"context"
	"fmt"
	"time"

	"railway/internal/domain"
	"railway/internal/utils"
)

// ExpirySweeper releases PENDING orders whose lock ran out even if nobody
// reads them.
type ExpirySweeper struct {
	Orders   *OrderService
	Interval time.Duration
	Batch    int
}

// Run sweeps every Interval until ctx is cancelled.
func (w ExpirySweeper) Run(ctx context.Context) {
	interval := w.Interval
	if interval <= 0 {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	utils.LogEvent("", "sweeper", "start", fmt.Sprintf("interval=%s batch=%d", interval, w.batch()))
	for {
		select {
		case <-ctx.Done():
			utils.LogEvent("", "sweeper", "stop", ctx.Err().Error())
			return
		case <-ticker.C:
			if _, err := w.SweepOnce(ctx); err != nil {
				utils.LogError("", "sweeper", "sweep", err)
			}
		}
	}
}

// SweepOnce releases up to Batch expired orders and returns how many of them
// ended up released. A failing order is logged and skipped.
func (w ExpirySweeper) SweepOnce(ctx context.Context) (int, error) {
	ids, err := w.Orders.Store.ListExpiredPending(ctx, w.Orders.now(), w.batch())
	if err != nil {
		return 0, domain.StorageError("list expired orders", err)
	}
	released := 0
	for _, id := range ids {
		if ctx.Err() != nil {
			return released, ctx.Err()
		}
		o, err := w.Orders.ReleaseOrder(ctx, id, domain.ReleaseExpire)
		if err != nil {
			utils.LogError("", "sweeper", fmt.Sprintf("release order_id=%d", id), err)
			continue
		}
		if o.Status.Released() {
			released++
		}
	}
	if released > 0 {
		utils.LogEvent("", "sweeper", "sweep", fmt.Sprintf("released=%d", released))
	}
	return released, nil
}

func (w ExpirySweeper) batch() int {
	if w.Batch > 0 {
		return w.Batch
	}
	return 100
}
