package jobs

import (
	"context"
	"fmt"
	"log"
	"time"

	"tavolo/internal/repositories"

	"github.com/go-co-op/gocron/v2"
)

// LowStockSweeper periodically scans for items at or below their low stock
// threshold and logs an alert for each. The sweep is read-only; restocking
// stays a manual adjustment.
type LowStockSweeper struct {
	scheduler gocron.Scheduler
	itemRepo  repositories.ItemRepository
	interval  time.Duration
}

func NewLowStockSweeper(itemRepo repositories.ItemRepository, interval time.Duration) (*LowStockSweeper, error) {
	scheduler, err := gocron.NewScheduler()
	if err != nil {
		return nil, fmt.Errorf("failed to create scheduler: %w", err)
	}
	return &LowStockSweeper{
		scheduler: scheduler,
		itemRepo:  itemRepo,
		interval:  interval,
	}, nil
}

// Start registers the sweep job and runs the scheduler in the background.
func (s *LowStockSweeper) Start() error {
	_, err := s.scheduler.NewJob(
		gocron.DurationJob(s.interval),
		gocron.NewTask(s.sweep),
		gocron.WithName("low-stock-sweep"),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		return fmt.Errorf("failed to schedule low stock sweep: %w", err)
	}
	s.scheduler.Start()
	log.Printf("Low stock sweep scheduled every %s", s.interval)
	return nil
}

func (s *LowStockSweeper) sweep() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	items, err := s.itemRepo.ListLowStock(ctx)
	if err != nil {
		log.Printf("Low stock sweep failed: %v", err)
		return
	}
	for _, item := range items {
		threshold := 0
		if item.LowStockThreshold != nil {
			threshold = *item.LowStockThreshold
		}
		log.Printf("LOW STOCK ALERT: item %s (%s) at %d, threshold %d", item.Name, item.ID, item.StockQuantity, threshold)
	}
}

// Stop shuts the scheduler down, waiting for a running sweep to finish.
func (s *LowStockSweeper) Stop() error {
	return s.scheduler.Shutdown()
}
