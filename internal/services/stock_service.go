package services

import (
	"context"
	"errors"
	"fmt"
	"log"

	"tavolo/internal/caching"
	"tavolo/internal/common"
	"tavolo/internal/models"
	"tavolo/internal/repositories"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// StockValidationResult is the outcome of a reservation pre-flight. Errors
// lists every violating line, not just the first.
type StockValidationResult struct {
	IsValid bool     `json:"is_valid"`
	Errors  []string `json:"errors"`
}

// ValidateStock checks every line item against the item rows visible through
// repo. It is advisory when run against the pool and authoritative when run
// against a transaction; either way the decrement re-verifies at write time.
func ValidateStock(ctx context.Context, repo repositories.ItemRepository, lineItems []models.LineItemRequest) (*StockValidationResult, error) {
	result := &StockValidationResult{Errors: []string{}}

	for _, line := range lineItems {
		item, err := repo.GetByID(ctx, line.ItemID)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				result.Errors = append(result.Errors, fmt.Sprintf("Item with ID %s not found", line.ItemID))
				continue
			}
			return nil, common.ClassifyStoreError(err)
		}
		if item.Status != "active" {
			result.Errors = append(result.Errors, fmt.Sprintf("Item '%s' is not available", item.Name))
			continue
		}
		if item.StockQuantity < line.Quantity {
			result.Errors = append(result.Errors, fmt.Sprintf("Insufficient stock for '%s'. Available: %d, Requested: %d", item.Name, item.StockQuantity, line.Quantity))
		}
	}

	result.IsValid = len(result.Errors) == 0
	return result, nil
}

type StockService interface {
	Validate(ctx context.Context, lineItems []models.LineItemRequest) (*StockValidationResult, error)
	Adjust(ctx context.Context, itemID uuid.UUID, newQuantity int, reason string) (*models.Item, error)
	History(ctx context.Context, itemID uuid.UUID, limit, offset int) ([]*models.InventoryHistory, error)
	Reconstruct(ctx context.Context, itemID uuid.UUID) (int, error)
	LowStock(ctx context.Context) ([]*models.Item, error)
}

type stockService struct {
	db          repositories.TxBeginner
	itemRepo    repositories.ItemRepository
	historyRepo repositories.InventoryHistoryRepository
	cacheSvc    caching.CacheService
}

func NewStockService(db repositories.TxBeginner, itemRepo repositories.ItemRepository, historyRepo repositories.InventoryHistoryRepository, cacheSvc caching.CacheService) StockService {
	return &stockService{
		db:          db,
		itemRepo:    itemRepo,
		historyRepo: historyRepo,
		cacheSvc:    cacheSvc,
	}
}

// Validate runs the advisory pre-flight against the pool.
func (s *stockService) Validate(ctx context.Context, lineItems []models.LineItemRequest) (*StockValidationResult, error) {
	return ValidateStock(ctx, s.itemRepo, lineItems)
}

// Adjust overwrites an item's stock level and appends the matching ledger
// entry in one transaction. Independent of orders; no idempotency guard.
func (s *stockService) Adjust(ctx context.Context, itemID uuid.UUID, newQuantity int, reason string) (*models.Item, error) {
	if newQuantity < 0 {
		return nil, common.NewValidationError("new quantity cannot be negative")
	}

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return nil, common.ClassifyStoreError(err)
	}
	defer tx.Rollback(ctx)

	items := s.itemRepo.WithTx(tx)
	history := s.historyRepo.WithTx(tx)

	current, err := items.GetStockForUpdate(ctx, itemID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, common.NewValidationError(fmt.Sprintf("Item with ID %s not found", itemID))
		}
		return nil, common.ClassifyStoreError(err)
	}

	change := newQuantity - current
	if change != 0 {
		if err := items.SetStockQuantity(ctx, itemID, newQuantity); err != nil {
			return nil, common.ClassifyStoreError(err)
		}
		entry := &models.InventoryHistory{
			ItemID:           itemID,
			QuantityChange:   change,
			PreviousQuantity: current,
			NewQuantity:      newQuantity,
			Reason:           reason,
		}
		if err := history.Append(ctx, entry); err != nil {
			return nil, common.ClassifyStoreError(err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, common.ClassifyStoreError(err)
	}

	if cacheErr := s.cacheSvc.DeleteItem(ctx, itemID); cacheErr != nil {
		log.Printf("Failed to invalidate cache for item %s: %v", itemID.String(), cacheErr)
	}

	return s.itemRepo.GetByID(ctx, itemID)
}

func (s *stockService) History(ctx context.Context, itemID uuid.UUID, limit, offset int) ([]*models.InventoryHistory, error) {
	return s.historyRepo.ListByItemID(ctx, itemID, limit, offset)
}

// Reconstruct folds the item's ledger from its first entry and returns the
// resulting quantity, verifying the new = previous + change invariant along
// the way.
func (s *stockService) Reconstruct(ctx context.Context, itemID uuid.UUID) (int, error) {
	entries, err := s.historyRepo.ListByItemID(ctx, itemID, 100000, 0)
	if err != nil {
		return 0, common.ClassifyStoreError(err)
	}
	if len(entries) == 0 {
		item, err := s.itemRepo.GetByID(ctx, itemID)
		if err != nil {
			return 0, common.ClassifyStoreError(err)
		}
		return item.StockQuantity, nil
	}

	quantity := entries[0].PreviousQuantity
	for _, entry := range entries {
		if entry.NewQuantity != entry.PreviousQuantity+entry.QuantityChange {
			return 0, &common.FatalIntegrityError{Err: fmt.Errorf("ledger entry %s violates new = previous + change", entry.ID)}
		}
		if entry.PreviousQuantity != quantity {
			return 0, &common.FatalIntegrityError{Err: fmt.Errorf("ledger entry %s breaks the fold at quantity %d", entry.ID, quantity)}
		}
		quantity += entry.QuantityChange
	}
	return quantity, nil
}

func (s *stockService) LowStock(ctx context.Context) ([]*models.Item, error) {
	return s.itemRepo.ListLowStock(ctx)
}
