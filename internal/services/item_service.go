package services

import (
	"context"
	"log"
	"time"

	"tavolo/internal/caching"
	"tavolo/internal/common"
	"tavolo/internal/models"
	"tavolo/internal/repositories"

	"github.com/google/uuid"
)

type ItemService interface {
	Create(ctx context.Context, item *models.Item, initialReason string) (*models.Item, error)
	GetByID(ctx context.Context, id uuid.UUID) (*models.Item, error)
	Update(ctx context.Context, item *models.Item) error
	Delete(ctx context.Context, id uuid.UUID) error
	List(ctx context.Context, limit, offset int) ([]*models.Item, error)
	Search(ctx context.Context, filter *models.ItemSearchFilter) ([]*models.Item, error)
}

type itemService struct {
	db          repositories.TxBeginner
	itemRepo    repositories.ItemRepository
	historyRepo repositories.InventoryHistoryRepository
	cacheSvc    caching.CacheService
}

func NewItemService(db repositories.TxBeginner, itemRepo repositories.ItemRepository, historyRepo repositories.InventoryHistoryRepository, cacheSvc caching.CacheService) ItemService {
	return &itemService{
		db:          db,
		itemRepo:    itemRepo,
		historyRepo: historyRepo,
		cacheSvc:    cacheSvc,
	}
}

// Create inserts a new menu item. A non-zero opening stock gets its own
// ledger entry so the fold starts from zero; item and entry commit together.
func (s *itemService) Create(ctx context.Context, item *models.Item, initialReason string) (*models.Item, error) {
	if item.StockQuantity < 0 {
		return nil, common.NewValidationError("stock quantity cannot be negative")
	}
	if item.ID == uuid.Nil {
		item.ID = uuid.New()
	}
	if item.Status == "" {
		item.Status = "active"
	}

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return nil, common.ClassifyStoreError(err)
	}
	defer tx.Rollback(ctx)

	if err := s.itemRepo.WithTx(tx).Create(ctx, item); err != nil {
		return nil, common.ClassifyStoreError(err)
	}
	if item.StockQuantity > 0 {
		if initialReason == "" {
			initialReason = "Initial stock"
		}
		entry := &models.InventoryHistory{
			ItemID:           item.ID,
			QuantityChange:   item.StockQuantity,
			PreviousQuantity: 0,
			NewQuantity:      item.StockQuantity,
			Reason:           initialReason,
		}
		if err := s.historyRepo.WithTx(tx).Append(ctx, entry); err != nil {
			return nil, common.ClassifyStoreError(err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, common.ClassifyStoreError(err)
	}
	return item, nil
}

func (s *itemService) GetByID(ctx context.Context, id uuid.UUID) (*models.Item, error) {
	// Cache-aside read; cache errors never fail the lookup
	if cached, err := s.cacheSvc.GetItem(ctx, id); cached != nil {
		return cached, nil
	} else if err != nil {
		log.Printf("Cache error for item %s: %v", id.String(), err)
	}

	item, err := s.itemRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	// Stock moves often; keep the TTL short
	if cacheErr := s.cacheSvc.SetItem(ctx, item, 5*time.Minute); cacheErr != nil {
		log.Printf("Failed to cache item %s: %v", id.String(), cacheErr)
	}
	return item, nil
}

// Update changes catalog fields only; stock moves exclusively through the
// order confirmation and manual adjustment paths.
func (s *itemService) Update(ctx context.Context, item *models.Item) error {
	if err := s.itemRepo.Update(ctx, item); err != nil {
		return common.ClassifyStoreError(err)
	}
	if cacheErr := s.cacheSvc.DeleteItem(ctx, item.ID); cacheErr != nil {
		log.Printf("Failed to invalidate cache for item %s: %v", item.ID.String(), cacheErr)
	}
	return nil
}

func (s *itemService) Delete(ctx context.Context, id uuid.UUID) error {
	if err := s.itemRepo.Delete(ctx, id); err != nil {
		return common.ClassifyStoreError(err)
	}
	if cacheErr := s.cacheSvc.DeleteItem(ctx, id); cacheErr != nil {
		log.Printf("Failed to invalidate cache for item %s: %v", id.String(), cacheErr)
	}
	return nil
}

func (s *itemService) List(ctx context.Context, limit, offset int) ([]*models.Item, error) {
	return s.itemRepo.List(ctx, limit, offset)
}

func (s *itemService) Search(ctx context.Context, filter *models.ItemSearchFilter) ([]*models.Item, error) {
	if filter == nil {
		filter = &models.ItemSearchFilter{}
	}
	return s.itemRepo.AdvancedSearch(ctx, filter)
}
