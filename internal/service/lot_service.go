package service

import (
	"context"
	"errors"
	"strings"

	"medident/internal/cache"
	"medident/internal/dto"
	"medident/internal/model"
	"medident/internal/repository"

	"github.com/google/uuid"
)

// LotService manages dated sub-batches of an item. Lot quantities are
// bookkeeping only and are never reconciled with the item quantity.
type LotService interface {
	List(ctx context.Context, itemID uuid.UUID) ([]dto.LotResponse, error)
	Create(ctx context.Context, itemID uuid.UUID, req dto.CreateLotRequest, userID *uuid.UUID) (*dto.LotResponse, error)
	Update(ctx context.Context, itemID, lotID uuid.UUID, req dto.UpdateLotRequest) (*dto.LotResponse, error)
	Delete(ctx context.Context, itemID, lotID uuid.UUID) error
}

type lotService struct {
	lots  repository.LotRepository
	items repository.ItemRepository
	cache cache.ItemCache
}

func NewLotService(lots repository.LotRepository, items repository.ItemRepository, itemCache cache.ItemCache) LotService {
	if itemCache == nil {
		itemCache = cache.Nop{}
	}
	return &lotService{lots: lots, items: items, cache: itemCache}
}

func (s *lotService) List(ctx context.Context, itemID uuid.UUID) ([]dto.LotResponse, error) {
	if err := s.requireItem(ctx, itemID); err != nil {
		return nil, err
	}
	lots, err := s.lots.ListByItem(ctx, itemID)
	if err != nil {
		return nil, err
	}
	out := make([]dto.LotResponse, len(lots))
	for i := range lots {
		out[i] = toLotResponse(&lots[i])
	}
	return out, nil
}

func (s *lotService) Create(ctx context.Context, itemID uuid.UUID, req dto.CreateLotRequest, userID *uuid.UUID) (*dto.LotResponse, error) {
	if err := s.requireItem(ctx, itemID); err != nil {
		return nil, err
	}
	number := strings.TrimSpace(req.LotNumber)
	if number == "" {
		return nil, invalid("lotNumber is required")
	}
	if err := checkQuantity("quantity", req.Quantity); err != nil {
		return nil, err
	}

	lot := &model.Lot{
		InventoryItemID: itemID,
		LotNumber:       number,
		ExpiryDate:      req.ExpiryDate.TimePtr(),
		Quantity:        req.Quantity,
		Supplier:        trimmedOrNil(req.Supplier),
		InvoiceNumber:   trimmedOrNil(req.InvoiceNumber),
		ReceivedDate:    req.ReceivedDate.TimePtr(),
		CreatedBy:       userID,
	}
	if err := s.lots.Create(ctx, lot); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, conflict("lot %q already exists for this item", number)
		}
		return nil, err
	}
	s.cache.Invalidate(ctx, itemID)
	resp := toLotResponse(lot)
	return &resp, nil
}

func (s *lotService) Update(ctx context.Context, itemID, lotID uuid.UUID, req dto.UpdateLotRequest) (*dto.LotResponse, error) {
	lot, err := s.findLot(ctx, itemID, lotID)
	if err != nil {
		return nil, err
	}
	if req.LotNumber != nil {
		n := strings.TrimSpace(*req.LotNumber)
		if n == "" {
			return nil, invalid("lotNumber cannot be empty")
		}
		lot.LotNumber = n
	}
	if req.ExpiryDate != nil {
		lot.ExpiryDate = req.ExpiryDate.TimePtr()
	}
	if req.Quantity != nil {
		if err := checkQuantity("quantity", *req.Quantity); err != nil {
			return nil, err
		}
		lot.Quantity = *req.Quantity
	}
	if req.Supplier != nil {
		lot.Supplier = trimmedOrNil(req.Supplier)
	}
	if req.InvoiceNumber != nil {
		lot.InvoiceNumber = trimmedOrNil(req.InvoiceNumber)
	}
	if req.ReceivedDate != nil {
		lot.ReceivedDate = req.ReceivedDate.TimePtr()
	}

	if err := s.lots.Update(ctx, lot); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, conflict("lot %q already exists for this item", lot.LotNumber)
		}
		return nil, err
	}
	s.cache.Invalidate(ctx, itemID)
	resp := toLotResponse(lot)
	return &resp, nil
}

func (s *lotService) Delete(ctx context.Context, itemID, lotID uuid.UUID) error {
	if _, err := s.findLot(ctx, itemID, lotID); err != nil {
		return err
	}
	if err := s.lots.Delete(ctx, lotID); err != nil {
		if repository.IsNotFound(err) {
			return notFound("lot not found")
		}
		return err
	}
	s.cache.Invalidate(ctx, itemID)
	return nil
}

func (s *lotService) requireItem(ctx context.Context, itemID uuid.UUID) error {
	_, err := s.items.FindByID(ctx, itemID)
	if repository.IsNotFound(err) {
		return notFound("inventory item not found")
	}
	return err
}

// findLot loads a lot and checks it hangs off itemID; a lot of another item
// is reported as not found.
func (s *lotService) findLot(ctx context.Context, itemID, lotID uuid.UUID) (*model.Lot, error) {
	lot, err := s.lots.FindByID(ctx, lotID)
	if repository.IsNotFound(err) || (err == nil && lot.InventoryItemID != itemID) {
		return nil, notFound("lot not found")
	}
	return lot, err
}
