package service

import (
	"context"
	"errors"
	"strings"

	"medident/internal/dto"
	"medident/internal/ledger"
	"medident/internal/model"
	"medident/internal/repository"

	"github.com/google/uuid"
)

// QRService issues printable codes and turns scans into ledger adjustments.
type QRService interface {
	Create(ctx context.Context, itemID uuid.UUID, req dto.CreateQRCodeRequest, userID *uuid.UUID) (*dto.QRCodeResponse, error)
	ListByItem(ctx context.Context, itemID uuid.UUID) ([]dto.QRCodeResponse, error)
	Resolve(ctx context.Context, code string) (*dto.QRResolveResponse, error)
	Scan(ctx context.Context, code string, req dto.ScanQRCodeRequest, userID *uuid.UUID) (*dto.QuantityUpdateResponse, error)
	Deactivate(ctx context.Context, itemID, qrID uuid.UUID) error
}

type qrService struct {
	codes repository.QRCodeRepository
	items repository.ItemRepository
	lots  repository.LotRepository
	adj   Adjuster
}

// NewQRService takes the item service (or anything else that adjusts through
// the ledger) so scans share its cache invalidation and alerting.
func NewQRService(codes repository.QRCodeRepository, items repository.ItemRepository, lots repository.LotRepository, adj Adjuster) QRService {
	return &qrService{codes: codes, items: items, lots: lots, adj: adj}
}

func (s *qrService) Create(ctx context.Context, itemID uuid.UUID, req dto.CreateQRCodeRequest, userID *uuid.UUID) (*dto.QRCodeResponse, error) {
	if _, err := s.items.FindByID(ctx, itemID); err != nil {
		if repository.IsNotFound(err) {
			return nil, notFound("inventory item not found")
		}
		return nil, err
	}

	qr := &model.QRCode{
		InventoryItemID: itemID,
		Code:            newCode(),
		Type:            model.QRTypePermanent,
		IsActive:        true,
		CreatedBy:       userID,
	}
	if req.LotID != nil && *req.LotID != "" {
		lotID, err := uuid.Parse(*req.LotID)
		if err != nil {
			return nil, invalid("lotId must be a UUID")
		}
		lot, err := s.lots.FindByID(ctx, lotID)
		if repository.IsNotFound(err) || (err == nil && lot.InventoryItemID != itemID) {
			return nil, invalid("lot %s does not belong to this item", lotID)
		}
		if err != nil {
			return nil, err
		}
		qr.LotID = &lotID
		qr.Type = model.QRTypeLot
	}

	if err := s.codes.Create(ctx, qr); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, conflict("QR code collision, retry")
		}
		return nil, err
	}
	resp := toQRCodeResponse(qr)
	return &resp, nil
}

func (s *qrService) ListByItem(ctx context.Context, itemID uuid.UUID) ([]dto.QRCodeResponse, error) {
	list, err := s.codes.ListByItem(ctx, itemID)
	if err != nil {
		return nil, err
	}
	out := make([]dto.QRCodeResponse, len(list))
	for i := range list {
		out[i] = toQRCodeResponse(&list[i])
	}
	return out, nil
}

func (s *qrService) Resolve(ctx context.Context, code string) (*dto.QRResolveResponse, error) {
	qr, err := s.find(ctx, code)
	if err != nil {
		return nil, err
	}
	item, err := s.items.FindByID(ctx, qr.InventoryItemID)
	if repository.IsNotFound(err) {
		return nil, notFound("QR code not found")
	}
	if err != nil {
		return nil, err
	}
	resp := &dto.QRResolveResponse{QRCode: toQRCodeResponse(qr), Item: toItemResponse(item)}
	if qr.LotID != nil {
		lot, err := s.lots.FindByID(ctx, *qr.LotID)
		if err != nil && !repository.IsNotFound(err) {
			return nil, err
		}
		if err == nil {
			l := toLotResponse(lot)
			resp.Lot = &l
		}
	}
	return resp, nil
}

// Scan applies a relative change (negative to consume, positive to restock)
// to the code's item, tagging the code's lot if it has one.
func (s *qrService) Scan(ctx context.Context, code string, req dto.ScanQRCodeRequest, userID *uuid.UUID) (*dto.QuantityUpdateResponse, error) {
	if req.Quantity == nil {
		return nil, invalid("quantity is required")
	}
	qr, err := s.find(ctx, code)
	if err != nil {
		return nil, err
	}
	reason := strings.TrimSpace(req.Reason)
	if reason == "" {
		reason = "QR scan"
	}
	res, err := s.adj.Adjust(ctx, ledger.Adjustment{
		ItemID: qr.InventoryItemID,
		Value:  *req.Quantity,
		Mode:   ledger.Relative,
		Metadata: ledger.Metadata{
			Reason:     reason,
			ActionType: model.ActionQR,
			UserID:     userID,
			LotID:      qr.LotID,
		},
	})
	if err != nil {
		return nil, err
	}
	return &dto.QuantityUpdateResponse{
		Item:     toItemResponse(res.Item),
		AuditLog: toAuditLogResponse(&res.Entry),
	}, nil
}

func (s *qrService) Deactivate(ctx context.Context, itemID, qrID uuid.UUID) error {
	list, err := s.codes.ListByItem(ctx, itemID)
	if err != nil {
		return err
	}
	for _, qr := range list {
		if qr.ID == qrID {
			return s.codes.Deactivate(ctx, qrID)
		}
	}
	return notFound("QR code not found")
}

func (s *qrService) find(ctx context.Context, code string) (*model.QRCode, error) {
	qr, err := s.codes.FindByCode(ctx, strings.TrimSpace(code))
	if repository.IsNotFound(err) {
		return nil, notFound("QR code not found")
	}
	return qr, err
}

// newCode returns a 20 character upper-case code without separators.
func newCode() string {
	return "MD" + strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", ""))[:18]
}
