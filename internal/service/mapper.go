package service

import (
	"medident/internal/dto"
	"medident/internal/model"

	"github.com/google/uuid"
)

func uuidString(id *uuid.UUID) *string {
	if id == nil {
		return nil
	}
	s := id.String()
	return &s
}

func toItemResponse(it *model.InventoryItem) dto.ItemResponse {
	resp := dto.ItemResponse{
		ID:                  it.ID.String(),
		Name:                it.Name,
		SKU:                 it.SKU,
		CategoryID:          uuidString(it.CategoryID),
		Quantity:            it.Quantity,
		MinimumQuantity:     it.MinimumQuantity,
		Unit:                it.Unit,
		Location:            it.Location,
		Notes:               it.Notes,
		ExpiryDate:          dto.DatePtr(it.ExpiryDate),
		RequiresLotTracking: it.RequiresLotTracking,
		IsActive:            it.IsActive,
		LowStock:            it.IsLowStock(),
		CreatedBy:           uuidString(it.CreatedBy),
		UpdatedBy:           uuidString(it.UpdatedBy),
		CreatedAt:           it.CreatedAt,
		UpdatedAt:           it.UpdatedAt,
	}
	if it.Category != nil {
		name := it.Category.Name
		resp.Category = &name
	}
	if len(it.Lots) > 0 {
		resp.Lots = make([]dto.LotResponse, len(it.Lots))
		for i := range it.Lots {
			resp.Lots[i] = toLotResponse(&it.Lots[i])
		}
	}
	return resp
}

func toLotResponse(l *model.Lot) dto.LotResponse {
	return dto.LotResponse{
		ID:              l.ID.String(),
		InventoryItemID: l.InventoryItemID.String(),
		LotNumber:       l.LotNumber,
		ExpiryDate:      dto.DatePtr(l.ExpiryDate),
		Quantity:        l.Quantity,
		Supplier:        l.Supplier,
		InvoiceNumber:   l.InvoiceNumber,
		ReceivedDate:    dto.DatePtr(l.ReceivedDate),
		CreatedAt:       l.CreatedAt,
	}
}

func toAuditLogResponse(e *model.AuditLogEntry) dto.AuditLogResponse {
	return dto.AuditLogResponse{
		ID:               e.ID.String(),
		InventoryItemID:  e.InventoryItemID.String(),
		LotID:            uuidString(e.LotID),
		PreviousQuantity: e.PreviousQuantity,
		NewQuantity:      e.NewQuantity,
		ChangeAmount:     e.ChangeAmount,
		ActionType:       e.ActionType,
		Reason:           e.Reason,
		UserID:           uuidString(e.UserID),
		CreatedAt:        e.CreatedAt,
	}
}

func toCategoryResponse(c *model.Category) dto.CategoryResponse {
	return dto.CategoryResponse{ID: c.ID.String(), Name: c.Name, Description: c.Description}
}

func toUserResponse(u *model.User) dto.UserResponse {
	return dto.UserResponse{
		ID: u.ID.String(), Name: u.Name, Email: u.Email,
		Role: u.Role, IsActive: u.IsActive, CreatedAt: u.CreatedAt,
	}
}

func toQRCodeResponse(q *model.QRCode) dto.QRCodeResponse {
	return dto.QRCodeResponse{
		ID:              q.ID.String(),
		Code:            q.Code,
		Type:            q.Type,
		InventoryItemID: q.InventoryItemID.String(),
		LotID:           uuidString(q.LotID),
		IsActive:        q.IsActive,
		CreatedAt:       q.CreatedAt,
	}
}
