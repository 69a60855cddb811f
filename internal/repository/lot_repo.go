package repository

import (
	"context"

	"medident/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type LotRepository interface {
	Create(ctx context.Context, lot *model.Lot) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.Lot, error)
	ListByItem(ctx context.Context, itemID uuid.UUID) ([]model.Lot, error)
	Update(ctx context.Context, lot *model.Lot) error
	Delete(ctx context.Context, id uuid.UUID) error
}

type lotRepo struct{ db *gorm.DB }

func NewLotRepository(db *gorm.DB) LotRepository { return &lotRepo{db: db} }

func (r *lotRepo) Create(ctx context.Context, lot *model.Lot) error {
	return translate(r.db.WithContext(ctx).Create(lot).Error)
}

func (r *lotRepo) FindByID(ctx context.Context, id uuid.UUID) (*model.Lot, error) {
	var lot model.Lot
	if err := r.db.WithContext(ctx).First(&lot, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &lot, nil
}

func (r *lotRepo) ListByItem(ctx context.Context, itemID uuid.UUID) ([]model.Lot, error) {
	var lots []model.Lot
	err := r.db.WithContext(ctx).
		Where("inventory_item_id = ?", itemID).
		Order("expiry_date ASC NULLS LAST, lot_number ASC").
		Find(&lots).Error
	return lots, err
}

func (r *lotRepo) Update(ctx context.Context, lot *model.Lot) error {
	return translate(r.db.WithContext(ctx).Save(lot).Error)
}

func (r *lotRepo) Delete(ctx context.Context, id uuid.UUID) error {
	res := r.db.WithContext(ctx).Delete(&model.Lot{}, "id = ?", id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
