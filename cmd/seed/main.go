// cmd/seed seeds demo users, categories, items and lots.
// Usage: go run ./cmd/seed
package main

import (
	"context"
	"time"

	"medident/internal/config"
	"medident/internal/infra"
	"medident/internal/model"
	"medident/internal/service"

	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const demoPassword = "password123"

type seedItem struct {
	name, sku, category, unit string
	quantity, minimum         int64
	expiresInDays             int
	lots                      []seedLot
}

type seedLot struct {
	number        string
	quantity      int64
	expiresInDays int
}

var (
	seedUsers = []model.User{
		{Name: "Admin", Email: "admin@medident.com", Role: model.RoleAdmin},
		{Name: "Practice Manager", Email: "manager@medident.com", Role: model.RoleManager},
		{Name: "Dental Assistant", Email: "assistant@medident.com", Role: model.RoleAssistant},
	}
	seedCategories = []string{"Supplies", "Medications", "Instruments", "Implants", "PPE"}
	seedItems      = []seedItem{
		{name: "Nitrile gloves (M)", sku: "PPE-001", category: "PPE", unit: "boxes", quantity: 24, minimum: 10},
		{name: "Surgical masks", sku: "PPE-002", category: "PPE", unit: "boxes", quantity: 4, minimum: 8},
		{name: "Lidocaine 2% cartridges", sku: "MED-001", category: "Medications", unit: "cartridges", quantity: 150, minimum: 50, expiresInDays: 60,
			lots: []seedLot{{"LD-2401", 100, 60}, {"LD-2402", 50, 200}}},
		{name: "Composite resin A2", sku: "SUP-001", category: "Supplies", unit: "syringes", quantity: 12, minimum: 5, expiresInDays: 365},
		{name: "Cotton rolls", sku: "SUP-002", category: "Supplies", unit: "packs", quantity: 3, minimum: 5},
		{name: "Titanium implant 4.0x10", sku: "IMP-001", category: "Implants", unit: "units", quantity: 6, minimum: 2,
			lots: []seedLot{{"TI-0931", 6, 900}}},
		{name: "Explorer probe", sku: "INS-001", category: "Instruments", unit: "units", quantity: 15, minimum: 4},
	}
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}
	db, err := infra.NewDatabase(cfg.DatabaseURL, infra.PoolConfig{MaxOpen: 2, MaxIdle: 1})
	if err != nil {
		log.Fatal().Err(err).Msg("db connect error")
	}
	sqlDB, err := db.DB()
	if err != nil {
		log.Fatal().Err(err).Msg("db connect error")
	}
	if err := infra.RunMigrations(sqlDB, "up"); err != nil {
		log.Fatal().Err(err).Msg("migrations failed")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(demoPassword), service.BcryptCost)
	if err != nil {
		log.Fatal().Err(err).Msg("bcrypt error")
	}

	ctx := context.Background()
	err = db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, u := range seedUsers {
			u.PasswordHash = string(hash)
			u.IsActive = true
			if err := tx.Clauses(clause.OnConflict{
				Columns:   []clause.Column{{Name: "email"}},
				DoUpdates: clause.AssignmentColumns([]string{"password_hash", "role", "is_active"}),
			}).Create(&u).Error; err != nil {
				return err
			}
		}

		categoryIDs := make(map[string]*model.Category, len(seedCategories))
		for _, name := range seedCategories {
			c := model.Category{Name: name}
			if err := tx.Where("LOWER(name) = LOWER(?)", name).FirstOrCreate(&c).Error; err != nil {
				return err
			}
			categoryIDs[name] = &c
		}

		today := time.Now().UTC().Truncate(24 * time.Hour)
		for _, si := range seedItems {
			item := model.InventoryItem{
				Name:            si.name,
				SKU:             si.sku,
				CategoryID:      &categoryIDs[si.category].ID,
				Quantity:        decimal.NewFromInt(si.quantity),
				MinimumQuantity: decimal.NewFromInt(si.minimum),
				Unit:            si.unit,
				IsActive:        true,
			}
			if si.expiresInDays > 0 {
				exp := today.AddDate(0, 0, si.expiresInDays)
				item.ExpiryDate = &exp
			}
			item.RequiresLotTracking = len(si.lots) > 0

			var existing int64
			if err := tx.Model(&model.InventoryItem{}).Where("sku = ?", si.sku).Count(&existing).Error; err != nil {
				return err
			}
			if existing > 0 {
				continue // already seeded; leave quantities alone
			}
			if err := tx.Omit(clause.Associations).Create(&item).Error; err != nil {
				return err
			}
			for _, sl := range si.lots {
				exp := today.AddDate(0, 0, sl.expiresInDays)
				lot := model.Lot{
					InventoryItemID: item.ID,
					LotNumber:       sl.number,
					Quantity:        decimal.NewFromInt(sl.quantity),
					ExpiryDate:      &exp,
				}
				if err := tx.Create(&lot).Error; err != nil {
					return err
				}
			}
		}
		return nil
	})
	if err != nil {
		log.Fatal().Err(err).Msg("seed failed")
	}

	for _, u := range seedUsers {
		log.Info().Str("email", u.Email).Str("role", u.Role).Msg("user ready")
	}
	log.Info().Str("password", demoPassword).Int("items", len(seedItems)).Msg("seed complete")
}
