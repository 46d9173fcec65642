package database

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/estatease/estatease/internal/usecase"
)

type Investment struct {
	ID                  uuid.UUID      `gorm:"column:id;primaryKey;type:uuid"`
	AssetType           string         `gorm:"column:asset_type;type:varchar(10);not null"`
	AssetID             uuid.UUID      `gorm:"column:asset_id;type:uuid;not null;index"`
	ExpectedYield       *float64       `gorm:"column:expected_yield;type:numeric(5,2)"`
	LegalChecked        bool           `gorm:"column:legal_checked;default:false"`
	ManagementAvailable bool           `gorm:"column:management_available;default:false"`
	CreatedAt           time.Time      `gorm:"column:created_at;index"`
	UpdatedAt           time.Time      `gorm:"column:updated_at"`
	DeletedAt           gorm.DeletedAt `gorm:"column:deleted_at"`
}

func (Investment) TableName() string {
	return "investments"
}

func (i *Investment) BeforeCreate(*gorm.DB) error {
	if i.ID == uuid.Nil {
		id, err := uuid.NewV7()
		if err != nil {
			return err
		}
		i.ID = id
	}
	return nil
}

func (s *service) ListInvestments(ctx context.Context, opt usecase.ListInvestmentsOption) ([]usecase.Investment, int, error) {
	var (
		invs  []Investment
		list  []usecase.Investment
		count int64
	)

	db := s.db.Model([]Investment{}).WithContext(ctx)
	if opt.AssetType != "" {
		db = db.Where("asset_type = ?", string(opt.AssetType))
	}

	if err := db.Count(&count).Error; err != nil {
		return nil, 0, err
	}

	db = db.Order("created_at DESC").Offset(opt.Skip)
	if opt.Limit > 0 {
		db = db.Limit(opt.Limit)
	}
	if err := db.Find(&invs).Error; err != nil {
		return nil, 0, err
	}

	list = make([]usecase.Investment, 0, len(invs))
	for _, inv := range invs {
		list = append(list, inv.ConvertToUsecase())
	}
	return list, int(count), nil
}

func (s *service) GetInvestmentByID(ctx context.Context, id uuid.UUID) (usecase.Investment, error) {
	var inv Investment
	if err := s.db.WithContext(ctx).Where("id = ?", id).First(&inv).Error; err != nil {
		return usecase.Investment{}, notFound(err)
	}
	return inv.ConvertToUsecase(), nil
}

func (s *service) CreateInvestment(ctx context.Context, inv usecase.Investment) (usecase.Investment, error) {
	i := Investment{
		ID:                  inv.ID,
		AssetType:           string(inv.AssetType),
		AssetID:             inv.AssetID,
		ExpectedYield:       inv.ExpectedYield,
		LegalChecked:        inv.LegalChecked,
		ManagementAvailable: inv.ManagementAvailable,
	}
	if err := s.db.WithContext(ctx).Create(&i).Error; err != nil {
		return usecase.Investment{}, err
	}
	return i.ConvertToUsecase(), nil
}

// UpdateInvestment rewrites the investment metadata. The asset reference
// is fixed at creation.
func (s *service) UpdateInvestment(ctx context.Context, inv usecase.Investment) (usecase.Investment, error) {
	res := s.db.WithContext(ctx).
		Model(&Investment{}).
		Where("id = ?", inv.ID).
		Updates(map[string]any{
			"expected_yield":       inv.ExpectedYield,
			"legal_checked":        inv.LegalChecked,
			"management_available": inv.ManagementAvailable,
		})
	if res.Error != nil {
		return usecase.Investment{}, res.Error
	}
	if res.RowsAffected == 0 {
		return usecase.Investment{}, usecase.ErrNotFound
	}
	return s.GetInvestmentByID(ctx, inv.ID)
}

func (s *service) DeleteInvestment(ctx context.Context, id uuid.UUID) error {
	res := s.db.WithContext(ctx).Where("id = ?", id).Delete(&Investment{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return usecase.ErrNotFound
	}
	return nil
}

// Convert core model to Usecase
func (i Investment) ConvertToUsecase() usecase.Investment {
	return usecase.Investment{
		ID:                  i.ID,
		AssetType:           usecase.AssetType(i.AssetType),
		AssetID:             i.AssetID,
		ExpectedYield:       i.ExpectedYield,
		LegalChecked:        i.LegalChecked,
		ManagementAvailable: i.ManagementAvailable,
		CreatedAt:           i.CreatedAt,
		UpdatedAt:           i.UpdatedAt,
	}
}
