package repository

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"accommodation-portal/internal/model"
)

// BuildingRepository building data access
type BuildingRepository interface {
	Create(ctx context.Context, building *model.Building) error
	GetByID(ctx context.Context, id string) (*model.Building, error)
	GetByName(ctx context.Context, name string) (*model.Building, error)
	List(ctx context.Context, keyword string) ([]model.Building, error)
	Update(ctx context.Context, building *model.Building) error
	Delete(ctx context.Context, id string, deletedBy string) error
}

type buildingRepo struct {
	db *gorm.DB
}

// NewBuildingRepo creates a BuildingRepository
func NewBuildingRepo(db *gorm.DB) BuildingRepository {
	return &buildingRepo{db: db}
}

func (r *buildingRepo) Create(ctx context.Context, building *model.Building) error {
	return r.db.WithContext(ctx).Omit(clause.Associations).Create(building).Error
}

func (r *buildingRepo) GetByID(ctx context.Context, id string) (*model.Building, error) {
	var building model.Building
	err := r.db.WithContext(ctx).
		Where("building_id = ?", id).
		First(&building).Error
	if err != nil {
		return nil, err
	}
	return &building, nil
}

func (r *buildingRepo) GetByName(ctx context.Context, name string) (*model.Building, error) {
	var building model.Building
	err := r.db.WithContext(ctx).
		Where("LOWER(name) = LOWER(?)", name).
		First(&building).Error
	if err != nil {
		return nil, err
	}
	return &building, nil
}

func (r *buildingRepo) List(ctx context.Context, keyword string) ([]model.Building, error) {
	var buildings []model.Building
	db := r.db.WithContext(ctx)
	if keyword != "" {
		kw := "%" + keyword + "%"
		db = db.Where("name ILIKE ? OR location ILIKE ?", kw, kw)
	}
	err := db.Order("name ASC").Find(&buildings).Error
	return buildings, err
}

func (r *buildingRepo) Update(ctx context.Context, building *model.Building) error {
	return r.db.WithContext(ctx).Omit(clause.Associations).Save(building).Error
}

func (r *buildingRepo) Delete(ctx context.Context, id string, deletedBy string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&model.Room{}).
			Where("building_id = ?", id).
			Updates(map[string]interface{}{
				"deleted_by": deletedBy,
				"deleted_at": gorm.Expr("NOW()"),
			}).Error; err != nil {
			return err
		}
		return tx.Model(&model.Building{}).
			Where("building_id = ?", id).
			Updates(map[string]interface{}{
				"deleted_by": deletedBy,
				"deleted_at": gorm.Expr("NOW()"),
			}).Error
	})
}
