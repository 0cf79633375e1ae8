package repository

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"accommodation-portal/internal/model"
)

// ServiceUnitRepository service unit data access
type ServiceUnitRepository interface {
	Create(ctx context.Context, unit *model.ServiceUnit) error
	GetByID(ctx context.Context, id string) (*model.ServiceUnit, error)
	// LockByID reads the unit with SELECT ... FOR UPDATE; call inside a transaction
	LockByID(ctx context.Context, id string) (*model.ServiceUnit, error)
	// ShareByID reads the unit with SELECT ... FOR SHARE, which blocks LockByID
	// but not other sharers
	ShareByID(ctx context.Context, id string) (*model.ServiceUnit, error)
	GetByName(ctx context.Context, name string) (*model.ServiceUnit, error)
	List(ctx context.Context) ([]model.ServiceUnit, error)
	Update(ctx context.Context, unit *model.ServiceUnit) error
	Delete(ctx context.Context, id string, deletedBy string) error
	CountMembers(ctx context.Context, serviceUnitID string) (int64, error)
	BatchCountMembers(ctx context.Context, serviceUnitIDs []string) (map[string]int64, error)
}

type serviceUnitRepo struct {
	db *gorm.DB
}

// NewServiceUnitRepo creates a ServiceUnitRepository
func NewServiceUnitRepo(db *gorm.DB) ServiceUnitRepository {
	return &serviceUnitRepo{db: db}
}

func (r *serviceUnitRepo) Create(ctx context.Context, unit *model.ServiceUnit) error {
	return r.db.WithContext(ctx).Omit(clause.Associations).Create(unit).Error
}

func (r *serviceUnitRepo) GetByID(ctx context.Context, id string) (*model.ServiceUnit, error) {
	var unit model.ServiceUnit
	err := r.db.WithContext(ctx).
		Preload("Admin").
		Where("service_unit_id = ?", id).
		First(&unit).Error
	if err != nil {
		return nil, err
	}
	return &unit, nil
}

func (r *serviceUnitRepo) LockByID(ctx context.Context, id string) (*model.ServiceUnit, error) {
	return r.lock(ctx, id, "UPDATE")
}

func (r *serviceUnitRepo) ShareByID(ctx context.Context, id string) (*model.ServiceUnit, error) {
	return r.lock(ctx, id, "SHARE")
}

func (r *serviceUnitRepo) lock(ctx context.Context, id, strength string) (*model.ServiceUnit, error) {
	var unit model.ServiceUnit
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: strength}).
		Where("service_unit_id = ?", id).
		First(&unit).Error
	if err != nil {
		return nil, err
	}
	return &unit, nil
}

func (r *serviceUnitRepo) GetByName(ctx context.Context, name string) (*model.ServiceUnit, error) {
	var unit model.ServiceUnit
	err := r.db.WithContext(ctx).
		Where("LOWER(name) = LOWER(?)", name).
		First(&unit).Error
	if err != nil {
		return nil, err
	}
	return &unit, nil
}

func (r *serviceUnitRepo) List(ctx context.Context) ([]model.ServiceUnit, error) {
	var units []model.ServiceUnit
	err := r.db.WithContext(ctx).
		Preload("Admin").
		Order("name ASC").
		Find(&units).Error
	return units, err
}

func (r *serviceUnitRepo) Update(ctx context.Context, unit *model.ServiceUnit) error {
	return r.db.WithContext(ctx).Omit(clause.Associations).Save(unit).Error
}

func (r *serviceUnitRepo) Delete(ctx context.Context, id string, deletedBy string) error {
	return r.db.WithContext(ctx).
		Model(&model.ServiceUnit{}).
		Where("service_unit_id = ?", id).
		Updates(map[string]interface{}{
			"deleted_by": deletedBy,
			"deleted_at": gorm.Expr("NOW()"),
		}).Error
}

func (r *serviceUnitRepo) CountMembers(ctx context.Context, serviceUnitID string) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&model.User{}).
		Where("service_unit_id = ?", serviceUnitID).
		Count(&count).Error
	return count, err
}

// BatchCountMembers member counts for many units in one query
func (r *serviceUnitRepo) BatchCountMembers(ctx context.Context, serviceUnitIDs []string) (map[string]int64, error) {
	result := make(map[string]int64, len(serviceUnitIDs))
	if len(serviceUnitIDs) == 0 {
		return result, nil
	}

	var rows []struct {
		ServiceUnitID string
		Count         int64
	}
	err := r.db.WithContext(ctx).
		Model(&model.User{}).
		Select("service_unit_id, COUNT(*) AS count").
		Where("service_unit_id IN ?", serviceUnitIDs).
		Group("service_unit_id").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	for _, row := range rows {
		result[row.ServiceUnitID] = row.Count
	}
	return result, nil
}
