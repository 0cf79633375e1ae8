package repository

import (
	"context"

	"gorm.io/gorm"
)

// TxFunc runs fn inside one transaction, handing it a Repository bound to it
type TxFunc func(ctx context.Context, fn func(tx *Repository) error) error

// Repository aggregates every repository
type Repository struct {
	User              UserRepository
	ServiceUnit       ServiceUnitRepository
	Building          BuildingRepository
	Room              RoomRepository
	Allocation        AllocationRepository
	AllocationRequest AllocationRequestRepository
	UserEvent         UserEventRepository
	Notification      NotificationRepository

	runTx TxFunc
}

// NewRepository creates the aggregate on db
func NewRepository(db *gorm.DB) *Repository {
	repo := newRepos(db)
	repo.runTx = func(ctx context.Context, fn func(tx *Repository) error) error {
		return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			return fn(newRepos(tx))
		})
	}
	return repo
}

func newRepos(db *gorm.DB) *Repository {
	return &Repository{
		User:              NewUserRepo(db),
		ServiceUnit:       NewServiceUnitRepo(db),
		Building:          NewBuildingRepo(db),
		Room:              NewRoomRepo(db),
		Allocation:        NewAllocationRepo(db),
		AllocationRequest: NewAllocationRequestRepo(db),
		UserEvent:         NewUserEventRepo(db),
		Notification:      NewNotificationRepo(db),
	}
}

// Transaction runs fn atomically. A Repository without a TxFunc (already
// inside a transaction, or assembled by hand) calls fn with itself.
func (r *Repository) Transaction(ctx context.Context, fn func(tx *Repository) error) error {
	if r.runTx == nil {
		return fn(r)
	}
	return r.runTx(ctx, fn)
}

// WithTxFunc replaces the transaction runner
func (r *Repository) WithTxFunc(f TxFunc) *Repository {
	r.runTx = f
	return r
}
