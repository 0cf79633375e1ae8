package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"accommodation-portal/config"
	"accommodation-portal/internal/dto"
	"accommodation-portal/internal/event"
	"accommodation-portal/internal/model"
	"accommodation-portal/internal/policy"
	"accommodation-portal/internal/repository"
	"accommodation-portal/pkg/jwt"
)

// TokenStore revoked-token storage; *redis.Client satisfies it
type TokenStore interface {
	BlacklistToken(ctx context.Context, jti string, ttl time.Duration) error
	IsBlacklisted(ctx context.Context, jti string) (bool, error)
}

// Service aggregates every service
type Service struct {
	Auth              AuthService
	User              UserService
	ServiceUnit       ServiceUnitService
	Building          BuildingService
	Allocation        AllocationService
	AllocationRequest AllocationRequestService
	Analytics         AnalyticsService
	Notification      NotificationService
}

// NewService wires every service. tokens may be nil when Redis is unavailable.
func NewService(
	cfg *config.Config,
	repo *repository.Repository,
	jwtMgr *jwt.Manager,
	tokens TokenStore,
	emitter event.Emitter,
	logger *zap.Logger,
) *Service {
	if emitter == nil {
		emitter = event.Nop{}
	}
	return &Service{
		Auth:              NewAuthService(cfg, repo, jwtMgr, tokens, emitter, logger),
		User:              NewUserService(repo, emitter, logger),
		ServiceUnit:       NewServiceUnitService(repo, emitter, logger),
		Building:          NewBuildingService(repo, emitter, logger),
		Allocation:        NewAllocationService(&cfg.Allocation, repo, emitter, logger),
		AllocationRequest: NewAllocationRequestService(&cfg.Allocation, repo, emitter, logger),
		Analytics:         NewAnalyticsService(repo, logger),
		Notification:      NewNotificationService(repo, logger),
	}
}

// ── Shared helpers ──

// adminEvent records a committed change to one managed entity
func adminEvent(kind event.Kind, p policy.Principal, subject, id string, meta map[string]any) event.Event {
	return event.Event{
		Kind:       kind,
		ActorID:    p.UserID,
		SubjectIDs: map[string]string{subject: id},
		Metadata:   meta,
	}
}

func formatTime(t time.Time) string {
	return t.UTC().Format(dto.TimestampLayout)
}

func formatTimePtr(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := formatTime(*t)
	return &s
}

func toUserBrief(u *model.User) *dto.UserBrief {
	if u == nil {
		return nil
	}
	return &dto.UserBrief{
		ID:       u.UserID,
		FullName: u.FullName(),
		Email:    u.Email,
		Role:     u.Role,
	}
}

func toServiceUnitBrief(su *model.ServiceUnit) *dto.ServiceUnitBrief {
	if su == nil {
		return nil
	}
	return &dto.ServiceUnitBrief{ID: su.ServiceUnitID, Name: su.Name}
}

func toBuildingBrief(b *model.Building) *dto.BuildingBrief {
	if b == nil {
		return nil
	}
	return &dto.BuildingBrief{ID: b.BuildingID, Name: b.Name}
}

func toRoomResponse(r *model.Room) *dto.RoomResponse {
	if r == nil {
		return nil
	}
	return &dto.RoomResponse{
		ID:          r.RoomID,
		Building:    toBuildingBrief(r.Building),
		RoomNumber:  r.RoomNumber,
		Capacity:    r.Capacity,
		HasToilet:   r.HasToilet,
		HasWashroom: r.HasWashroom,
		IsAllocated: r.IsAllocated,
	}
}
