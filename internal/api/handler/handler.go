package handler

import (
	"accommodation-portal/config"
	"accommodation-portal/internal/service"
)

// Handler aggregates every HTTP handler
type Handler struct {
	Auth              *AuthHandler
	User              *UserHandler
	ServiceUnit       *ServiceUnitHandler
	Building          *BuildingHandler
	Allocation        *AllocationHandler
	AllocationRequest *AllocationRequestHandler
	Analytics         *AnalyticsHandler
	Notification      *NotificationHandler
}

// NewHandler builds every handler from the service aggregate
func NewHandler(cfg *config.Config, svc *service.Service) *Handler {
	return &Handler{
		Auth:              NewAuthHandler(svc.Auth, cfg),
		User:              NewUserHandler(svc.User),
		ServiceUnit:       NewServiceUnitHandler(svc.ServiceUnit),
		Building:          NewBuildingHandler(svc.Building),
		Allocation:        NewAllocationHandler(svc.Allocation),
		AllocationRequest: NewAllocationRequestHandler(svc.AllocationRequest),
		Analytics:         NewAnalyticsHandler(svc.Analytics),
		Notification:      NewNotificationHandler(svc.Notification),
	}
}
