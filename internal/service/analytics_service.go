package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"accommodation-portal/internal/dto"
	"accommodation-portal/internal/model"
	"accommodation-portal/internal/repository"
)

// AnalyticsService read side of the analytics sink
type AnalyticsService interface {
	ListEvents(ctx context.Context, req *dto.UserEventListRequest) ([]dto.UserEventResponse, int64, error)
}

type analyticsService struct {
	repo   *repository.Repository
	logger *zap.Logger
}

// NewAnalyticsService creates an AnalyticsService
func NewAnalyticsService(repo *repository.Repository, logger *zap.Logger) AnalyticsService {
	return &analyticsService{repo: repo, logger: logger}
}

// ListEvents to is inclusive: the whole day is covered
func (s *analyticsService) ListEvents(ctx context.Context, req *dto.UserEventListRequest) ([]dto.UserEventResponse, int64, error) {
	from, err := parseDate("from", &req.From)
	if err != nil {
		return nil, 0, err
	}
	to, err := parseDate("to", &req.To)
	if err != nil {
		return nil, 0, err
	}
	if to != nil {
		end := to.Add(24*time.Hour - time.Nanosecond)
		to = &end
	}

	filters := &repository.UserEventListFilters{
		UserID:       req.UserID,
		EventType:    req.EventType,
		ResourceType: req.ResourceType,
		ResourceID:   req.ResourceID,
		From:         from,
		To:           to,
	}

	events, total, err := s.repo.UserEvent.List(ctx, filters, req.GetOffset(), req.GetPageSize())
	if err != nil {
		s.logger.Error("list user events failed", zap.Error(err))
		return nil, 0, err
	}

	result := make([]dto.UserEventResponse, 0, len(events))
	for i := range events {
		result = append(result, toUserEventResponse(&events[i]))
	}
	return result, total, nil
}

func toUserEventResponse(e *model.UserEvent) dto.UserEventResponse {
	meta := map[string]any(e.Metadata)
	if meta == nil {
		meta = map[string]any{}
	}
	return dto.UserEventResponse{
		ID:           e.EventID,
		UserID:       e.UserID,
		EventType:    e.EventType,
		Timestamp:    formatTime(e.Timestamp),
		IPAddress:    e.IPAddress,
		ResourceType: e.ResourceType,
		ResourceID:   e.ResourceID,
		Metadata:     meta,
		Success:      e.Success,
		ErrorMessage: e.ErrorMessage,
	}
}
