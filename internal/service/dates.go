package service

import (
	"time"

	"accommodation-portal/internal/dto"
	pkgerrors "accommodation-portal/pkg/errors"
)

// dateRange optional start/end pair; both present means end > start
type dateRange struct {
	Start *time.Time
	End   *time.Time
}

func (d dateRange) validate() error {
	if d.Start != nil && d.End != nil && !d.End.After(*d.Start) {
		return ErrInvalidDateRange
	}
	return nil
}

func (d dateRange) isZero() bool {
	return d.Start == nil && d.End == nil
}

func parseDate(field string, s *string) (*time.Time, error) {
	if s == nil || *s == "" {
		return nil, nil
	}
	t, err := time.Parse(dto.DateLayout, *s)
	if err != nil {
		return nil, pkgerrors.Validation("%s must be a date in YYYY-MM-DD format", field)
	}
	return &t, nil
}

func parseDateRange(start, end *string) (dateRange, error) {
	var d dateRange
	var err error
	if d.Start, err = parseDate("start_date", start); err != nil {
		return d, err
	}
	if d.End, err = parseDate("end_date", end); err != nil {
		return d, err
	}
	return d, d.validate()
}

func formatDate(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := t.Format(dto.DateLayout)
	return &s
}
