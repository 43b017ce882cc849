package service

import (
	"context"
	"errors"

	"github.com/AP5B/backend/internal/models"
	"github.com/AP5B/backend/internal/store"
	"github.com/AP5B/backend/internal/util"

	"go.uber.org/zap"
)

// Slots per day in the weekly schedule grid.
const slotsPerDay = 24

// AvailabilityService manages a teacher's weekly (day, slot) schedule grid.
type AvailabilityService struct {
	availabilities AvailabilityStore
	logger         *zap.Logger
}

// NewAvailabilityService creates a new availability service
func NewAvailabilityService(availabilities AvailabilityStore) *AvailabilityService {
	return &AvailabilityService{availabilities: availabilities, logger: util.GetLogger()}
}

// AvailabilityCell is one (day, slot) cell in a bulk save/delete payload.
type AvailabilityCell struct {
	Day  int `json:"day" binding:"min=0,max=6"`
	Slot int `json:"slot" binding:"min=0"`
}

// Save adds cells to the teacher's grid. A cell that is already present
// fails the whole batch with a conflict.
func (s *AvailabilityService) Save(ctx context.Context, teacherID int64, cells []AvailabilityCell) error {
	rows, err := s.validateCells(teacherID, cells)
	if err != nil {
		return err
	}

	if err := s.availabilities.SaveAvailabilities(ctx, teacherID, rows); err != nil {
		if errors.Is(err, store.ErrSlotTaken) {
			return NewConflictError("one of the slots is already assigned")
		}
		return NewInternalError(err)
	}

	s.logger.Info("Availabilities saved",
		zap.Int64("teacher_id", teacherID),
		zap.Int("cells", len(cells)))
	return nil
}

// List returns a teacher's grid.
func (s *AvailabilityService) List(ctx context.Context, teacherID int64) ([]models.Availability, error) {
	cells, err := s.availabilities.ListAvailabilities(ctx, teacherID)
	if err != nil {
		return nil, NewInternalError(err)
	}
	return cells, nil
}

// Delete removes cells from the teacher's grid.
func (s *AvailabilityService) Delete(ctx context.Context, teacherID int64, cells []AvailabilityCell) error {
	rows, err := s.validateCells(teacherID, cells)
	if err != nil {
		return err
	}
	if err := s.availabilities.DeleteAvailabilities(ctx, teacherID, rows); err != nil {
		return NewInternalError(err)
	}
	return nil
}

func (s *AvailabilityService) validateCells(teacherID int64, cells []AvailabilityCell) ([]models.Availability, error) {
	if len(cells) == 0 {
		return nil, NewInvalidInputError("at least one availability cell is required")
	}

	rows := make([]models.Availability, 0, len(cells))
	for _, c := range cells {
		if c.Day < 0 || c.Day > 6 || c.Slot < 0 || c.Slot >= slotsPerDay {
			return nil, NewInvalidInputError("availability cell out of range")
		}
		rows = append(rows, models.Availability{TeacherID: teacherID, Day: c.Day, Slot: c.Slot})
	}
	return rows, nil
}
