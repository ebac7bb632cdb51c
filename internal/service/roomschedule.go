package service

import (
	"context"
	"time"

	"openchannel-rental-backend/internal/domain"
	"openchannel-rental-backend/internal/repository"
)

// RoomSchedule mirrors the equipment calculator without quantity: a room is
// either free or occupied over a window. The booking window is inherited from
// the parent request, so conflict detection is the same half-open overlap
// predicate applied through the join. No separate temporal store exists for
// rooms.
type RoomSchedule struct {
	roomRepo repository.RoomRepository
}

func NewRoomSchedule(roomRepo repository.RoomRepository) *RoomSchedule {
	return &RoomSchedule{roomRepo: roomRepo}
}

// Conflicts enumerates overlapping bookings of active requests, optionally
// excluding one request (edit-in-place checks).
func (s *RoomSchedule) Conflicts(ctx context.Context, roomID int32, window domain.Window, excludeRequestID int32) ([]domain.RoomConflict, error) {
	return s.roomRepo.ListConflicts(ctx, roomID, window, excludeRequestID)
}

// IsAvailable reports binary availability: an inactive room, a window in the
// past, an inverted window, or any overlapping active booking make it false.
func (s *RoomSchedule) IsAvailable(ctx context.Context, room *domain.Room, window domain.Window, excludeRequestID int32, now time.Time) (bool, []domain.RoomConflict, error) {
	if !room.IsActive {
		return false, nil, nil
	}
	if !window.End.After(window.Start) || window.Start.Before(now) {
		return false, nil, nil
	}
	conflicts, err := s.Conflicts(ctx, room.ID, window, excludeRequestID)
	if err != nil {
		return false, nil, err
	}
	return len(conflicts) == 0, conflicts, nil
}

type roomScheduleService struct {
	schedule *RoomSchedule
	roomRepo repository.RoomRepository
}

func NewRoomScheduleService(schedule *RoomSchedule, roomRepo repository.RoomRepository) RoomScheduleService {
	return &roomScheduleService{schedule: schedule, roomRepo: roomRepo}
}

func (s *roomScheduleService) GetRoomAvailability(ctx context.Context, roomID int32, window domain.Window, excludeRequestID int32) (*RoomAvailabilityResult, error) {
	room, err := s.roomRepo.GetByID(ctx, roomID)
	if err != nil {
		return nil, err
	}
	available, conflicts, err := s.schedule.IsAvailable(ctx, room, window, excludeRequestID, time.Now())
	if err != nil {
		return nil, err
	}
	if conflicts == nil {
		// still enumerate conflicts for display when the window itself was bad
		conflicts, err = s.schedule.Conflicts(ctx, roomID, window, excludeRequestID)
		if err != nil {
			return nil, err
		}
	}
	return &RoomAvailabilityResult{Available: available, Conflicts: conflicts}, nil
}
