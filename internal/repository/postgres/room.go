package postgres

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"openchannel-rental-backend/internal/domain"
	"openchannel-rental-backend/internal/repository"
)

type roomRepository struct {
	db *sql.DB
}

func NewRoomRepository(db *sql.DB) repository.RoomRepository {
	return &roomRepository{db: db}
}

const roomColumns = `id, name, capacity, location, is_active, created_on`

func scanRoom(row interface{ Scan(...interface{}) error }) (*domain.Room, error) {
	room := &domain.Room{}
	err := row.Scan(&room.ID, &room.Name, &room.Capacity, &room.Location, &room.IsActive, &room.CreatedOn)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return room, nil
}

func (r *roomRepository) GetByID(ctx context.Context, id int32) (*domain.Room, error) {
	query := `SELECT ` + roomColumns + ` FROM rooms WHERE id = $1`
	return scanRoom(conn(ctx, r.db).QueryRowContext(ctx, query, id))
}

func (r *roomRepository) GetForUpdate(ctx context.Context, id int32) (*domain.Room, error) {
	query := `SELECT ` + roomColumns + ` FROM rooms WHERE id = $1 FOR UPDATE`
	return scanRoom(conn(ctx, r.db).QueryRowContext(ctx, query, id))
}

func (r *roomRepository) CreateRoomRental(ctx context.Context, rr *domain.RoomRental) error {
	query := `INSERT INTO room_rentals (request_id, room_id, people_count, notes, created_on)
	          VALUES ($1, $2, $3, $4, $5) RETURNING id`
	rr.CreatedOn = time.Now()
	return conn(ctx, r.db).QueryRowContext(ctx, query, rr.RequestID, rr.RoomID,
		rr.PeopleCount, rr.Notes, rr.CreatedOn).Scan(&rr.ID)
}

func (r *roomRepository) ListRoomRentalsByRequest(ctx context.Context, requestID int32) ([]domain.RoomRental, error) {
	query := `SELECT id, request_id, room_id, people_count, COALESCE(notes, ''), created_on
	          FROM room_rentals WHERE request_id = $1 ORDER BY id`
	rows, err := conn(ctx, r.db).QueryContext(ctx, query, requestID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var rentals []domain.RoomRental
	for rows.Next() {
		var rr domain.RoomRental
		if err := rows.Scan(&rr.ID, &rr.RequestID, &rr.RoomID, &rr.PeopleCount, &rr.Notes, &rr.CreatedOn); err != nil {
			return nil, err
		}
		rentals = append(rentals, rr)
	}
	return rentals, rows.Err()
}

// ListConflicts joins bookings to their parent request so the inherited window
// can be tested with the same half-open overlap predicate the equipment scan
// uses.
func (r *roomRepository) ListConflicts(ctx context.Context, roomID int32, window domain.Window, excludeRequestID int32) ([]domain.RoomConflict, error) {
	query := `SELECT rr.id, rr.reference, rr.user_id, rr.project_name, rr.status,
	                 rr.requested_start_date, rr.requested_end_date
	          FROM room_rentals rm
	          JOIN rental_requests rr ON rr.id = rm.request_id
	          WHERE rm.room_id = $1
	            AND rr.status IN ('RESERVED', 'ISSUED')
	            AND rr.requested_start_date < $2
	            AND rr.requested_end_date > $3
	            AND rr.id <> $4
	          ORDER BY rr.requested_start_date`
	rows, err := conn(ctx, r.db).QueryContext(ctx, query, roomID, window.End, window.Start, excludeRequestID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var conflicts []domain.RoomConflict
	for rows.Next() {
		var c domain.RoomConflict
		if err := rows.Scan(&c.RequestID, &c.Reference, &c.UserID, &c.ProjectName, &c.Status,
			&c.StartDate, &c.EndDate); err != nil {
			return nil, err
		}
		conflicts = append(conflicts, c)
	}
	return conflicts, rows.Err()
}
