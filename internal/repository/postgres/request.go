package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"openchannel-rental-backend/internal/domain"
	"openchannel-rental-backend/internal/repository"
)

type requestRepository struct {
	db *sql.DB
}

func NewRequestRepository(db *sql.DB) repository.RequestRepository {
	return &requestRepository{db: db}
}

const requestColumns = `id, reference, user_id, created_by, contact_email, project_name, purpose, notes,
	requested_start_date, requested_end_date, actual_start_date, actual_end_date,
	status, rental_type, created_on, updated_on`

func scanRequest(row interface{ Scan(...interface{}) error }) (*domain.RentalRequest, error) {
	req := &domain.RentalRequest{}
	err := row.Scan(&req.ID, &req.Reference, &req.UserID, &req.CreatedBy, &req.ContactEmail, &req.ProjectName,
		&req.Purpose, &req.Notes, &req.RequestedStartDate, &req.RequestedEndDate,
		&req.ActualStartDate, &req.ActualEndDate, &req.Status, &req.RentalType,
		&req.CreatedOn, &req.UpdatedOn)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return req, nil
}

func (r *requestRepository) Create(ctx context.Context, req *domain.RentalRequest) error {
	query := `INSERT INTO rental_requests (reference, user_id, created_by, contact_email, project_name, purpose, notes,
	          requested_start_date, requested_end_date, actual_start_date, status, rental_type, created_on, updated_on)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14) RETURNING id`
	now := time.Now()
	req.CreatedOn = now
	req.UpdatedOn = now
	return conn(ctx, r.db).QueryRowContext(ctx, query, req.Reference, req.UserID, req.CreatedBy,
		req.ContactEmail, req.ProjectName, req.Purpose, req.Notes, req.RequestedStartDate, req.RequestedEndDate,
		req.ActualStartDate, req.Status, req.RentalType, now, now).Scan(&req.ID)
}

func (r *requestRepository) GetByID(ctx context.Context, id int32) (*domain.RentalRequest, error) {
	query := `SELECT ` + requestColumns + ` FROM rental_requests WHERE id = $1`
	return scanRequest(conn(ctx, r.db).QueryRowContext(ctx, query, id))
}

func (r *requestRepository) GetByReference(ctx context.Context, reference string) (*domain.RentalRequest, error) {
	query := `SELECT ` + requestColumns + ` FROM rental_requests WHERE reference = $1`
	return scanRequest(conn(ctx, r.db).QueryRowContext(ctx, query, reference))
}

func (r *requestRepository) GetForUpdate(ctx context.Context, id int32) (*domain.RentalRequest, error) {
	query := `SELECT ` + requestColumns + ` FROM rental_requests WHERE id = $1 FOR UPDATE`
	return scanRequest(conn(ctx, r.db).QueryRowContext(ctx, query, id))
}

func (r *requestRepository) Update(ctx context.Context, req *domain.RentalRequest) error {
	query := `UPDATE rental_requests
	          SET status=$1, rental_type=$2, requested_end_date=$3, actual_start_date=$4,
	              actual_end_date=$5, notes=$6, updated_on=$7
	          WHERE id=$8`
	req.UpdatedOn = time.Now()
	_, err := conn(ctx, r.db).ExecContext(ctx, query, req.Status, req.RentalType,
		req.RequestedEndDate, req.ActualStartDate, req.ActualEndDate, req.Notes,
		req.UpdatedOn, req.ID)
	return err
}

func (r *requestRepository) List(ctx context.Context, userID int32, status string, page, pageSize int32) ([]domain.RentalRequest, int32, error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = 20
	}
	offset := (page - 1) * pageSize

	query := `SELECT ` + requestColumns + ` FROM rental_requests WHERE 1=1`
	args := []interface{}{}
	argIdx := 1
	if userID != 0 {
		query += fmt.Sprintf(" AND user_id = $%d", argIdx)
		args = append(args, userID)
		argIdx++
	}
	if status != "" {
		query += fmt.Sprintf(" AND status = $%d", argIdx)
		args = append(args, status)
		argIdx++
	}

	var count int32
	countQuery := "SELECT count(*) FROM (" + query + ") AS sub"
	if err := conn(ctx, r.db).QueryRowContext(ctx, countQuery, args...).Scan(&count); err != nil {
		return nil, 0, err
	}

	query += fmt.Sprintf(" ORDER BY created_on DESC LIMIT $%d OFFSET $%d", argIdx, argIdx+1)
	args = append(args, pageSize, offset)

	rows, err := conn(ctx, r.db).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var requests []domain.RentalRequest
	for rows.Next() {
		req, err := scanRequest(rows)
		if err != nil {
			return nil, 0, err
		}
		requests = append(requests, *req)
	}
	return requests, count, rows.Err()
}

func (r *requestRepository) ListExpiredActive(ctx context.Context, now time.Time) ([]domain.RentalRequest, error) {
	query := `SELECT ` + requestColumns + ` FROM rental_requests
	          WHERE status IN ('RESERVED', 'ISSUED') AND requested_end_date <= $1
	          ORDER BY requested_end_date`
	rows, err := conn(ctx, r.db).QueryContext(ctx, query, now)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var requests []domain.RentalRequest
	for rows.Next() {
		req, err := scanRequest(rows)
		if err != nil {
			return nil, err
		}
		requests = append(requests, *req)
	}
	return requests, rows.Err()
}
