package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/noc-portal-api/internal/models"
)

const nocColumns = "id, student_id, student_name, faculty_id, company_name, role_title, duration, start_date, end_date, status, remarks, created_at, updated_at"

// NocRepository manages persistence for NOC requests.
type NocRepository struct {
	db *sqlx.DB
}

// NewNocRepository constructs a NocRepository.
func NewNocRepository(db *sqlx.DB) *NocRepository {
	return &NocRepository{db: db}
}

// Create inserts a new request and fills in the database-assigned id.
func (r *NocRepository) Create(ctx context.Context, req *models.NocRequest) error {
	query := `INSERT INTO noc_requests (student_id, student_name, faculty_id, company_name, role_title, duration, start_date, end_date, status, created_at, updated_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11) RETURNING id`
	if err := r.db.GetContext(ctx, &req.ID, query,
		req.StudentID,
		req.StudentName,
		req.FacultyID,
		req.CompanyName,
		req.RoleTitle,
		req.Duration,
		req.StartDate,
		req.EndDate,
		req.Status,
		req.CreatedAt,
		req.UpdatedAt,
	); err != nil {
		return fmt.Errorf("create noc request: %w", err)
	}
	return nil
}

// FindByID fetches a request by id.
func (r *NocRepository) FindByID(ctx context.Context, id int64) (*models.NocRequest, error) {
	var req models.NocRequest
	query := fmt.Sprintf("SELECT %s FROM noc_requests WHERE id = $1", nocColumns)
	if err := r.db.GetContext(ctx, &req, query, id); err != nil {
		return nil, err
	}
	return &req, nil
}

// List returns requests matching the provided filter, most recent first by
// the filter's sort key.
func (r *NocRepository) List(ctx context.Context, filter models.NocFilter) ([]models.NocRequest, error) {
	conditions := []string{"1=1"}
	args := []interface{}{}

	if filter.StudentID != "" {
		conditions = append(conditions, fmt.Sprintf("student_id = $%d", len(args)+1))
		args = append(args, filter.StudentID)
	}
	if filter.Status != nil {
		conditions = append(conditions, fmt.Sprintf("status = $%d", len(args)+1))
		args = append(args, *filter.Status)
	}
	if filter.Search != "" {
		idx := len(args) + 1
		conditions = append(conditions, fmt.Sprintf("(LOWER(student_name) LIKE $%d OR LOWER(company_name) LIKE $%d OR LOWER(role_title) LIKE $%d)", idx, idx, idx))
		args = append(args, "%"+escapeLike(strings.ToLower(filter.Search))+"%")
	}

	sortColumn := "created_at"
	if filter.Sort == models.NocSortUpdatedAt {
		sortColumn = "updated_at"
	}

	query := fmt.Sprintf("SELECT %s FROM noc_requests WHERE %s ORDER BY %s DESC, id DESC",
		nocColumns, strings.Join(conditions, " AND "), sortColumn)

	var requests []models.NocRequest
	if err := r.db.SelectContext(ctx, &requests, query, args...); err != nil {
		return nil, fmt.Errorf("list noc requests: %w", err)
	}
	return requests, nil
}

// escapeLike neutralizes LIKE metacharacters so search text matches literally.
func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}

// UpdateStatusIfPending applies a status transition only when the request is
// still pending, making the pending-only guard atomic under concurrent
// reviewers. It returns sql.ErrNoRows when nothing was updated; callers
// distinguish a missing id from a terminal status via FindByID.
func (r *NocRepository) UpdateStatusIfPending(ctx context.Context, id int64, status models.NocStatus, remarks *string, updatedAt time.Time) (*models.NocRequest, error) {
	query := fmt.Sprintf(`UPDATE noc_requests SET status = $2, remarks = $3, updated_at = $4
        WHERE id = $1 AND status = $5 RETURNING %s`, nocColumns)
	var req models.NocRequest
	if err := r.db.GetContext(ctx, &req, query, id, status, remarks, updatedAt, models.NocStatusPending); err != nil {
		return nil, err
	}
	return &req, nil
}

// CountByStatus aggregates request counts per lifecycle state. An empty
// studentID counts the full collection.
func (r *NocRepository) CountByStatus(ctx context.Context, studentID string) (models.NocStatusCounts, error) {
	query := `SELECT COUNT(*) AS total,
        COUNT(*) FILTER (WHERE status = 'PENDING') AS pending,
        COUNT(*) FILTER (WHERE status = 'APPROVED') AS approved,
        COUNT(*) FILTER (WHERE status = 'REJECTED') AS rejected
        FROM noc_requests`
	args := []interface{}{}
	if studentID != "" {
		query += " WHERE student_id = $1"
		args = append(args, studentID)
	}
	var counts models.NocStatusCounts
	if err := r.db.GetContext(ctx, &counts, query, args...); err != nil {
		return models.NocStatusCounts{}, fmt.Errorf("count noc requests: %w", err)
	}
	return counts, nil
}

// ListRecent returns the most recently updated requests in scope.
func (r *NocRepository) ListRecent(ctx context.Context, studentID string, limit int) ([]models.NocRequest, error) {
	if limit <= 0 {
		limit = 5
	}
	conditions := "1=1"
	args := []interface{}{}
	if studentID != "" {
		conditions = "student_id = $1"
		args = append(args, studentID)
	}
	query := fmt.Sprintf("SELECT %s FROM noc_requests WHERE %s ORDER BY updated_at DESC, id DESC LIMIT %d",
		nocColumns, conditions, limit)

	var requests []models.NocRequest
	if err := r.db.SelectContext(ctx, &requests, query, args...); err != nil {
		return nil, fmt.Errorf("list recent noc requests: %w", err)
	}
	return requests, nil
}
