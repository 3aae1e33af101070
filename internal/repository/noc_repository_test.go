package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/noc-portal-api/internal/models"
)

func newNocRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func nocRows(requests ...models.NocRequest) *sqlmock.Rows {
	rows := sqlmock.NewRows([]string{"id", "student_id", "student_name", "faculty_id", "company_name", "role_title", "duration", "start_date", "end_date", "status", "remarks", "created_at", "updated_at"})
	for _, req := range requests {
		rows.AddRow(req.ID, req.StudentID, req.StudentName, req.FacultyID, req.CompanyName, req.RoleTitle, req.Duration, req.StartDate, req.EndDate, req.Status, req.Remarks, req.CreatedAt, req.UpdatedAt)
	}
	return rows
}

func TestNocRepositoryCreate(t *testing.T) {
	db, mock, cleanup := newNocRepoMock(t)
	defer cleanup()
	repo := NewNocRepository(db)

	now := time.Now().UTC()
	mock.ExpectQuery("INSERT INTO noc_requests").
		WithArgs("s1", "John Doe", nil, "Google", "Software Engineering Intern", "3 months", "2024-06-01", "2024-08-31", models.NocStatusPending, now, now).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(7)))

	req := &models.NocRequest{
		StudentID:   "s1",
		StudentName: "John Doe",
		CompanyName: "Google",
		RoleTitle:   "Software Engineering Intern",
		Duration:    "3 months",
		StartDate:   "2024-06-01",
		EndDate:     "2024-08-31",
		Status:      models.NocStatusPending,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	require.NoError(t, repo.Create(context.Background(), req))
	assert.Equal(t, int64(7), req.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestNocRepositoryFindByID(t *testing.T) {
	db, mock, cleanup := newNocRepoMock(t)
	defer cleanup()
	repo := NewNocRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, student_id, student_name, faculty_id, company_name, role_title, duration, start_date, end_date, status, remarks, created_at, updated_at FROM noc_requests WHERE id = $1")).
		WithArgs(int64(1)).
		WillReturnRows(nocRows(models.NocRequest{ID: 1, StudentID: "s1", Status: models.NocStatusPending}))

	req, err := repo.FindByID(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, int64(1), req.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestNocRepositoryList(t *testing.T) {
	db, mock, cleanup := newNocRepoMock(t)
	defer cleanup()
	repo := NewNocRepository(db)

	status := models.NocStatusApproved
	mock.ExpectQuery(regexp.QuoteMeta("FROM noc_requests WHERE 1=1 AND student_id = $1 AND status = $2 AND (LOWER(student_name) LIKE $3 OR LOWER(company_name) LIKE $3 OR LOWER(role_title) LIKE $3) ORDER BY updated_at DESC, id DESC")).
		WithArgs("s1", status, "%google%").
		WillReturnRows(nocRows(models.NocRequest{ID: 2, StudentID: "s1", CompanyName: "Google", Status: status}))

	list, err := repo.List(context.Background(), models.NocFilter{
		StudentID: "s1",
		Status:    &status,
		Search:    "Google",
		Sort:      models.NocSortUpdatedAt,
	})
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "Google", list[0].CompanyName)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestNocRepositoryListEscapesSearchWildcards(t *testing.T) {
	db, mock, cleanup := newNocRepoMock(t)
	defer cleanup()
	repo := NewNocRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("FROM noc_requests WHERE 1=1 AND (LOWER(student_name) LIKE $1 OR LOWER(company_name) LIKE $1 OR LOWER(role_title) LIKE $1) ORDER BY created_at DESC, id DESC")).
		WithArgs(`%50\% stake\_co%`).
		WillReturnRows(nocRows())

	_, err := repo.List(context.Background(), models.NocFilter{Search: "50% Stake_Co"})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestNocRepositoryUpdateStatusIfPending(t *testing.T) {
	db, mock, cleanup := newNocRepoMock(t)
	defer cleanup()
	repo := NewNocRepository(db)

	remarks := "Duration exceeds the allowed internship period"
	updatedAt := time.Now().UTC()
	mock.ExpectQuery("UPDATE noc_requests SET status").
		WithArgs(int64(3), models.NocStatusRejected, &remarks, updatedAt, models.NocStatusPending).
		WillReturnRows(nocRows(models.NocRequest{ID: 3, Status: models.NocStatusRejected, Remarks: &remarks, UpdatedAt: updatedAt}))

	req, err := repo.UpdateStatusIfPending(context.Background(), 3, models.NocStatusRejected, &remarks, updatedAt)
	require.NoError(t, err)
	assert.Equal(t, models.NocStatusRejected, req.Status)
	require.NotNil(t, req.Remarks)
	assert.Equal(t, remarks, *req.Remarks)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestNocRepositoryUpdateStatusIfPendingNoMatch(t *testing.T) {
	db, mock, cleanup := newNocRepoMock(t)
	defer cleanup()
	repo := NewNocRepository(db)

	updatedAt := time.Now().UTC()
	mock.ExpectQuery("UPDATE noc_requests SET status").
		WithArgs(int64(3), models.NocStatusApproved, nil, updatedAt, models.NocStatusPending).
		WillReturnRows(nocRows())

	_, err := repo.UpdateStatusIfPending(context.Background(), 3, models.NocStatusApproved, nil, updatedAt)
	require.ErrorIs(t, err, sql.ErrNoRows)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestNocRepositoryCountByStatus(t *testing.T) {
	db, mock, cleanup := newNocRepoMock(t)
	defer cleanup()
	repo := NewNocRepository(db)

	mock.ExpectQuery("SELECT COUNT").
		WithArgs("s1").
		WillReturnRows(sqlmock.NewRows([]string{"total", "pending", "approved", "rejected"}).AddRow(3, 1, 1, 1))

	counts, err := repo.CountByStatus(context.Background(), "s1")
	require.NoError(t, err)
	assert.Equal(t, 3, counts.Total)
	assert.Equal(t, 1, counts.Pending)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestNocRepositoryListRecent(t *testing.T) {
	db, mock, cleanup := newNocRepoMock(t)
	defer cleanup()
	repo := NewNocRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("FROM noc_requests WHERE 1=1 ORDER BY updated_at DESC, id DESC LIMIT 5")).
		WillReturnRows(nocRows(
			models.NocRequest{ID: 3, Status: models.NocStatusRejected},
			models.NocRequest{ID: 2, Status: models.NocStatusApproved},
		))

	list, err := repo.ListRecent(context.Background(), "", 5)
	require.NoError(t, err)
	assert.Len(t, list, 2)
	assert.NoError(t, mock.ExpectationsWereMet())
}
