package seed

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/noah-isme/noc-portal-api/internal/models"
)

const schema = `
CREATE TABLE IF NOT EXISTS users (
    id TEXT PRIMARY KEY,
    email TEXT NOT NULL UNIQUE,
    password_hash TEXT NOT NULL,
    full_name TEXT NOT NULL,
    role TEXT NOT NULL,
    department TEXT,
    student_number TEXT,
    active BOOLEAN NOT NULL DEFAULT TRUE,
    last_login TIMESTAMPTZ,
    created_at TIMESTAMPTZ NOT NULL,
    updated_at TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS refresh_tokens (
    id TEXT PRIMARY KEY,
    user_id TEXT NOT NULL REFERENCES users(id),
    token TEXT NOT NULL UNIQUE,
    expires_at TIMESTAMPTZ NOT NULL,
    created_at TIMESTAMPTZ NOT NULL,
    revoked BOOLEAN NOT NULL DEFAULT FALSE,
    revoked_at TIMESTAMPTZ,
    ip_address TEXT NOT NULL DEFAULT '',
    user_agent TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS noc_requests (
    id BIGSERIAL PRIMARY KEY,
    student_id TEXT NOT NULL REFERENCES users(id),
    student_name TEXT NOT NULL,
    faculty_id TEXT,
    company_name TEXT NOT NULL,
    role_title TEXT NOT NULL,
    duration TEXT NOT NULL,
    start_date TEXT NOT NULL,
    end_date TEXT NOT NULL,
    status TEXT NOT NULL,
    remarks TEXT,
    created_at TIMESTAMPTZ NOT NULL,
    updated_at TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_noc_requests_student ON noc_requests (student_id, created_at DESC);
CREATE INDEX IF NOT EXISTS idx_noc_requests_status ON noc_requests (status);
CREATE INDEX IF NOT EXISTS idx_refresh_tokens_user ON refresh_tokens (user_id);
`

// Demo account ids, stable so local clients can reference them.
const (
	DemoStudentID = "11111111-1111-4111-8111-111111111111"
	DemoFacultyID = "22222222-2222-4222-8222-222222222222"

	demoPassword = "password123"
)

// EnsureSchema creates the portal tables when they do not exist yet.
func EnsureSchema(ctx context.Context, db *sqlx.DB) error {
	if _, err := db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return nil
}

// Demo installs the demo fixtures: one student, one faculty reviewer and
// three sample requests covering every lifecycle state. It is a no-op when
// any user already exists, so restarting does not duplicate data.
func Demo(ctx context.Context, db *sqlx.DB, logger *zap.Logger) error {
	var count int
	if err := db.GetContext(ctx, &count, "SELECT COUNT(*) FROM users"); err != nil {
		return fmt.Errorf("check users: %w", err)
	}
	if count > 0 {
		return nil
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(demoPassword), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hash demo password: %w", err)
	}

	now := time.Now().UTC()
	department := "Computer Science"
	studentNumber := "CS2023001"

	users := []models.User{
		{
			ID:            DemoStudentID,
			Email:         "student@example.com",
			PasswordHash:  string(hash),
			FullName:      "John Doe",
			Role:          models.RoleStudent,
			Department:    &department,
			StudentNumber: &studentNumber,
			Active:        true,
			CreatedAt:     now,
			UpdatedAt:     now,
		},
		{
			ID:           DemoFacultyID,
			Email:        "faculty@example.com",
			PasswordHash: string(hash),
			FullName:     "Dr. Jane Smith",
			Role:         models.RoleFaculty,
			Department:   &department,
			Active:       true,
			CreatedAt:    now,
			UpdatedAt:    now,
		},
	}

	userInsert := `INSERT INTO users (id, email, password_hash, full_name, role, department, student_number, active, created_at, updated_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`
	for _, u := range users {
		if _, err := db.ExecContext(ctx, userInsert,
			u.ID, u.Email, u.PasswordHash, u.FullName, u.Role, u.Department, u.StudentNumber, u.Active, u.CreatedAt, u.UpdatedAt,
		); err != nil {
			return fmt.Errorf("seed user %s: %w", u.Email, err)
		}
	}

	rejectedRemark := "Duration exceeds the allowed internship period"
	facultyID := DemoFacultyID
	requests := []models.NocRequest{
		{
			StudentID:   DemoStudentID,
			StudentName: "John Doe",
			FacultyID:   &facultyID,
			CompanyName: "Google",
			RoleTitle:   "Software Engineer Intern",
			Duration:    "3 months",
			StartDate:   "2023-06-01",
			EndDate:     "2023-08-31",
			Status:      models.NocStatusPending,
			CreatedAt:   time.Date(2023, 4, 15, 10, 30, 0, 0, time.UTC),
			UpdatedAt:   time.Date(2023, 4, 15, 10, 30, 0, 0, time.UTC),
		},
		{
			StudentID:   DemoStudentID,
			StudentName: "John Doe",
			FacultyID:   &facultyID,
			CompanyName: "Microsoft",
			RoleTitle:   "Frontend Developer Intern",
			Duration:    "2 months",
			StartDate:   "2023-05-01",
			EndDate:     "2023-06-30",
			Status:      models.NocStatusApproved,
			CreatedAt:   time.Date(2023, 3, 10, 9, 15, 0, 0, time.UTC),
			UpdatedAt:   time.Date(2023, 3, 15, 14, 20, 0, 0, time.UTC),
		},
		{
			StudentID:   DemoStudentID,
			StudentName: "John Doe",
			FacultyID:   &facultyID,
			CompanyName: "Amazon",
			RoleTitle:   "Data Science Intern",
			Duration:    "4 months",
			StartDate:   "2023-01-01",
			EndDate:     "2023-04-30",
			Status:      models.NocStatusRejected,
			Remarks:     &rejectedRemark,
			CreatedAt:   time.Date(2022, 12, 5, 11, 45, 0, 0, time.UTC),
			UpdatedAt:   time.Date(2022, 12, 10, 13, 30, 0, 0, time.UTC),
		},
	}

	requestInsert := `INSERT INTO noc_requests (student_id, student_name, faculty_id, company_name, role_title, duration, start_date, end_date, status, remarks, created_at, updated_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`
	for _, r := range requests {
		if _, err := db.ExecContext(ctx, requestInsert,
			r.StudentID, r.StudentName, r.FacultyID, r.CompanyName, r.RoleTitle, r.Duration,
			r.StartDate, r.EndDate, r.Status, r.Remarks, r.CreatedAt, r.UpdatedAt,
		); err != nil {
			return fmt.Errorf("seed request for %s: %w", r.CompanyName, err)
		}
	}

	logger.Info("demo fixtures installed",
		zap.Int("users", len(users)),
		zap.Int("requests", len(requests)),
	)
	return nil
}
