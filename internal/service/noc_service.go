package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/noc-portal-api/internal/models"
	appErrors "github.com/noah-isme/noc-portal-api/pkg/errors"
)

type nocRepository interface {
	Create(ctx context.Context, req *models.NocRequest) error
	FindByID(ctx context.Context, id int64) (*models.NocRequest, error)
	List(ctx context.Context, filter models.NocFilter) ([]models.NocRequest, error)
	UpdateStatusIfPending(ctx context.Context, id int64, status models.NocStatus, remarks *string, updatedAt time.Time) (*models.NocRequest, error)
	CountByStatus(ctx context.Context, studentID string) (models.NocStatusCounts, error)
	ListRecent(ctx context.Context, studentID string, limit int) ([]models.NocRequest, error)
}

type nocDirectory interface {
	Resolve(ctx context.Context, id string) (*models.User, error)
}

// CreateNocRequest is the student submission payload. Internship details are
// validated for presence only; their content is not interpreted here.
type CreateNocRequest struct {
	FacultyID   string `json:"faculty_id"`
	CompanyName string `json:"company_name" validate:"required"`
	RoleTitle   string `json:"role_title" validate:"required"`
	Duration    string `json:"duration" validate:"required"`
	StartDate   string `json:"start_date" validate:"required"`
	EndDate     string `json:"end_date" validate:"required"`
}

// UpdateNocStatusRequest is the reviewer decision payload.
type UpdateNocStatusRequest struct {
	Status  models.NocStatus `json:"status" validate:"required,oneof=APPROVED REJECTED"`
	Remarks string           `json:"remarks"`
}

// ListNocQuery captures the listing parameters after scope resolution.
type ListNocQuery struct {
	Status string
	Search string
	Sort   string
}

const dashboardRecentLimit = 5

// NocService owns the request workflow: creation, the approve/reject
// transition and role-scoped reads. User lookups go through the directory
// collaborator, never through the user tables directly.
type NocService struct {
	repo      nocRepository
	directory nocDirectory
	cache     *CacheService
	metrics   *MetricsService
	validator *validator.Validate
	logger    *zap.Logger
}

// NewNocService constructs a NocService.
func NewNocService(repo nocRepository, directory nocDirectory, cache *CacheService, metrics *MetricsService, validate *validator.Validate, logger *zap.Logger) *NocService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &NocService{repo: repo, directory: directory, cache: cache, metrics: metrics, validator: validate, logger: logger}
}

// Create submits a new request on behalf of the authenticated student. The
// status is forced to PENDING and both timestamps are set to the same instant.
// The denormalized student name comes from the directory, not from the token,
// so a stale claim cannot pin an outdated name onto the request.
func (s *NocService) Create(ctx context.Context, requester *models.JWTClaims, req CreateNocRequest) (*models.NocRequest, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid request payload")
	}

	student, err := s.directory.Resolve(ctx, requester.UserID)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	request := &models.NocRequest{
		StudentID:   student.ID,
		StudentName: student.FullName,
		CompanyName: req.CompanyName,
		RoleTitle:   req.RoleTitle,
		Duration:    req.Duration,
		StartDate:   req.StartDate,
		EndDate:     req.EndDate,
		Status:      models.NocStatusPending,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if req.FacultyID != "" {
		reviewer, err := s.directory.Resolve(ctx, req.FacultyID)
		if err != nil {
			return nil, appErrors.Clone(appErrors.ErrValidation, "unknown faculty reviewer")
		}
		if reviewer.Role != models.RoleFaculty || !reviewer.Active {
			return nil, appErrors.Clone(appErrors.ErrValidation, "selected reviewer is not active faculty")
		}
		request.FacultyID = &reviewer.ID
	}

	if err := s.repo.Create(ctx, request); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create request")
	}

	s.invalidateDashboards(ctx)
	s.logger.Info("noc request created",
		zap.Int64("request_id", request.ID),
		zap.String("student_id", request.StudentID),
	)
	return request, nil
}

// SetStatus applies an approve/reject decision. Only pending requests may
// transition; remarks are stored for rejections and cleared otherwise.
func (s *NocService) SetStatus(ctx context.Context, id int64, req UpdateNocStatusRequest) (*models.NocRequest, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid status payload")
	}

	var remarks *string
	if req.Status == models.NocStatusRejected {
		if trimmed := strings.TrimSpace(req.Remarks); trimmed != "" {
			remarks = &trimmed
		}
	}

	updated, err := s.repo.UpdateStatusIfPending(ctx, id, req.Status, remarks, time.Now().UTC())
	if err == nil {
		s.invalidateDashboards(ctx)
		if s.metrics != nil {
			s.metrics.RecordTransition(string(req.Status))
		}
		s.logger.Info("noc request decided",
			zap.Int64("request_id", updated.ID),
			zap.String("status", string(updated.Status)),
		)
		return updated, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update request")
	}

	// Nothing matched: either the id does not exist or the request has
	// already reached a terminal state.
	if _, err := s.repo.FindByID(ctx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "noc request not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load request")
	}
	return nil, appErrors.Clone(appErrors.ErrInvalidTransition, "request has already been decided")
}

// List returns the requests visible to the caller: students see their own
// submissions, faculty see the full collection.
func (s *NocService) List(ctx context.Context, caller *models.JWTClaims, query ListNocQuery) ([]models.NocRequest, error) {
	filter, err := s.buildFilter(caller, query)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	requests, err := s.repo.List(ctx, filter)
	s.observeQuery("noc_list", start)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list requests")
	}
	return requests, nil
}

// Get returns one request by id. A request outside the caller's scope is
// reported as not found rather than forbidden.
func (s *NocService) Get(ctx context.Context, caller *models.JWTClaims, id int64) (*models.NocRequest, error) {
	request, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "noc request not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load request")
	}
	if caller.Role == models.RoleStudent && request.StudentID != caller.UserID {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "noc request not found")
	}
	return request, nil
}

// Summary produces the dashboard payload for the caller's scope, ordered by
// last-update time and cached per scope.
func (s *NocService) Summary(ctx context.Context, caller *models.JWTClaims) (*models.NocSummary, error) {
	scope := "all"
	studentID := ""
	if caller.Role == models.RoleStudent {
		scope = caller.UserID
		studentID = caller.UserID
	}
	cacheKey := fmt.Sprintf("dashboard:summary:%s", scope)

	var cached models.NocSummary
	if hit, _ := s.cache.Get(ctx, cacheKey, &cached); hit {
		return &cached, nil
	}

	start := time.Now()
	counts, err := s.repo.CountByStatus(ctx, studentID)
	s.observeQuery("noc_count_by_status", start)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count requests")
	}
	start = time.Now()
	recent, err := s.repo.ListRecent(ctx, studentID, dashboardRecentLimit)
	s.observeQuery("noc_list_recent", start)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load recent requests")
	}

	summary := &models.NocSummary{
		Counts:      counts,
		Recent:      recent,
		GeneratedAt: time.Now().UTC(),
	}
	s.cache.Set(ctx, cacheKey, summary, 0)
	return summary, nil
}

func (s *NocService) buildFilter(caller *models.JWTClaims, query ListNocQuery) (models.NocFilter, error) {
	filter := models.NocFilter{
		Search: strings.TrimSpace(query.Search),
		Sort:   models.NocSortCreatedAt,
	}

	if caller.Role == models.RoleStudent {
		filter.StudentID = caller.UserID
	}

	if query.Status != "" {
		status := models.NocStatus(strings.ToUpper(query.Status))
		if !status.Valid() {
			return models.NocFilter{}, appErrors.Clone(appErrors.ErrValidation, "unknown status filter")
		}
		filter.Status = &status
	}

	if query.Sort == string(models.NocSortUpdatedAt) {
		filter.Sort = models.NocSortUpdatedAt
	}

	return filter, nil
}

func (s *NocService) observeQuery(label string, start time.Time) {
	if s.metrics != nil {
		s.metrics.ObserveDBQuery(label, time.Since(start))
	}
}

func (s *NocService) invalidateDashboards(ctx context.Context) {
	s.cache.Invalidate(ctx, "dashboard:summary:*")
}
