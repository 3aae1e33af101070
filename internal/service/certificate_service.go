package service

import (
	"context"
	"fmt"
	"os"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/noc-portal-api/internal/models"
	appErrors "github.com/noah-isme/noc-portal-api/pkg/errors"
	"github.com/noah-isme/noc-portal-api/pkg/export"
	"github.com/noah-isme/noc-portal-api/pkg/jobs"
	"github.com/noah-isme/noc-portal-api/pkg/storage"
)

type certificateRequestSource interface {
	Get(ctx context.Context, caller *models.JWTClaims, id int64) (*models.NocRequest, error)
}

type certificateStorage interface {
	Save(filename string, data []byte) (string, error)
	Open(filename string) (*os.File, error)
	CleanupOlderThan(ttl time.Duration) ([]string, error)
}

// CertificateArtifact points a client at a generated PDF via a signed,
// expiring download token.
type CertificateArtifact struct {
	RequestID int64     `json:"request_id"`
	RefNumber string    `json:"ref_number"`
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

// CertificateConfig tunes artifact generation and housekeeping.
type CertificateConfig struct {
	CleanupInterval   time.Duration
	ArtifactTTL       time.Duration
	WorkerConcurrency int
	WorkerRetries     int
}

// CertificateService renders NOC documents for approved requests: the
// canonical text layout synchronously, the PDF artifact on a worker queue.
type CertificateService struct {
	requests certificateRequestSource
	store    certificateStorage
	signer   *storage.SignedURLSigner
	exporter *export.PDFExporter
	metrics  *MetricsService
	logger   *zap.Logger
	config   CertificateConfig

	queue  *jobs.Queue
	cancel context.CancelFunc
}

type certificateJob struct {
	data    export.CertificateData
	relPath string
}

// NewCertificateService constructs a CertificateService.
func NewCertificateService(requests certificateRequestSource, store certificateStorage, signer *storage.SignedURLSigner, metrics *MetricsService, logger *zap.Logger, cfg CertificateConfig) *CertificateService {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &CertificateService{
		requests: requests,
		store:    store,
		signer:   signer,
		exporter: export.NewPDFExporter(),
		metrics:  metrics,
		logger:   logger,
		config:   cfg,
	}
	s.queue = jobs.NewQueue("certificates", s.handleJob, jobs.QueueConfig{
		Workers:    cfg.WorkerConcurrency,
		MaxRetries: cfg.WorkerRetries,
		Logger:     logger,
	})
	return s
}

// Start launches the worker queue and the storage cleanup loop.
func (s *CertificateService) Start(ctx context.Context) {
	ctx, s.cancel = context.WithCancel(ctx)
	s.queue.Start(ctx)
	if s.config.CleanupInterval > 0 {
		go s.cleanupLoop(ctx)
	}
}

// Stop shuts the worker queue down and stops housekeeping.
func (s *CertificateService) Stop() {
	if s.cancel != nil {
		s.cancel()
	}
	s.queue.Stop()
}

// Text renders the canonical certificate document for an approved request.
// Missing and not-yet-approved requests are both reported as not found.
func (s *CertificateService) Text(ctx context.Context, caller *models.JWTClaims, id int64) (string, *models.NocRequest, error) {
	request, err := s.approvedRequest(ctx, caller, id)
	if err != nil {
		return "", nil, err
	}
	return export.CertificateText(s.certificateData(request)), request, nil
}

// RequestArtifact queues PDF generation for an approved request and returns
// the signed download token. The artifact path is deterministic, so the token
// can be issued before the worker finishes.
func (s *CertificateService) RequestArtifact(ctx context.Context, caller *models.JWTClaims, id int64) (*CertificateArtifact, error) {
	request, err := s.approvedRequest(ctx, caller, id)
	if err != nil {
		return nil, err
	}

	data := s.certificateData(request)
	relPath := fmt.Sprintf("noc/%s.pdf", data.RefNumber)

	if err := s.queue.Enqueue(jobs.Job{
		ID:      fmt.Sprintf("cert-%d", request.ID),
		Type:    "certificate_pdf",
		Payload: certificateJob{data: data, relPath: relPath},
	}); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to queue certificate generation")
	}

	token, expiresAt, err := s.signer.Generate(data.RefNumber, relPath)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to sign download token")
	}

	return &CertificateArtifact{
		RequestID: request.ID,
		RefNumber: data.RefNumber,
		Token:     token,
		ExpiresAt: expiresAt,
	}, nil
}

// Download validates a signed token and opens the stored PDF. The caller owns
// closing the returned file.
func (s *CertificateService) Download(token string) (*os.File, string, error) {
	refNumber, relPath, _, err := s.signer.Parse(token, false)
	if err != nil {
		return nil, "", appErrors.Wrap(err, appErrors.ErrUnauthorized.Code, appErrors.ErrUnauthorized.Status, "invalid download token")
	}

	file, err := s.store.Open(relPath)
	if err != nil {
		return nil, "", appErrors.Clone(appErrors.ErrNotFound, "certificate is not ready yet")
	}
	return file, refNumber + ".pdf", nil
}

func (s *CertificateService) approvedRequest(ctx context.Context, caller *models.JWTClaims, id int64) (*models.NocRequest, error) {
	request, err := s.requests.Get(ctx, caller, id)
	if err != nil {
		return nil, err
	}
	if request.Status != models.NocStatusApproved {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "noc request has not been approved")
	}
	return request, nil
}

func (s *CertificateService) certificateData(request *models.NocRequest) export.CertificateData {
	return export.CertificateData{
		RefNumber:   export.RefNumber(request.ID),
		IssueDate:   time.Now().UTC().Format("January 2, 2006"),
		StudentName: request.StudentName,
		CompanyName: request.CompanyName,
		RoleTitle:   request.RoleTitle,
		Duration:    request.Duration,
		StartDate:   request.StartDate,
		EndDate:     request.EndDate,
	}
}

func (s *CertificateService) handleJob(ctx context.Context, job jobs.Job) error {
	payload, ok := job.Payload.(certificateJob)
	if !ok {
		return fmt.Errorf("unexpected payload for job %s", job.ID)
	}

	pdf, err := s.exporter.Render(payload.data)
	if err != nil {
		s.metrics.RecordCertificate("error")
		return fmt.Errorf("render %s: %w", payload.data.RefNumber, err)
	}
	if _, err := s.store.Save(payload.relPath, pdf); err != nil {
		s.metrics.RecordCertificate("error")
		return fmt.Errorf("store %s: %w", payload.relPath, err)
	}

	s.metrics.RecordCertificate("ok")
	s.logger.Info("certificate generated",
		zap.String("ref", payload.data.RefNumber),
		zap.String("path", payload.relPath),
	)
	return nil
}

func (s *CertificateService) cleanupLoop(ctx context.Context) {
	ticker := time.NewTicker(s.config.CleanupInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			deleted, err := s.store.CleanupOlderThan(s.config.ArtifactTTL)
			if err != nil {
				s.logger.Warn("certificate cleanup failed", zap.Error(err))
				continue
			}
			if len(deleted) > 0 {
				s.logger.Info("expired certificates removed", zap.Int("count", len(deleted)))
			}
		}
	}
}
