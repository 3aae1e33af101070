package service

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/noc-portal-api/internal/models"
	appErrors "github.com/noah-isme/noc-portal-api/pkg/errors"
	"github.com/noah-isme/noc-portal-api/pkg/storage"
)

type stubRequestSource struct {
	requests map[int64]*models.NocRequest
}

func (s *stubRequestSource) Get(ctx context.Context, caller *models.JWTClaims, id int64) (*models.NocRequest, error) {
	if req, ok := s.requests[id]; ok {
		cp := *req
		return &cp, nil
	}
	return nil, appErrors.Clone(appErrors.ErrNotFound, "noc request not found")
}

func approvedRequestFixture() *models.NocRequest {
	return &models.NocRequest{
		ID:          2,
		StudentID:   "s1",
		StudentName: "John Doe",
		CompanyName: "Microsoft",
		RoleTitle:   "Product Management Intern",
		Duration:    "6 months",
		StartDate:   "2024-05-15",
		EndDate:     "2024-11-15",
		Status:      models.NocStatusApproved,
	}
}

func newCertificateService(t *testing.T, source *stubRequestSource) *CertificateService {
	t.Helper()
	store, err := storage.NewLocalStorage(t.TempDir())
	require.NoError(t, err)
	signer := storage.NewSignedURLSigner("test-secret", time.Hour)
	svc := NewCertificateService(source, store, signer, NewMetricsService(), zap.NewNop(), CertificateConfig{
		WorkerConcurrency: 1,
	})
	svc.Start(context.Background())
	t.Cleanup(svc.Stop)
	return svc
}

func TestCertificateServiceText(t *testing.T) {
	source := &stubRequestSource{requests: map[int64]*models.NocRequest{2: approvedRequestFixture()}}
	svc := newCertificateService(t, source)

	text, request, err := svc.Text(context.Background(), facultyClaims("f1"), 2)
	require.NoError(t, err)
	assert.Equal(t, int64(2), request.ID)
	assert.Contains(t, text, "NO OBJECTION CERTIFICATE")
	assert.Contains(t, text, "Ref: NOC-0002")
	assert.Contains(t, text, "John Doe")
	assert.Contains(t, text, "Microsoft")
	assert.Contains(t, text, "Faculty Signature")
}

func TestCertificateServiceTextNotApproved(t *testing.T) {
	pending := approvedRequestFixture()
	pending.Status = models.NocStatusPending
	source := &stubRequestSource{requests: map[int64]*models.NocRequest{2: pending}}
	svc := newCertificateService(t, source)

	_, _, err := svc.Text(context.Background(), facultyClaims("f1"), 2)
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErr.Code)
}

func TestCertificateServiceTextUnknownRequest(t *testing.T) {
	svc := newCertificateService(t, &stubRequestSource{})

	_, _, err := svc.Text(context.Background(), facultyClaims("f1"), 42)
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErr.Code)
}

func TestCertificateServiceArtifactRoundTrip(t *testing.T) {
	source := &stubRequestSource{requests: map[int64]*models.NocRequest{2: approvedRequestFixture()}}
	svc := newCertificateService(t, source)

	artifact, err := svc.RequestArtifact(context.Background(), facultyClaims("f1"), 2)
	require.NoError(t, err)
	assert.Equal(t, int64(2), artifact.RequestID)
	assert.Equal(t, "NOC-0002", artifact.RefNumber)
	assert.NotEmpty(t, artifact.Token)
	assert.True(t, artifact.ExpiresAt.After(time.Now()))

	require.Eventually(t, func() bool {
		file, _, err := svc.Download(artifact.Token)
		if err != nil {
			return false
		}
		defer file.Close() //nolint:errcheck
		return true
	}, 5*time.Second, 20*time.Millisecond)

	file, filename, err := svc.Download(artifact.Token)
	require.NoError(t, err)
	defer file.Close() //nolint:errcheck
	assert.Equal(t, "NOC-0002.pdf", filename)

	header := make([]byte, 5)
	_, err = file.Read(header)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(header), "%PDF"))
}

func TestCertificateServiceDownloadBadToken(t *testing.T) {
	svc := newCertificateService(t, &stubRequestSource{})

	_, _, err := svc.Download("garbage")
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrUnauthorized.Code, appErr.Code)
}

func TestCertificateServiceArtifactNotApproved(t *testing.T) {
	rejected := approvedRequestFixture()
	rejected.Status = models.NocStatusRejected
	source := &stubRequestSource{requests: map[int64]*models.NocRequest{2: rejected}}
	svc := newCertificateService(t, source)

	_, err := svc.RequestArtifact(context.Background(), facultyClaims("f1"), 2)
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErr.Code)
}
