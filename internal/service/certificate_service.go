package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/lernio/lernio-backend/internal/model"
	"github.com/lernio/lernio-backend/internal/repository"
)

// CertificateService issues and verifies completion certificates.
type CertificateService struct {
	certs *repository.CertificateRepository
	log   zerolog.Logger
}

// NewCertificateService creates a new CertificateService.
func NewCertificateService(certs *repository.CertificateRepository, log zerolog.Logger) *CertificateService {
	return &CertificateService{
		certs: certs,
		log:   log.With().Str("component", "certificate_service").Logger(),
	}
}

// IssueForSession creates a certificate for a passed, certificate-eligible
// session. Issuance is idempotent per session; a repeat call returns nil
// without creating a duplicate.
func (s *CertificateService) IssueForSession(ctx context.Context, session *model.Session) (*model.Certificate, error) {
	if session.Result == nil || !session.Result.CertificateEligible {
		return nil, nil
	}

	exists, err := s.certs.ExistsForSession(ctx, session.ID)
	if err != nil {
		return nil, fmt.Errorf("check existing certificate: %w", err)
	}
	if exists {
		return nil, nil
	}

	now := time.Now().UTC()
	cert := &model.Certificate{
		Serial:       newSerial(now),
		UserID:       session.UserID,
		AssessmentID: session.AssessmentID,
		SessionID:    session.ID,
		ScorePercent: session.Result.ScorePercent,
		Grade:        session.Result.Grade,
		IssuedAt:     now,
	}
	if err := s.certs.Create(ctx, cert); err != nil {
		return nil, fmt.Errorf("create certificate: %w", err)
	}

	s.log.Info().
		Str("serial", cert.Serial).
		Str("session_id", session.ID.String()).
		Msg("Certificate issued")
	return cert, nil
}

// Verify looks up a certificate by its public serial.
func (s *CertificateService) Verify(ctx context.Context, serial string) (*model.Certificate, error) {
	cert, err := s.certs.GetBySerial(ctx, serial)
	if err != nil {
		return nil, ErrNotFound
	}
	return cert, nil
}

// ListForUser retrieves a user's certificates.
func (s *CertificateService) ListForUser(ctx context.Context, userID uuid.UUID) ([]model.Certificate, error) {
	return s.certs.ListByUser(ctx, userID)
}

// newSerial builds a public certificate serial, e.g. LRN-2026-5A3F9C12.
func newSerial(now time.Time) string {
	token := strings.ToUpper(strings.ReplaceAll(uuid.New().String(), "-", ""))[:8]
	return fmt.Sprintf("LRN-%d-%s", now.Year(), token)
}
