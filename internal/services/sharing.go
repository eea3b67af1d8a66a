package services

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/docuvault/document-service/internal/apperrors"
	"github.com/docuvault/document-service/internal/models"
	"github.com/sirupsen/logrus"
)

// tokenBytes gives 256 bits of randomness, hex-encoded to 64 characters.
const tokenBytes = 32

// ShareInput carries explicit link constraints. Defaulting missing values is
// the request layer's responsibility; the engine rejects ambiguity so that a
// single default exists at the boundary.
type ShareInput struct {
	ExpiresInHours  int
	MaxDownloads    int
	SharedWithEmail *string
}

// SharingService issues, validates and retires public access tokens for
// clean documents.
type SharingService struct {
	shares  ShareStore
	docs    *DocumentService
	audit   *Auditor
	gateway AccessGateway
	baseURL string
	now     func() time.Time
	log     *logrus.Entry
}

func NewSharingService(shares ShareStore, docs *DocumentService, audit *Auditor, baseURL string, log *logrus.Logger) *SharingService {
	return &SharingService{
		shares:  shares,
		docs:    docs,
		audit:   audit,
		baseURL: baseURL,
		now:     time.Now,
		log:     log.WithField("component", "sharing"),
	}
}

// CreateLink issues a new sharing link for the caller's clean document.
func (s *SharingService) CreateLink(ctx context.Context, actor Actor, documentID int64, in ShareInput) (models.DocumentShare, error) {
	if actor.UserID == nil {
		return models.DocumentShare{}, apperrors.ErrForbidden
	}
	if in.ExpiresInHours <= 0 {
		return models.DocumentShare{}, apperrors.Validation("expiry must be a positive number of hours")
	}
	if in.MaxDownloads < 0 {
		return models.DocumentShare{}, apperrors.Validation("max downloads must not be negative")
	}

	doc, found, err := s.docs.GetForShare(ctx, documentID)
	if err != nil {
		return models.DocumentShare{}, fmt.Errorf("failed to load document %d: %w", documentID, err)
	}
	if !found || !s.gateway.CanView(*actor.UserID, doc) {
		return models.DocumentShare{}, apperrors.ErrNotFound
	}
	if !s.gateway.CanShare(*actor.UserID, doc) {
		s.audit.Failure(ctx, actor, models.ActionDocumentShared, models.SubjectRef{Kind: models.SubjectDocument, ID: documentID}, nil, apperrors.CodeForbidden)
		return models.DocumentShare{}, apperrors.ErrForbidden
	}

	token, err := s.newToken(ctx)
	if err != nil {
		return models.DocumentShare{}, err
	}

	share := models.DocumentShare{
		DocumentID:      documentID,
		Token:           token,
		SharedWithEmail: in.SharedWithEmail,
		ExpiresAt:       s.now().Add(time.Duration(in.ExpiresInHours) * time.Hour),
		MaxDownloads:    in.MaxDownloads,
		DownloadCount:   0,
		IsActive:        true,
	}

	if err := s.shares.InsertShare(ctx, &share); err != nil {
		return models.DocumentShare{}, fmt.Errorf("failed to save sharing link: %w", err)
	}

	s.audit.Success(ctx, actor, models.ActionDocumentShared, models.SubjectRef{Kind: models.SubjectShare, ID: share.ID}, map[string]any{
		"document_id":   documentID,
		"max_downloads": share.MaxDownloads,
		"expires_at":    share.ExpiresAt.UTC().Format(time.RFC3339),
	})

	return share, nil
}

// newToken draws a fresh token and verifies uniqueness. The token space makes
// collisions negligible; the retry is a defensive formality.
func (s *SharingService) newToken(ctx context.Context) (string, error) {
	for attempt := 0; attempt < 5; attempt++ {
		buf := make([]byte, tokenBytes)
		if _, err := rand.Read(buf); err != nil {
			return "", fmt.Errorf("failed to generate token: %w", err)
		}
		token := hex.EncodeToString(buf)

		taken, err := s.shares.TokenExists(ctx, token)
		if err != nil {
			return "", fmt.Errorf("failed to check token uniqueness: %w", err)
		}
		if !taken {
			return token, nil
		}
	}
	return "", fmt.Errorf("failed to generate a unique token")
}

// FindByToken is the public, unauthenticated info lookup. It does not apply
// expiry semantics; a dead-but-existing link still resolves. Only unknown
// tokens are not found.
func (s *SharingService) FindByToken(ctx context.Context, token string) (models.DocumentShare, models.Document, error) {
	share, found, err := s.shares.GetShareByToken(ctx, token)
	if err != nil {
		return models.DocumentShare{}, models.Document{}, fmt.Errorf("failed to look up token: %w", err)
	}
	if !found {
		return models.DocumentShare{}, models.Document{}, apperrors.ErrNotFound
	}

	doc, found, err := s.docs.GetForShare(ctx, share.DocumentID)
	if err != nil {
		return models.DocumentShare{}, models.Document{}, fmt.Errorf("failed to load document %d: %w", share.DocumentID, err)
	}
	if !found {
		// Parent tombstoned; the link is effectively dead.
		return models.DocumentShare{}, models.Document{}, apperrors.ErrNotFound
	}
	return share, doc, nil
}

// ListLinks returns the active links of the caller's document.
func (s *SharingService) ListLinks(ctx context.Context, actor Actor, documentID int64) ([]models.DocumentShare, error) {
	if actor.UserID == nil {
		return nil, apperrors.ErrForbidden
	}
	doc, found, err := s.docs.GetForShare(ctx, documentID)
	if err != nil {
		return nil, fmt.Errorf("failed to load document %d: %w", documentID, err)
	}
	if !found || !s.gateway.CanView(*actor.UserID, doc) {
		return nil, apperrors.ErrNotFound
	}
	return s.shares.ListActiveShares(ctx, documentID)
}

// ConsumeAccess grants one public download through a token. The grant is a
// single atomic conditional increment in the store; exactly max_downloads
// consumptions ever succeed regardless of concurrency. Any rejected attempt
// deactivates the link if it was still active. Every attempt is audited.
func (s *SharingService) ConsumeAccess(ctx context.Context, actor Actor, token string) (models.DocumentShare, models.Document, error) {
	// A failed consume races with concurrent consumers between the UPDATE and
	// the classification read; loop a couple of times before classifying.
	for attempt := 0; attempt < 3; attempt++ {
		share, consumed, err := s.shares.ConsumeShare(ctx, token, s.now())
		if err != nil {
			return models.DocumentShare{}, models.Document{}, fmt.Errorf("failed to consume sharing link: %w", err)
		}
		if consumed {
			return s.grant(ctx, actor, share)
		}

		share, found, err := s.shares.GetShareByToken(ctx, token)
		if err != nil {
			return models.DocumentShare{}, models.Document{}, fmt.Errorf("failed to look up token: %w", err)
		}
		if !found {
			s.audit.Failure(ctx, actor, models.ActionShareAccessed, models.SubjectRef{Kind: models.SubjectShare, ID: 0}, map[string]any{
				"reason": "unknown_token",
			}, apperrors.CodeNotFound)
			return models.DocumentShare{}, models.Document{}, apperrors.ErrNotFound
		}

		if share.UsableAt(s.now()) {
			// Became usable again between reads; retry the atomic consume.
			continue
		}
		return models.DocumentShare{}, models.Document{}, s.reject(ctx, actor, share)
	}

	return models.DocumentShare{}, models.Document{}, apperrors.Gone(apperrors.GoneExhausted)
}

func (s *SharingService) grant(ctx context.Context, actor Actor, share models.DocumentShare) (models.DocumentShare, models.Document, error) {
	doc, found, err := s.docs.GetForShare(ctx, share.DocumentID)
	if err != nil {
		return models.DocumentShare{}, models.Document{}, fmt.Errorf("failed to load document %d: %w", share.DocumentID, err)
	}
	if !found {
		s.audit.Failure(ctx, actor, models.ActionShareAccessed, models.SubjectRef{Kind: models.SubjectShare, ID: share.ID}, map[string]any{
			"reason": "document_deleted",
		}, apperrors.CodeNotFound)
		return models.DocumentShare{}, models.Document{}, apperrors.ErrNotFound
	}

	meta := map[string]any{"download_count": share.DownloadCount}
	if share.SharedWithEmail != nil {
		meta["shared_with_email"] = *share.SharedWithEmail
	}
	s.audit.Success(ctx, actor, models.ActionShareAccessed, models.SubjectRef{Kind: models.SubjectShare, ID: share.ID}, meta)

	return share, doc, nil
}

// reject classifies why the link is unusable, self-heals the active flag and
// returns the per-cause Gone error.
func (s *SharingService) reject(ctx context.Context, actor Actor, share models.DocumentShare) error {
	// A link retired by reaching its budget reports exhaustion, not the
	// deactivation that came with it.
	var reason apperrors.GoneReason
	switch {
	case share.MaxDownloads > 0 && share.DownloadCount >= share.MaxDownloads:
		reason = apperrors.GoneExhausted
	case !s.now().Before(share.ExpiresAt):
		reason = apperrors.GoneExpired
	default:
		reason = apperrors.GoneDeactivated
	}

	if share.IsActive {
		if err := s.shares.DeactivateShare(ctx, share.ID); err != nil {
			s.log.Errorf("failed to deactivate share %d: %v", share.ID, err)
		}
	}

	s.audit.Failure(ctx, actor, models.ActionShareAccessed, models.SubjectRef{Kind: models.SubjectShare, ID: share.ID}, map[string]any{
		"reason": string(reason),
	}, apperrors.CodeGone)

	return apperrors.Gone(reason)
}

// DownloadShared opens the shared document's content after a successful
// consume.
func (s *SharingService) DownloadShared(ctx context.Context, doc models.Document) (DownloadResult, error) {
	return s.docs.fetchContent(ctx, doc)
}

// ShareURL renders the public URL of a link.
func (s *SharingService) ShareURL(share models.DocumentShare) string {
	return fmt.Sprintf("%s/api/share/%s", s.baseURL, share.Token)
}
