package documents

import (
	"context"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/careops/hms/internal/platform/storage"
)

// CaseChecker confirms a case exists under the hospital before anything
// is attached to it, and that a referenced exam-procedure row is one of
// that case's own. Satisfied by the case service.
type CaseChecker interface {
	Exists(ctx context.Context, hospitalID, caseID uuid.UUID) (bool, error)
	ProcedureBelongsTo(ctx context.Context, hospitalID, caseID, procID uuid.UUID) (bool, error)
}

type Service struct {
	repo  Repository
	store storage.DocStore
	cases CaseChecker
}

func NewService(repo Repository, store storage.DocStore, cases CaseChecker) *Service {
	return &Service{repo: repo, store: store, cases: cases}
}

// Upload stores the blob first, then the metadata row. If the row insert
// fails the blob is removed again so storage holds no orphans. A non-nil
// procID ties the document to one of the case's scheduled exam-procedures.
func (s *Service) Upload(ctx context.Context, hospitalID, caseID, uploaderID uuid.UUID, procID *uuid.UUID,
	name, contentType string, size int64, r io.Reader) (*Document, error) {
	name = path.Base(strings.TrimSpace(name))
	if name == "" || name == "." || name == "/" {
		return nil, fmt.Errorf("file name is required")
	}
	ok, err := s.cases.Exists(ctx, hospitalID, caseID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrNotFound
	}
	if procID != nil {
		ok, err := s.cases.ProcedureBelongsTo(ctx, hospitalID, caseID, *procID)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, fmt.Errorf("exam procedure does not belong to this case")
		}
	}
	if !s.store.Enabled() {
		return nil, storage.ErrDisabled
	}

	d := &Document{
		ID:                  uuid.New(),
		HospitalID:          hospitalID,
		CaseID:              caseID,
		CaseExamProcedureID: procID,
		Name:                name,
		ContentType:         contentType,
		Size:                size,
		UploadedBy:          uploaderID,
	}
	d.StorageKey = fmt.Sprintf("%s/%s/%s-%s", hospitalID, caseID, d.ID, name)

	if err := s.store.Put(ctx, d.StorageKey, r, contentType); err != nil {
		return nil, fmt.Errorf("failed to store document: %w", err)
	}
	if err := s.repo.Create(ctx, d); err != nil {
		if delErr := s.store.Delete(ctx, d.StorageKey); delErr != nil {
			log.Warn().Err(delErr).Str("key", d.StorageKey).Msg("orphaned blob after failed metadata insert")
		}
		return nil, fmt.Errorf("failed to record document: %w", err)
	}
	log.Info().Str("id", d.ID.String()).Str("case_id", caseID.String()).
		Int64("size", size).Msg("document uploaded")
	return d, nil
}

func (s *Service) Get(ctx context.Context, hospitalID, id uuid.UUID) (*Document, error) {
	return s.repo.GetByID(ctx, hospitalID, id)
}

func (s *Service) ListByCase(ctx context.Context, hospitalID, caseID uuid.UUID) ([]*Document, error) {
	ok, err := s.cases.Exists(ctx, hospitalID, caseID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrNotFound
	}
	return s.repo.ListByCase(ctx, hospitalID, caseID)
}

// DownloadURL returns a direct URL when the backend can mint one (S3
// presigned links); otherwise it returns empty and the caller streams
// through Open.
func (s *Service) DownloadURL(ctx context.Context, hospitalID, id uuid.UUID) (*Document, string, error) {
	d, err := s.repo.GetByID(ctx, hospitalID, id)
	if err != nil {
		return nil, "", err
	}
	url, err := s.store.DownloadURL(ctx, d.StorageKey)
	if err != nil {
		return d, "", nil
	}
	return d, url, nil
}

// Open streams the document bytes from storage.
func (s *Service) Open(ctx context.Context, hospitalID, id uuid.UUID) (*Document, io.ReadCloser, error) {
	d, err := s.repo.GetByID(ctx, hospitalID, id)
	if err != nil {
		return nil, nil, err
	}
	rc, err := s.store.Get(ctx, d.StorageKey)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open document: %w", err)
	}
	return d, rc, nil
}

// Delete removes the row, then the blob. A blob that refuses to go is
// logged and left for storage cleanup; the document is already gone from
// the caller's point of view.
func (s *Service) Delete(ctx context.Context, hospitalID, id uuid.UUID) error {
	d, err := s.repo.GetByID(ctx, hospitalID, id)
	if err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, hospitalID, id); err != nil {
		return err
	}
	if err := s.store.Delete(ctx, d.StorageKey); err != nil {
		log.Warn().Err(err).Str("key", d.StorageKey).Msg("blob delete failed after row delete")
	}
	return nil
}
