package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/uni-registration-api/internal/models"
	"github.com/noah-isme/uni-registration-api/pkg/config"
	appErrors "github.com/noah-isme/uni-registration-api/pkg/errors"
)

type documentRepository interface {
	Create(ctx context.Context, doc *models.CourseDocument) error
	FindByID(ctx context.Context, id string) (*models.CourseDocument, error)
	ListByCourse(ctx context.Context, courseID string) ([]models.CourseDocument, error)
}

type documentStorage interface {
	SaveStream(filename string, r io.Reader) (string, error)
	Open(filename string) (*os.File, error)
}

type documentSigner interface {
	Generate(documentID, relPath string) (string, time.Time, error)
	Parse(token string, allowExpired bool) (documentID, relPath string, expiresAt time.Time, err error)
}

// UploadDocumentRequest describes one file upload.
type UploadDocumentRequest struct {
	CourseID   string
	FileName   string
	MimeType   string
	SizeBytes  int64
	UploadedBy string
	Content    io.Reader
}

// SignedDownloadLink is a time-limited token for downloading a document.
type SignedDownloadLink struct {
	DocumentID string    `json:"document_id"`
	Token      string    `json:"token"`
	ExpiresAt  time.Time `json:"expires_at"`
}

// DocumentService manages course lecture materials: size- and type-checked
// uploads, listings, and signed download links.
type DocumentService struct {
	documents documentRepository
	storage   documentStorage
	signer    documentSigner
	cfg       config.DocumentsConfig
	logger    *zap.Logger
}

// NewDocumentService constructs DocumentService.
func NewDocumentService(documents documentRepository, storage documentStorage, signer documentSigner, cfg config.DocumentsConfig, logger *zap.Logger) *DocumentService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DocumentService{
		documents: documents,
		storage:   storage,
		signer:    signer,
		cfg:       cfg,
		logger:    logger,
	}
}

// Upload validates and stores a course document.
func (s *DocumentService) Upload(ctx context.Context, req UploadDocumentRequest) (*models.CourseDocument, error) {
	if req.CourseID == "" || req.FileName == "" || req.Content == nil {
		return nil, appErrors.Clone(appErrors.ErrMissingParams, "course_id, file_name and content are required")
	}
	if req.SizeBytes > s.cfg.MaxFileSizeBytes {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("file exceeds the %d byte limit", s.cfg.MaxFileSizeBytes))
	}
	if !s.mimeAllowed(req.MimeType) {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("mime type %s is not allowed", req.MimeType))
	}

	docID := uuid.NewString()
	relPath := filepath.Join(req.CourseID, docID+filepath.Ext(req.FileName))
	if _, err := s.storage.SaveStream(relPath, io.LimitReader(req.Content, s.cfg.MaxFileSizeBytes+1)); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store document")
	}

	doc := &models.CourseDocument{
		ID:          docID,
		CourseID:    req.CourseID,
		FileName:    req.FileName,
		StoragePath: relPath,
		MimeType:    req.MimeType,
		SizeBytes:   req.SizeBytes,
		UploadedBy:  req.UploadedBy,
	}
	if err := s.documents.Create(ctx, doc); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to record document")
	}

	s.logger.Info("document uploaded",
		zap.String("document_id", doc.ID),
		zap.String("course_id", doc.CourseID),
		zap.Int64("size_bytes", doc.SizeBytes))
	return doc, nil
}

// ListByCourse returns document metadata for a course.
func (s *DocumentService) ListByCourse(ctx context.Context, courseID string) ([]models.CourseDocument, error) {
	if courseID == "" {
		return nil, appErrors.Clone(appErrors.ErrMissingParams, "courseId is required")
	}
	docs, err := s.documents.ListByCourse(ctx, courseID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list documents")
	}
	return docs, nil
}

// SignedLink issues a time-limited download token for the document.
func (s *DocumentService) SignedLink(ctx context.Context, documentID string) (*SignedDownloadLink, error) {
	doc, err := s.documents.FindByID(ctx, documentID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "document not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load document")
	}

	token, expiresAt, err := s.signer.Generate(doc.ID, doc.StoragePath)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to sign download link")
	}
	return &SignedDownloadLink{DocumentID: doc.ID, Token: token, ExpiresAt: expiresAt}, nil
}

// Download resolves a signed token and opens the underlying file.
func (s *DocumentService) Download(ctx context.Context, token string) (*models.CourseDocument, *os.File, error) {
	documentID, relPath, _, err := s.signer.Parse(token, false)
	if err != nil {
		return nil, nil, appErrors.Clone(appErrors.ErrUnauthorized, "invalid or expired download token")
	}

	doc, err := s.documents.FindByID(ctx, documentID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil, appErrors.Clone(appErrors.ErrNotFound, "document not found")
		}
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load document")
	}
	if doc.StoragePath != relPath {
		return nil, nil, appErrors.Clone(appErrors.ErrUnauthorized, "token does not match document")
	}

	file, err := s.storage.Open(doc.StoragePath)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to open document")
	}
	return doc, file, nil
}

func (s *DocumentService) mimeAllowed(mime string) bool {
	if len(s.cfg.AllowedMIMEs) == 0 {
		return true
	}
	for _, allowed := range s.cfg.AllowedMIMEs {
		if allowed == mime {
			return true
		}
	}
	return false
}
