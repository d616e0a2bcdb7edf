package document

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/samber/lo"

	"github.com/nikhilbhutani/audioreader/internal/models"
	"github.com/nikhilbhutani/audioreader/internal/storage"
	"github.com/nikhilbhutani/audioreader/internal/store"
	"github.com/nikhilbhutani/audioreader/pkg/chunker"
)

const MaxFileSize = 50 << 20

var AllowedTypes = []string{
	"application/pdf",
	"image/png",
	"image/jpeg",
	"image/jpg",
	"image/gif",
	"image/bmp",
	"image/webp",
}

var (
	ErrNotFound        = store.ErrNotFound
	ErrForbidden       = errors.New("document belongs to another user")
	ErrUnsupportedType = errors.New("unsupported file type")
	ErrTooLarge        = errors.New("file too large")
	ErrNotReady        = errors.New("document is not ready")
)

type Store interface {
	CreateDocument(ctx context.Context, doc *models.Document) error
	GetDocument(ctx context.Context, id string) (*models.Document, error)
	DeleteDocument(ctx context.Context, doc *models.Document) error
}

type Service struct {
	store   Store
	storage storage.Storage
	now     func() time.Time
}

func NewService(st Store, blobs storage.Storage) *Service {
	return &Service{store: st, storage: blobs, now: time.Now}
}

type UploadRequest struct {
	UserID      string
	Filename    string
	ContentType string
	Size        int64
	Data        io.Reader
}

// Upload validates the file, stores it under documents/<id>/<filename> and
// records the document as uploaded.
func (s *Service) Upload(ctx context.Context, req UploadRequest) (*models.Document, error) {
	if !lo.Contains(AllowedTypes, req.ContentType) {
		return nil, ErrUnsupportedType
	}
	if req.Size > MaxFileSize {
		return nil, ErrTooLarge
	}

	filename := filepath.Base(req.Filename)
	docID := "doc_" + uuid.NewString()

	url, err := s.storage.Upload(ctx, storage.DocumentPath(docID, filename), req.Data, req.ContentType)
	if err != nil {
		return nil, fmt.Errorf("upload to storage: %w", err)
	}

	doc := &models.Document{
		ID:               docID,
		UserID:           req.UserID,
		Title:            strings.TrimSuffix(filename, filepath.Ext(filename)),
		OriginalFilename: filename,
		FileType:         req.ContentType,
		FileSize:         req.Size,
		FileURL:          url,
		Status:           models.DocStatusUploaded,
		UploadedAt:       models.Timestamp(s.now()),
		SpeechMarks:      []models.SpeechMark{},
	}
	if err := s.store.CreateDocument(ctx, doc); err != nil {
		if derr := s.storage.Delete(ctx, url); derr != nil {
			slog.Warn("failed to remove orphaned upload", "document_id", docID, "error", derr)
		}
		return nil, fmt.Errorf("create document: %w", err)
	}

	slog.Info("document uploaded", "document_id", docID, "user_id", req.UserID, "type", req.ContentType, "size", req.Size)
	return doc, nil
}

// Get returns the document if user owns it or is an admin.
func (s *Service) Get(ctx context.Context, id string, user *models.User) (*models.Document, error) {
	doc, err := s.store.GetDocument(ctx, id)
	if err != nil {
		return nil, err
	}
	if doc.UserID != user.ID && !user.IsAdmin {
		return nil, ErrForbidden
	}
	return doc, nil
}

// ReaderView is everything a player needs to play and highlight a ready document.
type ReaderView struct {
	ID          string              `json:"id"`
	Title       string              `json:"title"`
	CleanedText string              `json:"cleanedText"`
	AudioURL    string              `json:"audioUrl"`
	SpeechMarks []models.SpeechMark `json:"speechMarks"`
	Words       []string            `json:"words"`
	Sentences   []string            `json:"sentences"`
}

func (s *Service) Reader(ctx context.Context, id string, user *models.User) (*ReaderView, error) {
	doc, err := s.Get(ctx, id, user)
	if err != nil {
		return nil, err
	}
	if doc.Status != models.DocStatusReady {
		return nil, fmt.Errorf("%w: status %s", ErrNotReady, doc.Status)
	}

	sentences := chunker.Sentences(doc.CleanedText)
	if sentences == nil {
		sentences = []string{}
	}

	return &ReaderView{
		ID:          doc.ID,
		Title:       doc.Title,
		CleanedText: doc.CleanedText,
		AudioURL:    doc.AudioURL,
		SpeechMarks: doc.SpeechMarks,
		Words:       chunker.Words(doc.CleanedText),
		Sentences:   sentences,
	}, nil
}

// Delete removes the document record and its blobs. Blob failures are
// logged; the record is removed regardless.
func (s *Service) Delete(ctx context.Context, id string, user *models.User) error {
	doc, err := s.Get(ctx, id, user)
	if err != nil {
		return err
	}

	urls := lo.Compact([]string{doc.FileURL, doc.AudioURL})
	for _, url := range urls {
		if err := s.storage.Delete(ctx, url); err != nil {
			slog.Warn("failed to delete blob", "document_id", doc.ID, "url", url, "error", err)
		}
	}

	if err := s.store.DeleteDocument(ctx, doc); err != nil {
		return fmt.Errorf("delete document: %w", err)
	}

	slog.Info("document deleted", "document_id", doc.ID)
	return nil
}
