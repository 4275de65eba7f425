package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/progreview/progreview-api/internal/actionlog"
	"github.com/progreview/progreview-api/internal/config"
	"github.com/progreview/progreview-api/internal/document"
	"github.com/progreview/progreview-api/internal/document/repository"
	"github.com/progreview/progreview-api/internal/errs"
	"github.com/progreview/progreview-api/internal/storage"
	"github.com/progreview/progreview-api/pkg/logger"
	"github.com/progreview/progreview-api/pkg/metrics"
)

var (
	ErrNotFound = errs.ErrNotFound
	// ErrInvalidExtension is returned for uploads whose extension is not allowed.
	ErrInvalidExtension = fmt.Errorf("invalid file extension: %w", errs.ErrInvalidInput)
	// ErrFileTooLarge is returned for uploads above the configured maximum size.
	ErrFileTooLarge = errors.New("file too large")
	// ErrNoFile is returned when downloading from a revision without a file.
	ErrNoFile = fmt.Errorf("revision has no file: %w", errs.ErrNotFound)
)

// Service defines the document business operations used by the handler layer.
type Service interface {
	Create(ctx context.Context, title string) (*document.Document, error)
	Get(ctx context.Context, id string) (*Populated, error)
	List(ctx context.Context) ([]*document.Document, error)
	Update(ctx context.Context, id string, in UpdateInput) (*document.Document, error)
	Delete(ctx context.Context, id string) error

	AddRevision(ctx context.Context, id, message string, actor actionlog.Actor) (*document.Document, error)
	DeleteRevision(ctx context.Context, id string, index int, actor actionlog.Actor) error
	AttachFile(ctx context.Context, id string, index int, up Upload, actor actionlog.Actor) (*document.Document, error)
	OpenRevisionFile(ctx context.Context, id string, index int) (*RevisionFile, error)

	AddComment(ctx context.Context, id, authorID, body string) (*document.Comment, error)
	ListComments(ctx context.Context, id string) ([]*document.Comment, error)
	DeleteComment(ctx context.Context, id, commentID string) error
}

// Populated is a document with its comment ids resolved.
type Populated struct {
	*document.Document
	Comments []*document.Comment `json:"comments"`
}

// UpdateInput holds the patchable fields; nil means unchanged.
type UpdateInput struct {
	Title           *string
	CurrentRevision *int
}

// Upload describes a revision file received from a client.
type Upload struct {
	// OriginalName is the client's file name; only its extension is kept.
	OriginalName string
	Size         int64
	ContentType  string
	Body         io.Reader
}

// RevisionFile is an open revision attachment. Callers must close Body.
type RevisionFile struct {
	Title     string
	Index     int
	Extension string
	Body      io.ReadCloser
}

// DownloadName builds "<title>_revision_<n>_<username><ext>" with n 1-based.
func (f *RevisionFile) DownloadName(username string) string {
	return fmt.Sprintf("%s_revision_%d_%s%s", f.Title, f.Index+1, username, f.Extension)
}

// Options configures a DocumentService.
type Options struct {
	Files            config.FilesConfig
	MaxCommentLength int
	Actions          *actionlog.Service
}

// DocumentService implements Service. Mutations of one document are
// serialized in process; each one loads a fresh copy and saves it whole.
type DocumentService struct {
	docs     repository.Repository
	comments repository.CommentRepository
	files    storage.Store
	opts     Options
	locks    *keyedMutex
}

var _ Service = (*DocumentService)(nil)

func New(docs repository.Repository, comments repository.CommentRepository, files storage.Store, opts Options) *DocumentService {
	if opts.MaxCommentLength <= 0 {
		opts.MaxCommentLength = config.DefaultSettings().MaxCommentLength
	}
	if opts.Files.MaxFileSize <= 0 {
		opts.Files.MaxFileSize = config.DefaultRevisionMaxFileSize
	}
	if len(opts.Files.AllowedExtensions) == 0 {
		opts.Files.AllowedExtensions = config.DefaultRevisionExtensions
	}
	return &DocumentService{docs: docs, comments: comments, files: files, opts: opts, locks: newKeyedMutex()}
}

// NewMemoryService returns a Service backed by in-memory repositories and the given file store.
func NewMemoryService(files storage.Store, opts Options) *DocumentService {
	return New(repository.NewMemoryRepo(), repository.NewMemoryCommentRepo(), files, opts)
}

func (s *DocumentService) Create(ctx context.Context, title string) (*document.Document, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return nil, fmt.Errorf("title is required: %w", errs.ErrInvalidInput)
	}
	d := document.New(title)
	if _, err := s.docs.Create(ctx, d); err != nil {
		logger.Infof("Failed to create document with title %q: %v", title, err)
		return nil, err
	}
	logger.Infof("Created document with id %s", d.ID)
	return d, nil
}

func (s *DocumentService) Get(ctx context.Context, id string) (*Populated, error) {
	d, err := s.docs.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	cs, err := s.comments.ListByDocument(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("load comments: %w", err)
	}
	return &Populated{Document: d, Comments: cs}, nil
}

func (s *DocumentService) List(ctx context.Context) ([]*document.Document, error) {
	return s.docs.List(ctx)
}

func (s *DocumentService) Update(ctx context.Context, id string, in UpdateInput) (*document.Document, error) {
	unlock := s.locks.Lock(id)
	defer unlock()

	d, err := s.docs.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if in.Title != nil {
		t := strings.TrimSpace(*in.Title)
		if t == "" {
			return nil, fmt.Errorf("title must not be empty: %w", errs.ErrInvalidInput)
		}
		d.Title = t
	}
	if in.CurrentRevision != nil {
		if !d.SetRevision(*in.CurrentRevision) {
			return nil, document.ErrInvalidRevision
		}
		metrics.RevisionOps.WithLabelValues("select").Inc()
	}
	if err := s.docs.Save(ctx, d); err != nil {
		return nil, err
	}
	logger.Infof("Updated document with id %s", id)
	return d, nil
}

// Delete removes the document, then its comments and revision files. Those
// cleanups run after the delete is committed; their failures are logged and
// counted, not returned.
func (s *DocumentService) Delete(ctx context.Context, id string) error {
	unlock := s.locks.Lock(id)
	defer unlock()

	d, err := s.docs.Get(ctx, id)
	if err != nil {
		return err
	}
	if err := s.docs.Delete(ctx, id); err != nil {
		return err
	}
	logger.Infof("Deleted document with id %s", id)

	n, err := s.comments.DeleteByDocument(ctx, id)
	if err != nil {
		metrics.CleanupFailures.WithLabelValues("comments").Inc()
		logger.Errorf("Error deleting comments of document %s: %v", id, err)
	} else {
		logger.Infof("Deleted %d comments on document %s", n, id)
	}
	for _, r := range d.Revisions {
		s.removeFile(ctx, id, r)
	}
	return nil
}

func (s *DocumentService) removeFile(ctx context.Context, docID string, r document.Revision) {
	if !r.HasFile() {
		return
	}
	if err := s.files.RemoveFile(ctx, *r.Filename); err != nil && !errors.Is(err, storage.ErrNotFound) {
		metrics.CleanupFailures.WithLabelValues("file").Inc()
		logger.Errorf("Error removing file %s of document %s: %v", *r.Filename, docID, err)
	}
}

func (s *DocumentService) AddRevision(ctx context.Context, id, message string, actor actionlog.Actor) (*document.Document, error) {
	unlock := s.locks.Lock(id)
	defer unlock()

	d, err := s.docs.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	d.AddRevision(message, actor.ID)
	if err := s.docs.Save(ctx, d); err != nil {
		logger.Errorf("Error creating revision on document %s: %v", id, err)
		return nil, err
	}
	metrics.RevisionOps.WithLabelValues("add").Inc()
	logger.Infof("Created revision %d on document %s", d.CurrentRevision, id)
	s.opts.Actions.Log(ctx, "added a revision", actor, "document", id, d.Title)
	return d, nil
}

// DeleteRevision removes the revision and, once the document is saved, its file.
func (s *DocumentService) DeleteRevision(ctx context.Context, id string, index int, actor actionlog.Actor) error {
	unlock := s.locks.Lock(id)
	defer unlock()

	d, err := s.docs.Get(ctx, id)
	if err != nil {
		return err
	}
	removed, err := d.DeleteRevision(index)
	if err != nil {
		return err
	}
	if err := s.docs.Save(ctx, d); err != nil {
		logger.Errorf("Error deleting revision %d on document %s: %v", index, id, err)
		return err
	}
	metrics.RevisionOps.WithLabelValues("delete").Inc()
	logger.Infof("Deleted revision %d on document %s", index, id)
	s.removeFile(ctx, id, removed)
	s.opts.Actions.Log(ctx, "deleted a revision", actor, "document", id, d.Title)
	return nil
}

// checkUpload validates extension and size before anything is stored.
func (s *DocumentService) checkUpload(up Upload) (string, error) {
	ext := strings.ToLower(filepath.Ext(up.OriginalName))
	if !s.opts.Files.AllowsExtension(ext) {
		return "", ErrInvalidExtension
	}
	if up.Size > s.opts.Files.MaxFileSize {
		return "", ErrFileTooLarge
	}
	return ext, nil
}

// AttachFile stores the upload and records it on the revision. The blob is
// written first; if saving the document then fails the blob is removed.
func (s *DocumentService) AttachFile(ctx context.Context, id string, index int, up Upload, actor actionlog.Actor) (*document.Document, error) {
	ext, err := s.checkUpload(up)
	if err != nil {
		return nil, err
	}

	unlock := s.locks.Lock(id)
	defer unlock()

	d, err := s.docs.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !d.ValidRevision(index) {
		return nil, document.ErrInvalidRevision
	}
	if d.Revisions[index].HasFile() {
		return nil, document.ErrRevisionHasFile
	}

	key := storage.NewKey()
	contentType := up.ContentType
	if contentType == "" {
		contentType = mime.TypeByExtension(ext)
	}
	if err := s.files.UploadFile(ctx, key, up.Body, up.Size, contentType); err != nil {
		return nil, fmt.Errorf("store revision file: %w", err)
	}
	if err := d.AttachFile(index, key, ext); err != nil {
		s.discard(ctx, key)
		return nil, err
	}
	if err := s.docs.Save(ctx, d); err != nil {
		logger.Errorf("Error saving document %s after file upload: %v", id, err)
		s.discard(ctx, key)
		return nil, err
	}
	metrics.RevisionOps.WithLabelValues("attach").Inc()
	metrics.FileUploadBytes.Add(float64(up.Size))
	logger.Infof("Attached file %s to revision %d on document %s", key, index, id)
	s.opts.Actions.Log(ctx, "uploaded a revision file", actor, "document", id, d.Title)
	return d, nil
}

func (s *DocumentService) discard(ctx context.Context, key string) {
	if err := s.files.RemoveFile(ctx, key); err != nil {
		metrics.CleanupFailures.WithLabelValues("file").Inc()
		logger.Errorf("Orphaned revision file %s: %v", key, err)
	}
}

func (s *DocumentService) OpenRevisionFile(ctx context.Context, id string, index int) (*RevisionFile, error) {
	d, err := s.docs.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !d.ValidRevision(index) {
		return nil, document.ErrInvalidRevision
	}
	r := d.Revisions[index]
	if !r.HasFile() {
		return nil, ErrNoFile
	}
	body, err := s.files.DownloadFile(ctx, *r.Filename)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, ErrNoFile
		}
		return nil, err
	}
	ext := ""
	if r.FileExtension != nil {
		ext = *r.FileExtension
	}
	return &RevisionFile{Title: d.Title, Index: index, Extension: ext, Body: body}, nil
}

func (s *DocumentService) AddComment(ctx context.Context, id, authorID, body string) (*document.Comment, error) {
	body = strings.TrimSpace(body)
	if body == "" {
		return nil, fmt.Errorf("comment body is required: %w", errs.ErrInvalidInput)
	}
	if utf8.RuneCountInString(body) > s.opts.MaxCommentLength {
		return nil, fmt.Errorf("comment exceeds %d characters: %w", s.opts.MaxCommentLength, errs.ErrInvalidInput)
	}

	unlock := s.locks.Lock(id)
	defer unlock()

	d, err := s.docs.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	c := &document.Comment{DocumentID: id, AuthorID: authorID, Body: body}
	if _, err := s.comments.Create(ctx, c); err != nil {
		return nil, err
	}
	d.Comments = append(d.Comments, c.ID)
	if err := s.docs.Save(ctx, d); err != nil {
		if derr := s.comments.Delete(ctx, c.ID); derr != nil {
			logger.Errorf("Orphaned comment %s on document %s: %v", c.ID, id, derr)
		}
		return nil, err
	}
	logger.Infof("Created comment %s on document %s", c.ID, id)
	return c, nil
}

func (s *DocumentService) ListComments(ctx context.Context, id string) ([]*document.Comment, error) {
	if _, err := s.docs.Get(ctx, id); err != nil {
		return nil, err
	}
	return s.comments.ListByDocument(ctx, id)
}

func (s *DocumentService) DeleteComment(ctx context.Context, id, commentID string) error {
	c, err := s.comments.Get(ctx, commentID)
	if err != nil {
		return err
	}
	if c.DocumentID != id {
		return ErrNotFound
	}

	unlock := s.locks.Lock(id)
	defer unlock()

	if err := s.comments.Delete(ctx, commentID); err != nil {
		return err
	}
	d, err := s.docs.Get(ctx, id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil
		}
		return err
	}
	kept := d.Comments[:0]
	for _, cid := range d.Comments {
		if cid != commentID {
			kept = append(kept, cid)
		}
	}
	d.Comments = kept
	if err := s.docs.Save(ctx, d); err != nil {
		return err
	}
	logger.Infof("Deleted comment %s on document %s", commentID, id)
	return nil
}
