package service

import (
	"context"
	"errors"
	"io"
	"strings"
	"sync"
	"testing"

	"github.com/progreview/progreview-api/internal/actionlog"
	"github.com/progreview/progreview-api/internal/config"
	"github.com/progreview/progreview-api/internal/document"
	"github.com/progreview/progreview-api/internal/document/repository"
	"github.com/progreview/progreview-api/internal/errs"
	"github.com/progreview/progreview-api/internal/storage"
	"github.com/progreview/progreview-api/pkg/metrics"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var alice = actionlog.Actor{ID: "u-alice", Username: "alice"}

type fixture struct {
	svc      *DocumentService
	docs     *repository.MemoryRepo
	comments *repository.MemoryCommentRepo
	files    *storage.DiskStorage
	actions  *actionlog.MemoryRepository
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	files, err := storage.NewDiskStorage(t.TempDir())
	require.NoError(t, err)
	f := &fixture{
		docs:     repository.NewMemoryRepo(),
		comments: repository.NewMemoryCommentRepo(),
		files:    files,
		actions:  actionlog.NewMemoryRepository(),
	}
	fc := config.DefaultFiles()
	fc.MaxFileSize = 1024
	f.svc = New(f.docs, f.comments, files, Options{
		Files:            fc,
		MaxCommentLength: 20,
		Actions:          actionlog.NewService(f.actions, 50),
	})
	return f
}

func upload(name, body string) Upload {
	return Upload{OriginalName: name, Size: int64(len(body)), Body: strings.NewReader(body)}
}

func readAll(t *testing.T, rc io.ReadCloser) string {
	t.Helper()
	defer rc.Close()
	b, err := io.ReadAll(rc)
	require.NoError(t, err)
	return string(b)
}

func TestCreateAndGet(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	d, err := f.svc.Create(ctx, "  Assessment Plan ")
	require.NoError(t, err)
	assert.Equal(t, "Assessment Plan", d.Title)
	assert.Equal(t, -1, d.CurrentRevision)

	_, err = f.svc.Create(ctx, " ")
	require.ErrorIs(t, err, errs.ErrInvalidInput)

	got, err := f.svc.Get(ctx, d.ID)
	require.NoError(t, err)
	assert.Equal(t, d.ID, got.ID)
	assert.Empty(t, got.Comments)

	_, err = f.svc.Get(ctx, "missing")
	require.ErrorIs(t, err, ErrNotFound)

	list, err := f.svc.List(ctx)
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

func TestRevisionLifecycle(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	before := testutil.ToFloat64(metrics.RevisionOps.WithLabelValues("add"))

	d, err := f.svc.Create(ctx, "Plan")
	require.NoError(t, err)

	d, err = f.svc.AddRevision(ctx, d.ID, "init", alice)
	require.NoError(t, err)
	require.Len(t, d.Revisions, 1)
	assert.Equal(t, 0, d.CurrentRevision)
	assert.Equal(t, "u-alice", d.Revisions[0].AuthorID)

	d, err = f.svc.AddRevision(ctx, d.ID, "v2", alice)
	require.NoError(t, err)
	assert.Equal(t, 1, d.CurrentRevision)
	assert.Equal(t, before+2, testutil.ToFloat64(metrics.RevisionOps.WithLabelValues("add")))

	zero := 0
	d, err = f.svc.Update(ctx, d.ID, UpdateInput{CurrentRevision: &zero})
	require.NoError(t, err)
	assert.Equal(t, 0, d.CurrentRevision)

	five := 5
	_, err = f.svc.Update(ctx, d.ID, UpdateInput{CurrentRevision: &five})
	require.ErrorIs(t, err, document.ErrInvalidRevision)
	stored, err := f.docs.Get(ctx, d.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, stored.CurrentRevision)

	require.NoError(t, f.svc.DeleteRevision(ctx, d.ID, 0, alice))
	stored, err = f.docs.Get(ctx, d.ID)
	require.NoError(t, err)
	require.Len(t, stored.Revisions, 1)
	assert.Equal(t, "v2", stored.Revisions[0].Message)
	assert.Equal(t, 0, stored.CurrentRevision)

	require.ErrorIs(t, f.svc.DeleteRevision(ctx, d.ID, 3, alice), document.ErrInvalidRevision)

	require.NoError(t, f.svc.DeleteRevision(ctx, d.ID, 0, alice))
	stored, err = f.docs.Get(ctx, d.ID)
	require.NoError(t, err)
	assert.Empty(t, stored.Revisions)
	assert.Equal(t, -1, stored.CurrentRevision)

	actions, err := f.actions.Page(ctx, 0, 10)
	require.NoError(t, err)
	assert.Len(t, actions, 4)
}

func TestUpdateTitle(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	d, err := f.svc.Create(ctx, "Old")
	require.NoError(t, err)

	title := "New"
	d, err = f.svc.Update(ctx, d.ID, UpdateInput{Title: &title})
	require.NoError(t, err)
	assert.Equal(t, "New", d.Title)

	blank := ""
	_, err = f.svc.Update(ctx, d.ID, UpdateInput{Title: &blank})
	require.ErrorIs(t, err, errs.ErrInvalidInput)

	_, err = f.svc.Update(ctx, "missing", UpdateInput{Title: &title})
	require.ErrorIs(t, err, ErrNotFound)
}

func TestAttachFileAndDownload(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	d, err := f.svc.Create(ctx, "Plan")
	require.NoError(t, err)
	_, err = f.svc.AddRevision(ctx, d.ID, "init", alice)
	require.NoError(t, err)

	d, err = f.svc.AttachFile(ctx, d.ID, 0, upload("Report.PDF", "%PDF-1.4"), alice)
	require.NoError(t, err)
	require.True(t, d.Revisions[0].HasFile())
	assert.Equal(t, ".pdf", *d.Revisions[0].FileExtension)
	assert.Len(t, *d.Revisions[0].Filename, 32)

	rf, err := f.svc.OpenRevisionFile(ctx, d.ID, 0)
	require.NoError(t, err)
	assert.Equal(t, "%PDF-1.4", readAll(t, rf.Body))
	assert.Equal(t, "Plan_revision_1_alice.pdf", rf.DownloadName("alice"))

	// write-once
	_, err = f.svc.AttachFile(ctx, d.ID, 0, upload("other.pdf", "x"), alice)
	require.ErrorIs(t, err, document.ErrRevisionHasFile)
	rf, err = f.svc.OpenRevisionFile(ctx, d.ID, 0)
	require.NoError(t, err)
	assert.Equal(t, "%PDF-1.4", readAll(t, rf.Body))
}

func TestAttachFile_Rejections(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	d, err := f.svc.Create(ctx, "Plan")
	require.NoError(t, err)
	_, err = f.svc.AddRevision(ctx, d.ID, "init", alice)
	require.NoError(t, err)

	_, err = f.svc.AttachFile(ctx, d.ID, 0, upload("script.exe", "MZ"), alice)
	require.ErrorIs(t, err, ErrInvalidExtension)
	require.ErrorIs(t, err, errs.ErrInvalidInput)

	_, err = f.svc.AttachFile(ctx, d.ID, 0, upload("big.docx", strings.Repeat("a", 1025)), alice)
	require.ErrorIs(t, err, ErrFileTooLarge)

	_, err = f.svc.AttachFile(ctx, d.ID, 4, upload("a.xls", "x"), alice)
	require.ErrorIs(t, err, document.ErrInvalidRevision)

	_, err = f.svc.AttachFile(ctx, "missing", 0, upload("a.xls", "x"), alice)
	require.ErrorIs(t, err, ErrNotFound)

	stored, err := f.docs.Get(ctx, d.ID)
	require.NoError(t, err)
	assert.False(t, stored.Revisions[0].HasFile())
}

func TestOpenRevisionFile_NoFile(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	d, err := f.svc.Create(ctx, "Plan")
	require.NoError(t, err)
	_, err = f.svc.AddRevision(ctx, d.ID, "init", alice)
	require.NoError(t, err)

	_, err = f.svc.OpenRevisionFile(ctx, d.ID, 0)
	require.ErrorIs(t, err, ErrNoFile)
	_, err = f.svc.OpenRevisionFile(ctx, d.ID, 1)
	require.ErrorIs(t, err, document.ErrInvalidRevision)
}

func TestDeleteRevision_RemovesFile(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	d, err := f.svc.Create(ctx, "Plan")
	require.NoError(t, err)
	_, err = f.svc.AddRevision(ctx, d.ID, "init", alice)
	require.NoError(t, err)
	d, err = f.svc.AttachFile(ctx, d.ID, 0, upload("a.doc", "data"), alice)
	require.NoError(t, err)
	key := *d.Revisions[0].Filename

	require.NoError(t, f.svc.DeleteRevision(ctx, d.ID, 0, alice))
	_, err = f.files.DownloadFile(ctx, key)
	require.ErrorIs(t, err, storage.ErrNotFound)
}

func TestDelete_CascadesCommentsAndFiles(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	d, err := f.svc.Create(ctx, "Plan")
	require.NoError(t, err)
	_, err = f.svc.AddRevision(ctx, d.ID, "init", alice)
	require.NoError(t, err)
	d, err = f.svc.AttachFile(ctx, d.ID, 0, upload("a.tif", "II*"), alice)
	require.NoError(t, err)
	key := *d.Revisions[0].Filename
	_, err = f.svc.AddComment(ctx, d.ID, alice.ID, "looks good")
	require.NoError(t, err)

	other, err := f.svc.Create(ctx, "Other")
	require.NoError(t, err)
	_, err = f.svc.AddComment(ctx, other.ID, alice.ID, "keep me")
	require.NoError(t, err)

	require.NoError(t, f.svc.Delete(ctx, d.ID))

	_, err = f.svc.Get(ctx, d.ID)
	require.ErrorIs(t, err, ErrNotFound)
	left, err := f.comments.ListByDocument(ctx, d.ID)
	require.NoError(t, err)
	assert.Empty(t, left)
	kept, err := f.comments.ListByDocument(ctx, other.ID)
	require.NoError(t, err)
	assert.Len(t, kept, 1)
	_, err = f.files.DownloadFile(ctx, key)
	require.ErrorIs(t, err, storage.ErrNotFound)

	require.ErrorIs(t, f.svc.Delete(ctx, d.ID), ErrNotFound)
}

type failingCommentRepo struct {
	*repository.MemoryCommentRepo
}

func (failingCommentRepo) DeleteByDocument(context.Context, string) (int64, error) {
	return 0, errors.New("mongo down")
}

func TestDelete_CascadeFailureIsCountedNotReturned(t *testing.T) {
	files, err := storage.NewDiskStorage(t.TempDir())
	require.NoError(t, err)
	svc := New(repository.NewMemoryRepo(), failingCommentRepo{repository.NewMemoryCommentRepo()}, files, Options{})
	ctx := context.Background()
	before := testutil.ToFloat64(metrics.CleanupFailures.WithLabelValues("comments"))

	d, err := svc.Create(ctx, "Plan")
	require.NoError(t, err)
	require.NoError(t, svc.Delete(ctx, d.ID))
	assert.Equal(t, before+1, testutil.ToFloat64(metrics.CleanupFailures.WithLabelValues("comments")))
}

type failingSaveRepo struct {
	*repository.MemoryRepo
	fail bool
}

func (r *failingSaveRepo) Save(ctx context.Context, d *document.Document) error {
	if r.fail {
		return errors.New("write conflict")
	}
	return r.MemoryRepo.Save(ctx, d)
}

func TestAttachFile_SaveFailureRemovesBlob(t *testing.T) {
	dir := t.TempDir()
	files, err := storage.NewDiskStorage(dir)
	require.NoError(t, err)
	docs := &failingSaveRepo{MemoryRepo: repository.NewMemoryRepo()}
	svc := New(docs, repository.NewMemoryCommentRepo(), files, Options{})
	ctx := context.Background()

	d, err := svc.Create(ctx, "Plan")
	require.NoError(t, err)
	_, err = svc.AddRevision(ctx, d.ID, "init", alice)
	require.NoError(t, err)

	docs.fail = true
	_, err = svc.AttachFile(ctx, d.ID, 0, upload("a.pdf", "data"), alice)
	require.Error(t, err)

	entries, err := readDirNames(dir)
	require.NoError(t, err)
	assert.Empty(t, entries)

	stored, err := docs.Get(ctx, d.ID)
	require.NoError(t, err)
	assert.False(t, stored.Revisions[0].HasFile())
}

func TestComments(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	d, err := f.svc.Create(ctx, "Plan")
	require.NoError(t, err)

	c, err := f.svc.AddComment(ctx, d.ID, alice.ID, "first")
	require.NoError(t, err)
	assert.Equal(t, d.ID, c.DocumentID)

	_, err = f.svc.AddComment(ctx, d.ID, alice.ID, strings.Repeat("x", 21))
	require.ErrorIs(t, err, errs.ErrInvalidInput)
	_, err = f.svc.AddComment(ctx, d.ID, alice.ID, "   ")
	require.ErrorIs(t, err, errs.ErrInvalidInput)
	_, err = f.svc.AddComment(ctx, "missing", alice.ID, "hi")
	require.ErrorIs(t, err, ErrNotFound)

	got, err := f.svc.Get(ctx, d.ID)
	require.NoError(t, err)
	require.Len(t, got.Comments, 1)
	assert.Equal(t, "first", got.Comments[0].Body)
	assert.Equal(t, []string{c.ID}, got.Document.Comments)

	list, err := f.svc.ListComments(ctx, d.ID)
	require.NoError(t, err)
	assert.Len(t, list, 1)

	other, err := f.svc.Create(ctx, "Other")
	require.NoError(t, err)
	require.ErrorIs(t, f.svc.DeleteComment(ctx, other.ID, c.ID), ErrNotFound)

	require.NoError(t, f.svc.DeleteComment(ctx, d.ID, c.ID))
	stored, err := f.docs.Get(ctx, d.ID)
	require.NoError(t, err)
	assert.Empty(t, stored.Comments)
	require.ErrorIs(t, f.svc.DeleteComment(ctx, d.ID, c.ID), ErrNotFound)
}

func TestConcurrentAddRevision(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	d, err := f.svc.Create(ctx, "Plan")
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.svc.AddRevision(ctx, d.ID, "rev", alice)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	stored, err := f.docs.Get(ctx, d.ID)
	require.NoError(t, err)
	assert.Len(t, stored.Revisions, 20)
	assert.Equal(t, 19, stored.CurrentRevision)
	assert.Equal(t, 0, f.svc.locks.size())
}
