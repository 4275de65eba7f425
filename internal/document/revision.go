package document

import (
	"errors"
	"fmt"
	"time"

	"github.com/progreview/progreview-api/internal/errs"
)

var (
	// ErrInvalidRevision is returned for an index outside the revision sequence.
	ErrInvalidRevision = errors.New("invalid revision index")
	// ErrRevisionHasFile is returned when a file is attached to a revision that already has one.
	ErrRevisionHasFile = fmt.Errorf("revision already has a file: %w", errs.ErrConflict)
)

// now is swapped in tests.
var now = func() time.Time { return time.Now().UTC() }

// ValidRevision reports whether index addresses an existing revision.
func (d *Document) ValidRevision(index int) bool {
	return index >= 0 && index < len(d.Revisions)
}

// AddRevision appends an empty revision authored by authorID and makes it current.
// The file is attached later with AttachFile.
func (d *Document) AddRevision(message, authorID string) {
	d.Revisions = append(d.Revisions, Revision{
		Message:   message,
		AuthorID:  authorID,
		CreatedAt: now(),
	})
	d.CurrentRevision = len(d.Revisions) - 1
}

// SetRevision moves the current pointer to index. It returns false, leaving
// the pointer untouched, when index is out of range.
func (d *Document) SetRevision(index int) bool {
	if !d.ValidRevision(index) {
		return false
	}
	d.CurrentRevision = index
	return true
}

// DeleteRevision removes the revision at index and returns it so the caller
// can remove its file. A pointer above index shifts down with its revision;
// a pointer at index is clamped to the last remaining revision.
func (d *Document) DeleteRevision(index int) (Revision, error) {
	if !d.ValidRevision(index) {
		return Revision{}, ErrInvalidRevision
	}
	removed := d.Revisions[index]
	d.Revisions = append(d.Revisions[:index], d.Revisions[index+1:]...)

	switch {
	case len(d.Revisions) == 0:
		d.CurrentRevision = -1
	case d.CurrentRevision > index:
		d.CurrentRevision--
	case d.CurrentRevision == index:
		d.CurrentRevision = len(d.Revisions) - 1
	}
	if d.CurrentRevision >= len(d.Revisions) {
		d.CurrentRevision = len(d.Revisions) - 1
	}
	return removed, nil
}

// AttachFile records the stored filename and extension on the revision at
// index. Files are write-once: a revision that already has one is rejected
// without modification.
func (d *Document) AttachFile(index int, filename, extension string) error {
	if !d.ValidRevision(index) {
		return ErrInvalidRevision
	}
	rev := &d.Revisions[index]
	if rev.HasFile() {
		return ErrRevisionHasFile
	}
	rev.Filename = &filename
	rev.FileExtension = &extension
	return nil
}

// Current returns the current revision, or false when there is none.
func (d *Document) Current() (Revision, bool) {
	if !d.ValidRevision(d.CurrentRevision) {
		return Revision{}, false
	}
	return d.Revisions[d.CurrentRevision], true
}
