package document

import "time"

// Revision is one versioned entry in a document's history. Filename and
// FileExtension are both nil until a file is attached, then both set.
type Revision struct {
	Message       string    `json:"message" bson:"message"`
	AuthorID      string    `json:"author" bson:"author"`
	CreatedAt     time.Time `json:"createdAt" bson:"createdAt"`
	Filename      *string   `json:"filename" bson:"filename"`
	FileExtension *string   `json:"fileExtension" bson:"fileExtension"`
}

// HasFile reports whether a file has been attached to the revision.
func (r Revision) HasFile() bool {
	return r.Filename != nil
}

// Document owns an ordered revision history and references its comments.
// CurrentRevision is -1 while Revisions is empty.
type Document struct {
	ID              string     `json:"id" bson:"_id"`
	Title           string     `json:"title" bson:"title"`
	Revisions       []Revision `json:"revisions" bson:"revisions"`
	CurrentRevision int        `json:"currentRevision" bson:"currentRevision"`
	Comments        []string   `json:"comments" bson:"comments"`
	CreatedAt       time.Time  `json:"createdAt" bson:"createdAt"`
	UpdatedAt       time.Time  `json:"updatedAt" bson:"updatedAt"`
}

// New returns an empty document with the given title.
func New(title string) *Document {
	return &Document{
		Title:           title,
		Revisions:       []Revision{},
		CurrentRevision: -1,
		Comments:        []string{},
	}
}

// Clone returns a deep copy so callers never share revision slices or file
// pointers with a repository's stored value.
func (d *Document) Clone() *Document {
	if d == nil {
		return nil
	}
	out := *d
	out.Revisions = make([]Revision, len(d.Revisions))
	for i, r := range d.Revisions {
		if r.Filename != nil {
			f := *r.Filename
			r.Filename = &f
		}
		if r.FileExtension != nil {
			e := *r.FileExtension
			r.FileExtension = &e
		}
		out.Revisions[i] = r
	}
	out.Comments = append([]string{}, d.Comments...)
	return &out
}

// Comment is a remark on a document. Document is a non-owning back-reference.
type Comment struct {
	ID         string    `json:"id" bson:"_id"`
	DocumentID string    `json:"document" bson:"document"`
	AuthorID   string    `json:"author" bson:"author"`
	Body       string    `json:"body" bson:"body"`
	CreatedAt  time.Time `json:"createdAt" bson:"createdAt"`
}
