package model

import (
	"fmt"
	"time"
)

// Sentinels for articles that are not attached to a folder or a parent.
const (
	NoFolder int64 = -1
	NoParent int64 = 0
)

type Status int

const (
	StatusEmpty Status = iota
	StatusNew
	StatusUpdated
)

func (s Status) String() string {
	switch s {
	case StatusEmpty:
		return "empty"
	case StatusNew:
		return "new"
	case StatusUpdated:
		return "updated"
	default:
		return fmt.Sprintf("status(%d)", int(s))
	}
}

// ParseStatus is the inverse of Status.String.
func ParseStatus(s string) (Status, error) {
	switch s {
	case "", "empty":
		return StatusEmpty, nil
	case "new":
		return StatusNew, nil
	case "updated":
		return StatusUpdated, nil
	default:
		return StatusEmpty, fmt.Errorf("unknown article status %q", s)
	}
}

// Article is a single feed item. Optional fields are nil when absent.
// The GUID is fixed at construction.
type Article struct {
	guid string

	title     *string
	author    *string
	link      *string
	body      *string
	enclosure *string

	hasEnclosure        bool
	enclosureDownloaded bool

	lastUpdate      *time.Time
	publicationDate *time.Time

	folderID int64
	parentID int64
	status   Status

	isRead    bool
	isRevised bool
	isDeleted bool
	isFlagged bool
}

func NewArticle(guid string) *Article {
	return &Article{
		guid:     guid,
		folderID: NoFolder,
		parentID: NoParent,
		status:   StatusEmpty,
	}
}

func (a *Article) GUID() string { return a.guid }

func (a *Article) Title() *string { return a.title }
func (a *Article) SetTitle(v *string) { a.title = v }

func (a *Article) Author() *string { return a.author }
func (a *Article) SetAuthor(v *string) { a.author = v }

// Link is stored verbatim; canonicalisation happens at render time.
func (a *Article) Link() *string { return a.link }
func (a *Article) SetLink(v *string) { a.link = v }

func (a *Article) Body() *string { return a.body }
func (a *Article) SetBody(v *string) { a.body = v }

func (a *Article) Enclosure() *string { return a.enclosure }
func (a *Article) SetEnclosure(v *string) { a.enclosure = v }

// HasEnclosure is tracked independently of Enclosure.
func (a *Article) HasEnclosure() bool { return a.hasEnclosure }
func (a *Article) SetHasEnclosure(v bool) { a.hasEnclosure = v }

func (a *Article) EnclosureDownloaded() bool { return a.enclosureDownloaded }
func (a *Article) SetEnclosureDownloaded(v bool) { a.enclosureDownloaded = v }

func (a *Article) LastUpdate() *time.Time { return a.lastUpdate }
func (a *Article) SetLastUpdate(v *time.Time) { a.lastUpdate = v }

func (a *Article) PublicationDate() *time.Time { return a.publicationDate }
func (a *Article) SetPublicationDate(v *time.Time) { a.publicationDate = v }

func (a *Article) FolderID() int64 { return a.folderID }
func (a *Article) SetFolderID(v int64) { a.folderID = v }

func (a *Article) ParentID() int64 { return a.parentID }
func (a *Article) SetParentID(v int64) { a.parentID = v }

func (a *Article) Status() Status { return a.status }
func (a *Article) SetStatus(v Status) { a.status = v }

func (a *Article) IsRead() bool { return a.isRead }
func (a *Article) SetRead(v bool) { a.isRead = v }
func (a *Article) IsRevised() bool { return a.isRevised }
func (a *Article) SetRevised(v bool) { a.isRevised = v }
func (a *Article) IsDeleted() bool { return a.isDeleted }
func (a *Article) SetDeleted(v bool) { a.isDeleted = v }
func (a *Article) IsFlagged() bool { return a.isFlagged }
func (a *Article) SetFlagged(v bool) { a.isFlagged = v }

// String returns the description used in logs, e.g.
// {GUID=abc title="Hello"}.
func (a *Article) String() string {
	return fmt.Sprintf("{GUID=%s title=\"%s\"}", a.guid, StrValue(a.title))
}

// StrValue dereferences an optional string, mapping nil to "".
func StrValue(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func Ptr[T any](v T) *T {
	return &v
}
