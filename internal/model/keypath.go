package model

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// KeyPathNamespace prefixes legacy key-paths, e.g. "articleData.subject".
const KeyPathNamespace = "articleData"

// Legacy persisted field names.
const (
	FieldGUID            = "guid"
	FieldLastUpdate      = "lastUpdate"
	FieldAuthor          = "author"
	FieldSubject         = "subject"
	FieldLink            = "link"
	FieldSummary         = "summary"
	FieldTitle           = "title"
	FieldBody            = "body"
	FieldEnclosure       = "enclosure"
	FieldPublicationDate = "publicationDate"
	FieldFolderID        = "folderId"
	FieldParentID        = "parentId"
	FieldRead            = "isRead"
	FieldFlagged         = "isFlagged"
	FieldDeleted         = "isDeleted"
	FieldStatus          = "status"
)

var (
	ErrUnknownField  = errors.New("unknown article field")
	ErrReadOnlyField = errors.New("read-only article field")
	ErrFieldType     = errors.New("wrong value type for article field")
)

type fieldAccessor struct {
	get func(a *Article) any
	set func(a *Article, v any) error
}

func stringField(get func(*Article) *string, set func(*Article, *string)) fieldAccessor {
	return fieldAccessor{
		get: func(a *Article) any {
			if v := get(a); v != nil {
				return *v
			}
			return nil
		},
		set: func(a *Article, v any) error {
			switch s := v.(type) {
			case nil:
				set(a, nil)
			case string:
				set(a, &s)
			case *string:
				set(a, s)
			default:
				return ErrFieldType
			}
			return nil
		},
	}
}

func timeField(get func(*Article) *time.Time, set func(*Article, *time.Time)) fieldAccessor {
	return fieldAccessor{
		get: func(a *Article) any {
			if v := get(a); v != nil {
				return *v
			}
			return nil
		},
		set: func(a *Article, v any) error {
			switch t := v.(type) {
			case nil:
				set(a, nil)
			case time.Time:
				set(a, &t)
			case *time.Time:
				set(a, t)
			default:
				return ErrFieldType
			}
			return nil
		},
	}
}

func boolField(get func(*Article) bool, set func(*Article, bool)) fieldAccessor {
	return fieldAccessor{
		get: func(a *Article) any { return get(a) },
		set: func(a *Article, v any) error {
			b, ok := v.(bool)
			if !ok {
				return ErrFieldType
			}
			set(a, b)
			return nil
		},
	}
}

func intField(get func(*Article) int64, set func(*Article, int64)) fieldAccessor {
	return fieldAccessor{
		get: func(a *Article) any { return get(a) },
		set: func(a *Article, v any) error {
			switch n := v.(type) {
			case int:
				set(a, int64(n))
			case int64:
				set(a, n)
			default:
				return ErrFieldType
			}
			return nil
		},
	}
}

// legacyFields is keyed by lower-cased field name.
var legacyFields = map[string]fieldAccessor{
	strings.ToLower(FieldGUID): {
		get: func(a *Article) any { return a.GUID() },
	},
	strings.ToLower(FieldLastUpdate):      timeField((*Article).LastUpdate, (*Article).SetLastUpdate),
	strings.ToLower(FieldPublicationDate): timeField((*Article).PublicationDate, (*Article).SetPublicationDate),
	strings.ToLower(FieldAuthor):          stringField((*Article).Author, (*Article).SetAuthor),
	strings.ToLower(FieldSubject):         stringField((*Article).Title, (*Article).SetTitle),
	strings.ToLower(FieldTitle):           stringField((*Article).Title, (*Article).SetTitle),
	strings.ToLower(FieldLink):            stringField((*Article).Link, (*Article).SetLink),
	strings.ToLower(FieldSummary):         stringField((*Article).Body, (*Article).SetBody),
	strings.ToLower(FieldBody):            stringField((*Article).Body, (*Article).SetBody),
	strings.ToLower(FieldEnclosure):       stringField((*Article).Enclosure, (*Article).SetEnclosure),
	strings.ToLower(FieldFolderID):        intField((*Article).FolderID, (*Article).SetFolderID),
	strings.ToLower(FieldParentID):        intField((*Article).ParentID, (*Article).SetParentID),
	strings.ToLower(FieldRead):            boolField((*Article).IsRead, (*Article).SetRead),
	strings.ToLower(FieldFlagged):         boolField((*Article).IsFlagged, (*Article).SetFlagged),
	strings.ToLower(FieldDeleted):         boolField((*Article).IsDeleted, (*Article).SetDeleted),
	strings.ToLower(FieldStatus): {
		get: func(a *Article) any { return a.Status() },
		set: func(a *Article, v any) error {
			switch s := v.(type) {
			case Status:
				a.SetStatus(s)
			case string:
				st, err := ParseStatus(s)
				if err != nil {
					return fmt.Errorf("%w: %v", ErrFieldType, err)
				}
				a.SetStatus(st)
			default:
				return ErrFieldType
			}
			return nil
		},
	},
}

func fieldName(keyPath string) string {
	name := strings.TrimPrefix(keyPath, KeyPathNamespace+".")
	return strings.ToLower(name)
}

// KnownField reports whether keyPath names a mapped legacy field.
func KnownField(keyPath string) bool {
	_, ok := legacyFields[fieldName(keyPath)]
	return ok
}

// Value reads a field through its legacy key-path. Absent optional fields
// and unknown names return (nil, false).
func (a *Article) Value(keyPath string) (any, bool) {
	acc, ok := legacyFields[fieldName(keyPath)]
	if !ok {
		return nil, false
	}
	v := acc.get(a)
	return v, v != nil
}

// SetValue writes a field through its legacy key-path. A nil value clears
// optional fields.
func (a *Article) SetValue(keyPath string, value any) error {
	acc, ok := legacyFields[fieldName(keyPath)]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownField, keyPath)
	}
	if acc.set == nil {
		return fmt.Errorf("%w: %s", ErrReadOnlyField, keyPath)
	}
	if err := acc.set(a, value); err != nil {
		return fmt.Errorf("set %s: %w", keyPath, err)
	}
	return nil
}
