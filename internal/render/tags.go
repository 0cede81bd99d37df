package render

import (
	"html"

	"vienna-cli/internal/model"
)

// Template tokens, written as $Name$ in templates.
const (
	TagArticleLink              = "ArticleLink"
	TagArticleTitle             = "ArticleTitle"
	TagArticleBody              = "ArticleBody"
	TagArticleAuthor            = "ArticleAuthor"
	TagArticleDate              = "ArticleDate"
	TagArticleGUID              = "ArticleGUID"
	TagArticleEnclosureLink     = "ArticleEnclosureLink"
	TagArticleEnclosureFilename = "ArticleEnclosureFilename"
	TagFeedTitle                = "FeedTitle"
	TagFeedLink                 = "FeedLink"
	TagFeedDescription          = "FeedDescription"
)

// expansion carries per-call state. In document mode links are
// canonicalised and text values are HTML-escaped; the body never is.
type expansion struct {
	c        *Converter
	article  *model.Article
	document bool
}

func (e *expansion) text(s string) string {
	if e.document {
		return html.EscapeString(s)
	}
	return s
}

func (e *expansion) link(s string) string {
	if e.document && s != "" {
		return html.EscapeString(CanonicalLink(s))
	}
	return s
}

func (e *expansion) folder() *model.Folder {
	if e.c.folders == nil {
		return nil
	}
	f, ok := e.c.folders.Folder(e.article.FolderID())
	if !ok {
		return nil
	}
	return f
}

type tagFunc func(e *expansion) string

var tags = map[string]tagFunc{
	TagArticleLink: func(e *expansion) string {
		return e.link(model.StrValue(e.article.Link()))
	},
	TagArticleTitle: func(e *expansion) string {
		return e.text(model.StrValue(e.article.Title()))
	},
	TagArticleBody: func(e *expansion) string {
		return model.StrValue(e.article.Body())
	},
	TagArticleAuthor: func(e *expansion) string {
		return e.text(model.StrValue(e.article.Author()))
	},
	TagArticleDate: func(e *expansion) string {
		d := e.article.PublicationDate()
		if d == nil {
			d = e.article.LastUpdate()
		}
		if d == nil {
			return ""
		}
		return e.text(d.Format(e.c.dateLayout))
	},
	TagArticleGUID: func(e *expansion) string {
		return e.text(e.article.GUID())
	},
	TagArticleEnclosureLink: func(e *expansion) string {
		return e.link(model.StrValue(e.article.Enclosure()))
	},
	TagArticleEnclosureFilename: func(e *expansion) string {
		return e.text(EnclosureFilename(model.StrValue(e.article.Enclosure())))
	},
	TagFeedTitle: func(e *expansion) string {
		if f := e.folder(); f != nil {
			return e.text(f.Name)
		}
		return ""
	},
	TagFeedLink: func(e *expansion) string {
		if f := e.folder(); f != nil {
			return e.link(model.StrValue(f.HomePage))
		}
		return ""
	},
	TagFeedDescription: func(e *expansion) string {
		if f := e.folder(); f != nil {
			return e.text(model.StrValue(f.Description))
		}
		return ""
	},
}
