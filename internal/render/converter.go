// Package render expands $Tag$ templates with article values and builds
// the HTML document shown for one or more articles.
package render

import (
	"fmt"
	"html"
	"strings"

	"vienna-cli/internal/model"
)

const DefaultDateLayout = "2006-01-02 15:04"

// DefaultTemplate is used by ArticleText when no template is configured.
const DefaultTemplate = `<div class="articleTitleStyle"><a class="articleTitleStyle" href="$ArticleLink$">$ArticleTitle$</a></div>
<!-- cond:noblank --><div class="articleSubtextStyle">$ArticleDate$ $ArticleAuthor$</div><!-- end -->
<div class="articleBodyStyle">$ArticleBody$</div>
<!-- cond:noblank --><div class="articleEnclosureStyle"><a href="$ArticleEnclosureLink$">$ArticleEnclosureFilename$</a></div><!-- end -->
`

const (
	condStart = "cond:noblank"
	condEnd   = "end"
	separator = "<hr><br />"
)

// FolderSource resolves the folder an article belongs to. The article store
// implements it; a nil source leaves the feed tags blank.
type FolderSource interface {
	Folder(id int64) (*model.Folder, bool)
}

type Options struct {
	Template      string
	StylesheetURL string
	ScriptURL     string
	DateLayout    string
	Folders       FolderSource
}

// Converter is immutable after construction and safe for concurrent use.
type Converter struct {
	template      string
	stylesheetURL string
	scriptURL     string
	dateLayout    string
	folders       FolderSource
}

func NewConverter(opts Options) *Converter {
	c := &Converter{
		template:      opts.Template,
		stylesheetURL: opts.StylesheetURL,
		scriptURL:     opts.ScriptURL,
		dateLayout:    opts.DateLayout,
		folders:       opts.Folders,
	}
	if c.template == "" {
		c.template = DefaultTemplate
	}
	if c.dateLayout == "" {
		c.dateLayout = DefaultDateLayout
	}
	return c
}

// ExpandTags substitutes every known $Tag$ in tmpl with the article's raw
// value. Unknown tags are left in place and absent fields expand to "".
// With conditional set, a fragment whose known tags all expand to blank
// text is dropped entirely. For an article with no author,
// "<p>$ArticleAuthor$</p>" expands to "<p></p>" when conditional is false
// and to "" when it is true.
func (c *Converter) ExpandTags(article *model.Article, tmpl string, conditional bool) string {
	e := &expansion{c: c, article: article}
	return e.expand(tmpl, conditional)
}

func (e *expansion) expand(tmpl string, conditional bool) string {
	var out strings.Builder
	hasTag := false
	allBlank := true

	rest := tmpl
	for {
		start := strings.IndexByte(rest, '$')
		if start < 0 {
			break
		}
		end := strings.IndexByte(rest[start+1:], '$')
		if end < 0 {
			break
		}
		end += start + 1

		fn, ok := tags[rest[start+1:end]]
		if !ok {
			// The closing '$' may open the next tag.
			out.WriteString(rest[:end])
			rest = rest[end:]
			continue
		}

		value := fn(e)
		out.WriteString(rest[:start])
		out.WriteString(value)
		rest = rest[end+1:]

		hasTag = true
		if strings.TrimSpace(value) != "" {
			allBlank = false
		}
	}
	out.WriteString(rest)

	if conditional && hasTag && allBlank {
		return ""
	}
	return out.String()
}

// ArticleText renders articles, in order, into one HTML document.
// Article links are canonicalised so that IDN and percent-encoded
// spellings of the same URL produce identical output.
func (c *Converter) ArticleText(articles []*model.Article) string {
	var out strings.Builder

	out.WriteString(`<!DOCTYPE html><html><head><meta http-equiv="Content-Type" content="text/html; charset=UTF-8">`)
	if c.stylesheetURL != "" {
		fmt.Fprintf(&out, `<link rel="stylesheet" type="text/css" href="%s"/>`, html.EscapeString(c.stylesheetURL))
	}
	if c.scriptURL != "" {
		fmt.Fprintf(&out, `<script type="text/javascript" src="%s"></script>`, html.EscapeString(c.scriptURL))
	}
	out.WriteString(`<meta http-equiv="Pragma" content="no-cache">`)

	title := ""
	if len(articles) > 0 && articles[0] != nil {
		title = html.EscapeString(model.StrValue(articles[0].Title()))
	}
	fmt.Fprintf(&out, "<title>%s</title></head><body>", title)

	written := 0
	for _, article := range articles {
		if article == nil {
			continue
		}
		if written > 0 {
			out.WriteString(separator)
		}
		out.WriteString(c.renderArticle(article))
		written++
	}

	out.WriteString("</body></html>")
	return out.String()
}

// renderArticle expands the HTML template for one article. Sections between
// <!-- cond:noblank --> and <!-- end --> vanish when all their tags are
// blank; every other comment is dropped. An unterminated "<!--" is kept as
// text and the rest of the template is still expanded.
func (c *Converter) renderArticle(article *model.Article) string {
	e := &expansion{c: c, article: article, document: true}

	var out strings.Builder
	stripIfBlank := false

	rest := c.template
	for rest != "" {
		i := strings.Index(rest, "<!--")
		if i < 0 {
			out.WriteString(e.expand(rest, stripIfBlank))
			break
		}
		j := strings.Index(rest[i+len("<!--"):], "-->")
		if j < 0 {
			out.WriteString(e.expand(rest, stripIfBlank))
			break
		}

		out.WriteString(e.expand(rest[:i], stripIfBlank))
		rest = rest[i+len("<!--"):]
		switch strings.TrimSpace(rest[:j]) {
		case condStart:
			stripIfBlank = true
		case condEnd:
			stripIfBlank = false
		}
		rest = rest[j+len("-->"):]
	}

	return out.String()
}
