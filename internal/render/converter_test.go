package render

import (
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vienna-cli/internal/model"
)

const (
	guid      = "07f446d2-8d6b-4d99-b488-cebc9eac7c33"
	title     = "Lorem ipsum dolor sit amet"
	author    = "Author McAuthorface"
	link      = "http://www.vienna-rss.com"
	enclosure = "http://vienna-rss.sourceforge.net/img/vienna_logo.png"
	body      = `<p><strong>Pellentesque habitant morbi tristique</strong> senectus et netus
et malesuada fames ac turpis egestas. <a href="#">Donec non enim</a> in turpis.</p>`
)

type folderMap map[int64]*model.Folder

func (m folderMap) Folder(id int64) (*model.Folder, bool) {
	f, ok := m[id]
	return f, ok
}

func TestExpandTags_Tokens(t *testing.T) {
	a := model.NewArticle(guid)
	a.SetTitle(model.Ptr(title))
	a.SetAuthor(model.Ptr(author))
	a.SetLink(model.Ptr(link))
	a.SetBody(model.Ptr(body))
	a.SetEnclosure(model.Ptr(enclosure))

	c := NewConverter(Options{})

	tests := []struct {
		name     string
		template string
		want     string
	}{
		{"link with suffix", "$ArticleLink$/development", link + "/development"},
		{"title", "$ArticleTitle$", title},
		{"body", "$ArticleBody$", body},
		{"author", "$ArticleAuthor$", author},
		{"enclosure link", "$ArticleEnclosureLink$", enclosure},
		{"enclosure filename", "$ArticleEnclosureFilename$", "vienna_logo.png"},
		{"guid", "$ArticleGUID$", guid},
		{"surrounding text", "<h1>$ArticleTitle$</h1>", "<h1>" + title + "</h1>"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, c.ExpandTags(a, tt.template, true))
		})
	}
}

func TestExpandTags_EnclosureFilenameIgnoresQuery(t *testing.T) {
	a := model.NewArticle(guid)
	a.SetEnclosure(model.Ptr("https://cdn.example.com/pod/ep-12.mp3?token=abc#t=30"))

	got := NewConverter(Options{}).ExpandTags(a, "$ArticleEnclosureFilename$", false)
	assert.Equal(t, "ep-12.mp3", got)
}

func TestExpandTags_UnknownTokensPassThrough(t *testing.T) {
	a := model.NewArticle(guid)
	a.SetTitle(model.Ptr(title))

	c := NewConverter(Options{})

	assert.Equal(t, "$Unknown$ "+title, c.ExpandTags(a, "$Unknown$ $ArticleTitle$", false))
	assert.Equal(t, "costs $5 and "+title, c.ExpandTags(a, "costs $5 and $ArticleTitle$", false))
	assert.Equal(t, "trailing $", c.ExpandTags(a, "trailing $", false))
}

func TestExpandTags_ValuesAreNotReexpanded(t *testing.T) {
	a := model.NewArticle(guid)
	a.SetTitle(model.Ptr("$ArticleGUID$"))

	assert.Equal(t, "$ArticleGUID$", NewConverter(Options{}).ExpandTags(a, "$ArticleTitle$", false))
}

func TestExpandTags_Conditional(t *testing.T) {
	c := NewConverter(Options{})
	empty := model.NewArticle(guid)

	assert.Equal(t, "", c.ExpandTags(empty, "<b>$ArticleAuthor$</b>", true))
	assert.Equal(t, "<b></b>", c.ExpandTags(empty, "<b>$ArticleAuthor$</b>", false))
	assert.Equal(t, "no tags", c.ExpandTags(empty, "no tags", true))

	withAuthor := model.NewArticle(guid)
	withAuthor.SetAuthor(model.Ptr(author))
	assert.Equal(t, "<b>"+author+" </b>", c.ExpandTags(withAuthor, "<b>$ArticleAuthor$ $ArticleTitle$</b>", true))
}

func TestExpandTags_Date(t *testing.T) {
	a := model.NewArticle(guid)
	c := NewConverter(Options{DateLayout: "2006-01-02"})

	assert.Equal(t, "", c.ExpandTags(a, "$ArticleDate$", false))

	updated := time.Date(2021, 3, 4, 0, 0, 0, 0, time.UTC)
	a.SetLastUpdate(&updated)
	assert.Equal(t, "2021-03-04", c.ExpandTags(a, "$ArticleDate$", false))

	published := time.Date(2020, 1, 2, 0, 0, 0, 0, time.UTC)
	a.SetPublicationDate(&published)
	assert.Equal(t, "2020-01-02", c.ExpandTags(a, "$ArticleDate$", false))
}

func TestExpandTags_FeedTags(t *testing.T) {
	folders := folderMap{
		3: {ID: 3, Name: "Vienna News", HomePage: model.Ptr("http://www.vienna-rss.com"), Description: model.Ptr("Release notes")},
	}
	c := NewConverter(Options{Folders: folders})

	a := model.NewArticle(guid)
	assert.Equal(t, "||", c.ExpandTags(a, "$FeedTitle$|$FeedLink$|$FeedDescription$", false))

	a.SetFolderID(3)
	assert.Equal(t, "Vienna News|http://www.vienna-rss.com|Release notes",
		c.ExpandTags(a, "$FeedTitle$|$FeedLink$|$FeedDescription$", false))
}

func TestArticleText_IDNLinksRenderIdentically(t *testing.T) {
	c := NewConverter(Options{})
	a := model.NewArticle(guid)

	a.SetLink(model.Ptr("http://ουτοπία.δπθ.gr/نجيب_محفوظ/"))
	fromIDN := c.ArticleText([]*model.Article{a})

	a.SetLink(model.Ptr("http://xn--kxae4bafwg.xn--pxaix.gr/%D9%86%D8%AC%D9%8A%D8%A8_%D9%85%D8%AD%D9%81%D9%88%D8%B8/"))
	fromASCII := c.ArticleText([]*model.Article{a})

	assert.Equal(t, fromIDN, fromASCII)
	assert.Contains(t, fromASCII, `href="http://xn--kxae4bafwg.xn--pxaix.gr/`)
}

func TestArticleText_Document(t *testing.T) {
	c := NewConverter(Options{
		StylesheetURL: "styles/default.css",
		ScriptURL:     "scripts/article.js",
	})

	first := model.NewArticle("a")
	first.SetTitle(model.Ptr("First & foremost"))
	first.SetBody(model.Ptr("<p>one</p>"))
	second := model.NewArticle("b")
	second.SetTitle(model.Ptr("Second"))
	second.SetBody(model.Ptr("<p>two</p>"))

	doc := c.ArticleText([]*model.Article{first, nil, second})

	require.True(t, strings.HasPrefix(doc, "<!DOCTYPE html><html><head>"))
	assert.True(t, strings.HasSuffix(doc, "</body></html>"))
	assert.Contains(t, doc, `<link rel="stylesheet" type="text/css" href="styles/default.css"/>`)
	assert.Contains(t, doc, `<script type="text/javascript" src="scripts/article.js"></script>`)
	assert.Contains(t, doc, "<title>First &amp; foremost</title>")
	assert.Equal(t, 1, strings.Count(doc, separator))
	assert.Less(t, strings.Index(doc, "<p>one</p>"), strings.Index(doc, "<p>two</p>"))
	assert.NotContains(t, doc, "<!--")
	assert.NotContains(t, doc, "articleEnclosureStyle", "blank enclosure section should be stripped")
}

func TestArticleText_ConditionalSections(t *testing.T) {
	tmpl := `<h1>$ArticleTitle$</h1><!-- cond:noblank --><p>by $ArticleAuthor$</p><!-- end --><!-- a plain comment --><div>$ArticleBody$</div>`
	c := NewConverter(Options{Template: tmpl})

	a := model.NewArticle(guid)
	a.SetTitle(model.Ptr("T"))
	a.SetBody(model.Ptr("B"))
	assert.Contains(t, c.ArticleText([]*model.Article{a}), "<body><h1>T</h1><div>B</div></body>")

	a.SetAuthor(model.Ptr("Ann"))
	assert.Contains(t, c.ArticleText([]*model.Article{a}), "<body><h1>T</h1><p>by Ann</p><div>B</div></body>")
}

func TestArticleText_UnterminatedComment(t *testing.T) {
	c := NewConverter(Options{Template: `<h1>$ArticleTitle$</h1><!-- note <div>$ArticleBody$</div>`})

	a := model.NewArticle(guid)
	a.SetTitle(model.Ptr("T"))
	a.SetBody(model.Ptr("B"))
	assert.Contains(t, c.ArticleText([]*model.Article{a}), "<body><h1>T</h1><!-- note <div>B</div></body>")
}

func TestArticleText_Empty(t *testing.T) {
	doc := NewConverter(Options{}).ArticleText(nil)
	assert.Contains(t, doc, "<title></title></head><body></body></html>")
}

func TestConverter_ConcurrentUse(t *testing.T) {
	c := NewConverter(Options{})

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			a := model.NewArticle(guid)
			a.SetLink(model.Ptr(link))
			assert.Equal(t, link+"/x", c.ExpandTags(a, "$ArticleLink$/x", true))
			assert.NotEmpty(t, c.ArticleText([]*model.Article{a}))
		}()
	}
	wg.Wait()
}
