package export

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	md "github.com/JohannesKaufmann/html-to-markdown"
	"gopkg.in/yaml.v3"

	"vienna-cli/internal/db"
	"vienna-cli/internal/model"
	"vienna-cli/internal/render"
	"vienna-cli/internal/rss"
	"vienna-cli/internal/util"
)

const (
	FormatHTML     = "html"
	FormatMarkdown = "markdown"
	FormatRSS      = "rss"
)

const maxFilenameLength = 120

type Export struct {
	db        *db.DB
	converter *render.Converter
	markdown  *md.Converter
	logger    *slog.Logger
	now       func() time.Time
}

type ExportOptions struct {
	Format    string
	Directory string
	// Output is the file written by the html and rss formats; "" means the
	// writer passed to Run.
	Output string
	Filter db.ArticleFilter

	FeedTitle       string
	FeedLink        string
	FeedDescription string
}

func New(database *db.DB, converter *render.Converter, logger *slog.Logger) *Export {
	if logger == nil {
		logger = slog.Default()
	}
	return &Export{
		db:        database,
		converter: converter,
		markdown:  md.NewConverter("", true, nil),
		logger:    logger,
		now:       time.Now,
	}
}

// Run exports the articles matching opts.Filter. Single-document formats go
// to opts.Output or stdout; markdown writes one file per article.
func (e *Export) Run(opts ExportOptions, stdout io.Writer) (int, error) {
	articles, err := e.db.ListArticles(opts.Filter)
	if err != nil {
		return 0, fmt.Errorf("failed to get articles: %w", err)
	}

	if len(articles) == 0 {
		e.logger.Info("no articles found matching criteria")
		return 0, nil
	}

	switch opts.Format {
	case FormatMarkdown:
		return e.Markdown(articles, opts.Directory)
	case FormatHTML, FormatRSS:
		return len(articles), e.writeDocument(articles, opts, stdout)
	default:
		return 0, fmt.Errorf("unsupported export format %q", opts.Format)
	}
}

func (e *Export) writeDocument(articles []*model.Article, opts ExportOptions, stdout io.Writer) error {
	w := stdout
	if opts.Output != "" {
		if dir := filepath.Dir(opts.Output); dir != "." {
			if err := os.MkdirAll(dir, 0755); err != nil {
				return fmt.Errorf("failed to create output directory: %w", err)
			}
		}
		file, err := os.Create(opts.Output)
		if err != nil {
			return fmt.Errorf("failed to create %s: %w", opts.Output, err)
		}
		defer file.Close()
		w = file
	}

	var err error
	if opts.Format == FormatRSS {
		err = e.RSS(articles, opts.FeedTitle, opts.FeedLink, opts.FeedDescription, w)
	} else {
		err = e.HTML(articles, w)
	}
	if err != nil {
		return err
	}

	if opts.Output != "" {
		e.logger.Info("exported articles", "count", len(articles), "path", opts.Output)
	}
	return nil
}

func (e *Export) HTML(articles []*model.Article, w io.Writer) error {
	if _, err := io.WriteString(w, e.converter.ArticleText(articles)); err != nil {
		return fmt.Errorf("failed to write HTML: %w", err)
	}
	return nil
}

func (e *Export) RSS(articles []*model.Article, title, link, description string, w io.Writer) error {
	if title == "" {
		title = "vienna-cli export"
	}
	return rss.NewFeed(title, link, description, articles, e.now()).Write(w)
}

// Markdown writes one file per article under baseDir, grouped into a
// sub-directory per folder. It returns the number of files written.
func (e *Export) Markdown(articles []*model.Article, baseDir string) (int, error) {
	e.logger.Info("exporting articles", "count", len(articles), "directory", baseDir)

	if err := os.MkdirAll(baseDir, 0755); err != nil {
		return 0, fmt.Errorf("failed to create export directory: %w", err)
	}

	written := 0
	for i, article := range articles {
		if err := e.exportSingleArticle(article, baseDir); err != nil {
			e.logger.Warn("failed to export article", "guid", article.GUID(), "error", err)
			continue
		}
		written++

		if (i+1)%10 == 0 {
			e.logger.Info("export progress", "done", i+1, "total", len(articles))
		}
	}

	e.logger.Info("export completed", "written", written)
	return written, nil
}

func (e *Export) exportSingleArticle(article *model.Article, baseDir string) error {
	folderName := e.folderName(article)

	content, err := e.buildMarkdownContent(article, folderName)
	if err != nil {
		return err
	}

	folderPath := baseDir
	if folderName != "" {
		folderPath = filepath.Join(baseDir, util.SlugifyTitle(folderName, 60))
		if err := os.MkdirAll(folderPath, 0755); err != nil {
			return fmt.Errorf("failed to create folder: %w", err)
		}
	}

	filePath := filepath.Join(folderPath, generateFilename(article))
	filePath = resolveFilenameCollision(filePath)

	if err := os.WriteFile(filePath, []byte(content), 0644); err != nil {
		return fmt.Errorf("failed to write file: %w", err)
	}

	return nil
}

func (e *Export) folderName(article *model.Article) string {
	folder, ok := e.db.Folder(article.FolderID())
	if !ok {
		return ""
	}
	return folder.Name
}

func (e *Export) buildMarkdownContent(article *model.Article, folderName string) (string, error) {
	frontMatter := model.FrontMatter{
		Title:      model.StrValue(article.Title()),
		Author:     model.StrValue(article.Author()),
		Link:       model.StrValue(article.Link()),
		GUID:       article.GUID(),
		Published:  article.PublicationDate(),
		ExportedAt: e.now().UTC(),
		Folder:     folderName,
	}

	yamlBytes, err := yaml.Marshal(frontMatter)
	if err != nil {
		return "", fmt.Errorf("failed to marshal frontmatter: %w", err)
	}

	var content strings.Builder

	content.WriteString("---\n")
	content.Write(yamlBytes)
	content.WriteString("---\n\n")

	body := model.StrValue(article.Body())
	if body == "" {
		content.WriteString(fmt.Sprintf("*Article content not yet fetched. Source: %s*\n", frontMatter.Link))
		return content.String(), nil
	}

	markdown, err := e.markdown.ConvertString(body)
	if err != nil {
		return "", fmt.Errorf("failed to convert body to markdown: %w", err)
	}
	content.WriteString(prettifyMarkdown(markdown))
	content.WriteString("\n")

	return content.String(), nil
}

func generateFilename(article *model.Article) string {
	return util.SafeFilename(model.StrValue(article.Title()), article.GUID(), maxFilenameLength) + ".md"
}

func resolveFilenameCollision(originalPath string) string {
	if _, err := os.Stat(originalPath); os.IsNotExist(err) {
		return originalPath
	}

	dir := filepath.Dir(originalPath)
	ext := filepath.Ext(originalPath)
	base := strings.TrimSuffix(filepath.Base(originalPath), ext)

	counter := 2
	for {
		newFilename := fmt.Sprintf("%s-%d%s", base, counter, ext)
		newPath := filepath.Join(dir, newFilename)

		if _, err := os.Stat(newPath); os.IsNotExist(err) {
			return newPath
		}

		counter++
		if counter > 100 {
			newFilename = fmt.Sprintf("%s-%d%s", base, time.Now().Unix(), ext)
			return filepath.Join(dir, newFilename)
		}
	}
}

// prettifyMarkdown collapses blank runs and drops tracking-pixel lines left
// over from extracted pages.
func prettifyMarkdown(markdown string) string {
	lines := strings.Split(markdown, "\n")
	var cleaned []string

	for _, line := range lines {
		line = strings.TrimRight(line, " \t")

		if strings.TrimSpace(line) == "" {
			if len(cleaned) > 0 && cleaned[len(cleaned)-1] != "" {
				cleaned = append(cleaned, "")
			}
			continue
		}

		if strings.Contains(line, "facebook.com/tr") ||
			strings.Contains(line, "google-analytics") ||
			strings.Contains(line, "googletagmanager") {
			continue
		}

		cleaned = append(cleaned, line)
	}

	return strings.TrimSpace(strings.Join(cleaned, "\n"))
}
