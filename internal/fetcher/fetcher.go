package fetcher

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-shiori/go-readability"

	"vienna-cli/internal/db"
	"vienna-cli/internal/model"
)

const (
	defaultTimeout   = 20 * time.Second
	defaultUserAgent = "vienna-cli/1.0"
)

var ErrNoLink = errors.New("article has no link")

type Fetcher struct {
	db        *db.DB
	client    *http.Client
	logger    *slog.Logger
	userAgent string
	delay     time.Duration
	now       func() time.Time
}

type Options struct {
	Timeout   time.Duration
	Delay     time.Duration
	UserAgent string
	// Client replaces the default HTTP client; Timeout is then ignored.
	Client *http.Client
}

type FetchOptions struct {
	GUIDs           []string
	FolderID        *int64
	Limit           int
	PreferExtracted bool
}

type FetchResult struct {
	Fetched int
	Failed  int
}

func New(database *db.DB, opts Options, logger *slog.Logger) *Fetcher {
	if logger == nil {
		logger = slog.Default()
	}

	client := opts.Client
	if client == nil {
		timeout := opts.Timeout
		if timeout <= 0 {
			timeout = defaultTimeout
		}
		client = &http.Client{Timeout: timeout}
	}

	userAgent := opts.UserAgent
	if userAgent == "" {
		userAgent = defaultUserAgent
	}

	return &Fetcher{
		db:        database,
		client:    client,
		logger:    logger,
		userAgent: userAgent,
		delay:     opts.Delay,
		now:       time.Now,
	}
}

// FetchArticles downloads the full text of stored articles that have a link
// but no body. A failed article is logged and counted; the batch goes on.
func (f *Fetcher) FetchArticles(ctx context.Context, opts FetchOptions) (*FetchResult, error) {
	articles, err := f.db.ListArticles(db.ArticleFilter{
		GUIDs:       opts.GUIDs,
		FolderID:    opts.FolderID,
		MissingBody: true,
		Limit:       opts.Limit,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get candidate articles: %w", err)
	}

	f.logger.Info("found articles to fetch", "count", len(articles))

	result := &FetchResult{}
	for i, article := range articles {
		if i > 0 && f.delay > 0 {
			select {
			case <-ctx.Done():
				return result, ctx.Err()
			case <-time.After(f.delay):
			}
		}
		if err := ctx.Err(); err != nil {
			return result, err
		}

		f.logger.Debug("fetching article", "n", i+1, "total", len(articles), "link", model.StrValue(article.Link()))

		if err := f.FetchArticle(ctx, article, opts.PreferExtracted); err != nil {
			f.logger.Warn("failed to fetch article", "guid", article.GUID(), "error", err)
			result.Failed++
			continue
		}
		result.Fetched++
	}

	f.logger.Info("fetch completed", "fetched", result.Fetched, "failed", result.Failed)
	return result, nil
}

// FetchArticle extracts the readable content behind the article's link,
// stores it as the body and stamps lastUpdate.
func (f *Fetcher) FetchArticle(ctx context.Context, article *model.Article, preferExtracted bool) error {
	link := strings.TrimSpace(model.StrValue(article.Link()))
	if link == "" {
		return ErrNoLink
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, link, nil)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}

	req.Header.Set("User-Agent", f.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-US,en;q=0.5")

	resp, err := f.client.Do(req)
	if err != nil {
		return fmt.Errorf("network error: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status: %s", resp.Status)
	}

	extracted, err := readability.FromReader(resp.Body, resp.Request.URL)
	if err != nil {
		return fmt.Errorf("readability error: %w", err)
	}

	content := strings.TrimSpace(extracted.Content)
	if content == "" {
		return errors.New("no readable content")
	}

	article.SetBody(&content)
	if extracted.Title != "" && (preferExtracted || model.StrValue(article.Title()) == "") {
		title := extracted.Title
		article.SetTitle(&title)
	}
	now := f.now().UTC()
	article.SetLastUpdate(&now)

	if err := f.db.SaveArticle(article); err != nil {
		return fmt.Errorf("failed to update article: %w", err)
	}

	f.logger.Info("fetched article", "guid", article.GUID(), "title", model.StrValue(article.Title()))
	return nil
}
