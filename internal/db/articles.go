package db

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"vienna-cli/internal/model"
)

// timeLayout is fixed width so stored timestamps sort as text.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// articleRow is the storage shape of model.Article. Folder and parent
// sentinels become NULL here.
type articleRow struct {
	GUID                string        `db:"guid"`
	FolderID            sql.NullInt64 `db:"folder_id"`
	ParentID            sql.NullInt64 `db:"parent_id"`
	Title               *string       `db:"title"`
	Author              *string       `db:"author"`
	Link                *string       `db:"link"`
	Body                *string       `db:"body"`
	Enclosure           *string       `db:"enclosure"`
	HasEnclosure        bool          `db:"has_enclosure"`
	EnclosureDownloaded bool          `db:"enclosure_downloaded"`
	LastUpdate          *string       `db:"last_update"`
	PublicationDate     *string       `db:"publication_date"`
	Status              string        `db:"status"`
	IsRead              bool          `db:"is_read"`
	IsRevised           bool          `db:"is_revised"`
	IsDeleted           bool          `db:"is_deleted"`
	IsFlagged           bool          `db:"is_flagged"`
}

const articleColumns = `
	guid, folder_id, parent_id, title, author, link, body, enclosure,
	has_enclosure, enclosure_downloaded, last_update, publication_date,
	status, is_read, is_revised, is_deleted, is_flagged`

func formatTime(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := t.UTC().Format(timeLayout)
	return &s
}

// TimeString formats t the way article timestamps are stored, for range
// comparisons in hand-written queries.
func TimeString(t time.Time) string {
	return *formatTime(&t)
}

func parseTime(s *string) (*time.Time, error) {
	if s == nil || *s == "" {
		return nil, nil
	}
	t, err := time.Parse(timeLayout, *s)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func toRow(a *model.Article) articleRow {
	row := articleRow{
		GUID:                a.GUID(),
		Title:               a.Title(),
		Author:              a.Author(),
		Link:                a.Link(),
		Body:                a.Body(),
		Enclosure:           a.Enclosure(),
		HasEnclosure:        a.HasEnclosure(),
		EnclosureDownloaded: a.EnclosureDownloaded(),
		LastUpdate:          formatTime(a.LastUpdate()),
		PublicationDate:     formatTime(a.PublicationDate()),
		Status:              a.Status().String(),
		IsRead:              a.IsRead(),
		IsRevised:           a.IsRevised(),
		IsDeleted:           a.IsDeleted(),
		IsFlagged:           a.IsFlagged(),
	}
	if a.FolderID() != model.NoFolder {
		row.FolderID = sql.NullInt64{Int64: a.FolderID(), Valid: true}
	}
	if a.ParentID() != model.NoParent {
		row.ParentID = sql.NullInt64{Int64: a.ParentID(), Valid: true}
	}
	return row
}

func (r articleRow) toArticle() (*model.Article, error) {
	a := model.NewArticle(r.GUID)
	a.SetTitle(r.Title)
	a.SetAuthor(r.Author)
	a.SetLink(r.Link)
	a.SetBody(r.Body)
	a.SetEnclosure(r.Enclosure)
	a.SetHasEnclosure(r.HasEnclosure)
	a.SetEnclosureDownloaded(r.EnclosureDownloaded)
	a.SetRead(r.IsRead)
	a.SetRevised(r.IsRevised)
	a.SetDeleted(r.IsDeleted)
	a.SetFlagged(r.IsFlagged)

	if r.FolderID.Valid {
		a.SetFolderID(r.FolderID.Int64)
	}
	if r.ParentID.Valid {
		a.SetParentID(r.ParentID.Int64)
	}

	lastUpdate, err := parseTime(r.LastUpdate)
	if err != nil {
		return nil, fmt.Errorf("article %s: bad last_update: %w", r.GUID, err)
	}
	a.SetLastUpdate(lastUpdate)

	published, err := parseTime(r.PublicationDate)
	if err != nil {
		return nil, fmt.Errorf("article %s: bad publication_date: %w", r.GUID, err)
	}
	a.SetPublicationDate(published)

	status, err := model.ParseStatus(r.Status)
	if err != nil {
		return nil, fmt.Errorf("article %s: %w", r.GUID, err)
	}
	a.SetStatus(status)

	return a, nil
}

// SaveArticle inserts or replaces an article by GUID and refreshes its
// full-text entry.
func (db *DB) SaveArticle(a *model.Article) error {
	row := toRow(a)

	tx, err := db.Beginx()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.NamedExec(`
		INSERT INTO articles (`+articleColumns+`)
		VALUES (
			:guid, :folder_id, :parent_id, :title, :author, :link, :body, :enclosure,
			:has_enclosure, :enclosure_downloaded, :last_update, :publication_date,
			:status, :is_read, :is_revised, :is_deleted, :is_flagged
		)
		ON CONFLICT(guid) DO UPDATE SET
			folder_id = excluded.folder_id,
			parent_id = excluded.parent_id,
			title = excluded.title,
			author = excluded.author,
			link = excluded.link,
			body = excluded.body,
			enclosure = excluded.enclosure,
			has_enclosure = excluded.has_enclosure,
			enclosure_downloaded = excluded.enclosure_downloaded,
			last_update = excluded.last_update,
			publication_date = excluded.publication_date,
			status = excluded.status,
			is_read = excluded.is_read,
			is_revised = excluded.is_revised,
			is_deleted = excluded.is_deleted,
			is_flagged = excluded.is_flagged
	`, row)
	if err != nil {
		return fmt.Errorf("failed to save article %s: %w", a.GUID(), err)
	}

	if err := upsertArticleFTS(tx, row); err != nil {
		return err
	}

	return tx.Commit()
}

func upsertArticleFTS(tx *sqlx.Tx, row articleRow) error {
	if _, err := tx.Exec("DELETE FROM articles_fts WHERE guid = ?", row.GUID); err != nil {
		return fmt.Errorf("failed to clear FTS entry: %w", err)
	}

	_, err := tx.Exec(`
		INSERT INTO articles_fts (guid, title, author, body)
		VALUES (?, ?, ?, ?)
	`, row.GUID, model.StrValue(row.Title), model.StrValue(row.Author), model.StrValue(row.Body))
	if err != nil {
		return fmt.Errorf("failed to update FTS table: %w", err)
	}
	return nil
}

func (db *DB) GetArticle(guid string) (*model.Article, error) {
	var row articleRow
	err := db.Get(&row, "SELECT "+articleColumns+" FROM articles WHERE guid = ?", guid)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("article %s: %w", guid, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get article %s: %w", guid, err)
	}
	return row.toArticle()
}

type ArticleFilter struct {
	GUIDs          []string
	FolderID       *int64
	UnreadOnly     bool
	FlaggedOnly    bool
	IncludeDeleted bool
	MissingBody    bool
	Since          *time.Time
	Until          *time.Time
	Limit          int
}

// ListArticles returns matching articles, newest first. When GUIDs are
// given the result keeps their order.
func (db *DB) ListArticles(filter ArticleFilter) ([]*model.Article, error) {
	query := "SELECT " + articleColumns + " FROM articles WHERE 1=1"
	var args []interface{}

	if len(filter.GUIDs) > 0 {
		query += " AND guid IN (?)"
		args = append(args, filter.GUIDs)
	}
	if filter.FolderID != nil {
		query += " AND folder_id = ?"
		args = append(args, *filter.FolderID)
	}
	if filter.UnreadOnly {
		query += " AND is_read = FALSE"
	}
	if filter.FlaggedOnly {
		query += " AND is_flagged = TRUE"
	}
	if !filter.IncludeDeleted {
		query += " AND is_deleted = FALSE"
	}
	if filter.MissingBody {
		query += " AND (body IS NULL OR body = '') AND link IS NOT NULL AND link != ''"
	}

	if filter.Since != nil {
		query += " AND COALESCE(publication_date, last_update) >= ?"
		args = append(args, *formatTime(filter.Since))
	}
	if filter.Until != nil {
		query += " AND COALESCE(publication_date, last_update) <= ?"
		args = append(args, *formatTime(filter.Until))
	}

	query += " ORDER BY COALESCE(publication_date, last_update) DESC, guid"

	if filter.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, filter.Limit)
	}

	if len(filter.GUIDs) > 0 {
		var err error
		query, args, err = sqlx.In(query, args...)
		if err != nil {
			return nil, fmt.Errorf("failed to expand query: %w", err)
		}
		query = db.Rebind(query)
	}

	var rows []articleRow
	if err := db.Select(&rows, query, args...); err != nil {
		return nil, fmt.Errorf("failed to list articles: %w", err)
	}

	articles := make([]*model.Article, 0, len(rows))
	for _, row := range rows {
		a, err := row.toArticle()
		if err != nil {
			return nil, err
		}
		articles = append(articles, a)
	}

	if len(filter.GUIDs) > 0 {
		articles = orderByGUIDs(articles, filter.GUIDs)
	}
	return articles, nil
}

func orderByGUIDs(articles []*model.Article, guids []string) []*model.Article {
	byGUID := make(map[string]*model.Article, len(articles))
	for _, a := range articles {
		byGUID[a.GUID()] = a
	}

	ordered := make([]*model.Article, 0, len(articles))
	for _, guid := range guids {
		if a, ok := byGUID[guid]; ok {
			ordered = append(ordered, a)
			delete(byGUID, guid)
		}
	}
	return ordered
}

// FlagUpdate changes only the flags that are non-nil.
type FlagUpdate struct {
	Read    *bool
	Flagged *bool
	Deleted *bool
}

func (db *DB) SetFlags(guid string, update FlagUpdate) error {
	a, err := db.GetArticle(guid)
	if err != nil {
		return err
	}

	if update.Read != nil {
		a.SetRead(*update.Read)
	}
	if update.Flagged != nil {
		a.SetFlagged(*update.Flagged)
	}
	if update.Deleted != nil {
		a.SetDeleted(*update.Deleted)
	}

	_, err = db.Exec(`
		UPDATE articles SET is_read = ?, is_flagged = ?, is_deleted = ?
		WHERE guid = ?
	`, a.IsRead(), a.IsFlagged(), a.IsDeleted(), guid)
	if err != nil {
		return fmt.Errorf("failed to update flags for %s: %w", guid, err)
	}
	return nil
}

// DeleteArticle removes an article and its FTS entry permanently.
func (db *DB) DeleteArticle(guid string) error {
	tx, err := db.Beginx()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	result, err := tx.Exec("DELETE FROM articles WHERE guid = ?", guid)
	if err != nil {
		return fmt.Errorf("failed to delete article: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("article %s: %w", guid, ErrNotFound)
	}

	if _, err := tx.Exec("DELETE FROM articles_fts WHERE guid = ?", guid); err != nil {
		return fmt.Errorf("failed to delete from FTS table: %w", err)
	}

	return tx.Commit()
}

type Stats struct {
	Articles int `db:"articles" json:"articles"`
	Unread   int `db:"unread" json:"unread"`
	Flagged  int `db:"flagged" json:"flagged"`
	Deleted  int `db:"deleted" json:"deleted"`
	NoBody   int `db:"no_body" json:"no_body"`
	Folders  int `db:"folders" json:"folders"`
}

func (db *DB) Stats() (*Stats, error) {
	var stats Stats
	err := db.Get(&stats, `
		SELECT
			(SELECT COUNT(*) FROM articles) as articles,
			(SELECT COUNT(*) FROM articles WHERE is_read = FALSE AND is_deleted = FALSE) as unread,
			(SELECT COUNT(*) FROM articles WHERE is_flagged = TRUE AND is_deleted = FALSE) as flagged,
			(SELECT COUNT(*) FROM articles WHERE is_deleted = TRUE) as deleted,
			(SELECT COUNT(*) FROM articles WHERE body IS NULL OR body = '') as no_body,
			(SELECT COUNT(*) FROM folders) as folders
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to get counts: %w", err)
	}
	return &stats, nil
}

// RebuildFTS recreates the full-text index from the articles table.
func (db *DB) RebuildFTS() (int, error) {
	tx, err := db.Beginx()
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec("DELETE FROM articles_fts"); err != nil {
		return 0, fmt.Errorf("failed to clear FTS table: %w", err)
	}

	_, err = tx.Exec(`
		INSERT INTO articles_fts (guid, title, author, body)
		SELECT guid, COALESCE(title, ''), COALESCE(author, ''), COALESCE(body, '')
		FROM articles
	`)
	if err != nil {
		return 0, fmt.Errorf("failed to rebuild FTS table: %w", err)
	}

	var n int
	if err := tx.Get(&n, "SELECT COUNT(*) FROM articles_fts"); err != nil {
		return 0, fmt.Errorf("failed to count FTS rows: %w", err)
	}
	return n, tx.Commit()
}
