package search

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"vienna-cli/internal/db"
	"vienna-cli/internal/model"
	"vienna-cli/internal/util"
)

// Searchable fields. Only title, author and body are in the full-text index.
const (
	FieldTitle  = "title"
	FieldAuthor = "author"
	FieldBody   = "body"
	FieldLink   = "link"
	FieldFolder = "folder"
)

var likeColumns = map[string]string{
	FieldTitle:  "a.title",
	FieldAuthor: "a.author",
	FieldBody:   "a.body",
	FieldLink:   "a.link",
	FieldFolder: "f.name",
}

type Search struct {
	db *db.DB
}

type SearchOptions struct {
	Query          string
	Field          string
	UseFTS         bool
	Limit          int
	JSONOutput     bool
	Since          string
	Until          string
	UnreadOnly     bool
	IncludeDeleted bool
}

func New(database *db.DB) *Search {
	return &Search{db: database}
}

// Search runs the query and writes the results to w as JSON or a table.
func (s *Search) Search(opts SearchOptions, w io.Writer) error {
	results, err := s.Find(opts)
	if err != nil {
		return err
	}

	if opts.JSONOutput {
		return outputJSON(w, results)
	}
	return outputTable(w, results)
}

func (s *Search) Find(opts SearchOptions) ([]model.SearchResult, error) {
	// An empty query with a date range lists the latest articles
	if opts.Query == "" && opts.Since == "" && opts.Until == "" {
		return nil, fmt.Errorf("search query or date filter is required")
	}

	var results []model.SearchResult
	var err error

	if opts.UseFTS && opts.Query != "" {
		results, err = s.searchFTS(opts)
	} else {
		results, err = s.searchLike(opts)
	}

	if err != nil {
		return nil, fmt.Errorf("search failed: %w", err)
	}
	return results, nil
}

const selectResults = `
	SELECT
		a.guid,
		a.title,
		a.link,
		f.name as folder,
		COALESCE(a.publication_date, a.last_update) as publication_date,
		a.is_read,
		a.is_flagged
	FROM articles a
	LEFT JOIN folders f ON a.folder_id = f.id
`

// commonConditions applies the flag and date filters shared by both modes.
func commonConditions(opts SearchOptions) ([]string, []interface{}, error) {
	var conditions []string
	var args []interface{}

	if !opts.IncludeDeleted {
		conditions = append(conditions, "a.is_deleted = FALSE")
	}
	if opts.UnreadOnly {
		conditions = append(conditions, "a.is_read = FALSE")
	}

	if opts.Since != "" || opts.Until != "" {
		sinceTime, untilTime, err := util.FormatDateRange(opts.Since, opts.Until)
		if err != nil {
			return nil, nil, err
		}

		if sinceTime != nil {
			conditions = append(conditions, "COALESCE(a.publication_date, a.last_update) >= ?")
			args = append(args, db.TimeString(*sinceTime))
		}

		if untilTime != nil {
			conditions = append(conditions, "COALESCE(a.publication_date, a.last_update) <= ?")
			args = append(args, db.TimeString(*untilTime))
		}
	}

	return conditions, args, nil
}

func (s *Search) searchLike(opts SearchOptions) ([]model.SearchResult, error) {
	conditions, args, err := commonConditions(opts)
	if err != nil {
		return nil, err
	}

	if opts.Query != "" {
		pattern := "%" + opts.Query + "%"
		if opts.Field != "" {
			column, ok := likeColumns[opts.Field]
			if !ok {
				return nil, fmt.Errorf("invalid field: %s", opts.Field)
			}
			conditions = append(conditions, column+" LIKE ? COLLATE NOCASE")
			args = append(args, pattern)
		} else {
			conditions = append(conditions, `(a.title LIKE ? COLLATE NOCASE OR a.author LIKE ? COLLATE NOCASE
			       OR a.body LIKE ? COLLATE NOCASE OR a.link LIKE ? COLLATE NOCASE)`)
			args = append(args, pattern, pattern, pattern, pattern)
		}
	}

	query := selectResults
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY COALESCE(a.publication_date, a.last_update) DESC, a.guid"

	if opts.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, opts.Limit)
	}

	var results []model.SearchResult
	if err := s.db.Select(&results, query, args...); err != nil {
		return nil, err
	}
	return results, nil
}

func (s *Search) searchFTS(opts SearchOptions) ([]model.SearchResult, error) {
	conditions, args, err := commonConditions(opts)
	if err != nil {
		return nil, err
	}

	match := opts.Query
	switch opts.Field {
	case "":
	case FieldTitle, FieldAuthor, FieldBody:
		match = opts.Field + ": (" + opts.Query + ")"
	default:
		return nil, fmt.Errorf("invalid field for FTS: %s", opts.Field)
	}
	conditions = append(conditions, "articles_fts MATCH ?")
	args = append(args, match)

	query := selectResults + `
		INNER JOIN articles_fts ON articles_fts.guid = a.guid
		WHERE ` + strings.Join(conditions, " AND ") + `
		ORDER BY rank
	`

	if opts.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, opts.Limit)
	}

	var results []model.SearchResult
	if err := s.db.Select(&results, query, args...); err != nil {
		return nil, err
	}
	return results, nil
}

func outputJSON(w io.Writer, results []model.SearchResult) error {
	if results == nil {
		results = []model.SearchResult{}
	}
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(results)
}

// truncate shortens s to at most max runes.
func truncate(s string, max int) string {
	runes := []rune(s)
	if len(runes) > max {
		return string(runes[:max-3]) + "..."
	}
	return s
}

func outputTable(out io.Writer, results []model.SearchResult) error {
	if len(results) == 0 {
		fmt.Fprintln(out, "No results found.")
		return nil
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	defer w.Flush()

	fmt.Fprintln(w, "GUID\tTITLE\tLINK\tFOLDER\tDATE\tREAD\tFLAGGED")

	for _, result := range results {
		date := model.StrValue(result.PublicationDate)
		if len(date) > 10 {
			date = date[:10]
		}

		read := "No"
		if result.IsRead {
			read = "Yes"
		}

		flagged := ""
		if result.IsFlagged {
			flagged = "*"
		}

		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			truncate(result.GUID, 30),
			truncate(model.StrValue(result.Title), 50),
			truncate(model.StrValue(result.Link), 60),
			truncate(model.StrValue(result.Folder), 20),
			date, read, flagged)
	}

	return nil
}
