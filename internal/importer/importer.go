package importer

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/araddon/dateparse"

	"vienna-cli/internal/db"
	"vienna-cli/internal/model"
)

// Column names that are not article fields.
const (
	columnDate   = "date"
	columnFolder = "folder"
)

type ImportResult struct {
	Processed int
	Skipped   int
}

type Importer struct {
	db     *db.DB
	logger *slog.Logger
}

func New(database *db.DB, logger *slog.Logger) *Importer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Importer{db: database, logger: logger}
}

func (i *Importer) ImportCSV(csvPath string) (*ImportResult, error) {
	file, err := os.Open(csvPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open CSV file: %w", err)
	}
	defer file.Close()

	return i.Import(file)
}

// Import reads a CSV whose header row names legacy article fields
// (GUID, Subject, Author, Link, Summary, Date, ...). Every row becomes one
// article keyed by its GUID. Rows that cannot be read are skipped.
func (i *Importer) Import(r io.Reader) (*ImportResult, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	headers, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("failed to read CSV headers: %w", err)
	}

	columns, guidIdx := i.mapColumns(headers)
	if guidIdx < 0 {
		return nil, fmt.Errorf("CSV has no %s column", model.FieldGUID)
	}

	result := &ImportResult{}
	line := 1

	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		line++
		if err != nil {
			i.logger.Warn("skipping unreadable CSV record", "line", line, "error", err)
			result.Skipped++
			continue
		}

		article, err := i.buildArticle(record, columns, guidIdx)
		if err != nil {
			i.logger.Warn("skipping CSV record", "line", line, "error", err)
			result.Skipped++
			continue
		}

		if err := i.db.SaveArticle(article); err != nil {
			i.logger.Error("failed to save article", "line", line, "guid", article.GUID(), "error", err)
			result.Skipped++
			continue
		}

		result.Processed++
		if result.Processed%100 == 0 {
			i.logger.Info("import progress", "processed", result.Processed)
		}
	}

	i.logger.Info("import completed", "processed", result.Processed, "skipped", result.Skipped)
	return result, nil
}

// mapColumns resolves each header to a field name, or "" for columns that
// are ignored.
func (i *Importer) mapColumns(headers []string) ([]string, int) {
	columns := make([]string, len(headers))
	guidIdx := -1

	for idx, header := range headers {
		name := strings.TrimSpace(header)
		switch {
		case strings.EqualFold(name, model.FieldGUID):
			guidIdx = idx
		case strings.EqualFold(name, columnDate):
			columns[idx] = model.FieldLastUpdate
		case strings.EqualFold(name, columnFolder):
			columns[idx] = columnFolder
		case model.KnownField(name):
			columns[idx] = name
		default:
			i.logger.Warn("ignoring unknown CSV column", "column", header)
		}
	}
	return columns, guidIdx
}

func (i *Importer) buildArticle(record, columns []string, guidIdx int) (*model.Article, error) {
	if guidIdx >= len(record) || strings.TrimSpace(record[guidIdx]) == "" {
		return nil, errors.New("missing GUID")
	}
	article := model.NewArticle(strings.TrimSpace(record[guidIdx]))

	for idx, field := range columns {
		if field == "" || idx >= len(record) || record[idx] == "" {
			continue
		}
		raw := record[idx]

		if field == columnFolder {
			folderID, err := i.db.UpsertFolder(raw, nil, nil, nil)
			if err != nil {
				return nil, fmt.Errorf("failed to upsert folder %q: %w", raw, err)
			}
			article.SetFolderID(folderID)
			continue
		}

		value, err := convertValue(field, raw)
		if err != nil {
			return nil, fmt.Errorf("column %s: %w", field, err)
		}
		if err := article.SetValue(field, value); err != nil {
			return nil, err
		}
	}

	if article.Enclosure() != nil {
		article.SetHasEnclosure(true)
	}
	return article, nil
}

// convertValue turns CSV text into the Go type the field accepts.
func convertValue(field, raw string) (any, error) {
	switch strings.ToLower(field) {
	case strings.ToLower(model.FieldLastUpdate), strings.ToLower(model.FieldPublicationDate):
		return parseDate(raw)
	case strings.ToLower(model.FieldRead), strings.ToLower(model.FieldFlagged), strings.ToLower(model.FieldDeleted):
		return strconv.ParseBool(strings.TrimSpace(raw))
	case strings.ToLower(model.FieldFolderID), strings.ToLower(model.FieldParentID):
		return strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
	default:
		return raw, nil
	}
}

// parseDate accepts RFC 3339, RFC 1123, Unix seconds and the other layouts
// dateparse knows. Zone-less dates are taken as UTC.
func parseDate(raw string) (time.Time, error) {
	t, err := dateparse.ParseIn(strings.TrimSpace(raw), time.UTC)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q: %w", raw, err)
	}
	return t.UTC(), nil
}
