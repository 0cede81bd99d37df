package db

import (
	"database/sql"
	"errors"
	"fmt"

	"vienna-cli/internal/model"
)

// UpsertFolder returns the ID of the folder called name, creating it when
// needed. Existing folders keep their home page and description unless new
// values are given.
func (db *DB) UpsertFolder(name string, parentID *int64, homePage, description *string) (int64, error) {
	var folderID int64

	err := db.Get(&folderID, "SELECT id FROM folders WHERE name = ?", name)
	if errors.Is(err, sql.ErrNoRows) {
		result, err := db.Exec(`
			INSERT INTO folders (name, parent_id, home_page, description)
			VALUES (?, ?, ?, ?)
		`, name, parentID, homePage, description)
		if err != nil {
			return 0, fmt.Errorf("failed to insert folder %q: %w", name, err)
		}
		return result.LastInsertId()
	} else if err != nil {
		return 0, fmt.Errorf("failed to look up folder %q: %w", name, err)
	}

	_, err = db.Exec(`
		UPDATE folders
		SET home_page = COALESCE(?, home_page), description = COALESCE(?, description)
		WHERE id = ?
	`, homePage, description, folderID)
	if err != nil {
		return 0, fmt.Errorf("failed to update folder %q: %w", name, err)
	}

	return folderID, nil
}

func (db *DB) GetFolder(id int64) (*model.Folder, error) {
	var folder model.Folder
	err := db.Get(&folder, "SELECT id, name, parent_id, home_page, description FROM folders WHERE id = ?", id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("folder %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get folder %d: %w", id, err)
	}
	return &folder, nil
}

func (db *DB) GetFolderByName(name string) (*model.Folder, error) {
	var folder model.Folder
	err := db.Get(&folder, "SELECT id, name, parent_id, home_page, description FROM folders WHERE name = ?", name)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("folder %q: %w", name, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get folder %q: %w", name, err)
	}
	return &folder, nil
}

// Folder lets the store act as a render.FolderSource.
func (db *DB) Folder(id int64) (*model.Folder, bool) {
	if id == model.NoFolder {
		return nil, false
	}
	folder, err := db.GetFolder(id)
	if err != nil {
		return nil, false
	}
	return folder, true
}

type FolderWithCount struct {
	model.Folder
	ArticleCount int `db:"article_count" json:"article_count"`
	UnreadCount  int `db:"unread_count" json:"unread_count"`
}

func (db *DB) ListFolders() ([]FolderWithCount, error) {
	query := `
		SELECT
			f.id, f.name, f.parent_id, f.home_page, f.description,
			COUNT(a.guid) as article_count,
			COALESCE(SUM(CASE WHEN a.is_read = FALSE THEN 1 ELSE 0 END), 0) as unread_count
		FROM folders f
		LEFT JOIN articles a ON a.folder_id = f.id AND a.is_deleted = FALSE
		GROUP BY f.id
		ORDER BY f.name
	`

	var folders []FolderWithCount
	if err := db.Select(&folders, query); err != nil {
		return nil, fmt.Errorf("failed to list folders: %w", err)
	}
	return folders, nil
}
