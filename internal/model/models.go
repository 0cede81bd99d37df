package model

import (
	"time"
)

// Folder is a subscription or group that articles belong to. Articles refer
// to it by ID only.
type Folder struct {
	ID          int64   `db:"id" json:"id"`
	Name        string  `db:"name" json:"name"`
	ParentID    *int64  `db:"parent_id" json:"parent_id,omitempty"`
	HomePage    *string `db:"home_page" json:"home_page,omitempty"`
	Description *string `db:"description" json:"description,omitempty"`
}

type FrontMatter struct {
	Title      string     `yaml:"title"`
	Author     string     `yaml:"author,omitempty"`
	Link       string     `yaml:"link,omitempty"`
	GUID       string     `yaml:"guid"`
	Published  *time.Time `yaml:"published,omitempty"`
	ExportedAt time.Time  `yaml:"exported_at"`
	Folder     string     `yaml:"folder,omitempty"`
}

type SearchResult struct {
	GUID            string  `db:"guid" json:"guid"`
	Title           *string `db:"title" json:"title,omitempty"`
	Link            *string `db:"link" json:"link,omitempty"`
	Folder          *string `db:"folder" json:"folder,omitempty"`
	PublicationDate *string `db:"publication_date" json:"publication_date,omitempty"`
	IsRead          bool    `db:"is_read" json:"is_read"`
	IsFlagged       bool    `db:"is_flagged" json:"is_flagged"`
}
