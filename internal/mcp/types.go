package mcp

import (
	"time"
)

// ArticleResponse is the JSON shape of an article returned by get_article.
type ArticleResponse struct {
	GUID                string     `json:"guid"`
	Title               *string    `json:"title,omitempty"`
	Author              *string    `json:"author,omitempty"`
	Link                *string    `json:"link,omitempty"`
	Body                *string    `json:"body,omitempty"`
	Enclosure           *string    `json:"enclosure,omitempty"`
	HasEnclosure        bool       `json:"has_enclosure"`
	EnclosureDownloaded bool       `json:"enclosure_downloaded"`
	PublicationDate     *time.Time `json:"publication_date,omitempty"`
	LastUpdate          *time.Time `json:"last_update,omitempty"`
	Folder              *string    `json:"folder,omitempty"`
	FolderID            int64      `json:"folder_id"`
	ParentID            int64      `json:"parent_id"`
	Status              string     `json:"status"`
	IsRead              bool       `json:"is_read"`
	IsRevised           bool       `json:"is_revised"`
	IsDeleted           bool       `json:"is_deleted"`
	IsFlagged           bool       `json:"is_flagged"`
}

type FolderInfo struct {
	ID           int64  `json:"id"`
	Name         string `json:"name"`
	ArticleCount int    `json:"article_count"`
	UnreadCount  int    `json:"unread_count"`
}
