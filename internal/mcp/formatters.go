package mcp

import (
	"encoding/json"
	"fmt"
	"strings"

	"vienna-cli/internal/model"
)

const dateLayout = "2006-01-02 15:04:05"

func (s *Server) folderName(article *model.Article) *string {
	folder, ok := s.db.Folder(article.FolderID())
	if !ok {
		return nil
	}
	return &folder.Name
}

func (s *Server) toArticleResponse(article *model.Article, includeBody bool) ArticleResponse {
	response := ArticleResponse{
		GUID:                article.GUID(),
		Title:               article.Title(),
		Author:              article.Author(),
		Link:                article.Link(),
		Enclosure:           article.Enclosure(),
		HasEnclosure:        article.HasEnclosure(),
		EnclosureDownloaded: article.EnclosureDownloaded(),
		PublicationDate:     article.PublicationDate(),
		LastUpdate:          article.LastUpdate(),
		Folder:              s.folderName(article),
		FolderID:            article.FolderID(),
		ParentID:            article.ParentID(),
		Status:              article.Status().String(),
		IsRead:              article.IsRead(),
		IsRevised:           article.IsRevised(),
		IsDeleted:           article.IsDeleted(),
		IsFlagged:           article.IsFlagged(),
	}
	if includeBody {
		response.Body = article.Body()
	}
	return response
}

func formatArticleJSON(response ArticleResponse) (string, error) {
	out, err := json.MarshalIndent(response, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to encode article: %w", err)
	}
	return string(out), nil
}

func formatArticleMarkdown(response ArticleResponse) string {
	var output strings.Builder

	title := model.StrValue(response.Title)
	if title == "" {
		title = "(untitled)"
	}
	output.WriteString(fmt.Sprintf("# %s\n\n", title))
	output.WriteString(fmt.Sprintf("**GUID:** %s\n", response.GUID))

	if response.Link != nil {
		output.WriteString(fmt.Sprintf("**Link:** %s\n", *response.Link))
	}
	if response.Author != nil {
		output.WriteString(fmt.Sprintf("**Author:** %s\n", *response.Author))
	}
	if response.Folder != nil {
		output.WriteString(fmt.Sprintf("**Folder:** %s\n", *response.Folder))
	}
	if response.PublicationDate != nil {
		output.WriteString(fmt.Sprintf("**Published:** %s\n", response.PublicationDate.Format(dateLayout)))
	}
	if response.LastUpdate != nil {
		output.WriteString(fmt.Sprintf("**Updated:** %s\n", response.LastUpdate.Format(dateLayout)))
	}
	if response.Enclosure != nil {
		output.WriteString(fmt.Sprintf("**Enclosure:** %s\n", *response.Enclosure))
	}
	output.WriteString(fmt.Sprintf("**Status:** %s\n", response.Status))
	output.WriteString(fmt.Sprintf("**Read:** %t  **Flagged:** %t  **Deleted:** %t\n", response.IsRead, response.IsFlagged, response.IsDeleted))

	output.WriteString("\n")

	if response.Body != nil && *response.Body != "" {
		output.WriteString("## Body\n\n")
		output.WriteString(*response.Body)
	} else {
		output.WriteString("*Article body not available.*")
	}

	return output.String()
}

func (s *Server) formatArticleList(heading string, articles []*model.Article) string {
	var output strings.Builder
	output.WriteString(heading)
	output.WriteString("\n\n")

	for i, article := range articles {
		title := model.StrValue(article.Title())
		if title == "" {
			title = "(untitled)"
		}
		output.WriteString(fmt.Sprintf("**%d. %s**\n", i+1, title))
		output.WriteString(fmt.Sprintf("GUID: %s\n", article.GUID()))

		if link := model.StrValue(article.Link()); link != "" {
			output.WriteString(fmt.Sprintf("Link: %s\n", link))
		}
		if published := article.PublicationDate(); published != nil {
			output.WriteString(fmt.Sprintf("Published: %s\n", published.Format(dateLayout)))
		}
		if folder := s.folderName(article); folder != nil {
			output.WriteString(fmt.Sprintf("Folder: %s\n", *folder))
		}

		var flags []string
		if !article.IsRead() {
			flags = append(flags, "unread")
		}
		if article.IsFlagged() {
			flags = append(flags, "flagged")
		}
		if article.IsDeleted() {
			flags = append(flags, "deleted")
		}
		if len(flags) > 0 {
			output.WriteString(fmt.Sprintf("Flags: %s\n", strings.Join(flags, ", ")))
		}

		if model.StrValue(article.Body()) != "" {
			output.WriteString("Body: Available\n")
		} else {
			output.WriteString("Body: Not fetched\n")
		}

		output.WriteString("\n")
	}

	return output.String()
}

func formatFolders(folders []FolderInfo) string {
	var output strings.Builder
	output.WriteString(fmt.Sprintf("Found %d folders:\n\n", len(folders)))

	for _, folder := range folders {
		output.WriteString(fmt.Sprintf("**%s** (%d articles, %d unread)\n", folder.Name, folder.ArticleCount, folder.UnreadCount))
	}

	return output.String()
}
