package mcp

import (
	"errors"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"vienna-cli/internal/db"
	"vienna-cli/internal/model"
	"vienna-cli/internal/search"
)

func (s *Server) handleListArticles(arguments map[string]interface{}) (*mcp.CallToolResult, error) {
	filter, err := s.articleFilterFromArgs(arguments)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Invalid filter: %v", err)), nil
	}

	articles, err := s.db.ListArticles(filter)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to list articles: %v", err)), nil
	}

	if len(articles) == 0 {
		return mcp.NewToolResultText("No articles found matching the criteria."), nil
	}

	heading := fmt.Sprintf("Found %d articles:", len(articles))
	return mcp.NewToolResultText(s.formatArticleList(heading, articles)), nil
}

func (s *Server) handleGetArticle(arguments map[string]interface{}) (*mcp.CallToolResult, error) {
	guid := stringArg(arguments, "guid")
	if guid == "" {
		return mcp.NewToolResultError("Article GUID is required"), nil
	}

	article, err := s.db.GetArticle(guid)
	if errors.Is(err, db.ErrNotFound) {
		return mcp.NewToolResultError(fmt.Sprintf("No article with GUID %s", guid)), nil
	}
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to get article: %v", err)), nil
	}

	response := s.toArticleResponse(article, boolArg(arguments, "include_body", true))

	if stringArg(arguments, "format") == "json" {
		out, err := formatArticleJSON(response)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		return mcp.NewToolResultText(out), nil
	}

	return mcp.NewToolResultText(formatArticleMarkdown(response)), nil
}

func (s *Server) handleRenderArticles(arguments map[string]interface{}) (*mcp.CallToolResult, error) {
	guids := stringSliceArg(arguments, "guids")
	if len(guids) == 0 {
		return mcp.NewToolResultError("At least one article GUID is required"), nil
	}

	articles, err := s.db.ListArticles(db.ArticleFilter{GUIDs: guids, IncludeDeleted: true})
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to get articles: %v", err)), nil
	}

	if missing := missingGUIDs(guids, articles); len(missing) > 0 {
		return mcp.NewToolResultError(fmt.Sprintf("No articles with GUIDs: %s", strings.Join(missing, ", "))), nil
	}

	return mcp.NewToolResultText(s.converter.ArticleText(articles)), nil
}

func (s *Server) handleExpandTemplate(arguments map[string]interface{}) (*mcp.CallToolResult, error) {
	guid := stringArg(arguments, "guid")
	if guid == "" {
		return mcp.NewToolResultError("Article GUID is required"), nil
	}

	tmpl, ok := arguments["template"].(string)
	if !ok {
		return mcp.NewToolResultError("Template is required"), nil
	}

	article, err := s.db.GetArticle(guid)
	if errors.Is(err, db.ErrNotFound) {
		return mcp.NewToolResultError(fmt.Sprintf("No article with GUID %s", guid)), nil
	}
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to get article: %v", err)), nil
	}

	expanded := s.converter.ExpandTags(article, tmpl, boolArg(arguments, "conditional", false))
	return mcp.NewToolResultText(expanded), nil
}

func (s *Server) handleSearchArticles(arguments map[string]interface{}) (*mcp.CallToolResult, error) {
	searchOpts := search.SearchOptions{
		Query:      stringArg(arguments, "query"),
		Field:      stringArg(arguments, "field"),
		UseFTS:     boolArg(arguments, "use_fts", true),
		Limit:      intArg(arguments, "limit", 50),
		UnreadOnly: boolArg(arguments, "unread_only", false),
		Since:      stringArg(arguments, "since"),
		Until:      stringArg(arguments, "until"),
	}

	if searchOpts.Query == "" && searchOpts.Since == "" && searchOpts.Until == "" {
		return mcp.NewToolResultText("No articles found matching the search criteria."), nil
	}

	results, err := s.search.Find(searchOpts)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Search failed: %v", err)), nil
	}

	if len(results) == 0 {
		return mcp.NewToolResultText("No articles found matching the search criteria."), nil
	}

	var output strings.Builder
	output.WriteString(fmt.Sprintf("Found %d articles:\n\n", len(results)))

	for i, result := range results {
		title := model.StrValue(result.Title)
		if title == "" {
			title = "(untitled)"
		}
		output.WriteString(fmt.Sprintf("**%d. %s**\n", i+1, title))
		output.WriteString(fmt.Sprintf("GUID: %s\n", result.GUID))

		if link := model.StrValue(result.Link); link != "" {
			output.WriteString(fmt.Sprintf("Link: %s\n", link))
		}
		if folder := model.StrValue(result.Folder); folder != "" {
			output.WriteString(fmt.Sprintf("Folder: %s\n", folder))
		}
		if !result.IsRead {
			output.WriteString("Unread\n")
		}

		output.WriteString("\n")
	}

	return mcp.NewToolResultText(output.String()), nil
}

func (s *Server) handleListFolders(arguments map[string]interface{}) (*mcp.CallToolResult, error) {
	rows, err := s.db.ListFolders()
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to query folders: %v", err)), nil
	}

	if len(rows) == 0 {
		return mcp.NewToolResultText("No folders found."), nil
	}

	folders := make([]FolderInfo, 0, len(rows))
	for _, row := range rows {
		folders = append(folders, FolderInfo{
			ID:           row.ID,
			Name:         row.Name,
			ArticleCount: row.ArticleCount,
			UnreadCount:  row.UnreadCount,
		})
	}

	return mcp.NewToolResultText(formatFolders(folders)), nil
}

func (s *Server) handleGetUsageExamples(arguments map[string]interface{}) (*mcp.CallToolResult, error) {
	examples := `# Common Request Patterns and Tool Usage

## Reading

**User Request: "What's new in my Vienna folder?"**
Tool: list_articles
Parameters:
- folder: "Vienna"
- unread_only: true

**User Request: "Show me the article about dark mode"**
1. search_articles(query="dark mode")
2. get_article(guid=<guid from step 1>)

## Rendering

**User Request: "Give me these three articles as one HTML page"**
Tool: render_articles
Parameters:
- guids: ["guid-1", "guid-2", "guid-3"]

**User Request: "Make a one-line summary of this article"**
Tool: expand_template
Parameters:
- guid: "guid-1"
- template: "$ArticleTitle$ by $ArticleAuthor$ ($ArticleLink$)"

Use conditional=true when a fragment should disappear if the article has
none of its fields, e.g. template "<p>Enclosure: $ArticleEnclosureLink$</p>".

## Date Filter Values

- "today", "yesterday"
- "1d", "3d", "1w", "2w", "1m", "1y"
- "2024-01-15" - Specific date
- since "2024-01-01" with until "2024-01-31" - Date range

## Examples in Context

"Unread flagged articles" → list_articles(unread_only=true, flagged_only=true)
"Articles by Barijaona" → search_articles(query="Barijaona", field="author")
"Everything from last week" → list_articles(since="1w")`

	return mcp.NewToolResultText(examples), nil
}

func missingGUIDs(guids []string, articles []*model.Article) []string {
	found := make(map[string]bool, len(articles))
	for _, a := range articles {
		found[a.GUID()] = true
	}

	var missing []string
	for _, guid := range guids {
		if !found[guid] {
			missing = append(missing, guid)
		}
	}
	return missing
}
