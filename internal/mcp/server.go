package mcp

import (
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"vienna-cli/internal/db"
	"vienna-cli/internal/render"
	"vienna-cli/internal/search"
	"vienna-cli/internal/version"
)

// Server exposes the article store and the template expander as MCP tools.
type Server struct {
	db        *db.DB
	search    *search.Search
	converter *render.Converter
	mcpServer *server.MCPServer
}

func NewServer(database *db.DB, converter *render.Converter) *Server {
	s := &Server{
		db:        database,
		search:    search.New(database),
		converter: converter,
	}

	s.mcpServer = server.NewMCPServer(
		"vienna",
		version.GetMCPVersion(),
	)

	s.registerTools()
	return s
}

// Start serves MCP over stdio until stdin closes.
func (s *Server) Start() error {
	return server.ServeStdio(s.mcpServer)
}

func (s *Server) registerTools() {
	s.mcpServer.AddTool(mcp.Tool{
		Name:        "list_articles",
		Description: "List stored articles newest first, with optional folder, unread, flagged and date filters. Returns GUIDs to use with get_article, render_articles and expand_template.",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"folder": map[string]interface{}{
					"type":        "string",
					"description": "Only articles in the folder with this name",
				},
				"unread_only": map[string]interface{}{
					"type":        "boolean",
					"description": "Only unread articles",
				},
				"flagged_only": map[string]interface{}{
					"type":        "boolean",
					"description": "Only flagged articles",
				},
				"include_deleted": map[string]interface{}{
					"type":        "boolean",
					"description": "Include articles marked as deleted",
				},
				"since": map[string]interface{}{
					"type":        "string",
					"description": "Articles published since date. Examples: '1d', '1w', 'today', '2024-01-15'.",
				},
				"until": map[string]interface{}{
					"type":        "string",
					"description": "Articles published until date. Examples: 'today', 'yesterday', '2024-01-31'.",
				},
				"limit": map[string]interface{}{
					"type":        "integer",
					"description": "Maximum number of articles to return (default: 20)",
				},
			},
		},
	}, s.handleListArticles)

	s.mcpServer.AddTool(mcp.Tool{
		Name:        "get_article",
		Description: "Get a single article by GUID with all of its fields",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"guid": map[string]interface{}{
					"type":        "string",
					"description": "Article GUID",
				},
				"include_body": map[string]interface{}{
					"type":        "boolean",
					"description": "Include the HTML body (default: true)",
				},
				"format": map[string]interface{}{
					"type":        "string",
					"description": "Output format: markdown or json (default: markdown)",
					"enum":        []string{"markdown", "json"},
				},
			},
			Required: []string{"guid"},
		},
	}, s.handleGetArticle)

	s.mcpServer.AddTool(mcp.Tool{
		Name:        "render_articles",
		Description: "Render one or more articles, in the given order, into a single HTML document using the configured article template.",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"guids": map[string]interface{}{
					"type":        "array",
					"description": "GUIDs of the articles to render",
					"items": map[string]interface{}{
						"type": "string",
					},
				},
			},
			Required: []string{"guids"},
		},
	}, s.handleRenderArticles)

	s.mcpServer.AddTool(mcp.Tool{
		Name:        "expand_template",
		Description: "Substitute $ArticleTitle$, $ArticleLink$, $ArticleBody$, $ArticleAuthor$, $ArticleEnclosureLink$, $ArticleEnclosureFilename$, $ArticleDate$, $ArticleGUID$, $FeedTitle$, $FeedLink$ and $FeedDescription$ in a template with one article's values. With conditional=true the result is empty when every tag in the template expands to blank.",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"guid": map[string]interface{}{
					"type":        "string",
					"description": "Article GUID",
				},
				"template": map[string]interface{}{
					"type":        "string",
					"description": "Template text containing $Tag$ tokens",
				},
				"conditional": map[string]interface{}{
					"type":        "boolean",
					"description": "Return an empty string when all tags are blank (default: false)",
				},
			},
			Required: []string{"guid", "template"},
		},
	}, s.handleExpandTemplate)

	s.mcpServer.AddTool(mcp.Tool{
		Name:        "search_articles",
		Description: "Search articles by keyword, using full-text search by default. Multiple keywords are treated as AND. For 'Vienna release notes from last week' use query='vienna release' and since='1w'.",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"query": map[string]interface{}{
					"type":        "string",
					"description": "Search query text",
				},
				"field": map[string]interface{}{
					"type":        "string",
					"description": "Specific field to search: title, author, body, link, folder (link and folder need use_fts=false)",
					"enum":        []string{"title", "author", "body", "link", "folder"},
				},
				"use_fts": map[string]interface{}{
					"type":        "boolean",
					"description": "Use full-text search (default: true). Set to false to use LIKE search instead.",
				},
				"unread_only": map[string]interface{}{
					"type":        "boolean",
					"description": "Only unread articles",
				},
				"since": map[string]interface{}{
					"type":        "string",
					"description": "Filter articles since date: '1d', '1w', '1m', 'today', 'yesterday' or '2024-01-15'.",
				},
				"until": map[string]interface{}{
					"type":        "string",
					"description": "Filter articles until date: 'today', 'yesterday' or '2024-01-15'.",
				},
				"limit": map[string]interface{}{
					"type":        "integer",
					"description": "Maximum number of results to return (default: 50)",
				},
			},
		},
	}, s.handleSearchArticles)

	s.mcpServer.AddTool(mcp.Tool{
		Name:        "list_folders",
		Description: "Get all folders with article and unread counts",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}, s.handleListFolders)

	s.mcpServer.AddTool(mcp.Tool{
		Name:        "get_usage_examples",
		Description: "Get examples of how to translate common requests into calls to the other tools.",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}, s.handleGetUsageExamples)
}
