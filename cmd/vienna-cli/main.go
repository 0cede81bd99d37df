package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"vienna-cli/internal/config"
	"vienna-cli/internal/db"
	"vienna-cli/internal/export"
	"vienna-cli/internal/fetcher"
	"vienna-cli/internal/importer"
	"vienna-cli/internal/mcp"
	"vienna-cli/internal/model"
	"vienna-cli/internal/render"
	"vienna-cli/internal/search"
	"vienna-cli/internal/util"
	"vienna-cli/internal/version"
)

var (
	configPath     string
	dbPath         string
	migrationsPath string

	cfg       *config.Config
	logger    *slog.Logger
	database  *db.DB
	converter *render.Converter
)

func main() {
	var rootCmd = &cobra.Command{
		Use:               "vienna-cli",
		Short:             "Store, render and export Vienna RSS articles",
		Long:              "A CLI tool to import, browse, render and export articles from a Vienna-style article store",
		SilenceUsage:      true,
		PersistentPreRunE: setup,
	}

	rootCmd.PersistentFlags().StringVar(&configPath, "config", "vienna.yaml", "Path to YAML config file")
	rootCmd.PersistentFlags().StringVar(&dbPath, "db", "", "Path to SQLite database (overrides config)")
	rootCmd.PersistentFlags().StringVar(&migrationsPath, "migrations", "", "Directory of SQL migrations (overrides the embedded schema)")

	var importCmd = &cobra.Command{
		Use:   "import",
		Short: "Import articles from a CSV file",
		Long:  "Import articles from a CSV file whose header names article fields (guid, title, author, link, body, enclosure, date, folder, ...)",
		RunE:  runImport,
	}
	importCmd.Flags().String("csv", "", "Path to CSV file")
	importCmd.MarkFlagRequired("csv")

	var listCmd = &cobra.Command{
		Use:   "list",
		Short: "List articles, newest first",
		RunE:  runList,
	}
	addFilterFlags(listCmd)
	listCmd.Flags().Bool("json", false, "Output results as JSON")

	var showCmd = &cobra.Command{
		Use:   "show",
		Short: "Show a single article",
		RunE:  runShow,
	}
	showCmd.Flags().String("guid", "", "Article GUID")
	showCmd.Flags().Bool("json", false, "Output the article as JSON")
	showCmd.MarkFlagRequired("guid")

	var expandCmd = &cobra.Command{
		Use:   "expand",
		Short: "Expand $Tag$ placeholders in a template for one article",
		RunE:  runExpand,
	}
	expandCmd.Flags().String("guid", "", "Article GUID")
	expandCmd.Flags().String("template", "", "Template text, or path to a template file")
	expandCmd.Flags().Bool("conditional", false, "Drop the whole template when every known tag in it is blank")
	expandCmd.MarkFlagRequired("guid")
	expandCmd.MarkFlagRequired("template")

	var renderCmd = &cobra.Command{
		Use:   "render",
		Short: "Render articles as a single HTML document",
		RunE:  runRender,
	}
	renderCmd.Flags().StringSlice("guid", nil, "Article GUIDs, rendered in the given order")
	renderCmd.Flags().String("folder", "", "Render every article in this folder")
	renderCmd.Flags().String("out", "", "Output file (default stdout)")

	var exportCmd = &cobra.Command{
		Use:   "export",
		Short: "Export articles as HTML, Markdown files or an RSS feed",
		RunE:  runExport,
	}
	addFilterFlags(exportCmd)
	exportCmd.Flags().String("format", export.FormatMarkdown, "Export format: html, markdown or rss")
	exportCmd.Flags().String("dir", "", "Markdown output directory (default from config)")
	exportCmd.Flags().String("out", "", "Output file for html and rss (default stdout)")
	exportCmd.Flags().String("feed-title", "Vienna articles", "RSS channel title")
	exportCmd.Flags().String("feed-link", "", "RSS channel link")
	exportCmd.Flags().String("feed-description", "", "RSS channel description")

	var fetchCmd = &cobra.Command{
		Use:   "fetch",
		Short: "Fetch bodies for articles that have a link but no body",
		RunE:  runFetch,
	}
	fetchCmd.Flags().Int("limit", 0, "Maximum number of articles to fetch (default from config)")
	fetchCmd.Flags().StringSlice("guid", nil, "Fetch only these articles")
	fetchCmd.Flags().String("folder", "", "Fetch only articles in this folder")
	fetchCmd.Flags().Bool("prefer-extracted-title", false, "Replace stored titles with the extracted page title")

	var markCmd = &cobra.Command{
		Use:   "mark",
		Short: "Set the read, flagged or deleted state of articles",
		RunE:  runMark,
	}
	markCmd.Flags().StringSlice("guid", nil, "Article GUIDs")
	markCmd.Flags().Bool("read", false, "Mark as read (--read=false for unread)")
	markCmd.Flags().Bool("flagged", false, "Flag (--flagged=false to unflag)")
	markCmd.Flags().Bool("deleted", false, "Move to trash (--deleted=false to restore)")
	markCmd.MarkFlagRequired("guid")

	var deleteCmd = &cobra.Command{
		Use:   "delete",
		Short: "Permanently remove articles from the store",
		RunE:  runDelete,
	}
	deleteCmd.Flags().StringSlice("guid", nil, "Article GUIDs")
	deleteCmd.MarkFlagRequired("guid")

	var foldersCmd = &cobra.Command{
		Use:   "folders",
		Short: "List folders with article counts",
		RunE:  runFolders,
	}
	foldersCmd.Flags().Bool("json", false, "Output folders as JSON")

	var searchCmd = &cobra.Command{
		Use:   "search [query]",
		Short: "Search articles",
		Long:  "Search articles by title, author, body, link or folder, with optional date filters",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runSearch,
	}
	searchCmd.Flags().String("field", "", "Restrict the search to one field: title, author, body, link, folder")
	searchCmd.Flags().Bool("fts", true, "Use full-text search")
	searchCmd.Flags().Int("limit", 50, "Maximum number of results")
	searchCmd.Flags().Bool("json", false, "Output results as JSON")
	searchCmd.Flags().Bool("unread", false, "Only unread articles")
	searchCmd.Flags().Bool("include-deleted", false, "Include articles in the trash")
	searchCmd.Flags().String("since", "", "Articles since date (1d, 1w, 2024-01-15, today, ...)")
	searchCmd.Flags().String("until", "", "Articles until date")

	var statsCmd = &cobra.Command{
		Use:   "stats",
		Short: "Show article store statistics",
		RunE:  runStats,
	}
	statsCmd.Flags().Bool("json", false, "Output statistics as JSON")

	var doctorCmd = &cobra.Command{
		Use:   "doctor",
		Short: "Check database integrity and rebuild the search index",
		RunE:  runDoctor,
	}

	var mcpCmd = &cobra.Command{
		Use:   "mcp",
		Short: "Start MCP (Model Context Protocol) server",
		Long:  "Start an MCP server on stdio that exposes listing, search, rendering and template expansion to MCP clients",
		RunE:  runMCP,
	}

	var versionCmd = &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		// No database needed.
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error { return nil },
		Run: func(cmd *cobra.Command, args []string) {
			cmd.Println("vienna-cli " + version.GetFullVersion())
		},
	}

	rootCmd.AddCommand(importCmd, listCmd, showCmd, expandCmd, renderCmd, exportCmd, fetchCmd,
		markCmd, deleteCmd, foldersCmd, searchCmd, statsCmd, doctorCmd, mcpCmd, versionCmd)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	err := rootCmd.ExecuteContext(ctx)
	stop()

	if database != nil {
		database.Close()
	}

	if err != nil {
		os.Exit(1)
	}
}

func setup(cmd *cobra.Command, args []string) error {
	var err error
	cfg, err = config.Load(configPath)
	if err != nil {
		return err
	}

	logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: cfg.LogLevel}))
	slog.SetDefault(logger)

	if dbPath == "" {
		dbPath = cfg.Database.Path
	}
	if migrationsPath == "" {
		migrationsPath = cfg.Database.Migrations
	}

	database, err = db.New(dbPath)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}

	if migrationsPath != "" {
		err = database.RunMigrationsDir(migrationsPath)
	} else {
		err = database.RunMigrations()
	}
	if err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	tmpl, err := cfg.Render.Template()
	if err != nil {
		return err
	}

	converter = render.NewConverter(render.Options{
		Template:      tmpl,
		StylesheetURL: cfg.Render.StylesheetURL,
		ScriptURL:     cfg.Render.ScriptURL,
		DateLayout:    cfg.Render.DateLayout,
		Folders:       database,
	})
	return nil
}

func addFilterFlags(cmd *cobra.Command) {
	cmd.Flags().String("folder", "", "Only articles in this folder")
	cmd.Flags().Bool("unread", false, "Only unread articles")
	cmd.Flags().Bool("flagged", false, "Only flagged articles")
	cmd.Flags().Bool("include-deleted", false, "Include articles in the trash")
	cmd.Flags().String("since", "", "Articles since date (1d, 1w, 2024-01-15, today, ...)")
	cmd.Flags().String("until", "", "Articles until date")
	cmd.Flags().Int("limit", 0, "Maximum number of articles (0 for all)")
}

func filterFromFlags(cmd *cobra.Command) (db.ArticleFilter, error) {
	unread, _ := cmd.Flags().GetBool("unread")
	flagged, _ := cmd.Flags().GetBool("flagged")
	includeDeleted, _ := cmd.Flags().GetBool("include-deleted")
	limit, _ := cmd.Flags().GetInt("limit")
	since, _ := cmd.Flags().GetString("since")
	until, _ := cmd.Flags().GetString("until")

	filter := db.ArticleFilter{
		UnreadOnly:     unread,
		FlaggedOnly:    flagged,
		IncludeDeleted: includeDeleted,
		Limit:          limit,
	}

	folderID, err := folderIDFromFlag(cmd)
	if err != nil {
		return filter, err
	}
	filter.FolderID = folderID

	filter.Since, filter.Until, err = util.FormatDateRange(since, until)
	if err != nil {
		return filter, err
	}

	return filter, nil
}

func folderIDFromFlag(cmd *cobra.Command) (*int64, error) {
	name, _ := cmd.Flags().GetString("folder")
	if name == "" {
		return nil, nil
	}

	folder, err := database.GetFolderByName(name)
	if errors.Is(err, db.ErrNotFound) {
		return nil, fmt.Errorf("folder %q not found", name)
	}
	if err != nil {
		return nil, err
	}
	return &folder.ID, nil
}

func runImport(cmd *cobra.Command, args []string) error {
	csvPath, _ := cmd.Flags().GetString("csv")

	if _, err := os.Stat(csvPath); os.IsNotExist(err) {
		return fmt.Errorf("CSV file does not exist: %s", csvPath)
	}

	imp := importer.New(database, logger)
	result, err := imp.ImportCSV(csvPath)
	if err != nil {
		return err
	}

	fmt.Printf("Imported %d articles (%d skipped)\n", result.Processed, result.Skipped)
	return nil
}

func runList(cmd *cobra.Command, args []string) error {
	jsonOutput, _ := cmd.Flags().GetBool("json")

	filter, err := filterFromFlags(cmd)
	if err != nil {
		return err
	}

	articles, err := database.ListArticles(filter)
	if err != nil {
		return err
	}

	if jsonOutput {
		summaries := make([]model.SearchResult, 0, len(articles))
		for _, a := range articles {
			summaries = append(summaries, summarize(a))
		}
		return writeJSON(summaries)
	}

	if len(articles) == 0 {
		fmt.Println("No articles found.")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "GUID\tDATE\tFLAGS\tFOLDER\tTITLE")
	for _, a := range articles {
		s := summarize(a)
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
			s.GUID,
			model.StrValue(s.PublicationDate),
			flagString(a),
			model.StrValue(s.Folder),
			model.StrValue(s.Title))
	}
	return w.Flush()
}

func summarize(a *model.Article) model.SearchResult {
	s := model.SearchResult{
		GUID:      a.GUID(),
		Title:     a.Title(),
		Link:      a.Link(),
		IsRead:    a.IsRead(),
		IsFlagged: a.IsFlagged(),
	}
	if folder, ok := database.Folder(a.FolderID()); ok {
		s.Folder = &folder.Name
	}
	date := a.PublicationDate()
	if date == nil {
		date = a.LastUpdate()
	}
	if date != nil {
		s.PublicationDate = model.Ptr(date.Format("2006-01-02"))
	}
	return s
}

func flagString(a *model.Article) string {
	flags := []byte("---")
	if !a.IsRead() {
		flags[0] = 'U'
	}
	if a.IsFlagged() {
		flags[1] = 'F'
	}
	if a.IsDeleted() {
		flags[2] = 'D'
	}
	return string(flags)
}

func runShow(cmd *cobra.Command, args []string) error {
	guid, _ := cmd.Flags().GetString("guid")
	jsonOutput, _ := cmd.Flags().GetBool("json")

	article, err := database.GetArticle(guid)
	if err != nil {
		return err
	}

	if jsonOutput {
		fields := make(map[string]any)
		for _, name := range showFields {
			if v, ok := article.Value(name); ok {
				fields[name] = v
			}
		}
		fields[model.FieldStatus] = article.Status().String()
		return writeJSON(fields)
	}

	fmt.Println(converter.ExpandTags(article, showTemplate, false))
	fmt.Println(converter.ExpandTags(article, showFolderTemplate, true))
	fmt.Printf("Flags: %s  Status: %s\n", flagString(article), article.Status())
	if body := model.StrValue(article.Body()); body != "" {
		fmt.Println()
		fmt.Println(body)
	}
	return nil
}

const (
	showTemplate       = "$ArticleTitle$\nGUID: $ArticleGUID$\nLink: $ArticleLink$\nAuthor: $ArticleAuthor$\nDate: $ArticleDate$"
	showFolderTemplate = "Folder: $FeedTitle$ $FeedLink$"
)

var showFields = []string{
	model.FieldGUID,
	model.FieldTitle,
	model.FieldAuthor,
	model.FieldLink,
	model.FieldPublicationDate,
	model.FieldLastUpdate,
	model.FieldEnclosure,
	model.FieldFolderID,
	model.FieldParentID,
	model.FieldRead,
	model.FieldFlagged,
	model.FieldDeleted,
	model.FieldBody,
}

func runExpand(cmd *cobra.Command, args []string) error {
	guid, _ := cmd.Flags().GetString("guid")
	tmpl, _ := cmd.Flags().GetString("template")
	conditional, _ := cmd.Flags().GetBool("conditional")

	if data, err := os.ReadFile(tmpl); err == nil {
		tmpl = string(data)
	}

	article, err := database.GetArticle(guid)
	if err != nil {
		return err
	}

	fmt.Print(converter.ExpandTags(article, tmpl, conditional))
	return nil
}

func runRender(cmd *cobra.Command, args []string) error {
	guids, _ := cmd.Flags().GetStringSlice("guid")
	out, _ := cmd.Flags().GetString("out")

	folderID, err := folderIDFromFlag(cmd)
	if err != nil {
		return err
	}
	if len(guids) == 0 && folderID == nil {
		return fmt.Errorf("pass at least one --guid or a --folder")
	}

	filter := db.ArticleFilter{GUIDs: guids, FolderID: folderID}
	if len(guids) > 0 {
		filter.IncludeDeleted = true
		if err := checkGUIDs(guids); err != nil {
			return err
		}
	}

	exp := export.New(database, converter, logger)
	_, err = exp.Run(export.ExportOptions{
		Format: export.FormatHTML,
		Output: out,
		Filter: filter,
	}, os.Stdout)
	return err
}

func checkGUIDs(guids []string) error {
	articles, err := database.ListArticles(db.ArticleFilter{GUIDs: guids, IncludeDeleted: true})
	if err != nil {
		return err
	}

	found := make(map[string]bool, len(articles))
	for _, a := range articles {
		found[a.GUID()] = true
	}

	var missing []string
	for _, guid := range util.DedupeStrings(guids) {
		if !found[guid] {
			missing = append(missing, guid)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("articles not found: %s", strings.Join(missing, ", "))
	}
	return nil
}

func runExport(cmd *cobra.Command, args []string) error {
	format, _ := cmd.Flags().GetString("format")
	dir, _ := cmd.Flags().GetString("dir")
	out, _ := cmd.Flags().GetString("out")
	feedTitle, _ := cmd.Flags().GetString("feed-title")
	feedLink, _ := cmd.Flags().GetString("feed-link")
	feedDescription, _ := cmd.Flags().GetString("feed-description")

	filter, err := filterFromFlags(cmd)
	if err != nil {
		return err
	}

	if dir == "" {
		dir = cfg.Export.Directory
	}

	exp := export.New(database, converter, logger)
	count, err := exp.Run(export.ExportOptions{
		Format:          format,
		Directory:       dir,
		Output:          out,
		Filter:          filter,
		FeedTitle:       feedTitle,
		FeedLink:        feedLink,
		FeedDescription: feedDescription,
	}, os.Stdout)
	if err != nil {
		return err
	}

	if format == export.FormatMarkdown {
		fmt.Printf("Exported %d articles to %s\n", count, dir)
	}
	return nil
}

func runFetch(cmd *cobra.Command, args []string) error {
	limit, _ := cmd.Flags().GetInt("limit")
	guids, _ := cmd.Flags().GetStringSlice("guid")
	preferExtracted, _ := cmd.Flags().GetBool("prefer-extracted-title")

	if limit == 0 {
		limit = cfg.Fetch.Limit
	}

	folderID, err := folderIDFromFlag(cmd)
	if err != nil {
		return err
	}

	f := fetcher.New(database, fetcher.Options{
		Timeout:   cfg.Fetch.Timeout,
		Delay:     cfg.Fetch.Delay,
		UserAgent: cfg.Fetch.UserAgent,
	}, logger)

	result, err := f.FetchArticles(cmd.Context(), fetcher.FetchOptions{
		GUIDs:           guids,
		FolderID:        folderID,
		Limit:           limit,
		PreferExtracted: preferExtracted,
	})
	if err != nil {
		return err
	}

	fmt.Printf("Fetched %d articles, %d failed\n", result.Fetched, result.Failed)
	return nil
}

func runMark(cmd *cobra.Command, args []string) error {
	guids, _ := cmd.Flags().GetStringSlice("guid")

	var update db.FlagUpdate
	if cmd.Flags().Changed("read") {
		v, _ := cmd.Flags().GetBool("read")
		update.Read = &v
	}
	if cmd.Flags().Changed("flagged") {
		v, _ := cmd.Flags().GetBool("flagged")
		update.Flagged = &v
	}
	if cmd.Flags().Changed("deleted") {
		v, _ := cmd.Flags().GetBool("deleted")
		update.Deleted = &v
	}
	if update.Read == nil && update.Flagged == nil && update.Deleted == nil {
		return fmt.Errorf("nothing to change: pass --read, --flagged or --deleted")
	}

	for _, guid := range guids {
		if err := database.SetFlags(guid, update); err != nil {
			return err
		}
	}

	fmt.Printf("Updated %d articles\n", len(guids))
	return nil
}

func runDelete(cmd *cobra.Command, args []string) error {
	guids, _ := cmd.Flags().GetStringSlice("guid")

	for _, guid := range guids {
		if err := database.DeleteArticle(guid); err != nil {
			return err
		}
	}

	fmt.Printf("Deleted %d articles\n", len(guids))
	return nil
}

func runFolders(cmd *cobra.Command, args []string) error {
	jsonOutput, _ := cmd.Flags().GetBool("json")

	folders, err := database.ListFolders()
	if err != nil {
		return err
	}

	if jsonOutput {
		return writeJSON(folders)
	}

	fmt.Printf("%-5s %-30s %-8s %-8s %s\n", "ID", "NAME", "ARTICLES", "UNREAD", "HOME PAGE")
	fmt.Println(strings.Repeat("-", 80))

	for _, folder := range folders {
		fmt.Printf("%-5d %-30s %-8d %-8d %s\n", folder.ID, folder.Name, folder.ArticleCount,
			folder.UnreadCount, model.StrValue(folder.HomePage))
	}
	return nil
}

func runSearch(cmd *cobra.Command, args []string) error {
	var query string
	if len(args) > 0 {
		query = args[0]
	}

	field, _ := cmd.Flags().GetString("field")
	useFTS, _ := cmd.Flags().GetBool("fts")
	limit, _ := cmd.Flags().GetInt("limit")
	jsonOutput, _ := cmd.Flags().GetBool("json")
	unread, _ := cmd.Flags().GetBool("unread")
	includeDeleted, _ := cmd.Flags().GetBool("include-deleted")
	since, _ := cmd.Flags().GetString("since")
	until, _ := cmd.Flags().GetString("until")

	if query == "" && since == "" && until == "" {
		return fmt.Errorf("either a search query or date filters (--since/--until) must be provided")
	}

	s := search.New(database)
	return s.Search(search.SearchOptions{
		Query:          query,
		Field:          field,
		UseFTS:         useFTS,
		Limit:          limit,
		JSONOutput:     jsonOutput,
		Since:          since,
		Until:          until,
		UnreadOnly:     unread,
		IncludeDeleted: includeDeleted,
	}, os.Stdout)
}

func runStats(cmd *cobra.Command, args []string) error {
	jsonOutput, _ := cmd.Flags().GetBool("json")

	stats, err := database.Stats()
	if err != nil {
		return err
	}

	if jsonOutput {
		return writeJSON(stats)
	}

	fmt.Printf("Database Statistics\n")
	fmt.Printf("==================\n\n")
	fmt.Printf("  Articles:       %d\n", stats.Articles)
	fmt.Printf("  Unread:         %d\n", stats.Unread)
	fmt.Printf("  Flagged:        %d\n", stats.Flagged)
	fmt.Printf("  In trash:       %d\n", stats.Deleted)
	fmt.Printf("  Without body:   %d\n", stats.NoBody)
	fmt.Printf("  Folders:        %d\n", stats.Folders)

	if stats.NoBody > 0 {
		fmt.Printf("\n%d articles can be filled in with 'vienna-cli fetch'\n", stats.NoBody)
	}
	return nil
}

func runDoctor(cmd *cobra.Command, args []string) error {
	fmt.Println("Running database integrity checks...")

	if err := database.CheckIntegrity(); err != nil {
		return err
	}
	fmt.Println("Integrity and foreign key checks passed")

	fmt.Println("Rebuilding search index...")
	indexed, err := database.RebuildFTS()
	if err != nil {
		return err
	}

	fmt.Printf("Indexed %d articles\n", indexed)
	return nil
}

func runMCP(cmd *cobra.Command, args []string) error {
	logger.Info("starting MCP server", "version", version.GetMCPVersion(), "database", dbPath)

	server := mcp.NewServer(database, converter)
	return server.Start()
}

func writeJSON(v any) error {
	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	return encoder.Encode(v)
}
