package db

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"testing/fstest"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vienna-cli/internal/model"
)

func testDB(t *testing.T) *DB {
	t.Helper()
	database, err := New(filepath.Join(t.TempDir(), "test.sqlite"))
	require.NoError(t, err)
	t.Cleanup(func() { database.Close() })
	require.NoError(t, database.RunMigrations())
	return database
}

func fullArticle(guid string) *model.Article {
	published := time.Date(2020, 4, 1, 10, 30, 0, 0, time.UTC)
	updated := time.Date(2020, 4, 2, 8, 0, 0, 0, time.UTC)

	a := model.NewArticle(guid)
	a.SetTitle(model.Ptr("Lorem ipsum dolor sit amet"))
	a.SetAuthor(model.Ptr("Author McAuthorface"))
	a.SetLink(model.Ptr("http://www.vienna-rss.com"))
	a.SetBody(model.Ptr("<p>Pellentesque habitant</p>"))
	a.SetEnclosure(model.Ptr("http://vienna-rss.sourceforge.net/img/vienna_logo.png"))
	a.SetHasEnclosure(true)
	a.SetPublicationDate(&published)
	a.SetLastUpdate(&updated)
	a.SetStatus(model.StatusNew)
	a.SetParentID(5)
	a.SetFlagged(true)
	return a
}

func TestRunMigrations_Idempotent(t *testing.T) {
	database := testDB(t)
	require.NoError(t, database.RunMigrations())

	var count int
	require.NoError(t, database.Get(&count, "SELECT COUNT(*) FROM migrations"))
	assert.Equal(t, 1, count)
}

func TestRunMigrationsFrom_OrdersByVersion(t *testing.T) {
	database, err := New(filepath.Join(t.TempDir(), "m.sqlite"))
	require.NoError(t, err)
	defer database.Close()

	fsys := fstest.MapFS{
		"002_second.sql": {Data: []byte("INSERT INTO things (name) VALUES ('b');")},
		"001_first.sql":  {Data: []byte("CREATE TABLE things (name TEXT); INSERT INTO things (name) VALUES ('a');")},
		"notes.txt":      {Data: []byte("ignored")},
	}
	require.NoError(t, database.RunMigrationsFrom(fsys))

	var names []string
	require.NoError(t, database.Select(&names, "SELECT name FROM things ORDER BY rowid"))
	assert.Equal(t, []string{"a", "b"}, names)
}

func TestRunMigrationsDir(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "001_x.sql"), []byte("CREATE TABLE x (id INTEGER)"), 0o644))

	database, err := New(filepath.Join(t.TempDir(), "d.sqlite"))
	require.NoError(t, err)
	defer database.Close()

	require.NoError(t, database.RunMigrationsDir(dir))
	_, err = database.Exec("INSERT INTO x (id) VALUES (1)")
	assert.NoError(t, err)
}

func TestSaveAndGetArticle_RoundTrip(t *testing.T) {
	database := testDB(t)
	want := fullArticle("guid-1")

	require.NoError(t, database.SaveArticle(want))

	got, err := database.GetArticle("guid-1")
	require.NoError(t, err)

	assert.Equal(t, want.GUID(), got.GUID())
	assert.Equal(t, *want.Title(), *got.Title())
	assert.Equal(t, *want.Author(), *got.Author())
	assert.Equal(t, *want.Link(), *got.Link())
	assert.Equal(t, *want.Body(), *got.Body())
	assert.Equal(t, *want.Enclosure(), *got.Enclosure())
	assert.True(t, got.HasEnclosure())
	assert.True(t, want.PublicationDate().Equal(*got.PublicationDate()))
	assert.True(t, want.LastUpdate().Equal(*got.LastUpdate()))
	assert.Equal(t, model.StatusNew, got.Status())
	assert.Equal(t, int64(5), got.ParentID())
	assert.Equal(t, model.NoFolder, got.FolderID())
	assert.True(t, got.IsFlagged())
	assert.False(t, got.IsRead())
}

func TestSaveArticle_AbsentFieldsStayAbsent(t *testing.T) {
	database := testDB(t)
	require.NoError(t, database.SaveArticle(model.NewArticle("bare")))

	got, err := database.GetArticle("bare")
	require.NoError(t, err)

	assert.Nil(t, got.Title())
	assert.Nil(t, got.Enclosure())
	assert.Nil(t, got.PublicationDate())
	assert.Equal(t, model.NoFolder, got.FolderID())
	assert.Equal(t, model.NoParent, got.ParentID())
	assert.Equal(t, model.StatusEmpty, got.Status())
}

func TestSaveArticle_Updates(t *testing.T) {
	database := testDB(t)
	a := fullArticle("guid-1")
	require.NoError(t, database.SaveArticle(a))

	a.SetEnclosure(nil)
	a.SetTitle(model.Ptr("Changed"))
	require.NoError(t, database.SaveArticle(a))

	got, err := database.GetArticle("guid-1")
	require.NoError(t, err)
	assert.Nil(t, got.Enclosure())
	assert.Equal(t, "Changed", *got.Title())

	var ftsRows int
	require.NoError(t, database.Get(&ftsRows, "SELECT COUNT(*) FROM articles_fts WHERE guid = ?", "guid-1"))
	assert.Equal(t, 1, ftsRows)
}

func TestGetArticle_NotFound(t *testing.T) {
	_, err := testDB(t).GetArticle("missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestListArticles_Filters(t *testing.T) {
	database := testDB(t)

	folderID, err := database.UpsertFolder("News", nil, nil, nil)
	require.NoError(t, err)

	for i, guid := range []string{"a", "b", "c", "d"} {
		a := model.NewArticle(guid)
		published := time.Date(2021, 1, i+1, 0, 0, 0, 0, time.UTC)
		a.SetPublicationDate(&published)
		switch guid {
		case "a":
			a.SetRead(true)
			a.SetFolderID(folderID)
		case "b":
			a.SetFlagged(true)
			a.SetFolderID(folderID)
		case "c":
			a.SetDeleted(true)
		case "d":
			a.SetLink(model.Ptr("http://example.com/d"))
		}
		require.NoError(t, database.SaveArticle(a))
	}

	guids := func(articles []*model.Article) []string {
		var out []string
		for _, a := range articles {
			out = append(out, a.GUID())
		}
		return out
	}

	all, err := database.ListArticles(ArticleFilter{})
	require.NoError(t, err)
	assert.Equal(t, []string{"d", "b", "a"}, guids(all))

	withDeleted, err := database.ListArticles(ArticleFilter{IncludeDeleted: true})
	require.NoError(t, err)
	assert.Len(t, withDeleted, 4)

	unread, err := database.ListArticles(ArticleFilter{UnreadOnly: true})
	require.NoError(t, err)
	assert.Equal(t, []string{"d", "b"}, guids(unread))

	flagged, err := database.ListArticles(ArticleFilter{FlaggedOnly: true})
	require.NoError(t, err)
	assert.Equal(t, []string{"b"}, guids(flagged))

	inFolder, err := database.ListArticles(ArticleFilter{FolderID: &folderID})
	require.NoError(t, err)
	assert.Equal(t, []string{"b", "a"}, guids(inFolder))

	missingBody, err := database.ListArticles(ArticleFilter{MissingBody: true})
	require.NoError(t, err)
	assert.Equal(t, []string{"d"}, guids(missingBody))

	limited, err := database.ListArticles(ArticleFilter{Limit: 1})
	require.NoError(t, err)
	assert.Equal(t, []string{"d"}, guids(limited))

	since := time.Date(2021, 1, 2, 0, 0, 0, 0, time.UTC)
	until := time.Date(2021, 1, 3, 12, 0, 0, 0, time.UTC)
	ranged, err := database.ListArticles(ArticleFilter{Since: &since, Until: &until, IncludeDeleted: true})
	require.NoError(t, err)
	assert.Equal(t, []string{"c", "b"}, guids(ranged))

	byGUID, err := database.ListArticles(ArticleFilter{GUIDs: []string{"a", "missing", "d"}})
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "d"}, guids(byGUID))
}

func TestSetFlags(t *testing.T) {
	database := testDB(t)
	require.NoError(t, database.SaveArticle(fullArticle("guid-1")))

	read := true
	require.NoError(t, database.SetFlags("guid-1", FlagUpdate{Read: &read}))

	got, err := database.GetArticle("guid-1")
	require.NoError(t, err)
	assert.True(t, got.IsRead())
	assert.True(t, got.IsFlagged(), "untouched flags keep their value")

	assert.ErrorIs(t, database.SetFlags("missing", FlagUpdate{Read: &read}), ErrNotFound)
}

func TestDeleteArticle(t *testing.T) {
	database := testDB(t)
	require.NoError(t, database.SaveArticle(fullArticle("guid-1")))

	require.NoError(t, database.DeleteArticle("guid-1"))
	_, err := database.GetArticle("guid-1")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, database.DeleteArticle("guid-1"), ErrNotFound)
}

func TestFolders(t *testing.T) {
	database := testDB(t)

	id, err := database.UpsertFolder("Vienna", nil, model.Ptr("http://www.vienna-rss.com"), nil)
	require.NoError(t, err)

	again, err := database.UpsertFolder("Vienna", nil, nil, model.Ptr("Release notes"))
	require.NoError(t, err)
	assert.Equal(t, id, again)

	folder, ok := database.Folder(id)
	require.True(t, ok)
	assert.Equal(t, "Vienna", folder.Name)
	assert.Equal(t, "http://www.vienna-rss.com", *folder.HomePage)
	assert.Equal(t, "Release notes", *folder.Description)

	_, ok = database.Folder(model.NoFolder)
	assert.False(t, ok)
	_, ok = database.Folder(999)
	assert.False(t, ok)

	byName, err := database.GetFolderByName("Vienna")
	require.NoError(t, err)
	assert.Equal(t, id, byName.ID)

	a := fullArticle("guid-1")
	a.SetFolderID(id)
	require.NoError(t, database.SaveArticle(a))

	folders, err := database.ListFolders()
	require.NoError(t, err)
	require.Len(t, folders, 1)
	assert.Equal(t, 1, folders[0].ArticleCount)
	assert.Equal(t, 1, folders[0].UnreadCount)
}

func TestStatsAndRebuildFTS(t *testing.T) {
	database := testDB(t)
	require.NoError(t, database.SaveArticle(fullArticle("guid-1")))
	require.NoError(t, database.SaveArticle(model.NewArticle("guid-2")))

	stats, err := database.Stats()
	require.NoError(t, err)
	assert.Equal(t, 2, stats.Articles)
	assert.Equal(t, 2, stats.Unread)
	assert.Equal(t, 1, stats.Flagged)
	assert.Equal(t, 1, stats.NoBody)

	n, err := database.RebuildFTS()
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestCheckIntegrity(t *testing.T) {
	database := testDB(t)
	require.NoError(t, database.SaveArticle(fullArticle("guid-1")))
	require.NoError(t, database.CheckIntegrity())

	ctx := context.Background()
	conn, err := database.Conn(ctx)
	require.NoError(t, err)
	_, err = conn.ExecContext(ctx, "PRAGMA foreign_keys = OFF")
	require.NoError(t, err)
	_, err = conn.ExecContext(ctx, "INSERT INTO folders (name, parent_id) VALUES ('Orphan', 999)")
	require.NoError(t, err)
	_, err = conn.ExecContext(ctx, "PRAGMA foreign_keys = ON")
	require.NoError(t, err)
	require.NoError(t, conn.Close())

	err = database.CheckIntegrity()
	require.ErrorIs(t, err, ErrIntegrity)
	assert.Contains(t, err.Error(), "1 foreign key violations")
	assert.Contains(t, err.Error(), "folders row")
}
