package importer

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vienna-cli/internal/db"
	"vienna-cli/internal/model"
)

func newTestImporter(t *testing.T) (*Importer, *db.DB) {
	t.Helper()
	database, err := db.New(filepath.Join(t.TempDir(), "import.sqlite"))
	require.NoError(t, err)
	t.Cleanup(func() { database.Close() })
	require.NoError(t, database.RunMigrations())

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return New(database, logger), database
}

const legacyCSV = `GUID,Subject,Author,Link,Summary,Date,Folder,Enclosure,Colour
guid-1,Lorem ipsum,Author McAuthorface,http://www.vienna-rss.com,<p>Body</p>,"Wed, 01 Apr 2020 10:30:00 GMT",Vienna,http://example.com/a.mp3,red
guid-2,Second,,,,2020-04-02T08:00:00Z,,,
,No guid,,,,,,,
guid-3,Bad date,,,,not a date,,,
`

func TestImport_LegacyColumns(t *testing.T) {
	imp, database := newTestImporter(t)

	result, err := imp.Import(strings.NewReader(legacyCSV))
	require.NoError(t, err)
	assert.Equal(t, 2, result.Processed)
	assert.Equal(t, 2, result.Skipped)

	a, err := database.GetArticle("guid-1")
	require.NoError(t, err)
	assert.Equal(t, "Lorem ipsum", *a.Title())
	assert.Equal(t, "Author McAuthorface", *a.Author())
	assert.Equal(t, "http://www.vienna-rss.com", *a.Link())
	assert.Equal(t, "<p>Body</p>", *a.Body())
	assert.Equal(t, "http://example.com/a.mp3", *a.Enclosure())
	assert.True(t, a.HasEnclosure())
	require.NotNil(t, a.LastUpdate())
	assert.True(t, time.Date(2020, 4, 1, 10, 30, 0, 0, time.UTC).Equal(*a.LastUpdate()))

	folder, ok := database.Folder(a.FolderID())
	require.True(t, ok)
	assert.Equal(t, "Vienna", folder.Name)

	b, err := database.GetArticle("guid-2")
	require.NoError(t, err)
	assert.Nil(t, b.Author(), "empty cells stay absent")
	assert.Equal(t, model.NoFolder, b.FolderID())

	_, err = database.GetArticle("guid-3")
	assert.ErrorIs(t, err, db.ErrNotFound)
}

func TestImport_TypedColumns(t *testing.T) {
	imp, database := newTestImporter(t)

	csv := "guid,title,isRead,isFlagged,status,publicationDate\n" +
		"guid-1,Typed,true,1,new,1585737000\n" +
		"guid-2,Broken,maybe,,,\n"

	result, err := imp.Import(strings.NewReader(csv))
	require.NoError(t, err)
	assert.Equal(t, 1, result.Processed)
	assert.Equal(t, 1, result.Skipped)

	a, err := database.GetArticle("guid-1")
	require.NoError(t, err)
	assert.True(t, a.IsRead())
	assert.True(t, a.IsFlagged())
	assert.Equal(t, model.StatusNew, a.Status())
	assert.True(t, time.Unix(1585737000, 0).Equal(*a.PublicationDate()))
}

func TestImport_ReimportUpdates(t *testing.T) {
	imp, database := newTestImporter(t)

	_, err := imp.Import(strings.NewReader("GUID,Subject\nguid-1,First\n"))
	require.NoError(t, err)
	_, err = imp.Import(strings.NewReader("GUID,Subject\nguid-1,Second\n"))
	require.NoError(t, err)

	a, err := database.GetArticle("guid-1")
	require.NoError(t, err)
	assert.Equal(t, "Second", *a.Title())
}

func TestImport_RequiresGUIDColumn(t *testing.T) {
	imp, _ := newTestImporter(t)

	_, err := imp.Import(strings.NewReader("Subject,Link\nx,y\n"))
	assert.Error(t, err)

	_, err = imp.Import(strings.NewReader(""))
	assert.Error(t, err)
}

func TestImportCSV_File(t *testing.T) {
	imp, _ := newTestImporter(t)

	path := filepath.Join(t.TempDir(), "articles.csv")
	require.NoError(t, os.WriteFile(path, []byte("GUID,Subject\nguid-1,From file\n"), 0o644))

	result, err := imp.ImportCSV(path)
	require.NoError(t, err)
	assert.Equal(t, 1, result.Processed)

	_, err = imp.ImportCSV(filepath.Join(t.TempDir(), "missing.csv"))
	assert.Error(t, err)
}
