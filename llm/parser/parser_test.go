package parser

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestFileTypeFromExt(t *testing.T) {
	assert.Equal(t, FileTypeXLSX, FileTypeFromExt("xlsx"))
	assert.Equal(t, FileTypeXLSX, FileTypeFromExt("XLSM"))
	assert.Equal(t, FileTypeCSV, FileTypeFromExt("csv"))
	assert.Equal(t, FileTypeJSON, FileTypeFromExt("json"))
	assert.Equal(t, FileTypeUnknown, FileTypeFromExt("docx"))
}

func TestRegistryUnknownExtension(t *testing.T) {
	reg := DefaultRegistry("")
	_, err := reg.ReadFile(context.Background(), "notes.txt")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no reader found")
}

func TestCSVReader(t *testing.T) {
	path := writeFile(t, "source.csv", "\ufeffURL,Path,content\n"+
		"https://mysoftheaven.com/about,/about,About Mysoft Heaven\n"+
		"https://mysoftheaven.com/short,/short\n")

	records, err := DefaultRegistry("").ReadFile(context.Background(), path)
	require.NoError(t, err)
	require.Len(t, records, 2)

	assert.Equal(t, "https://mysoftheaven.com/about", records[0].URL)
	assert.Equal(t, "/about", records[0].Path)
	assert.Equal(t, "About Mysoft Heaven", records[0].Content)
	assert.Equal(t, 1, records[0].Row)
	assert.Equal(t, path, records[0].SourceFile)

	// ragged rows degrade to empty cells
	assert.Equal(t, "/short", records[1].Path)
	assert.Equal(t, "", records[1].Content)
	assert.Equal(t, 2, records[1].Row)
}

func TestCSVReaderHeaderOnly(t *testing.T) {
	path := writeFile(t, "empty.csv", "url,path,content\n")
	records, err := NewCSVReader().ReadFile(context.Background(), path)
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestCSVReaderMissingFile(t *testing.T) {
	_, err := NewCSVReader().ReadFile(context.Background(), filepath.Join(t.TempDir(), "missing.csv"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestJSONReader(t *testing.T) {
	path := writeFile(t, "source.json", `[
		{"URL": "https://mysoftheaven.com/services", "Path": "/services", "content": "<p>ERP</p>"},
		{"url": 5, "path": "/x", "content": null}
	]`)

	records, err := NewJSONReader().ReadFile(context.Background(), path)
	require.NoError(t, err)
	require.Len(t, records, 2)

	assert.Equal(t, "https://mysoftheaven.com/services", records[0].URL)
	assert.Equal(t, "/services", records[0].Path)
	assert.Equal(t, "<p>ERP</p>", records[0].Content)

	// non-string values degrade to ""
	assert.Equal(t, "", records[1].URL)
	assert.Equal(t, "", records[1].Content)
	assert.Equal(t, 2, records[1].Row)
}

func TestJSONReaderRejectsObject(t *testing.T) {
	path := writeFile(t, "bad.json", `{"url": "x"}`)
	_, err := NewJSONReader().ReadFile(context.Background(), path)
	assert.Error(t, err)
}

func writeWorkbook(t *testing.T, sheet string, rows [][]interface{}) string {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()

	name := "Sheet1"
	if sheet != "" {
		_, err := f.NewSheet(sheet)
		require.NoError(t, err)
		name = sheet
	}
	for i, row := range rows {
		cellName, err := excelize.CoordinatesToCellName(1, i+1)
		require.NoError(t, err)
		require.NoError(t, f.SetSheetRow(name, cellName, &row))
	}

	path := filepath.Join(t.TempDir(), "source.xlsx")
	require.NoError(t, f.SaveAs(path))
	return path
}

func TestXLSXReader(t *testing.T) {
	path := writeWorkbook(t, "", [][]interface{}{
		{"url", "Path", "Content"},
		{"https://mysoftheaven.com/", "/", "Mysoft Heaven builds software for government and business."},
		{"https://mysoftheaven.com/contact", "/contact"},
	})

	records, err := DefaultRegistry("").ReadFile(context.Background(), path)
	require.NoError(t, err)
	require.Len(t, records, 2)

	assert.Equal(t, "https://mysoftheaven.com/", records[0].URL)
	assert.Equal(t, "Mysoft Heaven builds software for government and business.", records[0].Content)
	assert.Equal(t, "/contact", records[1].Path)
	assert.Equal(t, "", records[1].Content)
}

func TestXLSXReaderNamedSheet(t *testing.T) {
	path := writeWorkbook(t, "Pages", [][]interface{}{
		{"URL", "PATH", "CONTENT"},
		{"https://mysoftheaven.com/erp", "/erp", "ERP suite"},
	})

	records, err := NewXLSXReader("Pages").ReadFile(context.Background(), path)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "ERP suite", records[0].Content)

	_, err = NewXLSXReader("Missing").ReadFile(context.Background(), path)
	assert.Error(t, err)
}

func TestHTMLParserStrip(t *testing.T) {
	content := `<html><head><title>About  Us</title><style>p{}</style></head>
<body><nav>Home | Services</nav><h1>Mysoft</h1>
<p>We build <b>software</b>.</p><script>var x = 1;</script><footer>Footer links</footer></body></html>`

	result, err := NewHTMLParser().Strip(content)
	require.NoError(t, err)
	assert.Equal(t, "About Us", result.Title)
	assert.Equal(t, "Mysoft We build software .", result.Text)
}

func TestHTMLParserTitleFallsBackToHeading(t *testing.T) {
	result, err := NewHTMLParser().Strip("<div><h1> Our   Services </h1><p>ERP</p></div>")
	require.NoError(t, err)
	assert.Equal(t, "Our Services", result.Title)
	assert.Contains(t, result.Text, "ERP")
}

func TestLooksLikeHTML(t *testing.T) {
	assert.True(t, LooksLikeHTML("<p>text</p>"))
	assert.False(t, LooksLikeHTML("plain text"))
	assert.False(t, LooksLikeHTML("a < b"))
}

func TestMarkdownConverter(t *testing.T) {
	conv := NewMarkdownConverter()

	plain, err := conv.Convert("  plain text  ")
	require.NoError(t, err)
	assert.Equal(t, "plain text", plain)

	markdown, err := conv.Convert("<h1>Services</h1><p>ERP and <b>HRM</b></p><script>x()</script>")
	require.NoError(t, err)
	assert.Contains(t, markdown, "# Services")
	assert.Contains(t, markdown, "**HRM**")
	assert.NotContains(t, markdown, "x()")
}
