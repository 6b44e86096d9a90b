package extract

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/use-agent/prayertimes/models"
)

var dayLabels = []string{"Ден", "Day"}

func newExtractor(t *testing.T) *TableExtractor {
	t.Helper()
	e, err := NewTableExtractor("table", dayLabels)
	require.NoError(t, err)
	return e
}

func TestExtract_Rows(t *testing.T) {
	page := `<html><body>
<table class="times">
  <tr><th>Ден</th><th>Зора</th><th>Обяд</th></tr>
  <tr><td>1</td><td> 05:30 </td><td>12:10</td></tr>
  <tr><td>2</td><td>05:31</td><td>12:11</td></tr>
</table>
<table><tr><th>Other</th></tr><tr><td>x</td></tr></table>
</body></html>`

	res, err := newExtractor(t).Extract(page)
	require.NoError(t, err)
	require.True(t, res.Found)

	assert.Equal(t, []string{"Ден", "Зора", "Обяд"}, res.Headers)
	require.Len(t, res.Days, 2)
	assert.Equal(t, "1", res.Days[0].Day)
	assert.Equal(t, "2", res.Days[1].Day)

	rec := res.Days[0].Record
	assert.Equal(t, res.Headers, rec.Headers(), "record key set equals header set, in order")
	v, ok := rec.Get("Зора")
	assert.True(t, ok)
	assert.Equal(t, "05:30", v)

	assert.Zero(t, res.Malformed)
	assert.Zero(t, res.MissingDay)
	assert.Contains(t, res.HTML, `class="times"`)
	assert.Len(t, res.Cells, 2)
}

func TestExtract_DropsMismatchedRows(t *testing.T) {
	page := `<table>
  <tr><th>Day</th><th>Fajr</th><th>Dhuhr</th></tr>
  <tr><td>1</td><td>05:30</td></tr>
  <tr><td>2</td><td>05:31</td><td>12:10</td><td>extra</td></tr>
  <tr><td>3</td><td>05:32</td><td>12:11</td></tr>
</table>`

	res, err := newExtractor(t).Extract(page)
	require.NoError(t, err)

	require.Len(t, res.Days, 1)
	assert.Equal(t, "3", res.Days[0].Day)
	assert.Equal(t, 2, res.Malformed)
	assert.Len(t, res.Cells, 3)
}

func TestExtract_DropsRowsWithoutDay(t *testing.T) {
	page := `<table>
  <tr><th>Ден</th><th>Зора</th></tr>
  <tr><td></td><td>05:30</td></tr>
  <tr><td>   </td><td>05:31</td></tr>
  <tr><td>3</td><td>05:32</td></tr>
</table>`

	res, err := newExtractor(t).Extract(page)
	require.NoError(t, err)

	require.Len(t, res.Days, 1)
	assert.Equal(t, "3", res.Days[0].Day)
	assert.Equal(t, 2, res.MissingDay)
}

func TestExtract_NoDayColumn(t *testing.T) {
	page := `<table>
  <tr><th>Дата</th><th>Зора</th></tr>
  <tr><td>1</td><td>05:30</td></tr>
</table>`

	res, err := newExtractor(t).Extract(page)
	require.NoError(t, err)
	assert.True(t, res.Found)
	assert.Empty(t, res.Days)
	assert.Equal(t, 1, res.MissingDay)
}

func TestExtract_NoTable(t *testing.T) {
	res, err := newExtractor(t).Extract(`<html><body><p>Няма данни</p></body></html>`)
	require.NoError(t, err)
	assert.False(t, res.Found)
	assert.Empty(t, res.Days)
	assert.Empty(t, res.Headers)
}

func TestExtract_HeaderOnly(t *testing.T) {
	res, err := newExtractor(t).Extract(`<table><tr><th>Ден</th></tr></table>`)
	require.NoError(t, err)
	assert.True(t, res.Found)
	assert.Empty(t, res.Days)
	assert.Empty(t, res.Cells)
}

func TestExtract_EmptyTable(t *testing.T) {
	for _, markup := range []string{
		`<html><body><table></table></body></html>`,
		`<table><tbody></tbody></table>`,
	} {
		res, err := newExtractor(t).Extract(markup)
		require.NoError(t, err, markup)
		assert.True(t, res.Found, markup)
		assert.Empty(t, res.Days, markup)
		assert.Empty(t, res.Cells, markup)
		assert.Empty(t, res.Headers, markup)
	}
}

func TestExtract_StrippedCellText(t *testing.T) {
	page := `<table>
  <tr><th> Ден </th><th>Зора <small>(утро)</small></th></tr>
  <tr><td>
    7
  </td><td> 05:30 <b>ч.</b> </td></tr>
</table>`

	res, err := newExtractor(t).Extract(page)
	require.NoError(t, err)

	assert.Equal(t, []string{"Ден", "Зора(утро)"}, res.Headers)
	require.Len(t, res.Days, 1)
	assert.Equal(t, "7", res.Days[0].Day)
	v, _ := res.Days[0].Record.Get("Зора(утро)")
	assert.Equal(t, "05:30ч.", v)
}

func TestExtract_FirstNonEmptyDayLabel(t *testing.T) {
	page := `<table>
  <tr><th>Ден</th><th>Day</th></tr>
  <tr><td></td><td>9</td></tr>
</table>`

	res, err := newExtractor(t).Extract(page)
	require.NoError(t, err)
	require.Len(t, res.Days, 1)
	assert.Equal(t, "9", res.Days[0].Day)
}

func TestNewTableExtractor_BadSelector(t *testing.T) {
	_, err := NewTableExtractor("table[", dayLabels)
	assert.Error(t, err)
}

func TestSnapshotter_Write(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "snapshots")
	s, err := NewSnapshotter(dir)
	require.NoError(t, err)

	res, err := newExtractor(t).Extract(`<table>
  <tr><th>Ден</th><th>Зора</th></tr>
  <tr><td>1</td><td>05:30</td></tr>
</table>`)
	require.NoError(t, err)

	path, err := s.Write(
		models.Option{Value: "1", Text: "София"},
		models.Option{Value: "01", Text: "Януари"},
		res.HTML,
	)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "1-01.md"), path)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	body := string(data)
	assert.True(t, strings.HasPrefix(body, "# София / Януари\n"))
	assert.Contains(t, body, "Зора")
	assert.Contains(t, body, "|")
	assert.Contains(t, body, "05:30")
}

func TestSafeName(t *testing.T) {
	tests := map[string]string{
		"1":       "1",
		"sofia":   "sofia",
		"a/b":     "a_b",
		"../etc":  "___etc",
		"":        "_",
		"Пловдив": "Пловдив",
	}
	for in, want := range tests {
		assert.Equal(t, want, safeName(in), "safeName(%q)", in)
	}
}
