package output

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/use-agent/prayertimes/config"
	"github.com/use-agent/prayertimes/models"
)

var headers = []string{"Ден", "Зора", "Изгрев", "Обяд", "Следобяд", "Залез", "Нощ"}

func sampleAggregate() *models.Aggregate {
	agg := models.NewAggregate()

	sofia := models.NewCityTimes()
	sofia.Put("2025-01-01", models.ZipRecord(headers, []string{"1", "06:05", "07:57", "12:29", "14:47", "17:01", "18:35"}))
	sofia.Put("2025-01-02", models.ZipRecord(headers, []string{"2", "06:05", "07:57", "12:30", "14:48", "17:02", "18:36"}))
	agg.Merge("София", sofia)

	ruse := models.NewCityTimes()
	ruse.Put("2025-01-01", models.ZipRecord(headers, []string{"1", "05:52", "07:46", "12:15", "14:30", "16:44", "18:20"}))
	agg.Merge("Русе", ruse)

	agg.Merge("Смолян", models.NewCityTimes())
	return agg
}

// flatten lists every (city, date, header, value) in iteration order so
// order differences show up in the diff.
func flatten(agg *models.Aggregate) []string {
	var out []string
	agg.Each(func(city string, times *models.CityTimes) {
		out = append(out, "city:"+city)
		times.Each(func(date string, rec *models.Record) {
			values := rec.Values()
			for i, h := range rec.Headers() {
				out = append(out, city+"|"+date+"|"+h+"|"+values[i])
			}
		})
	})
	return out
}

func TestWriteJSON_Format(t *testing.T) {
	agg := models.NewAggregate()
	times := models.NewCityTimes()
	times.Put("2025-01-01", models.ZipRecord([]string{"Day", "Fajr", "Dhuhr"}, []string{"1", "05:30", "12:10"}))
	agg.Merge("Sofia", times)

	path := filepath.Join(t.TempDir(), "all_prayer_times_2025.json")
	require.NoError(t, Write(context.Background(), path, config.FormatJSON, agg))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	want := `{
    "Sofia": {
        "2025-01-01": {
            "Day": "1",
            "Fajr": "05:30",
            "Dhuhr": "12:10"
        }
    }
}
`
	assert.Equal(t, want, string(data))
}

func TestWriteJSON_UnescapedUnicode(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.json")
	require.NoError(t, WriteJSON(path, sampleAggregate()))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"София": {`)
	assert.Contains(t, string(data), `"Следобяд": "14:47"`)
	assert.Contains(t, string(data), `"Смолян": {}`)
	assert.NotContains(t, string(data), `\u`)
}

func TestWriteJSON_WritesMarkupAndSeparatorsLiterally(t *testing.T) {
	agg := models.NewAggregate()
	times := models.NewCityTimes()
	times.Put("2025-01-01", models.ZipRecord([]string{"Ден", "A<B&C"}, []string{"1", "x>y\u2028"}))
	agg.Merge("Sofia & <Co>", times)

	path := filepath.Join(t.TempDir(), "out.json")
	require.NoError(t, WriteJSON(path, agg))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"Sofia & <Co>": {`)
	assert.Contains(t, string(data), "\"A<B&C\": \"x>y\u2028\"")
	assert.NotContains(t, string(data), `\u`)

	back, err := LoadJSON(path)
	require.NoError(t, err)
	assert.Equal(t, flatten(agg), flatten(back))
}

func TestWriteJSON_Overwrites(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.json")
	require.NoError(t, os.WriteFile(path, []byte(strings.Repeat("x", 4096)), 0o644))

	require.NoError(t, WriteJSON(path, models.NewAggregate()))
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "{}\n", string(data))
}

func TestRoundTrip(t *testing.T) {
	for _, format := range []string{config.FormatJSON, config.FormatYAML, config.FormatSQLite} {
		t.Run(format, func(t *testing.T) {
			ctx := context.Background()
			path := filepath.Join(t.TempDir(), "out."+format)
			want := sampleAggregate()

			require.NoError(t, Write(ctx, path, format, want))
			// A second write replaces the first.
			require.NoError(t, Write(ctx, path, format, want))

			got, err := Load(ctx, path, format)
			require.NoError(t, err)
			if diff := cmp.Diff(flatten(want), flatten(got)); diff != "" {
				t.Errorf("round trip mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestLoad_Missing(t *testing.T) {
	for _, format := range []string{config.FormatJSON, config.FormatYAML, config.FormatSQLite} {
		_, err := Load(context.Background(), filepath.Join(t.TempDir(), "nope"), format)
		require.Error(t, err, format)
		assert.Equal(t, models.ErrCodeOutput, models.CodeOf(err))
	}
}

func TestWrite_UnknownFormat(t *testing.T) {
	err := Write(context.Background(), "x", "csv", models.NewAggregate())
	require.Error(t, err)
	assert.Equal(t, models.ErrCodeInvalidInput, models.CodeOf(err))
}

func TestWrite_UnwritablePath(t *testing.T) {
	path := filepath.Join(t.TempDir(), "missing-dir", "out.json")
	err := Write(context.Background(), path, config.FormatJSON, sampleAggregate())
	require.Error(t, err)
	assert.Equal(t, models.ErrCodeOutput, models.CodeOf(err))
}

func TestFormatOf(t *testing.T) {
	tests := map[string]string{
		"all_prayer_times_2025.json": config.FormatJSON,
		"times.yaml":                 config.FormatYAML,
		"times.YML":                  config.FormatYAML,
		"times.db":                   config.FormatSQLite,
		"times.sqlite3":              config.FormatSQLite,
		"times":                      config.FormatJSON,
	}
	for path, want := range tests {
		assert.Equal(t, want, FormatOf(path), path)
	}
}
