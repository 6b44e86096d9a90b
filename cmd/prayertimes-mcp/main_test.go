package main

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fakeAPI(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/cities", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("X-API-Key") != "k" {
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"error":"invalid API key","code":"UNAUTHORIZED"}`))
			return
		}
		_, _ = w.Write([]byte(`["София","Айтос"]`))
	})
	mux.HandleFunc("/times", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("city") != "София" {
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte(`{"error":"City not found","code":"NOT_FOUND"}`))
			return
		}
		_, _ = w.Write([]byte(`{"Ден":"1","Зора":"05:30","Обедна":"12:10"}`))
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func callTool(args map[string]any) mcp.CallToolRequest {
	var req mcp.CallToolRequest
	req.Params.Arguments = args
	return req
}

func resultText(t *testing.T, res *mcp.CallToolResult) string {
	t.Helper()
	require.NotEmpty(t, res.Content)
	text, ok := res.Content[0].(mcp.TextContent)
	require.True(t, ok, "content is %T", res.Content[0])
	return text.Text
}

func TestListCities(t *testing.T) {
	srv := fakeAPI(t)

	res, err := handleListCities(newAPIClient(srv.URL, "k"))(context.Background(), callTool(nil))
	require.NoError(t, err)
	assert.False(t, res.IsError)
	assert.Equal(t, "2 cities:\n- София\n- Айтос\n", resultText(t, res))
}

func TestListCitiesUnauthorized(t *testing.T) {
	srv := fakeAPI(t)

	res, err := handleListCities(newAPIClient(srv.URL, ""))(context.Background(), callTool(nil))
	require.NoError(t, err)
	assert.True(t, res.IsError)
	assert.Equal(t, "invalid API key (HTTP 401)", resultText(t, res))
}

func TestGetPrayerTimes(t *testing.T) {
	srv := fakeAPI(t)
	handle := handleGetPrayerTimes(newAPIClient(srv.URL+"/", "k"))

	tests := []struct {
		name    string
		args    map[string]any
		wantErr bool
		want    string
	}{
		{
			name: "found keeps column order",
			args: map[string]any{"city": "София", "date": "2025-01-01"},
			want: "Prayer times for София on 2025-01-01:\nДен: 1\nЗора: 05:30\nОбедна: 12:10\n",
		},
		{
			name:    "unknown city",
			args:    map[string]any{"city": "Варна", "date": "2025-01-01"},
			wantErr: true,
			want:    "City not found (HTTP 404)",
		},
		{
			name:    "missing date",
			args:    map[string]any{"city": "София"},
			wantErr: true,
			want:    "date is required",
		},
		{
			name:    "bad date",
			args:    map[string]any{"city": "София", "date": "1.1.2025"},
			wantErr: true,
			want:    `date "1.1.2025" is not in YYYY-MM-DD format`,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := handle(context.Background(), callTool(tt.args))
			require.NoError(t, err)
			assert.Equal(t, tt.wantErr, res.IsError)
			assert.Equal(t, tt.want, resultText(t, res))
		})
	}
}
