package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/use-agent/prayertimes/models"
)

func main() {
	apiURL := os.Getenv("PRAYER_API_URL")
	if apiURL == "" {
		apiURL = "http://127.0.0.1:3000"
	}
	apiKey := os.Getenv("PRAYER_API_KEY")

	s := newServer(newAPIClient(apiURL, apiKey))

	if err := server.ServeStdio(s); err != nil {
		fmt.Fprintf(os.Stderr, "server error: %v\n", err)
		os.Exit(1)
	}
}

// newServer registers the prayer-times tools.
func newServer(client *resty.Client) *server.MCPServer {
	s := server.NewMCPServer(
		"prayertimes",
		"1.0.0",
		server.WithToolCapabilities(false),
	)

	listCitiesTool := mcp.NewTool("list_cities",
		mcp.WithDescription("List every city that has published prayer times, in the order the official site lists them."),
	)
	s.AddTool(listCitiesTool, handleListCities(client))

	prayerTimesTool := mcp.NewTool("get_prayer_times",
		mcp.WithDescription("Get the prayer times of one city for one day. Returns every column of the official table for that date (day number, dawn, sunrise, noon, afternoon, sunset and night prayer)."),
		mcp.WithString("city",
			mcp.Required(),
			mcp.Description("City name exactly as returned by list_cities, e.g. 'София'"),
		),
		mcp.WithString("date",
			mcp.Required(),
			mcp.Description("Date in YYYY-MM-DD format, e.g. '2025-01-01'"),
		),
	)
	s.AddTool(prayerTimesTool, handleGetPrayerTimes(client))

	return s
}

// newAPIClient returns a client for the prayer-times API. The key is sent
// only when set, matching an API started without auth.
func newAPIClient(apiURL, apiKey string) *resty.Client {
	client := resty.New().
		SetBaseURL(strings.TrimRight(apiURL, "/")).
		SetTimeout(30*time.Second).
		SetHeader("Accept", "application/json")
	if apiKey != "" {
		client.SetHeader("X-API-Key", apiKey)
	}
	return client
}

// apiGet performs a GET and returns the body of a 2xx response. Other
// statuses become an error carrying the API's message.
func apiGet(ctx context.Context, client *resty.Client, path string, query url.Values) ([]byte, error) {
	resp, err := client.R().
		SetContext(ctx).
		SetQueryParamsFromValues(query).
		Get(path)
	if err != nil {
		return nil, fmt.Errorf("API request failed: %w", err)
	}
	if resp.IsError() {
		var apiErr models.ErrorResponse
		if json.Unmarshal(resp.Body(), &apiErr) == nil && apiErr.Error != "" {
			return nil, fmt.Errorf("%s (HTTP %d)", apiErr.Error, resp.StatusCode())
		}
		return nil, fmt.Errorf("API returned HTTP %d", resp.StatusCode())
	}
	return resp.Body(), nil
}

func handleListCities(client *resty.Client) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		body, err := apiGet(ctx, client, "/cities", nil)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}

		var cities []string
		if err := json.Unmarshal(body, &cities); err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("failed to parse response: %v", err)), nil
		}
		if len(cities) == 0 {
			return mcp.NewToolResultText("No cities available."), nil
		}

		var sb strings.Builder
		fmt.Fprintf(&sb, "%d cities:\n", len(cities))
		for _, city := range cities {
			fmt.Fprintf(&sb, "- %s\n", city)
		}
		return mcp.NewToolResultText(sb.String()), nil
	}
}

func handleGetPrayerTimes(client *resty.Client) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		city, err := request.RequireString("city")
		if err != nil {
			return mcp.NewToolResultError("city is required"), nil
		}
		date, err := request.RequireString("date")
		if err != nil {
			return mcp.NewToolResultError("date is required"), nil
		}
		if _, err := time.Parse(time.DateOnly, date); err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("date %q is not in YYYY-MM-DD format", date)), nil
		}

		body, err := apiGet(ctx, client, "/times", url.Values{"city": {city}, "date": {date}})
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}

		rec := models.NewRecord()
		if err := json.Unmarshal(body, rec); err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("failed to parse response: %v", err)), nil
		}

		var sb strings.Builder
		fmt.Fprintf(&sb, "Prayer times for %s on %s:\n", city, date)
		for _, h := range rec.Headers() {
			v, _ := rec.Get(h)
			fmt.Fprintf(&sb, "%s: %s\n", h, v)
		}
		return mcp.NewToolResultText(sb.String()), nil
	}
}
