package models

// ErrorResponse is the error body of the prayer-times API. Error carries
// the human message the mobile client shows; Code is the machine code.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

// HealthResponse is the response for GET /api/v1/health.
type HealthResponse struct {
	Status  string `json:"status"` // "healthy" or "empty"
	Uptime  string `json:"uptime"`
	Cities  int    `json:"cities"`
	Records int    `json:"records"`
	Source  string `json:"source"`
	Version string `json:"version"`
}

// RunSummary describes a finished scrape run.
type RunSummary struct {
	Cities  int    `json:"cities"`
	Records int    `json:"records"`
	Output  string `json:"output"`
	Format  string `json:"format"`
	Year    int    `json:"year"`
}
