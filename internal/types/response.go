package types

// GenerateResponse is the success body of POST /generate.
type GenerateResponse struct {
	Output string `json:"output"`
}

// HealthResponse is the body of GET /health.
type HealthResponse struct {
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"`
}
