package handlers

// Request is the invocation envelope. Body is used verbatim as the store key
// and as the generation prompt.
type Request struct {
	Body string `json:"body"`
}

// Response is built once per invocation and never mutated afterwards.
type Response struct {
	StatusCode int    `json:"statusCode"`
	Body       string `json:"body"`
}
