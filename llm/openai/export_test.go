package openai

// Export convert functions for testing
var (
	ResponseFormat   = responseFormat
	StrictJSONSchema = strictJSONSchema
)

// Export for testing
type APIClient = apiClient

// NewClientWithAPIClient creates a client with a custom API client for testing
func NewClientWithAPIClient(client apiClient, model string) *Client {
	return &Client{
		apiClient:    client,
		defaultModel: model,
	}
}
