package gemini

// Export convert functions for testing
var ConvertSchema = convertSchema

// Export for testing
type APIClient = apiClient

// NewClientWithAPIClient creates a client with a custom API client for testing
func NewClientWithAPIClient(client apiClient, model string) *Client {
	return &Client{
		apiClient:    client,
		defaultModel: model,
	}
}
