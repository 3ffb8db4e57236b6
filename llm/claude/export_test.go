package claude

// Export convert functions for testing
var BuildSystemBlocks = buildSystemBlocks

// Export for testing
type APIClient = apiClient

// NewClientWithAPIClient creates a client with a custom API client for testing
func NewClientWithAPIClient(client apiClient, model string, maxTokens int64) *Client {
	return &Client{
		apiClient:    client,
		defaultModel: model,
		maxTokens:    maxTokens,
	}
}
