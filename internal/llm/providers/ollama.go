package providers

import (
	"net/http"

	"github.com/khanglvm/cofounder-hub/internal/llm"
)

// OllamaProvider implements Ollama's OpenAI-compatible endpoint.
type OllamaProvider struct{}

func init() {
	llm.RegisterProvider(&OllamaProvider{})
}

// Name returns the provider identifier.
func (o *OllamaProvider) Name() string {
	return "ollama"
}

// BuildURL constructs the chat completions endpoint.
func (o *OllamaProvider) BuildURL(baseURL, _ string) string {
	if baseURL == "" {
		baseURL = "http://localhost:11434/v1"
	}
	return chatCompletionsURL(baseURL)
}

// SetHeaders adds bearer authentication when a key is configured.
// Local Ollama ignores it; hosted gateways may require it.
func (o *OllamaProvider) SetHeaders(req *http.Request, apiKey string) {
	if apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+apiKey)
	}
}

// BuildRequestBody creates the chat completions request body.
func (o *OllamaProvider) BuildRequestBody(model string, messages []llm.Message, temperature float64) ([]byte, error) {
	return buildOpenAIBody(model, messages, temperature)
}

// ParseResponse extracts the first choice's content.
func (o *OllamaProvider) ParseResponse(body []byte) (string, error) {
	return parseOpenAIResponse(body)
}
