package websearch

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"docquery/internal/models"
	"docquery/internal/provider"
)

const providerName = "websearch"

// Client talks to a web-search-capable chat endpoint (OpenRouter online
// models and compatible gateways) and normalizes its native citations.
type Client struct {
	baseURL string
	key     string
	model   string
	client  *http.Client
}

// Result is the provider's answer plus its normalized web citations.
type Result struct {
	Answer    string
	Citations []models.WebResult
}

func NewClient(baseURL, key, model string, timeout time.Duration) *Client {
	if timeout == 0 {
		timeout = 60 * time.Second
	}
	return &Client{
		baseURL: baseURL,
		key:     key,
		model:   model,
		client:  &http.Client{Timeout: timeout},
	}
}

type searchMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type searchRequest struct {
	Model    string          `json:"model"`
	Messages []searchMessage `json:"messages"`
}

type searchResponse struct {
	Choices []struct {
		Message struct {
			Content     string `json:"content"`
			Annotations []struct {
				Type        string `json:"type"`
				URLCitation struct {
					URL     string `json:"url"`
					Title   string `json:"title"`
					Content string `json:"content"`
				} `json:"url_citation"`
			} `json:"annotations"`
		} `json:"message"`
	} `json:"choices"`
	Citations []string `json:"citations"`
	Error     *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// Search asks the provider to answer from the open web. Failures come back
// as classified provider errors so the caller can trigger mode fallback.
func (c *Client) Search(ctx context.Context, query string) (*Result, error) {
	if c.key == "" {
		return nil, provider.NewConfigurationError(providerName, "missing api key")
	}

	payload := searchRequest{
		Model: c.model,
		Messages: []searchMessage{
			{Role: "system", Content: models.WebSystemPrompt},
			{Role: "user", Content: query},
		},
	}

	jsonData, err := json.Marshal(payload)
	if err != nil {
		return nil, provider.Classify(providerName, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/chat/completions", bytes.NewBuffer(jsonData))
	if err != nil {
		return nil, provider.Classify(providerName, err)
	}
	req.Header.Set("Authorization", "Bearer "+c.key)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, provider.Classify(providerName, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, provider.NewHTTPError(providerName, resp.StatusCode, string(body))
	}

	var parsed searchResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, provider.Classify(providerName, err)
	}
	if parsed.Error != nil {
		return nil, provider.NewHTTPError(providerName, 502, parsed.Error.Message)
	}
	if len(parsed.Choices) == 0 {
		return nil, provider.NewHTTPError(providerName, 502, "empty choices in response")
	}

	msg := parsed.Choices[0].Message
	result := &Result{Answer: msg.Content}
	for _, a := range msg.Annotations {
		if a.Type != "url_citation" {
			continue
		}
		result.Citations = append(result.Citations, models.WebResult{
			Title:   a.URLCitation.Title,
			URL:     a.URLCitation.URL,
			Snippet: a.URLCitation.Content,
		})
	}
	// some gateways return bare citation urls instead of annotations
	for _, url := range parsed.Citations {
		result.Citations = append(result.Citations, models.WebResult{URL: url})
	}
	return result, nil
}
