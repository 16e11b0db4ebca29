package session

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/mirrorwell/selftree/internal/model"
	"github.com/mirrorwell/selftree/pkg/apperr"
)

// HTTPGenerator calls an external persona-generation service. The service
// receives a GenerateRequest and answers with a JSON array of personas.
type HTTPGenerator struct {
	url    string
	client *http.Client
}

// NewHTTPGenerator builds a client for the service at url.
func NewHTTPGenerator(url string) *HTTPGenerator {
	return &HTTPGenerator{
		url:    url,
		client: &http.Client{Timeout: 120 * time.Second},
	}
}

// Generate implements PersonaGenerator.
func (g *HTTPGenerator) Generate(ctx context.Context, req GenerateRequest) ([]*model.Persona, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, apperr.Internal("marshal generate request", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, g.url, bytes.NewReader(body))
	if err != nil {
		return nil, apperr.Internal("build generate request", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := g.client.Do(httpReq)
	if err != nil {
		return nil, apperr.Internal("call persona generator", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, apperr.Internal(
			fmt.Sprintf("persona generator returned %d: %s", resp.StatusCode, snippet), nil)
	}

	var personas []*model.Persona
	if err := json.NewDecoder(resp.Body).Decode(&personas); err != nil {
		return nil, apperr.Internal("decode generator response", err)
	}
	return personas, nil
}
