// Package dedup implements two-tier duplicate detection: an exact
// content-hash check backed by the relational store, then a semantic
// check against a vector index.
package dedup

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"strings"
	"time"
)

// Embedder turns text into a fixed-dimension vector.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	Dimensions() int
}

// HTTPEmbedderOptions configures the embedding service client.
type HTTPEmbedderOptions struct {
	Endpoint   string
	Model      string
	Dimensions int
	Timeout    time.Duration
}

// HTTPEmbedder calls an OpenAI-compatible embeddings endpoint.
type HTTPEmbedder struct {
	endpoint   string
	model      string
	dimensions int
	client     *http.Client
}

type embedRequest struct {
	Input []string `json:"input"`
	Model string   `json:"model"`
}

type embedResponse struct {
	Data []struct {
		Index     int       `json:"index"`
		Embedding []float64 `json:"embedding"`
	} `json:"data"`
	Embeddings [][]float64 `json:"embeddings"`
}

func NewHTTPEmbedder(options HTTPEmbedderOptions) (*HTTPEmbedder, error) {
	if strings.TrimSpace(options.Endpoint) == "" {
		return nil, fmt.Errorf("embedding endpoint is required")
	}
	if options.Dimensions <= 0 {
		return nil, fmt.Errorf("embedding dimensions must be positive, got %d", options.Dimensions)
	}
	timeout := options.Timeout
	if timeout <= 0 {
		timeout = 45 * time.Second
	}
	return &HTTPEmbedder{
		endpoint:   options.Endpoint,
		model:      options.Model,
		dimensions: options.Dimensions,
		client:     &http.Client{Timeout: timeout},
	}, nil
}

func (e *HTTPEmbedder) Dimensions() int { return e.dimensions }

func (e *HTTPEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, fmt.Errorf("cannot embed empty text")
	}

	payload, err := json.Marshal(embedRequest{Input: []string{text}, Model: e.model})
	if err != nil {
		return nil, fmt.Errorf("encode embedding request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("build embedding request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := e.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("call embedding service: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("embedding service returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var decoded embedResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, fmt.Errorf("decode embedding response: %w", err)
	}

	raw, err := firstEmbedding(decoded)
	if err != nil {
		return nil, err
	}
	if len(raw) != e.dimensions {
		return nil, fmt.Errorf("embedding dimension mismatch: expected %d, got %d", e.dimensions, len(raw))
	}

	vector := make([]float32, len(raw))
	for i, v := range raw {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return nil, fmt.Errorf("embedding contains non-finite value at index %d", i)
		}
		vector[i] = float32(v)
	}
	return vector, nil
}

// firstEmbedding accepts both the OpenAI data array and the bare
// embeddings array some local servers return.
func firstEmbedding(resp embedResponse) ([]float64, error) {
	if len(resp.Data) > 0 {
		return resp.Data[0].Embedding, nil
	}
	if len(resp.Embeddings) > 0 {
		return resp.Embeddings[0], nil
	}
	return nil, fmt.Errorf("embedding response contained no vectors")
}
