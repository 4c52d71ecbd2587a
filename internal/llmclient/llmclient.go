// Package llmclient talks to the locally-hosted LLM runtime over HTTP. It
// refuses any non-loopback endpoint and validates model names before they
// ever reach a request, treating the runtime itself as an out-of-scope
// black-box HTTP service per the spec's external-collaborator boundary.
package llmclient

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"regexp"
	"strings"

	"github.com/ktiyab/coheara/internal/cherr"
)

var modelNamePattern = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9._-]*(/[A-Za-z0-9][A-Za-z0-9._-]*)?(:[A-Za-z0-9._-]+)?$`)

// ValidateModelName rejects path traversal, shell metacharacters, control
// characters and empty strings; otherwise requires an alphanumeric start.
func ValidateModelName(name string) error {
	if name == "" || !modelNamePattern.MatchString(name) {
		return cherr.Wrap(cherr.KindLLM, fmt.Sprintf("invalid model name %q", name), "choose a model from the installed list", false, cherr.ErrInvalidModelName)
	}
	return nil
}

var loopbackHosts = map[string]bool{
	"localhost": true,
	"127.0.0.1": true,
	"::1":       true,
	"[::1]":     true,
}

// ValidateBaseURL accepts only localhost/127.0.0.1/::1 hosts.
func ValidateBaseURL(rawURL string) error {
	u, err := url.Parse(rawURL)
	if err != nil {
		return cherr.Wrap(cherr.KindLLM, "malformed llm base url", "check the configured endpoint", false, cherr.ErrNonLocalEndpoint)
	}
	host := u.Hostname()
	if !loopbackHosts[host] {
		return cherr.Wrap(cherr.KindLLM, fmt.Sprintf("llm endpoint %q is not loopback", host), "the llm runtime must be reachable only on localhost", false, cherr.ErrNonLocalEndpoint)
	}
	return nil
}

// Client is a thin HTTP client over the runtime's Ollama-shaped API.
type Client struct {
	BaseURL string
	HTTP    *http.Client
}

// New validates baseURL and returns a Client, or an error if the endpoint
// is not loopback.
func New(baseURL string, httpClient *http.Client) (*Client, error) {
	if err := ValidateBaseURL(baseURL); err != nil {
		return nil, err
	}
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	return &Client{BaseURL: strings.TrimRight(baseURL, "/"), HTTP: httpClient}, nil
}

// Model describes one installed model entry from GET /api/tags.
type Model struct {
	Name string `json:"name"`
	Size int64  `json:"size"`
}

// ListModels calls GET /api/tags.
func (c *Client) ListModels(ctx context.Context) ([]Model, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.BaseURL+"/api/tags", nil)
	if err != nil {
		return nil, fmt.Errorf("llmclient.ListModels: %w", err)
	}
	resp, err := c.HTTP.Do(req)
	if err != nil {
		return nil, cherr.Wrap(cherr.KindLLM, "llm runtime unreachable", "start the local model runtime", true, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, cherr.New(cherr.KindLLM, fmt.Sprintf("llm list models: status %d", resp.StatusCode), "check the runtime logs", true)
	}
	var body struct {
		Models []Model `json:"models"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("llmclient.ListModels: %w", err)
	}
	return body.Models, nil
}

// GenerateRequest is a blocking generation call.
type GenerateRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
	Stream bool   `json:"stream"`
}

// GenerateResponse is the blocking response shape.
type GenerateResponse struct {
	Response string `json:"response"`
	Done     bool   `json:"done"`
}

// Generate performs a blocking (non-streaming) call to POST /api/generate.
func (c *Client) Generate(ctx context.Context, req GenerateRequest) (*GenerateResponse, error) {
	if err := ValidateModelName(req.Model); err != nil {
		return nil, err
	}
	req.Stream = false
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("llmclient.Generate: %w", err)
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+"/api/generate", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("llmclient.Generate: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	resp, err := c.HTTP.Do(httpReq)
	if err != nil {
		return nil, cherr.Wrap(cherr.KindLLM, "llm generate failed", "confirm the model runtime is running", true, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, cherr.New(cherr.KindLLM, fmt.Sprintf("llm generate: status %d", resp.StatusCode), "check the model name and runtime status", true)
	}
	var out GenerateResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("llmclient.Generate: %w", err)
	}
	return &out, nil
}

// TokenFunc receives each streamed token as it arrives from GenerateStream.
type TokenFunc func(token string) error

// GenerateStream streams POST /api/generate with stream=true, feeding each
// token's Response fragment to onToken until Done or the context ends.
// Callers wrap onToken with a streamguard.Guard to enforce degeneration
// limits; this client has no opinion on stream content.
func (c *Client) GenerateStream(ctx context.Context, req GenerateRequest, onToken TokenFunc) error {
	if err := ValidateModelName(req.Model); err != nil {
		return err
	}
	req.Stream = true
	body, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("llmclient.GenerateStream: %w", err)
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+"/api/generate", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("llmclient.GenerateStream: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	resp, err := c.HTTP.Do(httpReq)
	if err != nil {
		return cherr.Wrap(cherr.KindLLM, "llm generate stream failed", "confirm the model runtime is running", true, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return cherr.New(cherr.KindLLM, fmt.Sprintf("llm generate stream: status %d", resp.StatusCode), "check the model name and runtime status", true)
	}

	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var chunk GenerateResponse
		if err := json.Unmarshal(line, &chunk); err != nil {
			continue
		}
		if chunk.Response != "" {
			if err := onToken(chunk.Response); err != nil {
				return err
			}
		}
		if chunk.Done {
			break
		}
	}
	return scanner.Err()
}

// EmbedRequest asks the runtime to embed one text with the given model.
type EmbedRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
}

type embedResponse struct {
	Embedding []float32 `json:"embedding"`
}

// Embed calls POST /api/embeddings for a single text, returning its raw
// (not yet normalized) vector.
func (c *Client) Embed(ctx context.Context, model, text string) ([]float32, error) {
	if err := ValidateModelName(model); err != nil {
		return nil, err
	}
	body, err := json.Marshal(EmbedRequest{Model: model, Prompt: text})
	if err != nil {
		return nil, fmt.Errorf("llmclient.Embed: %w", err)
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+"/api/embeddings", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("llmclient.Embed: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	resp, err := c.HTTP.Do(httpReq)
	if err != nil {
		return nil, cherr.Wrap(cherr.KindLLM, "llm embed failed", "confirm the model runtime is running", true, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, cherr.New(cherr.KindLLM, fmt.Sprintf("llm embed: status %d", resp.StatusCode), "check the model name and runtime status", true)
	}
	var out embedResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("llmclient.Embed: %w", err)
	}
	return out.Embedding, nil
}

// ShowModelInfo is the parsed response from POST /api/show: a model's
// template, parameters, and modelfile, enough to surface capability tags
// (vision, tool-calling) to the model router without a separate manifest.
type ShowModelInfo struct {
	ModelFile  string            `json:"modelfile"`
	Parameters string            `json:"parameters"`
	Template   string            `json:"template"`
	Details    map[string]any    `json:"details"`
}

// ShowModel calls POST /api/show for one installed model's metadata.
func (c *Client) ShowModel(ctx context.Context, model string) (*ShowModelInfo, error) {
	if err := ValidateModelName(model); err != nil {
		return nil, err
	}
	body, err := json.Marshal(map[string]string{"name": model})
	if err != nil {
		return nil, fmt.Errorf("llmclient.ShowModel: %w", err)
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+"/api/show", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("llmclient.ShowModel: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	resp, err := c.HTTP.Do(httpReq)
	if err != nil {
		return nil, cherr.Wrap(cherr.KindLLM, "llm show model failed", "confirm the model runtime is running", true, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, cherr.New(cherr.KindLLM, fmt.Sprintf("llm show model: status %d", resp.StatusCode), "check the model name and runtime status", true)
	}
	var out ShowModelInfo
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("llmclient.ShowModel: %w", err)
	}
	return &out, nil
}

// DeleteModel calls DELETE /api/delete to remove an installed model.
func (c *Client) DeleteModel(ctx context.Context, model string) error {
	if err := ValidateModelName(model); err != nil {
		return err
	}
	body, err := json.Marshal(map[string]string{"name": model})
	if err != nil {
		return fmt.Errorf("llmclient.DeleteModel: %w", err)
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodDelete, c.BaseURL+"/api/delete", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("llmclient.DeleteModel: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	resp, err := c.HTTP.Do(httpReq)
	if err != nil {
		return cherr.Wrap(cherr.KindLLM, "llm delete model failed", "confirm the model runtime is running", true, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return cherr.New(cherr.KindLLM, fmt.Sprintf("llm delete model: status %d", resp.StatusCode), "check the model name and runtime status", true)
	}
	return nil
}

// PullProgress is one NDJSON progress line from POST /api/pull.
type PullProgress struct {
	Status    string `json:"status"`
	Completed int64  `json:"completed"`
	Total     int64  `json:"total"`
}

// pullCancel is the process-wide cancellation handle: starting a new pull
// replaces the previous one, whose producer observes context cancellation
// and stops. Only one pull is in flight at a time, per spec.md's Design
// Notes on global pull cancellation.
var pullCancel context.CancelFunc

// Pull streams POST /api/pull progress to onProgress. Calling Pull again
// cancels any pull already in flight.
func (c *Client) Pull(ctx context.Context, model string, onProgress func(PullProgress)) error {
	if err := ValidateModelName(model); err != nil {
		return err
	}
	if pullCancel != nil {
		pullCancel()
	}
	ctx, cancel := context.WithCancel(ctx)
	pullCancel = cancel
	defer cancel()

	body, err := json.Marshal(map[string]any{"name": model, "stream": true})
	if err != nil {
		return fmt.Errorf("llmclient.Pull: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+"/api/pull", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("llmclient.Pull: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := c.HTTP.Do(req)
	if err != nil {
		return cherr.Wrap(cherr.KindLLM, "llm pull failed", "check network access to the runtime", true, err)
	}
	defer resp.Body.Close()

	scanner := bufio.NewScanner(resp.Body)
	for scanner.Scan() {
		var p PullProgress
		if err := json.Unmarshal(scanner.Bytes(), &p); err != nil {
			continue
		}
		onProgress(p)
	}
	return scanner.Err()
}

// DialContextLoopbackOnly is a net.Dialer.DialContext hook that rejects a
// dial whose host is a non-loopback IP literal, a defense-in-depth backstop
// behind ValidateBaseURL for http.Transport configuration. A host name is
// dialed without being resolved or checked here.
func DialContextLoopbackOnly(ctx context.Context, network, addr string) (net.Conn, error) {
	host, _, err := net.SplitHostPort(addr)
	if err != nil {
		host = addr
	}
	ip := net.ParseIP(host)
	if ip != nil && !ip.IsLoopback() {
		return nil, cherr.Wrap(cherr.KindLLM, "refusing non-loopback dial", "the llm client is restricted to localhost", false, cherr.ErrNonLocalEndpoint)
	}
	d := &net.Dialer{}
	return d.DialContext(ctx, network, addr)
}
