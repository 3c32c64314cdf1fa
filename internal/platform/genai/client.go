// Package genai is the REST client for the text and image generation API.
// It speaks the OpenAI-compatible surface (/v1/responses and
// /v1/images/generations) so the backend can point at any compatible
// provider via GENAI_BASE_URL.
package genai

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/orasync/orasync-backend/internal/platform/envutil"
	"github.com/orasync/orasync-backend/internal/platform/httpx"
	"github.com/orasync/orasync-backend/internal/platform/logger"
)

// ImageGeneration is one generated raster image.
type ImageGeneration struct {
	Bytes         []byte
	MimeType      string
	RevisedPrompt string
}

// ImageOptions selects the model and geometry for one image request.
type ImageOptions struct {
	// Model overrides the configured primary image model. The orchestrator
	// uses this to walk the fallback chain.
	Model string
	// Size is "WxH", e.g. "1024x1024". Empty uses the configured default.
	Size string
}

// Client is the generation API client used by the rest of the backend.
type Client interface {
	// GenerateText returns plain assistant text for a system/user prompt pair.
	GenerateText(ctx context.Context, system string, user string) (string, error)

	// GenerateImage returns raster image bytes (PNG unless the provider says
	// otherwise).
	GenerateImage(ctx context.Context, prompt string, opts ImageOptions) (ImageGeneration, error)

	// ImageModelChain returns the configured image model ids in fallback
	// order: primary first, then fallback, then legacy. Entries are unique
	// and non-empty.
	ImageModelChain() []string
}

type client struct {
	log        *logger.Logger
	baseURL    string
	apiKey     string
	textModel  string
	imageSize  string
	modelChain []string
	httpClient *http.Client
	maxRetries int
}

func NewClient(log *logger.Logger) (Client, error) {
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}
	apiKey := strings.TrimSpace(envutil.String("GENAI_API_KEY", ""))
	if apiKey == "" {
		return nil, fmt.Errorf("missing GENAI_API_KEY")
	}

	baseURL := strings.TrimRight(envutil.String("GENAI_BASE_URL", "https://api.openai.com"), "/")
	textModel := envutil.String("GENAI_TEXT_MODEL", "gpt-4o-mini")

	primary := strings.TrimSpace(envutil.String("GENAI_IMAGE_MODEL", "gpt-image-1"))
	fallback := strings.TrimSpace(envutil.String("GENAI_IMAGE_MODEL_FALLBACK", ""))
	legacy := strings.TrimSpace(envutil.String("GENAI_IMAGE_MODEL_LEGACY", "dall-e-3"))

	chain := make([]string, 0, 3)
	seen := map[string]bool{}
	for _, m := range []string{primary, fallback, legacy} {
		if m == "" || seen[m] {
			continue
		}
		seen[m] = true
		chain = append(chain, m)
	}
	if len(chain) == 0 {
		return nil, fmt.Errorf("no image models configured")
	}

	timeout := time.Duration(envutil.Int("GENAI_TIMEOUT_SECONDS", 180)) * time.Second
	maxRetries := envutil.Int("GENAI_MAX_RETRIES", 2)

	return &client{
		log:        log.With("service", "GenAIClient"),
		baseURL:    baseURL,
		apiKey:     apiKey,
		textModel:  textModel,
		imageSize:  envutil.String("GENAI_IMAGE_SIZE", "1024x1024"),
		modelChain: chain,
		httpClient: &http.Client{Timeout: timeout},
		maxRetries: maxRetries,
	}, nil
}

func (c *client) ImageModelChain() []string {
	out := make([]string, len(c.modelChain))
	copy(out, c.modelChain)
	return out
}

type httpError struct {
	StatusCode int
	Body       string
}

func (e *httpError) Error() string {
	return fmt.Sprintf("genai http %d: %s", e.StatusCode, e.Body)
}

func (e *httpError) HTTPStatusCode() int {
	if e == nil {
		return 0
	}
	return e.StatusCode
}

func (c *client) doOnce(ctx context.Context, method, path string, body any) (*http.Response, []byte, error) {
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			return nil, nil, err
		}
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, &buf)
	if err != nil {
		return nil, nil, err
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, nil, err
	}
	raw, readErr := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	if readErr != nil {
		return resp, nil, readErr
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return resp, raw, &httpError{StatusCode: resp.StatusCode, Body: string(raw)}
	}
	return resp, raw, nil
}

func (c *client) do(ctx context.Context, method, path string, body any, out any) error {
	backoff := 1 * time.Second

	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		resp, raw, err := c.doOnce(ctx, method, path, body)
		if err == nil {
			if out == nil {
				return nil
			}
			if uErr := json.Unmarshal(raw, out); uErr != nil {
				return fmt.Errorf("genai decode error: %w; raw=%s", uErr, string(raw))
			}
			return nil
		}

		if !httpx.IsRetryableError(err) || attempt == c.maxRetries {
			return err
		}

		sleepFor := httpx.Jitter(httpx.RetryAfterDuration(resp, backoff, 10*time.Second))
		c.log.Warn("GenAI request retrying",
			"path", path,
			"attempt", attempt+1,
			"max_retries", c.maxRetries,
			"sleep", sleepFor.String(),
			"error", err.Error(),
		)
		time.Sleep(sleepFor)
		backoff *= 2
	}

	return fmt.Errorf("unreachable retry loop")
}

// -------------------- Responses API --------------------

type responsesRequest struct {
	Model string `json:"model"`

	Input []struct {
		Role    string `json:"role"`
		Content any    `json:"content"`
	} `json:"input"`
}

type responsesResponse struct {
	Output []struct {
		Type    string `json:"type"`
		Role    string `json:"role,omitempty"`
		Content []struct {
			Type string `json:"type"`
			Text string `json:"text,omitempty"`
		} `json:"content,omitempty"`
	} `json:"output"`
	Refusal string `json:"refusal,omitempty"`
}

func extractOutputText(resp responsesResponse) string {
	var out strings.Builder
	for _, item := range resp.Output {
		if item.Type == "message" && item.Role == "assistant" {
			for _, c := range item.Content {
				if c.Type == "output_text" && c.Text != "" {
					out.WriteString(c.Text)
				}
			}
		}
	}
	return out.String()
}

func (c *client) GenerateText(ctx context.Context, system string, user string) (string, error) {
	req := responsesRequest{
		Model: c.textModel,
		Input: []struct {
			Role    string `json:"role"`
			Content any    `json:"content"`
		}{
			{Role: "system", Content: strings.TrimSpace(system)},
			{Role: "user", Content: user},
		},
	}

	var resp responsesResponse
	if err := c.do(ctx, "POST", "/v1/responses", req, &resp); err != nil {
		return "", err
	}
	if resp.Refusal != "" {
		return "", fmt.Errorf("model refused: %s", resp.Refusal)
	}

	text := extractOutputText(resp)
	if strings.TrimSpace(text) == "" {
		return "", fmt.Errorf("no output_text found in response")
	}
	return text, nil
}

// -------------------- Images API --------------------

type imagesGenerationRequest struct {
	Model          string `json:"model"`
	Prompt         string `json:"prompt"`
	N              int    `json:"n,omitempty"`
	Size           string `json:"size,omitempty"`
	ResponseFormat string `json:"response_format,omitempty"` // b64_json|url
}

type imagesGenerationResponse struct {
	Data []struct {
		B64JSON       string `json:"b64_json"`
		URL           string `json:"url"`
		RevisedPrompt string `json:"revised_prompt"`
	} `json:"data"`
}

func isUnknownResponseFormatParam(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "unknown parameter") && strings.Contains(msg, "response_format")
}

func (c *client) GenerateImage(ctx context.Context, prompt string, opts ImageOptions) (ImageGeneration, error) {
	var out ImageGeneration
	prompt = strings.TrimSpace(prompt)
	if prompt == "" {
		return out, errors.New("image prompt required")
	}
	model := strings.TrimSpace(opts.Model)
	if model == "" {
		model = c.modelChain[0]
	}
	size := strings.TrimSpace(opts.Size)
	if size == "" {
		size = c.imageSize
	}

	responseFormat := "b64_json"
	if strings.HasPrefix(strings.ToLower(model), "gpt-image-") {
		responseFormat = ""
	}
	req := imagesGenerationRequest{
		Model:          model,
		Prompt:         prompt,
		N:              1,
		Size:           size,
		ResponseFormat: responseFormat,
	}

	var resp imagesGenerationResponse
	if err := c.do(ctx, "POST", "/v1/images/generations", req, &resp); err != nil {
		if isUnknownResponseFormatParam(err) {
			req.ResponseFormat = ""
			if err2 := c.do(ctx, "POST", "/v1/images/generations", req, &resp); err2 != nil {
				return out, err2
			}
		} else {
			return out, err
		}
	}
	if len(resp.Data) == 0 {
		return out, errors.New("no image returned")
	}
	item := resp.Data[0]
	out.RevisedPrompt = strings.TrimSpace(item.RevisedPrompt)

	b64 := strings.TrimSpace(item.B64JSON)
	if b64 == "" {
		if u := strings.TrimSpace(item.URL); u != "" {
			b, ct, err := c.downloadBytes(ctx, u)
			if err != nil {
				return out, fmt.Errorf("download generated image: %w", err)
			}
			out.Bytes = b
			out.MimeType = strings.TrimSpace(strings.Split(ct, ";")[0])
			if out.MimeType == "" {
				out.MimeType = "image/png"
			}
			return out, nil
		}
		return out, errors.New("image response missing b64_json and url")
	}

	raw, err := base64.StdEncoding.DecodeString(b64)
	if err != nil {
		return out, fmt.Errorf("decode image base64: %w", err)
	}
	if len(raw) == 0 {
		return out, errors.New("empty image payload")
	}
	out.Bytes = raw
	out.MimeType = "image/png"
	return out, nil
}

func (c *client) downloadBytes(ctx context.Context, rawURL string) ([]byte, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, "", err
	}
	// Signed blob URLs reject unrelated Authorization headers, so no auth here.
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, "", err
	}
	raw, readErr := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	if readErr != nil {
		return nil, "", readErr
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, "", &httpError{StatusCode: resp.StatusCode, Body: string(raw)}
	}
	return raw, strings.TrimSpace(resp.Header.Get("Content-Type")), nil
}
