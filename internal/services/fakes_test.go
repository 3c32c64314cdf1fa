package services

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"sync"
	"testing"

	"github.com/orasync/orasync-backend/internal/platform/gcs"
	"github.com/orasync/orasync-backend/internal/platform/genai"
	"github.com/orasync/orasync-backend/internal/platform/logger"
	"github.com/orasync/orasync-backend/internal/progress"
)

func testLogger(t *testing.T) *logger.Logger {
	t.Helper()
	log, err := logger.New("test")
	if err != nil {
		t.Fatalf("logger.New: %v", err)
	}
	return log
}

// testPixelNoise returns a deterministic xorshift byte stream; noisy pixels
// keep the encoded PNGs above the 1000-byte payload validation floor.
func testPixelNoise() func() uint8 {
	seed := uint32(2463534242)
	return func() uint8 {
		seed ^= seed << 13
		seed ^= seed >> 17
		seed ^= seed << 5
		return uint8(seed)
	}
}

// testPNG builds an opaque PNG large enough to pass payload validation.
func testPNG(t *testing.T) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 96, 96))
	next := testPixelNoise()
	for y := 0; y < 96; y++ {
		for x := 0; x < 96; x++ {
			img.Set(x, y, color.RGBA{next(), next(), next(), 0xFF})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode test png: %v", err)
	}
	if buf.Len() < 1000 {
		t.Fatalf("test png too small: %d bytes", buf.Len())
	}
	return buf.Bytes()
}

// transparentPNG has alpha so the orchestrator must flatten it.
func transparentPNG(t *testing.T) []byte {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, 96, 96))
	next := testPixelNoise()
	for y := 0; y < 96; y++ {
		for x := 0; x < 96; x++ {
			img.Set(x, y, color.NRGBA{next(), next(), next(), uint8(x)})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode transparent png: %v", err)
	}
	return buf.Bytes()
}

type textCall struct {
	System string
	User   string
}

// fakeGenClient scripts text and image responses.
type fakeGenClient struct {
	mu sync.Mutex

	textResponses []string
	textErr       error
	textCalls     []textCall

	imageBytes    []byte
	imageErrFor   map[string]error // model -> error
	imageRequests []string         // models in call order
	chain         []string
}

func (f *fakeGenClient) GenerateText(ctx context.Context, system, user string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.textCalls = append(f.textCalls, textCall{System: system, User: user})
	if f.textErr != nil {
		return "", f.textErr
	}
	if len(f.textResponses) == 0 {
		return "", fmt.Errorf("no scripted response")
	}
	resp := f.textResponses[0]
	if len(f.textResponses) > 1 {
		f.textResponses = f.textResponses[1:]
	}
	return resp, nil
}

func (f *fakeGenClient) GenerateImage(ctx context.Context, prompt string, opts genai.ImageOptions) (genai.ImageGeneration, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.imageRequests = append(f.imageRequests, opts.Model)
	if err := f.imageErrFor[opts.Model]; err != nil {
		return genai.ImageGeneration{}, err
	}
	return genai.ImageGeneration{Bytes: f.imageBytes, MimeType: "image/png"}, nil
}

func (f *fakeGenClient) ImageModelChain() []string {
	if len(f.chain) == 0 {
		return []string{"model-a"}
	}
	return f.chain
}

// fakeBucket records uploads in memory.
type fakeBucket struct {
	mu      sync.Mutex
	objects map[string][]byte
	upErr   error
}

func newFakeBucket() *fakeBucket {
	return &fakeBucket{objects: map[string][]byte{}}
}

func (b *fakeBucket) UploadBytes(ctx context.Context, category gcs.BucketCategory, key string, data []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.upErr != nil {
		return b.upErr
	}
	b.objects[key] = data
	return nil
}

func (b *fakeBucket) SignedURL(category gcs.BucketCategory, key string) (string, error) {
	return "https://signed.example.com/" + key, nil
}

func (b *fakeBucket) GetPublicURL(category gcs.BucketCategory, key string) string {
	return "https://public.example.com/" + key
}

func (b *fakeBucket) keys() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]string, 0, len(b.objects))
	for k := range b.objects {
		out = append(out, k)
	}
	return out
}

// fakeImageCache is a plain map cache with call counters.
type fakeImageCache struct {
	mu      sync.Mutex
	entries map[string]string
	puts    int
}

func newFakeImageCache() *fakeImageCache {
	return &fakeImageCache{entries: map[string]string{}}
}

func (c *fakeImageCache) Get(ctx context.Context, prompt, level, styleHint, aspectRatio string) (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	url, ok := c.entries[CacheKey(prompt, level, styleHint, aspectRatio)]
	return url, ok
}

func (c *fakeImageCache) Put(ctx context.Context, prompt, level, styleHint, aspectRatio, url string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.puts++
	c.entries[CacheKey(prompt, level, styleHint, aspectRatio)] = url
}

// fakeRenderer returns a fixed payload without drawing anything.
type fakeRenderer struct {
	payload []byte
	err     error
	calls   int
}

func (r *fakeRenderer) Render(prompt string) ([]byte, error) {
	r.calls++
	if r.err != nil {
		return nil, r.err
	}
	return r.payload, nil
}

// fakeImageResolver substitutes the whole image service in pipeline tests.
type fakeImageResolver struct {
	mu       sync.Mutex
	requests []ImageRequest
	url      string
	err      error
}

func (f *fakeImageResolver) Resolve(ctx context.Context, req ImageRequest) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests = append(f.requests, req)
	if f.err != nil {
		return "", f.err
	}
	if f.url != "" {
		return f.url, nil
	}
	return "https://img.example.com/" + req.Prompt, nil
}

// fakeProgress records every transition for assertions.
type fakeProgress struct {
	mu     sync.Mutex
	stages []string
	failed bool
	done   bool
}

func (p *fakeProgress) Advance(ctx context.Context, requestID, stage string, currentStep, totalSteps int, detail string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.stages = append(p.stages, stage)
}

func (p *fakeProgress) Complete(ctx context.Context, requestID string, result any) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.done = true
}

func (p *fakeProgress) Fail(ctx context.Context, requestID, message string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.failed = true
}

func (p *fakeProgress) Get(ctx context.Context, requestID string) (*progress.Record, error) {
	return nil, nil
}

// fakeSynth returns scripted audio bytes.
type fakeSynth struct {
	mu    sync.Mutex
	audio []byte
	err   error
	calls int
}

func (s *fakeSynth) Synthesize(ctx context.Context, text string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	return s.audio, nil
}

func (s *fakeSynth) Close() error { return nil }

// fakePush counts notifications.
type fakePush struct {
	mu    sync.Mutex
	count int
}

func (n *fakePush) Notify(ctx context.Context, deviceToken, title, body string, data map[string]string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.count++
	return nil
}
