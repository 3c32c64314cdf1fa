package services

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"strings"
	"testing"
)

func newTestImageService(t *testing.T, gen *fakeGenClient, bucket *fakeBucket, cache *fakeImageCache, renderer *fakeRenderer) ImageService {
	t.Helper()
	log := testLogger(t)
	return NewImageService(log, gen, bucket, cache, NewConsistencyManager(log), renderer)
}

func TestResolveReturnsCachedURLWithoutGenerating(t *testing.T) {
	gen := &fakeGenClient{}
	cache := newFakeImageCache()
	cache.Put(context.Background(), "a fox", LevelModerate, "", "", "https://cached.example.com/fox.png")

	svc := newTestImageService(t, gen, newFakeBucket(), cache, &fakeRenderer{})
	url, err := svc.Resolve(context.Background(), ImageRequest{Prompt: "a fox", UseCache: true})
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if url != "https://cached.example.com/fox.png" {
		t.Fatalf("url: got=%q", url)
	}
	if len(gen.imageRequests) != 0 {
		t.Fatalf("cache hit must not call the model, got %d calls", len(gen.imageRequests))
	}
}

func TestResolveUploadsAndCachesGeneratedImage(t *testing.T) {
	gen := &fakeGenClient{imageBytes: testPNG(t), chain: []string{"model-a", "model-b"}}
	bucket := newFakeBucket()
	cache := newFakeImageCache()

	svc := newTestImageService(t, gen, bucket, cache, &fakeRenderer{})
	url, err := svc.Resolve(context.Background(), ImageRequest{Prompt: "a fox", Level: LevelBeginner, UseCache: true})
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if !strings.HasPrefix(url, "https://signed.example.com/images/") {
		t.Fatalf("url: got=%q", url)
	}
	if len(bucket.keys()) != 1 {
		t.Fatalf("upload count: want=1 got=%d", len(bucket.keys()))
	}
	if cache.puts != 1 {
		t.Fatalf("cache put count: want=1 got=%d", cache.puts)
	}
	if len(gen.imageRequests) != 1 || gen.imageRequests[0] != "model-a" {
		t.Fatalf("model calls: got=%v", gen.imageRequests)
	}
}

func TestResolveWalksModelChainOnFailure(t *testing.T) {
	gen := &fakeGenClient{
		imageBytes:  testPNG(t),
		chain:       []string{"model-a", "model-b"},
		imageErrFor: map[string]error{"model-a": fmt.Errorf("overloaded")},
	}
	t.Setenv("IMAGE_RETRIES_PER_MODEL", "2")

	svc := newTestImageService(t, gen, newFakeBucket(), newFakeImageCache(), &fakeRenderer{})
	url, err := svc.Resolve(context.Background(), ImageRequest{Prompt: "a fox"})
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if url == "" {
		t.Fatal("expected a url from the fallback model")
	}
	// model-a is retried twice before the chain advances.
	want := []string{"model-a", "model-a", "model-b"}
	if len(gen.imageRequests) != len(want) {
		t.Fatalf("model calls: want=%v got=%v", want, gen.imageRequests)
	}
	for i, m := range want {
		if gen.imageRequests[i] != m {
			t.Fatalf("model calls: want=%v got=%v", want, gen.imageRequests)
		}
	}
}

func TestResolveFallsBackToPlaceholderAndNeverCachesIt(t *testing.T) {
	gen := &fakeGenClient{
		chain:       []string{"model-a"},
		imageErrFor: map[string]error{"model-a": fmt.Errorf("down")},
	}
	cache := newFakeImageCache()
	bucket := newFakeBucket()
	renderer := &fakeRenderer{payload: testPNG(t)}

	svc := newTestImageService(t, gen, bucket, cache, renderer)
	url, err := svc.Resolve(context.Background(), ImageRequest{Prompt: "a fox", UseCache: true})
	if err != nil {
		t.Fatalf("Resolve must degrade, not fail: %v", err)
	}
	if !strings.Contains(url, "placeholder") {
		t.Fatalf("expected a placeholder key in url, got %q", url)
	}
	if renderer.calls != 1 {
		t.Fatalf("renderer calls: want=1 got=%d", renderer.calls)
	}
	if cache.puts != 0 {
		t.Fatal("placeholder urls must never be cached")
	}
}

func TestResolveRejectsTinyPayloadsBeforeUpload(t *testing.T) {
	gen := &fakeGenClient{imageBytes: []byte("too small"), chain: []string{"model-a"}}
	bucket := newFakeBucket()
	renderer := &fakeRenderer{payload: testPNG(t)}

	svc := newTestImageService(t, gen, bucket, newFakeImageCache(), renderer)
	if _, err := svc.Resolve(context.Background(), ImageRequest{Prompt: "a fox"}); err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	for _, key := range bucket.keys() {
		if !strings.Contains(key, "placeholder") {
			t.Fatalf("invalid payload reached the bucket: %q", key)
		}
	}
}

func TestValidateAndFlattenRemovesAlpha(t *testing.T) {
	flat, err := validateAndFlatten(transparentPNG(t))
	if err != nil {
		t.Fatalf("validateAndFlatten: %v", err)
	}
	img, _, err := image.Decode(bytes.NewReader(flat))
	if err != nil {
		t.Fatalf("decode flattened: %v", err)
	}
	if imageHasAlpha(img) {
		t.Fatal("flattened image still has transparency")
	}
}

func TestValidateAndFlattenKeepsOpaqueBytes(t *testing.T) {
	raw := testPNG(t)
	out, err := validateAndFlatten(raw)
	if err != nil {
		t.Fatalf("validateAndFlatten: %v", err)
	}
	if !bytes.Equal(raw, out) {
		t.Fatal("opaque payload must pass through unchanged")
	}
}

func TestBuildEnhancedPromptLayersDescriptors(t *testing.T) {
	p := BuildEnhancedPrompt("a red fox", "Watercolor", LevelBeginner, "landscape", "")
	if !strings.HasPrefix(p, "a red fox. ") {
		t.Fatalf("prompt must start from the base: %q", p)
	}
	for _, want := range []string{"watercolor painting style", "cartoon style", "16:9 aspect ratio", "No text or captions in the image."} {
		if !strings.Contains(p, want) {
			t.Fatalf("prompt missing %q:\n%s", want, p)
		}
	}
}

func TestBuildEnhancedPromptAppliesConsistencyPrefix(t *testing.T) {
	p := BuildEnhancedPrompt("a red fox", "", LevelModerate, "", "Maintain consistent character appearance: small fox.")
	if !strings.HasPrefix(p, "Maintain consistent character appearance: small fox. a red fox") {
		t.Fatalf("prefix not applied: %q", p)
	}
}

func TestNormalizeLevelDefaultsToModerate(t *testing.T) {
	cases := map[string]string{
		"beginner":     LevelBeginner,
		"INTERMEDIATE": LevelIntermediate,
		"advanced":     LevelModerate,
		"":             LevelModerate,
	}
	for in, want := range cases {
		if got := NormalizeLevel(in); got != want {
			t.Fatalf("NormalizeLevel(%q): want=%q got=%q", in, want, got)
		}
	}
}
