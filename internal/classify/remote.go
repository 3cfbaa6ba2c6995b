package classify

import (
	"context"
	"errors"
	"fmt"
	"hash/fnv"
	"io"
	"log"
	"math/rand"
	"net/http"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// RemoteBackend is the alternate adapter: it fetches each model artifact
// from a remote endpoint on first use, caches it on disk, and then runs the
// same ONNX path as the primary adapter. Its failure policy differs from the
// primary on purpose: when an artifact cannot be fetched or loaded it
// substitutes a stochastic mock classifier instead of failing, so the
// pipeline keeps answering in deployments where artifacts are still being
// provisioned. Substituted results are marked Source="mock" and logged,
// never silently mixed with real ones.
type RemoteBackend struct {
	configs  map[ModelType]ModelConfig
	cacheDir string
	client   *http.Client

	onnx *ONNXBackend

	mu      sync.Mutex
	fetched map[ModelType]*fetchState
}

type fetchState struct {
	mu    sync.Mutex
	ready bool
}

// NewRemoteBackend creates the alternate adapter. cacheDir may be empty, in
// which case a per-process temp dir is used.
func NewRemoteBackend(configs map[ModelType]ModelConfig, cacheDir string) (*RemoteBackend, error) {
	if cacheDir == "" {
		dir, err := os.MkdirTemp("", "medscan-models-*")
		if err != nil {
			return nil, fmt.Errorf("failed to create model cache dir: %w", err)
		}
		cacheDir = dir
	}

	// The inner ONNX backend loads from the cache dir, so rewrite the
	// artifact paths before handing configs over.
	local := make(map[ModelType]ModelConfig, len(configs))
	for mt, cfg := range configs {
		cfg.ArtifactPath = filepath.Join(cacheDir, string(mt)+".onnx")
		local[mt] = cfg
	}

	return &RemoteBackend{
		configs:  configs,
		cacheDir: cacheDir,
		client:   &http.Client{Timeout: 60 * time.Second},
		onnx:     NewONNXBackend(local),
		fetched:  make(map[ModelType]*fetchState),
	}, nil
}

// Classify fetches the artifact if needed and runs inference, degrading to
// the mock classifier when the real model is unavailable.
func (b *RemoteBackend) Classify(ctx context.Context, in Input, mt ModelType) (*Output, error) {
	cfg, ok := b.configs[mt]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownModelType, mt)
	}

	if err := b.ensureArtifact(mt, cfg); err == nil {
		out, err := b.onnx.Classify(ctx, in, mt)
		if err == nil {
			return out, nil
		}
		// Invalid images are the caller's problem regardless of backend.
		if isInvalidImage(err) {
			return nil, err
		}
		log.Printf("Remote model %s failed (%v), substituting mock classifier", mt, err)
	} else {
		log.Printf("Artifact fetch for %s failed (%v), substituting mock classifier", mt, err)
	}

	// Mock substitution still validates the image so corrupt uploads are
	// rejected consistently across backends.
	if _, err := Preprocess(in.Bytes, cfg.InputShape); err != nil {
		return nil, err
	}
	return &Output{Probs: mockProbs(in.Bytes, mt, len(cfg.Classes)), Source: SourceMock}, nil
}

// ensureArtifact downloads the model on first use. A failed fetch is not
// pinned: the next request retries, so a transient outage during warmup
// does not lock the model type into mock substitution.
func (b *RemoteBackend) ensureArtifact(mt ModelType, cfg ModelConfig) error {
	b.mu.Lock()
	st, ok := b.fetched[mt]
	if !ok {
		st = &fetchState{}
		b.fetched[mt] = st
	}
	b.mu.Unlock()

	st.mu.Lock()
	defer st.mu.Unlock()
	if st.ready {
		return nil
	}
	if err := b.fetch(mt, cfg); err != nil {
		return err
	}
	st.ready = true
	return nil
}

// fetch runs detached from the request context, bounded only by the HTTP
// client timeout. A client disconnect mid-download must not abort a fetch
// other requests will reuse.
func (b *RemoteBackend) fetch(mt ModelType, cfg ModelConfig) error {
	if cfg.ArtifactURL == "" {
		return fmt.Errorf("no artifact URL configured for %s", mt)
	}

	ctx, cancel := context.WithTimeout(context.Background(), b.client.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, "GET", cfg.ArtifactURL, nil)
	if err != nil {
		return err
	}

	resp, err := b.client.Do(req)
	if err != nil {
		return fmt.Errorf("artifact fetch failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("artifact fetch failed: %s", resp.Status)
	}

	dest := filepath.Join(b.cacheDir, string(mt)+".onnx")
	f, err := os.Create(dest)
	if err != nil {
		return err
	}
	defer f.Close()

	if _, err := io.Copy(f, resp.Body); err != nil {
		os.Remove(dest)
		return fmt.Errorf("artifact write failed: %w", err)
	}

	log.Printf("Fetched model %s to %s", mt, dest)
	return nil
}

// mockProbs derives a reproducible pseudo-random probability vector from the
// image bytes, with one dominant class.
func mockProbs(data []byte, mt ModelType, n int) []float32 {
	h := fnv.New64a()
	h.Write(data)
	h.Write([]byte(mt))
	rng := rand.New(rand.NewSource(int64(h.Sum64())))

	probs := make([]float32, n)
	var sum float32
	for i := range probs {
		probs[i] = rng.Float32()
		sum += probs[i]
	}
	dominant := rng.Intn(n)
	probs[dominant] += sum
	sum *= 2
	for i := range probs {
		probs[i] /= sum
	}
	return probs
}

func isInvalidImage(err error) bool {
	return errors.Is(err, ErrInvalidImage) || errors.Is(err, ErrImageTooLarge)
}

// Close destroys the inner ONNX sessions.
func (b *RemoteBackend) Close() {
	b.onnx.Close()
}
