package classify

import (
	"context"
	"fmt"
	"log"
	"sync"

	ort "github.com/yalue/onnxruntime_go"
)

// ONNXBackend runs local ONNX inference. Models load lazily on first use,
// one load per type even under concurrent first requests (per-entry
// sync.Once). A load failure is strict: this backend never substitutes a
// mock, callers get ErrModelLoad for that type.
type ONNXBackend struct {
	configs map[ModelType]ModelConfig

	initOnce sync.Once
	initErr  error

	mu       sync.Mutex
	sessions map[ModelType]*onnxSession
}

type onnxSession struct {
	once sync.Once
	err  error

	cfg          ModelConfig
	session      *ort.AdvancedSession
	inputTensor  *ort.Tensor[float32]
	outputTensor *ort.Tensor[float32]

	// runMu serializes inference because the session's tensors are reused
	// across calls.
	runMu sync.Mutex
}

// NewONNXBackend creates the primary adapter over the given configs.
func NewONNXBackend(configs map[ModelType]ModelConfig) *ONNXBackend {
	return &ONNXBackend{
		configs:  configs,
		sessions: make(map[ModelType]*onnxSession),
	}
}

// Classify preprocesses the image and runs inference for the model type.
func (b *ONNXBackend) Classify(ctx context.Context, in Input, mt ModelType) (*Output, error) {
	sess, err := b.session(mt)
	if err != nil {
		return nil, err
	}

	input, err := Preprocess(in.Bytes, sess.cfg.InputShape)
	if err != nil {
		return nil, err
	}

	probs, err := sess.run(ctx, input)
	if err != nil {
		return nil, err
	}
	return &Output{Probs: probs, Source: SourceModel}, nil
}

// session returns the lazily-loaded session for a type. The map entry is
// created under the backend mutex; the load itself runs under the entry's
// own once-guard so unrelated model types never block each other.
func (b *ONNXBackend) session(mt ModelType) (*onnxSession, error) {
	cfg, ok := b.configs[mt]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownModelType, mt)
	}

	b.mu.Lock()
	sess, ok := b.sessions[mt]
	if !ok {
		sess = &onnxSession{cfg: cfg}
		b.sessions[mt] = sess
	}
	b.mu.Unlock()

	sess.once.Do(func() {
		b.initOnce.Do(func() {
			b.initErr = ort.InitializeEnvironment()
		})
		if b.initErr != nil {
			sess.err = fmt.Errorf("%w: onnx runtime init: %v", ErrModelLoad, b.initErr)
			return
		}
		sess.err = sess.load(cfg.ArtifactPath)
		if sess.err == nil {
			log.Printf("Loaded model %s from %s", mt, cfg.ArtifactPath)
		}
	})
	if sess.err != nil {
		return nil, sess.err
	}
	return sess, nil
}

func (s *onnxSession) load(path string) error {
	h, w := s.cfg.InputShape[0], s.cfg.InputShape[1]
	inputShape := ort.NewShape(1, int64(h), int64(w), 3)
	outputShape := ort.NewShape(1, int64(len(s.cfg.Classes)))

	inputTensor, err := ort.NewEmptyTensor[float32](inputShape)
	if err != nil {
		return fmt.Errorf("%w: input tensor: %v", ErrModelLoad, err)
	}

	outputTensor, err := ort.NewEmptyTensor[float32](outputShape)
	if err != nil {
		inputTensor.Destroy()
		return fmt.Errorf("%w: output tensor: %v", ErrModelLoad, err)
	}

	session, err := ort.NewAdvancedSession(path,
		[]string{"input"}, []string{"output"},
		[]ort.ArbitraryTensor{inputTensor}, []ort.ArbitraryTensor{outputTensor},
		nil)
	if err != nil {
		inputTensor.Destroy()
		outputTensor.Destroy()
		return fmt.Errorf("%w: %s: %v", ErrModelLoad, path, err)
	}

	s.session = session
	s.inputTensor = inputTensor
	s.outputTensor = outputTensor
	return nil
}

func (s *onnxSession) run(ctx context.Context, input []float32) ([]float32, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.runMu.Lock()
	defer s.runMu.Unlock()

	copy(s.inputTensor.GetData(), input)
	if err := s.session.Run(); err != nil {
		return nil, fmt.Errorf("inference failed: %w", err)
	}

	out := s.outputTensor.GetData()
	probs := make([]float32, len(out))
	copy(probs, out)
	return probs, nil
}

// Close destroys all loaded sessions and tensors.
func (b *ONNXBackend) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, sess := range b.sessions {
		if sess.inputTensor != nil {
			sess.inputTensor.Destroy()
		}
		if sess.outputTensor != nil {
			sess.outputTensor.Destroy()
		}
		if sess.session != nil {
			sess.session.Destroy()
		}
	}
	b.sessions = make(map[ModelType]*onnxSession)
}
