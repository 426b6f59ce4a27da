package embedding

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync"

	ort "github.com/yalue/onnxruntime_go"

	"imgdupes/internal/imagefile"
	"imgdupes/internal/logging"
	"imgdupes/internal/pipeline"
)

// Extractor produces a fixed-length embedding for an image file.
type Extractor interface {
	Embed(ctx context.Context, path string) ([]float32, error)
	Close() error
}

// Options configures an ONNX backed extractor.
type Options struct {
	ModelPath      string
	RuntimeLibrary string
	InputSize      int
	IntraOpThreads int
	Logger         *slog.Logger
}

// ONNXExtractor runs a single-input, single-output image model.
type ONNXExtractor struct {
	mu          sync.RWMutex
	session     *ort.DynamicAdvancedSession
	inputName   string
	outputName  string
	inputSize   int
	outputShape ort.Shape
	logger      *slog.Logger
	closed      bool
}

// ErrClosed is returned by Embed after Close.
var ErrClosed = errors.New("embedding extractor closed")

var runtimeEnv struct {
	mu   sync.Mutex
	refs int
}

func acquireRuntime(library string) error {
	runtimeEnv.mu.Lock()
	defer runtimeEnv.mu.Unlock()
	if runtimeEnv.refs == 0 {
		if library != "" {
			ort.SetSharedLibraryPath(library)
		}
		if err := ort.InitializeEnvironment(); err != nil {
			return err
		}
	}
	runtimeEnv.refs++
	return nil
}

func releaseRuntime() error {
	runtimeEnv.mu.Lock()
	defer runtimeEnv.mu.Unlock()
	if runtimeEnv.refs == 0 {
		return nil
	}
	runtimeEnv.refs--
	if runtimeEnv.refs == 0 {
		return ort.DestroyEnvironment()
	}
	return nil
}

// NewONNX loads the model at opts.ModelPath and prepares an inference
// session. A missing model file or runtime library is reported as
// pipeline.ErrModel before any image work starts.
func NewONNX(opts Options) (*ONNXExtractor, error) {
	logger := logging.NewComponentLogger(opts.Logger, "embedding")
	if opts.ModelPath == "" {
		return nil, pipeline.Wrap(pipeline.ErrModel, "", "load model", "model path not configured", nil)
	}
	info, err := os.Stat(opts.ModelPath)
	if err != nil {
		return nil, pipeline.Wrap(pipeline.ErrModel, "", "load model", "model file not found: "+opts.ModelPath, err)
	}
	if info.IsDir() {
		return nil, pipeline.Wrap(pipeline.ErrModel, "", "load model", "model path is a directory: "+opts.ModelPath, nil)
	}

	if err := acquireRuntime(opts.RuntimeLibrary); err != nil {
		return nil, pipeline.Wrap(pipeline.ErrModel, "", "initialize onnxruntime", "check neural.runtime_library", err)
	}
	extractor, err := newSession(opts, logger)
	if err != nil {
		_ = releaseRuntime()
		return nil, err
	}
	logger.Info("embedding model loaded",
		logging.String("model", opts.ModelPath),
		logging.String("input", extractor.inputName),
		logging.String("output", extractor.outputName),
		logging.Int("input_size", extractor.inputSize),
	)
	return extractor, nil
}

func newSession(opts Options, logger *slog.Logger) (*ONNXExtractor, error) {
	inputs, outputs, err := ort.GetInputOutputInfo(opts.ModelPath)
	if err != nil {
		return nil, pipeline.Wrap(pipeline.ErrModel, "", "inspect model", opts.ModelPath, err)
	}
	if len(inputs) == 0 || len(outputs) == 0 {
		return nil, pipeline.Wrap(pipeline.ErrModel, "", "inspect model", "model has no inputs or outputs", nil)
	}

	size := opts.InputSize
	if size <= 0 {
		size = DefaultInputSize
	}
	// Fixed spatial dims in the model override the configured size.
	if dims := inputs[0].Dimensions; len(dims) == 4 && dims[2] > 0 && dims[2] == dims[3] {
		size = int(dims[2])
	}

	outputShape := make(ort.Shape, len(outputs[0].Dimensions))
	for i, d := range outputs[0].Dimensions {
		if d <= 0 {
			d = 1
		}
		outputShape[i] = d
	}

	sessionOpts, err := ort.NewSessionOptions()
	if err != nil {
		return nil, pipeline.Wrap(pipeline.ErrModel, "", "create session options", "", err)
	}
	defer sessionOpts.Destroy()
	if opts.IntraOpThreads > 0 {
		if err := sessionOpts.SetIntraOpNumThreads(opts.IntraOpThreads); err != nil {
			return nil, pipeline.Wrap(pipeline.ErrModel, "", "create session options", "intra-op threads", err)
		}
	}

	session, err := ort.NewDynamicAdvancedSession(opts.ModelPath,
		[]string{inputs[0].Name}, []string{outputs[0].Name}, sessionOpts)
	if err != nil {
		return nil, pipeline.Wrap(pipeline.ErrModel, "", "create session", opts.ModelPath, err)
	}
	return &ONNXExtractor{
		session:     session,
		inputName:   inputs[0].Name,
		outputName:  outputs[0].Name,
		inputSize:   size,
		outputShape: outputShape,
		logger:      logger,
	}, nil
}

// InputSize reports the square edge images are resized to.
func (e *ONNXExtractor) InputSize() int {
	return e.inputSize
}

// Embed decodes the image at path and returns the model output as a flat
// vector.
func (e *ONNXExtractor) Embed(ctx context.Context, path string) ([]float32, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	img, err := imagefile.Decode(path)
	if err != nil {
		return nil, err
	}
	data := Preprocess(img, e.inputSize)
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	e.mu.RLock()
	defer e.mu.RUnlock()
	if e.closed {
		return nil, ErrClosed
	}

	size := int64(e.inputSize)
	input, err := ort.NewTensor(ort.NewShape(1, 3, size, size), data)
	if err != nil {
		return nil, fmt.Errorf("embed %s: input tensor: %w", path, err)
	}
	defer input.Destroy()
	output, err := ort.NewEmptyTensor[float32](e.outputShape)
	if err != nil {
		return nil, fmt.Errorf("embed %s: output tensor: %w", path, err)
	}
	defer output.Destroy()

	if err := e.session.Run([]ort.Value{input}, []ort.Value{output}); err != nil {
		return nil, fmt.Errorf("embed %s: run session: %w", path, err)
	}
	vector := make([]float32, len(output.GetData()))
	copy(vector, output.GetData())
	return vector, nil
}

// Close destroys the session and releases the runtime reference. It is safe
// to call more than once.
func (e *ONNXExtractor) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return nil
	}
	e.closed = true
	err := e.session.Destroy()
	if releaseErr := releaseRuntime(); releaseErr != nil {
		err = errors.Join(err, releaseErr)
	}
	e.logger.Debug("embedding session closed")
	return err
}
