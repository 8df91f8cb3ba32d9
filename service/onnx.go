package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	ort "github.com/yalue/onnxruntime_go"
)

type Head struct {
	Attribute  Attribute
	Classes    int
	OutputName string
}

// Contract lists the heads in Attributes order. names optionally pins an
// attribute to a model output name.
func Contract(m Mappings, names map[string]string) []Head {
	heads := make([]Head, len(Attributes))
	for i, attr := range Attributes {
		heads[i] = Head{
			Attribute:  attr,
			Classes:    m[attr].ClassCount(),
			OutputName: names[string(attr)],
		}
	}
	return heads
}

type session interface {
	Run(inputs, outputs []ort.Value) error
	Destroy() error
}

type ONNXModel struct {
	pool        chan session
	sessions    []session
	done        chan struct{}
	closeOnce   sync.Once
	closeErr    error
	inputName   string
	outputNames []string
}

func newONNXModel(poolSize int, inputName string, outputNames []string) *ONNXModel {
	return &ONNXModel{
		pool:        make(chan session, poolSize),
		done:        make(chan struct{}),
		inputName:   inputName,
		outputNames: outputNames,
	}
}

func (m *ONNXModel) add(s session) {
	m.sessions = append(m.sessions, s)
	m.pool <- s
}

var errModelClosed = errors.New("model closed")

// OpenONNXModel loads the model at path and checks its declared input and
// output shapes against heads before creating poolSize sessions.
// The ONNX Runtime environment must already be initialized.
func OpenONNXModel(path string, heads []Head, poolSize int) (*ONNXModel, error) {
	inputs, outputs, err := ort.GetInputOutputInfo(path)
	if err != nil {
		return nil, fmt.Errorf("failed to get model input/output info: %w", err)
	}
	inputName, err := checkInput(inputs)
	if err != nil {
		return nil, err
	}
	outputNames, err := bindHeads(heads, outputs)
	if err != nil {
		return nil, err
	}

	opts, err := ort.NewSessionOptions()
	if err != nil {
		return nil, fmt.Errorf("failed to create session options: %w", err)
	}
	defer opts.Destroy()

	if poolSize <= 0 {
		poolSize = 1
	}
	m := newONNXModel(poolSize, inputName, outputNames)
	for i := range poolSize {
		s, err := ort.NewDynamicAdvancedSession(path, []string{inputName}, outputNames, opts)
		if err != nil {
			m.Close()
			return nil, fmt.Errorf("failed to create ONNX Runtime session %d: %w", i, err)
		}
		m.add(s)
	}

	slog.Info("Model loaded",
		slog.String("path", path),
		slog.String("input", inputName),
		slog.Any("outputs", outputNames),
		slog.Int("sessions", poolSize))
	return m, nil
}

func checkInput(inputs []ort.InputOutputInfo) (string, error) {
	if len(inputs) != 1 {
		return "", fmt.Errorf("expected 1 model input, got %d", len(inputs))
	}
	in := inputs[0]
	want := []int64{1, ImageSize, ImageSize, 3}
	if len(in.Dimensions) != len(want) {
		return "", fmt.Errorf("input %q: expected shape %v, got %v", in.Name, want, in.Dimensions)
	}
	for i, d := range in.Dimensions {
		if d != want[i] && d != -1 {
			return "", fmt.Errorf("input %q: expected shape %v, got %v", in.Name, want, in.Dimensions)
		}
	}
	return in.Name, nil
}

// bindHeads maps each head to a model output. Unpinned heads take the output
// at the same position. Known class dimensions must match the head exactly.
func bindHeads(heads []Head, outputs []ort.InputOutputInfo) ([]string, error) {
	if len(outputs) != len(heads) {
		return nil, &OutputMismatchError{Expected: len(heads), Received: len(outputs)}
	}
	byName := make(map[string]ort.InputOutputInfo, len(outputs))
	for _, o := range outputs {
		byName[o.Name] = o
	}

	names := make([]string, len(heads))
	for i, h := range heads {
		out := outputs[i]
		if h.OutputName != "" {
			o, ok := byName[h.OutputName]
			if !ok {
				return nil, fmt.Errorf("head %s: model has no output %q", h.Attribute, h.OutputName)
			}
			out = o
		}
		dims := out.Dimensions
		if len(dims) != 2 {
			return nil, fmt.Errorf("head %s: output %q has shape %v, expected (batch, classes)", h.Attribute, out.Name, dims)
		}
		if classes := dims[1]; classes != -1 && classes != int64(h.Classes) {
			return nil, fmt.Errorf("head %s: output %q has %d classes, mapping has %d", h.Attribute, out.Name, classes, h.Classes)
		}
		names[i] = out.Name
	}
	return names, nil
}

func (m *ONNXModel) acquire(ctx context.Context) (session, error) {
	select {
	case <-m.done:
		return nil, errModelClosed
	default:
	}
	select {
	case s := <-m.pool:
		return s, nil
	case <-m.done:
		return nil, errModelClosed
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (m *ONNXModel) release(s session) {
	m.pool <- s
}

func (m *ONNXModel) Predict(ctx context.Context, input *Tensor) ([][]float32, error) {
	s, err := m.acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer m.release(s)

	in, err := ort.NewTensor(ort.NewShape(input.Shape[:]...), input.Data)
	if err != nil {
		return nil, fmt.Errorf("failed to create input tensor: %w", err)
	}
	defer in.Destroy()

	// nil outputs are allocated by the runtime.
	outs := make([]ort.Value, len(m.outputNames))
	if err := s.Run([]ort.Value{in}, outs); err != nil {
		return nil, fmt.Errorf("inference failed: %w", err)
	}
	defer func() {
		for _, v := range outs {
			if v != nil {
				v.Destroy()
			}
		}
	}()

	heads := make([][]float32, len(outs))
	for i, v := range outs {
		t, ok := v.(*ort.Tensor[float32])
		if !ok {
			return nil, fmt.Errorf("output %q is not a float32 tensor", m.outputNames[i])
		}
		heads[i] = firstRow(t.GetShape(), t.GetData())
	}
	return heads, nil
}

// firstRow copies batch row 0 out of a (batch, ...) tensor.
func firstRow(shape ort.Shape, data []float32) []float32 {
	n := len(data)
	if len(shape) > 1 && shape[0] > 0 {
		n = len(data) / int(shape[0])
	}
	row := make([]float32, n)
	copy(row, data[:n])
	return row
}

// Close rejects new predictions, waits for in-flight ones to hand their
// sessions back and then destroys every session.
func (m *ONNXModel) Close() error {
	m.closeOnce.Do(func() {
		close(m.done)
		for range m.sessions {
			<-m.pool
		}
		var errs []error
		for _, s := range m.sessions {
			if err := s.Destroy(); err != nil {
				errs = append(errs, err)
			}
		}
		m.closeErr = errors.Join(errs...)
	})
	return m.closeErr
}
