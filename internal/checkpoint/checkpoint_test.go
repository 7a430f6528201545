package checkpoint_test

import (
	"bytes"
	"encoding/binary"
	"os"
	"path/filepath"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/born-ml/minigrad/internal/autodiff"
	"github.com/born-ml/minigrad/internal/checkpoint"
	"github.com/born-ml/minigrad/internal/nn"
	"github.com/born-ml/minigrad/internal/optim"
	"github.com/born-ml/minigrad/internal/tensor"
)

func TestWriteRead(t *testing.T) {
	tensors := map[string]*tensor.Tensor{
		"b":   tensor.Full(tensor.Shape{3}, 0.5),
		"a.W": tensor.MustFromRows([][]float64{{1, 2}, {3, 4}, {5, 6}}),
	}
	var buf bytes.Buffer
	require.NoError(t, checkpoint.Write(&buf, tensors, map[string]string{"epochs": "7"}))

	// Header size, then the header JSON starting with '{'.
	raw := buf.Bytes()
	size := binary.LittleEndian.Uint64(raw[:8])
	assert.Equal(t, byte('{'), raw[8])
	assert.Equal(t, uint64(len(raw))-8-size, uint64(9*8), "data section holds 9 float64")

	got, meta, err := checkpoint.Read(bytes.NewReader(raw))
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.True(t, got["a.W"].AllClose(tensors["a.W"], 0))
	assert.Equal(t, tensor.Shape{3, 2}, got["a.W"].Shape())
	assert.Equal(t, []float64{0.5, 0.5, 0.5}, got["b"].Data())
	assert.Equal(t, "7", meta["epochs"])
	assert.Equal(t, "minigrad", meta[checkpoint.MetaFormat])
	assert.Len(t, meta[checkpoint.MetaChecksum], 64)
}

func TestRead_Corrupted(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, checkpoint.Write(&buf, map[string]*tensor.Tensor{"w": tensor.Ones(tensor.Shape{2})}, nil))
	raw := buf.Bytes()

	flipped := bytes.Clone(raw)
	flipped[len(flipped)-1] ^= 0xff
	_, _, err := checkpoint.Read(bytes.NewReader(flipped))
	assert.True(t, errors.Is(err, checkpoint.ErrChecksumMismatch))

	truncated := raw[:len(raw)-4]
	_, _, err = checkpoint.Read(bytes.NewReader(truncated))
	assert.True(t, errors.Is(err, checkpoint.ErrOutOfBounds))

	_, _, err = checkpoint.Read(bytes.NewReader(raw[:5]))
	assert.True(t, errors.Is(err, checkpoint.ErrInvalidHeader))
}

// encode builds a file from a hand-written header.
func encode(header string, data []byte) []byte {
	var buf bytes.Buffer
	_ = binary.Write(&buf, binary.LittleEndian, uint64(len(header)))
	buf.WriteString(header)
	buf.Write(data)
	return buf.Bytes()
}

func TestRead_Validation(t *testing.T) {
	data := make([]byte, 16)
	tests := []struct {
		name   string
		header string
		want   error
	}{
		{"json", `{"w":`, checkpoint.ErrInvalidHeader},
		{"dtype", `{"w":{"dtype":"F32","shape":[4],"data_offsets":[0,16]}}`, checkpoint.ErrUnsupportedDType},
		{"name", `{"../w":{"dtype":"F64","shape":[2],"data_offsets":[0,16]}}`, checkpoint.ErrInvalidTensorName},
		{"bounds", `{"w":{"dtype":"F64","shape":[3],"data_offsets":[0,24]}}`, checkpoint.ErrOutOfBounds},
		{"overlap", `{"a":{"dtype":"F64","shape":[2],"data_offsets":[0,16]},"b":{"dtype":"F64","shape":[1],"data_offsets":[8,16]}}`, checkpoint.ErrOffsetOverlap},
		{"shape", `{"w":{"dtype":"F64","shape":[3],"data_offsets":[0,16]}}`, checkpoint.ErrInvalidHeader},
		{"overflow", `{"w":{"dtype":"F64","shape":[65536,65536,65536,65536],"data_offsets":[0,0]}}`, checkpoint.ErrInvalidHeader},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := checkpoint.Read(bytes.NewReader(encode(tt.header, data)))
			require.Error(t, err)
			assert.Truef(t, errors.Is(err, tt.want), "%v", err)
		})
	}
}

func TestValidateTensorName(t *testing.T) {
	for _, name := range []string{"affine_0_W", "optimizer.velocity.0", "layer-1.b"} {
		assert.NoError(t, checkpoint.ValidateTensorName(name))
	}
	for _, name := range []string{"", "a/b", `a\b`, "a..b", "a\x00", "__metadata__", string(make([]byte, 5000))} {
		err := checkpoint.ValidateTensorName(name)
		assert.Truef(t, errors.Is(err, checkpoint.ErrInvalidTensorName), "%q", name)
	}
}

func TestSaveLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "mlp.safetensors")
	sgd := optim.NewSGD(optim.SGDConfig{LR: 0.1, Momentum: 0.9})
	model, err := nn.NewMLP(nn.MLPConfig{InputSize: 2, HiddenSize: 3, OutputSize: 2},
		autodiff.WithSeed(1), autodiff.WithOptimizer(sgd))
	require.NoError(t, err)

	// One step so the optimizer has velocities.
	x := autodiff.NewVariable(tensor.MustFromRows([][]float64{{1, -1}, {0.5, 2}}))
	y := autodiff.NewVariable(tensor.MustFromRows([][]float64{{0, 1}}))
	_, err = model.Graph().TrainStep(func() (float64, error) {
		if _, err := model.Forward(x); err != nil {
			return 0, err
		}
		return model.Loss(y)
	})
	require.NoError(t, err)
	require.NoError(t, checkpoint.Save(path, model.Graph(), map[string]string{"model": "mlp"}))

	restoredOpt := optim.NewSGD(optim.SGDConfig{LR: 0.1, Momentum: 0.9})
	restored, err := nn.NewMLP(nn.MLPConfig{InputSize: 2, HiddenSize: 3, OutputSize: 2},
		autodiff.WithSeed(99), autodiff.WithOptimizer(restoredOpt))
	require.NoError(t, err)
	before := restored.Graph().Parameters()

	meta, err := checkpoint.Load(path, restored.Graph())
	require.NoError(t, err)
	assert.Equal(t, "mlp", meta["model"])

	after := restored.Graph().Parameters()
	for i, p := range model.Graph().Parameters() {
		assert.Same(t, before[i], after[i], "parameters are updated in place")
		assert.True(t, p.Value().AllClose(after[i].Value(), 0))
	}
	assert.Equal(t, sgd.StateDict(model.Graph().Parameters())["velocity.0"].Data(),
		restoredOpt.StateDict(after)["velocity.0"].Data())
}

func TestLoad_ShapeConflict(t *testing.T) {
	path := filepath.Join(t.TempDir(), "linear.safetensors")
	model, err := nn.NewLinear(4, 3)
	require.NoError(t, err)
	require.NoError(t, checkpoint.Save(path, model.Graph(), nil))

	other, err := nn.NewLinear(4, 2)
	require.NoError(t, err)
	_, err = checkpoint.Load(path, other.Graph())
	require.Error(t, err)
	assert.True(t, errors.Is(err, autodiff.ErrShapeMismatch))

	// A failed load leaves the graph untouched, also for parameters it would have created.
	partial := autodiff.NewGraph("partial")
	_, err = partial.Parameter("affine_0_W", tensor.Shape{4, 2})
	require.NoError(t, err)
	_, err = checkpoint.Load(path, partial)
	require.Error(t, err)
	assert.Equal(t, []string{"affine_0_W"}, partial.ParameterNames())

	_, err = checkpoint.Load(filepath.Join(t.TempDir(), "missing"), other.Graph())
	assert.True(t, errors.Is(err, os.ErrNotExist))
}
