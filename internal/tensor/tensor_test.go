package tensor

import (
	"math/rand/v2"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestShape(t *testing.T) {
	s := Shape{2, 3, 4}
	assert.Equal(t, 24, s.NumElements())
	assert.Equal(t, 1, Shape{}.NumElements())
	assert.Equal(t, 3, s.Rank())
	assert.True(t, s.Equal(Shape{2, 3, 4}))
	assert.False(t, s.Equal(Shape{2, 3}))
	assert.NoError(t, s.Validate())
	assert.Error(t, Shape{2, 0}.Validate())

	clone := s.Clone()
	clone[0] = 9
	assert.Equal(t, 2, s[0], "Clone must not share storage")
}

func TestNew(t *testing.T) {
	x, err := New(Shape{2, 2}, []float64{1, 2, 3, 4})
	require.NoError(t, err)
	assert.Equal(t, 3.0, x.At(1, 0))

	_, err = New(Shape{2, 2}, []float64{1, 2, 3})
	assert.True(t, errors.Is(err, ErrShapeMismatch))

	_, err = New(Shape{-1}, nil)
	assert.Error(t, err)

	// 2^64 elements wraps to 0 without a checked product.
	_, err = New(Shape{1 << 32, 1 << 32}, nil)
	assert.Error(t, err)
	assert.Error(t, Shape{1 << 32, 1 << 32}.Validate())
}

func TestFromRows(t *testing.T) {
	x, err := FromRows([][]float64{{1, 2, 3}, {4, 5, 6}})
	require.NoError(t, err)
	assert.Equal(t, []int{2, 3}, []int(x.Shape()))
	assert.Equal(t, []float64{4, 5, 6}, x.Row(1))

	_, err = FromRows([][]float64{{1, 2}, {3}})
	assert.True(t, errors.Is(err, ErrShapeMismatch))
}

func TestElementwise(t *testing.T) {
	a := MustFromRows([][]float64{{1, 2}, {3, 4}})
	b := MustFromRows([][]float64{{5, 6}, {7, 8}})

	sum, err := a.Add(b)
	require.NoError(t, err)
	assert.Equal(t, []float64{6, 8, 10, 12}, sum.Data())

	diff, err := b.Sub(a)
	require.NoError(t, err)
	assert.Equal(t, []float64{4, 4, 4, 4}, diff.Data())

	prod, err := a.Mul(b)
	require.NoError(t, err)
	assert.Equal(t, []float64{5, 12, 21, 32}, prod.Data())

	assert.Equal(t, []float64{2, 4, 6, 8}, a.Scale(2).Data())
	assert.Equal(t, 10.0, a.Sum())

	_, err = a.Add(Zeros(Shape{2, 3}))
	assert.True(t, errors.Is(err, ErrShapeMismatch))
}

func TestAddInPlace(t *testing.T) {
	acc := Zeros(Shape{2})
	delta, err := FromSlice([]float64{1, 2}, Shape{2})
	require.NoError(t, err)

	require.NoError(t, acc.AddInPlace(delta))
	require.NoError(t, acc.AddInPlace(delta))
	assert.Equal(t, []float64{2, 4}, acc.Data())

	err = acc.AddInPlace(Zeros(Shape{3}))
	assert.True(t, errors.Is(err, ErrShapeMismatch))
	assert.Equal(t, []float64{2, 4}, acc.Data(), "failed accumulate must not mutate")

	require.NoError(t, acc.AddScaledInPlace(-0.5, delta))
	assert.Equal(t, []float64{1.5, 3}, acc.Data())
}

func TestMatMul(t *testing.T) {
	a := MustFromRows([][]float64{{1, 2, 3}, {4, 5, 6}})
	b := MustFromRows([][]float64{{7, 8}, {9, 10}, {11, 12}})

	c, err := a.MatMul(b)
	require.NoError(t, err)
	assert.Equal(t, []int{2, 2}, []int(c.Shape()))
	assert.Equal(t, []float64{58, 64, 139, 154}, c.Data())

	_, err = a.MatMul(a)
	assert.True(t, errors.Is(err, ErrShapeMismatch))

	_, err = a.MatMul(Zeros(Shape{3}))
	assert.True(t, errors.Is(err, ErrShapeMismatch))
}

func TestTranspose(t *testing.T) {
	a := MustFromRows([][]float64{{1, 2, 3}, {4, 5, 6}})
	at, err := a.Transpose()
	require.NoError(t, err)
	assert.Equal(t, []int{3, 2}, []int(at.Shape()))
	assert.Equal(t, []float64{1, 4, 2, 5, 3, 6}, at.Data())
}

func TestRowReductions(t *testing.T) {
	a := MustFromRows([][]float64{{1, 5, 3}, {9, 2, 4}})

	sum, err := a.SumRows()
	require.NoError(t, err)
	assert.Equal(t, []float64{10, 7, 7}, sum.Data())

	idx, err := a.ArgMaxRows()
	require.NoError(t, err)
	assert.Equal(t, []int{1, 0}, idx)

	bias, err := FromSlice([]float64{1, 1, 1}, Shape{3})
	require.NoError(t, err)
	shifted, err := a.AddRowVector(bias)
	require.NoError(t, err)
	assert.Equal(t, []float64{2, 6, 4, 10, 3, 5}, shifted.Data())

	_, err = a.AddRowVector(Zeros(Shape{2}))
	assert.True(t, errors.Is(err, ErrShapeMismatch))
}

func TestReshapeSharesStorage(t *testing.T) {
	a := MustFromRows([][]float64{{1, 2}, {3, 4}})
	flat, err := a.Reshape(Shape{4})
	require.NoError(t, err)
	flat.Data()[0] = 42
	assert.Equal(t, 42.0, a.At(0, 0))

	_, err = a.Reshape(Shape{3})
	assert.True(t, errors.Is(err, ErrShapeMismatch))
}

func TestRandomInit(t *testing.T) {
	src := rand.NewPCG(1, 2)
	w := Xavier(Shape{4, 3}, src)
	bound := 0.9258200997725514 // sqrt(6/7)
	for _, v := range w.Data() {
		assert.LessOrEqual(t, v, bound)
		assert.GreaterOrEqual(t, v, -bound)
	}

	n := Normal(Shape{1000}, 3, 0.1, rand.NewPCG(3, 4))
	assert.InDelta(t, 3.0, n.Sum()/1000, 0.05)
}

func TestCopyFromAndZero(t *testing.T) {
	a := Zeros(Shape{2, 2})
	b := Ones(Shape{2, 2})
	require.NoError(t, a.CopyFrom(b))
	assert.Equal(t, 4.0, a.Sum())
	a.Zero()
	assert.Equal(t, 0.0, a.Sum())
	assert.Equal(t, 4.0, b.Sum())
	assert.True(t, b.AllClose(Full(Shape{2, 2}, 1+1e-12), 1e-9))
	assert.False(t, b.AllClose(Ones(Shape{4}), 1e-9))
}
