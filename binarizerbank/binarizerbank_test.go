package binarizerbank

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeSource is a minimal qrscan.LuminanceSource over an in-memory plane, for
// exercising the three binarizers without going through image decoding.
type fakeSource struct {
	luminances    []byte
	width, height int
}

func (f *fakeSource) Row(y int, row []byte) []byte {
	if row == nil {
		row = make([]byte, f.width)
	}
	copy(row, f.luminances[y*f.width:(y+1)*f.width])
	return row
}
func (f *fakeSource) Matrix() []byte { return f.luminances }
func (f *fakeSource) Width() int     { return f.width }
func (f *fakeSource) Height() int    { return f.height }

// checkerboard builds a high-contrast test plane: left half near-black,
// right half near-white, so every strategy should agree on where the split
// falls.
func checkerboard(width, height int) *fakeSource {
	luminances := make([]byte, width*height)
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			if x < width/2 {
				luminances[y*width+x] = 20
			} else {
				luminances[y*width+x] = 235
			}
		}
	}
	return &fakeSource{luminances: luminances, width: width, height: height}
}

func TestOrderIsFixedThreeWay(t *testing.T) {
	assert.Equal(t, []Kind{Otsu, Sauvola, AdaptiveMean}, Order)
}

func TestKindStringNames(t *testing.T) {
	assert.Equal(t, "otsu", Otsu.String())
	assert.Equal(t, "sauvola", Sauvola.String())
	assert.Equal(t, "adaptive_mean", AdaptiveMean.String())
}

func TestBinarizersAgreeOnHighContrastSplit(t *testing.T) {
	src := checkerboard(64, 64)

	for _, kind := range Order {
		t.Run(kind.String(), func(t *testing.T) {
			b := New(kind, src, 0)
			matrix, err := b.BlackMatrix()
			require.NoError(t, err)

			// Left half should be black (bit set), right half white.
			assert.True(t, matrix.Get(4, 32), "left half should binarize to black")
			assert.False(t, matrix.Get(60, 32), "right half should binarize to white")
		})
	}
}

func TestBinarizerCaches(t *testing.T) {
	src := checkerboard(32, 32)
	b := New(Otsu, src, 0)

	m1, err := b.BlackMatrix()
	require.NoError(t, err)
	m2, err := b.BlackMatrix()
	require.NoError(t, err)
	assert.Same(t, m1, m2, "BlackMatrix should cache its result")
}

func TestCreateBinarizerPreservesKind(t *testing.T) {
	src := checkerboard(32, 32)
	b := New(Sauvola, src, 5)

	other := checkerboard(16, 16)
	created := b.CreateBinarizer(other)

	sauvolaBinarizer, ok := created.(*Binarizer)
	require.True(t, ok)
	assert.Equal(t, Sauvola, sauvolaBinarizer.kind)
}

func TestEmptySourceReturnsError(t *testing.T) {
	src := &fakeSource{luminances: nil, width: 0, height: 0}
	b := New(Otsu, src, 0)
	_, err := b.BlackMatrix()
	assert.Error(t, err)
}
