package deflate_test

import (
	"bytes"
	"compress/flate"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lowlevel-dev/survival/deflate"
)

func compress(t *testing.T, data []byte) []byte {
	t.Helper()
	var buf bytes.Buffer
	w, err := flate.NewWriter(&buf, flate.DefaultCompression)
	require.NoError(t, err)
	_, err = w.Write(data)
	require.NoError(t, err)
	require.NoError(t, w.Close())
	return buf.Bytes()
}

func TestInflateRoundTrip(t *testing.T) {
	original := bytes.Repeat([]byte("the quick brown fox jumps over the lazy dog "), 200)
	compressed := compress(t, original)

	inf := deflate.NewInflater()
	inf.Feed(compressed)
	inf.Finish()

	var out bytes.Buffer
	dict := make([]byte, 4096)
	for {
		n, status, err := inf.Produce(dict)
		require.NoError(t, err)
		out.Write(dict[:n])
		if status == deflate.StatusDone {
			break
		}
	}
	assert.Equal(t, original, out.Bytes())
	assert.Equal(t, len(compressed), inf.ConsumedTotal())
	assert.Equal(t, len(original), inf.ProducedTotal())
}

func TestProduceBeforeFinishReturnsNeedsInput(t *testing.T) {
	inf := deflate.NewInflater()
	inf.Feed([]byte{0x00})
	n, status, err := inf.Produce(make([]byte, 16))
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Equal(t, deflate.StatusNeedsInput, status)
}
