package ringbuf_test

import (
	"bytes"
	"math/rand"
	"sync"
	"testing"

	"github.com/sagernet/sing-stream/common/ringbuf"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBufferCapacityEight(t *testing.T) {
	buffer := ringbuf.NewSize(8)
	require.Equal(t, 7, buffer.Cap())

	var written []byte
	first := []byte("abc")
	second := []byte("defg")
	third := []byte("hijk")

	assert.Equal(t, 3, buffer.Put(first))
	written = append(written, first...)
	assert.Equal(t, 4, buffer.Put(second))
	written = append(written, second...)
	assert.True(t, buffer.IsFull())

	accepted := buffer.Put(third)
	assert.Equal(t, 0, accepted)

	drained := make([]byte, 5)
	require.Equal(t, 5, buffer.Get(drained))
	assert.Equal(t, written[:5], drained)

	assert.Equal(t, len(third)-accepted, buffer.Put(third[accepted:]))
	written = append(written, third...)

	rest := make([]byte, 16)
	n := buffer.Get(rest)
	assert.Equal(t, written[5:], rest[:n])
	assert.True(t, buffer.IsEmpty())
}

func TestBufferFIFO(t *testing.T) {
	source := rand.New(rand.NewSource(1))
	for _, size := range []int{2, 3, 8, 64, ringbuf.DefaultSize} {
		buffer := ringbuf.NewSize(size)
		var (
			input  bytes.Buffer
			output bytes.Buffer
			model  []byte
		)
		for range 2000 {
			if source.Intn(2) == 0 {
				chunk := make([]byte, source.Intn(size+2))
				source.Read(chunk)
				n := buffer.Put(chunk)
				require.LessOrEqual(t, n, len(chunk))
				require.LessOrEqual(t, len(model)+n, buffer.Cap())
				if len(chunk) <= buffer.Cap()-len(model) {
					require.Equal(t, len(chunk), n)
				}
				input.Write(chunk[:n])
				model = append(model, chunk[:n]...)
			} else {
				chunk := make([]byte, source.Intn(size+2))
				n := buffer.Get(chunk)
				require.Equal(t, min(len(chunk), len(model)), n)
				require.Equal(t, model[:n], chunk[:n])
				output.Write(chunk[:n])
				model = model[n:]
			}
			require.Equal(t, len(model), buffer.Len())
			require.Equal(t, buffer.Cap()-len(model), buffer.Free())
		}
		drain := make([]byte, size)
		output.Write(drain[:buffer.Get(drain)])
		assert.Equal(t, input.Bytes(), output.Bytes())
	}
}

func TestBufferReadableAndDiscard(t *testing.T) {
	buffer := ringbuf.NewSize(8)
	require.Equal(t, 6, buffer.Put([]byte("012345")))
	require.Equal(t, 4, buffer.Get(make([]byte, 4)))
	require.Equal(t, 5, buffer.Put([]byte("6789a")))

	first, second := buffer.Readable()
	assert.Equal(t, "4567", string(first))
	assert.Equal(t, "89a", string(second))

	buffer.Discard(len(first))
	first, second = buffer.Readable()
	assert.Equal(t, "89a", string(first))
	assert.Empty(t, second)

	buffer.Discard(len(first))
	assert.True(t, buffer.IsEmpty())
	first, _ = buffer.Readable()
	assert.Empty(t, first)
	assert.Equal(t, 7, buffer.Put([]byte("bcdefgh")))
	first, second = buffer.Readable()
	assert.Equal(t, "bcdefgh", string(first))
	assert.Empty(t, second)

	assert.Panics(t, func() {
		buffer.Discard(8)
	})
}

func TestBufferMakeContiguous(t *testing.T) {
	buffer := ringbuf.NewSize(8)
	require.Equal(t, 5, buffer.Put([]byte("01234")))
	require.Equal(t, 3, buffer.Get(make([]byte, 3)))
	require.Equal(t, 5, buffer.Put([]byte("56789")))

	_, second := buffer.Readable()
	require.NotEmpty(t, second)

	buffer.MakeContiguous()
	first, second := buffer.Readable()
	assert.Equal(t, "3456789", string(first))
	assert.Empty(t, second)
	assert.True(t, buffer.IsFull())

	output := make([]byte, 7)
	assert.Equal(t, 7, buffer.Get(output))
	assert.Equal(t, "3456789", string(output))
}

func TestBufferTooSmall(t *testing.T) {
	assert.Panics(t, func() {
		ringbuf.New(make([]byte, 1))
	})
}

func TestBufferSingleProducerSingleConsumer(t *testing.T) {
	const total = 1 << 16
	buffer := ringbuf.NewSize(61)
	input := make([]byte, total)
	rand.New(rand.NewSource(2)).Read(input)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for offset := 0; offset < total; {
			offset += buffer.Put(input[offset:min(offset+17, total)])
		}
	}()

	output := make([]byte, 0, total)
	chunk := make([]byte, 23)
	for len(output) < total {
		n := buffer.Get(chunk)
		output = append(output, chunk[:n]...)
	}
	wg.Wait()
	assert.Equal(t, input, output)
}
