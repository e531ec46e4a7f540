package random

import (
	"crypto/rand"
	"encoding/binary"
	"io"

	"github.com/bassosimone/runtimex"
	"lukechampine.com/blake3"
)

const int63Mask = 1<<63 - 1

// Source is a math/rand source and io.Reader over a BLAKE3 XOF keyed once from the
// system generator.
type Source struct {
	reader io.Reader
}

func NewSource() *Source {
	key := make([]byte, 32)
	runtimex.PanicOnError1(io.ReadFull(rand.Reader, key))
	return &Source{reader: blake3.New(32, key).XOF()}
}

func (s *Source) Read(p []byte) (int, error) {
	return s.reader.Read(p)
}

func (s *Source) Uint64() uint64 {
	var buffer [8]byte
	runtimex.PanicOnError1(io.ReadFull(s.reader, buffer[:]))
	return binary.BigEndian.Uint64(buffer[:])
}

func (s *Source) Int63() int64 {
	return int64(s.Uint64() & int63Mask)
}

func (s *Source) Seed(int64) {
}
