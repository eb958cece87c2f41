package treefs

import (
	"crypto/md5"
	"encoding/binary"
	"strconv"
)

// SynthMode selects how file bytes are produced.
type SynthMode int

const (
	// FillMode repeats a single configured byte.
	FillMode SynthMode = iota

	// SemiRandomMode draws bytes from the deterministic block cache.
	SemiRandomMode
)

// Fill-buffer bounds. Template buffers never exceed maxFillBuffer;
// longer reads repeat slices of one template.
const (
	maxFillBuffer     = 1 << 20
	fillCacheCapacity = 1000
)

// synthesizer produces the bytes of a (path, offset, length) read
// window. It holds no per-file state: the same window always yields
// the same bytes, so concurrent reads need no coordination beyond the
// fill-buffer LRU's own lock.
type synthesizer struct {
	mode     SynthMode
	fillByte byte

	// fillBuffers memoizes templates keyed by (fill byte, length).
	fillBuffers *lruCache

	blocks *blockCache
}

// newSynthesizer builds the synthesizer for the configured mode. The
// block cache is only generated in semi-random mode; fill mode pays
// nothing for it.
func newSynthesizer(opts *Options) *synthesizer {
	s := &synthesizer{
		mode:        opts.Mode,
		fillByte:    opts.FillByte,
		fillBuffers: newLRUCache(fillCacheCapacity),
	}
	if opts.Mode == SemiRandomMode {
		s.blocks = newBlockCache(opts.Seed, opts.BlockCount, int(opts.BlockSize))
	}
	return s
}

// ReadAt fills dest with the window starting at off of a file of the
// given logical size, returning the byte count: min(len(dest),
// size-off), or zero when off is at or past the end. All arithmetic is
// 64-bit so multi-gigabyte files and offsets beyond 2^31 behave.
func (s *synthesizer) ReadAt(path string, size uint64, dest []byte, off uint64) int {
	if off >= size {
		return 0
	}
	n := uint64(len(dest))
	if remaining := size - off; remaining < n {
		n = remaining
	}
	if n == 0 {
		return 0
	}

	if s.mode == FillMode {
		s.readFill(dest[:n])
	} else {
		s.readSemiRandom(path, dest[:n], off)
	}
	return int(n)
}

// readFill covers dest with copies of the fill byte, repeating a
// memoized template rather than re-materializing per read.
func (s *synthesizer) readFill(dest []byte) {
	tmplLen := len(dest)
	if tmplLen > maxFillBuffer {
		tmplLen = maxFillBuffer
	}
	tmpl := s.fillBuffer(tmplLen)
	for copied := 0; copied < len(dest); {
		copied += copy(dest[copied:], tmpl)
	}
}

// fillBuffer returns a template of length bytes of the fill byte,
// memoized on (fill byte, length).
func (s *synthesizer) fillBuffer(length int) []byte {
	key := strconv.Itoa(int(s.fillByte)) + ":" + strconv.Itoa(length)
	if v, ok := s.fillBuffers.Get(key); ok {
		return v.([]byte)
	}
	buf := make([]byte, length)
	if s.fillByte != 0 {
		for i := range buf {
			buf[i] = s.fillByte
		}
	}
	s.fillBuffers.Put(key, buf)
	return buf
}

// readSemiRandom assembles dest from the block cache: the tail of the
// starting block, zero or more full blocks, and the head of the ending
// block. The block choice is a pure function of (path, block number),
// so the same (path, offset) always yields the same byte.
func (s *synthesizer) readSemiRandom(path string, dest []byte, off uint64) {
	bs := s.blocks.blockSize
	for copied := uint64(0); copied < uint64(len(dest)); {
		fileOff := off + copied
		block := s.blocks.block(s.blockIndex(path, fileOff/bs))
		copied += uint64(copy(dest[copied:], block[fileOff%bs:]))
	}
}

// blockIndex maps block number k of the file at path to a cache slot:
// MD5(path || NUL || decimal(k)) folded to 64 bits, modulo the block
// count. MD5 is used for distribution, not secrecy; reproducibility
// is the point.
func (s *synthesizer) blockIndex(path string, k uint64) uint64 {
	h := md5.New()
	h.Write([]byte(path))
	h.Write([]byte{0})
	h.Write([]byte(strconv.FormatUint(k, 10)))
	var sum [md5.Size]byte
	h.Sum(sum[:0])
	folded := binary.BigEndian.Uint64(sum[:8]) ^ binary.BigEndian.Uint64(sum[8:])
	return folded % s.blocks.count()
}
