// Package pool recycles the byte buffers of the encoder: macroblock work
// buffers, prediction scratch and whole planes. Buffers are bucketed by
// size class.
package pool

import "sync"

// Size classes. The first two fit the per-macroblock work and prediction
// buffers, the others hold picture planes.
const (
	SizeBlock = 1 << 10
	SizePred  = 1 << 12
	SizeRow   = 1 << 16
	SizePlane = 1 << 20
	SizeLarge = 1 << 24
)

var sizes = [...]int{SizeBlock, SizePred, SizeRow, SizePlane, SizeLarge}

var pools [len(sizes)]sync.Pool

func init() {
	for i := range pools {
		sz := sizes[i]
		pools[i].New = func() any {
			b := make([]byte, sz)
			return &b
		}
	}
}

// bucketIndex returns the smallest class holding size, or -1 if size is
// larger than every class.
func bucketIndex(size int) int {
	for i, sz := range sizes {
		if size <= sz {
			return i
		}
	}
	return -1
}

// Get returns a slice of length size. Its contents are unspecified. The
// caller should hand it back with Put.
func Get(size int) []byte {
	idx := bucketIndex(size)
	if idx < 0 {
		return make([]byte, size)
	}
	bp := pools[idx].Get().(*[]byte)
	return (*bp)[:size]
}

// GetZeroed is Get with the contents cleared.
func GetZeroed(size int) []byte {
	b := Get(size)
	clear(b)
	return b
}

// Put returns b to its size class. Slices that do not match a class
// exactly, such as ones allocated past the largest class, are dropped.
func Put(b []byte) {
	c := cap(b)
	idx := bucketIndex(c)
	if idx < 0 || sizes[idx] != c {
		return
	}
	b = b[:c]
	pools[idx].Put(&b)
}
