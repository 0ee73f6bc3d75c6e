// Package pool provides bucketed sync.Pool instances backing the decoder's
// buffer acquisition and release. Pixel and scanline buffers are organized
// by size class to minimize waste across repeated frame decodes.
package pool

import "sync"

// Size classes for bucketed pools, sized for typical icon-to-screen decodes.
const (
	Size256B = 256
	Size1K   = 1024
	Size4K   = 4096
	Size16K  = 16384
	Size64K  = 65536
	Size256K = 262144
	Size1M   = 1048576
)

var sizes = [7]int{Size256B, Size1K, Size4K, Size16K, Size64K, Size256K, Size1M}

// bucketIndex returns the pool index for a given size.
func bucketIndex(size int) int {
	for i, s := range sizes {
		if size <= s {
			return i
		}
	}
	return len(sizes) - 1
}

var pools [7]sync.Pool

func init() {
	for i := range pools {
		sz := sizes[i]
		pools[i] = sync.Pool{
			New: func() any {
				b := make([]byte, sz)
				return &b
			},
		}
	}
}

// Get returns a zeroed byte slice of exactly the requested length. The
// caller owns it until Put.
func Get(size int) []byte {
	idx := bucketIndex(size)
	bp := pools[idx].Get().(*[]byte)
	b := *bp
	if cap(b) < size {
		b = make([]byte, size)
		return b
	}
	b = b[:size]
	clear(b)
	return b
}

// Put returns a byte slice to the pool. The slice must have been obtained
// from Get. Slices smaller than Size256B or larger than Size1M are not
// pooled.
func Put(b []byte) {
	c := cap(b)
	if c < Size256B || c > Size1M {
		return
	}
	idx := bucketIndex(c)
	b = b[:c]
	pools[idx].Put(&b)
}
