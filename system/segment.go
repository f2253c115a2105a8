package system

import "github.com/tetratelabs/wazero/api"

// MemorySegment addresses a byte range in guest memory.  The offset is
// packed into the upper 32 bits and the length into the lower 32 bits,
// so that a string crosses the module boundary as a single i64.
type MemorySegment uint64

func NewMemorySegment(offset, length uint32) MemorySegment {
	s := MemorySegment(offset) << 32
	s |= MemorySegment(length)
	return s
}

func (MemorySegment) NumWords() int {
	return 1
}

func (MemorySegment) ValueType() api.ValueType {
	return api.ValueTypeI64
}

func (s MemorySegment) Offset() uint32 {
	return uint32(s >> 32) // 32 leftmost bits
}

func (s MemorySegment) Length() uint32 {
	return uint32(s) // 32 rightmost bits
}

// Load returns a view of the segment.  The slice aliases guest memory
// and is only valid until the guest runs again.
func (s MemorySegment) Load(mem api.Memory) ([]byte, bool) {
	if mem == nil {
		return nil, false
	}

	return mem.Read(s.Offset(), s.Length())
}
