package buffer

// Buffer is a byte slice which refuses to grow past its limit. The parser collects request
// heads arriving in several reads into it, and the serializer stages replies in it.
type Buffer struct {
	memory []byte
	limit  int
}

func New(initialSize, limit int) Buffer {
	return Buffer{
		memory: make([]byte, 0, initialSize),
		limit:  limit,
	}
}

// Append writes the data if it fits entirely. Otherwise nothing is written and false is
// returned.
func (b *Buffer) Append(data []byte) (ok bool) {
	if len(data) > b.Room() {
		return false
	}

	b.memory = append(b.memory, data...)
	return true
}

// Room is how many bytes can be appended before hitting the limit.
func (b *Buffer) Room() int {
	return b.limit - len(b.memory)
}

func (b *Buffer) Len() int {
	return len(b.memory)
}

// Bytes returns the content. It stays valid until the next Append after Reset.
func (b *Buffer) Bytes() []byte {
	return b.memory
}

// Reset empties the buffer, keeping the allocated memory.
func (b *Buffer) Reset() {
	b.memory = b.memory[:0]
}
