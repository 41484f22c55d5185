package mbuf

import "io"

var (
	_ io.Writer       = (*Buffer)(nil)
	_ io.StringWriter = (*Buffer)(nil)
	_ io.ByteWriter   = (*Buffer)(nil)
	_ io.ReaderFrom   = (*Buffer)(nil)
	_ io.Reader       = (*Buffer)(nil)
	_ io.ByteReader   = (*Buffer)(nil)
	_ io.WriterTo     = (*Buffer)(nil)
	_ io.Seeker       = (*Buffer)(nil)
)

// --- Write side: appends after the valid data ---

// Write implements the io.Writer interface.
func (b *Buffer) Write(p []byte) (int, error) {
	if err := b.Append(p); err != nil {
		return 0, err
	}
	return len(p), nil
}

// WriteString implements the io.StringWriter interface for efficiency.
func (b *Buffer) WriteString(s string) (int, error) {
	if err := b.AppendString(s); err != nil {
		return 0, err
	}
	return len(s), nil
}

// WriteByte implements the io.ByteWriter interface for efficiency.
func (b *Buffer) WriteByte(c byte) error {
	if err := b.reserve(1); err != nil {
		return err
	}
	b.buf[b.n] = c
	b.n++
	return nil
}

// ReadFrom implements the io.ReaderFrom interface and reads data from r until EOF or an error occurs.
// Spare capacity is filled in place first; after that data is staged in a
// pooled chunk and appended, so the storage still grows by exactly what was read.
func (b *Buffer) ReadFrom(r io.Reader) (int64, error) {
	if b.buf == nil {
		return 0, ErrReleased
	}

	var total int64
	for b.n < len(b.buf) {
		m, err := r.Read(b.buf[b.n:])
		if m < 0 || m > len(b.buf)-b.n {
			return total, ErrInvalidRead
		}
		b.n += m
		total += int64(m)
		if err == io.EOF {
			return total, nil
		}
		if err != nil {
			return total, err
		}
	}

	chunkPtr := chunkPool.Get().(*[]byte)
	defer chunkPool.Put(chunkPtr)
	chunk := *chunkPtr

	for {
		m, err := r.Read(chunk)
		if m < 0 || m > len(chunk) {
			return total, ErrInvalidRead
		}
		if m > 0 {
			if aerr := b.Append(chunk[:m]); aerr != nil {
				return total, aerr
			}
			total += int64(m)
		}
		if err == io.EOF {
			return total, nil
		}
		if err != nil {
			return total, err
		}
	}
}

// --- Read side: consumes [Pos, Len) ---

// Read implements the [io.Reader] interface.
func (b *Buffer) Read(p []byte) (int, error) {
	if b.pos >= b.n {
		return 0, io.EOF
	}
	n := copy(p, b.buf[b.pos:b.n])
	b.pos += n
	return n, nil
}

// ReadByte implements the [io.ByteReader] interface.
func (b *Buffer) ReadByte() (byte, error) {
	if b.pos >= b.n {
		return 0, io.EOF
	}
	c := b.buf[b.pos]
	b.pos++
	return c, nil
}

// WriteTo implements the [io.WriterTo] interface for efficiency.
func (b *Buffer) WriteTo(w io.Writer) (int64, error) {
	if b.pos >= b.n {
		return 0, nil
	}

	p := b.buf[b.pos:b.n]
	n, err := w.Write(p)
	if n < 0 || n > len(p) {
		return 0, ErrInvalidWrite
	}
	b.pos += n
	if err != nil {
		return int64(n), err
	}
	if n < len(p) {
		return int64(n), io.ErrShortWrite
	}
	return int64(n), nil
}

// Seek implements the [io.Seeker] interface. The cursor stays within the valid data.
func (b *Buffer) Seek(offset int64, whence int) (int64, error) {
	var abs int64
	switch whence {
	case io.SeekStart:
		abs = offset
	case io.SeekCurrent:
		abs = int64(b.pos) + offset
	case io.SeekEnd:
		abs = int64(b.n) + offset
	default:
		return int64(b.pos), ErrInvalidWhence
	}

	if abs < 0 || abs > int64(b.n) {
		return int64(b.pos), ErrInvalidSeek
	}

	b.pos = int(abs)
	return abs, nil
}
