package respwire

import (
	"errors"
	"io"

	"github.com/orange-cat-cat/respwire/resp"
)

const readChunkSize = 4096

// streamDecoder accumulates bytes from a reader and yields one decoded
// value at a time. It drives the incremental decode contract: a partial
// frame consumes nothing, so the decoder simply reads more and retries
// against the grown buffer.
type streamDecoder struct {
	r   io.Reader
	buf []byte
}

func newStreamDecoder(r io.Reader) *streamDecoder {
	return &streamDecoder{r: r}
}

// next returns the next complete value from the stream, allocating its tree
// from arena. Bytes past the value stay buffered for the following call.
func (d *streamDecoder) next(arena *resp.Arena) (*resp.Value, error) {
	for {
		if len(d.buf) > 0 {
			v, n, err := resp.Decode(d.buf, arena)
			if err == nil {
				d.buf = d.buf[:copy(d.buf, d.buf[n:])]
				return v, nil
			}
			if !errors.Is(err, resp.ErrIncomplete) {
				return nil, err
			}
		}

		var chunk [readChunkSize]byte
		n, err := d.r.Read(chunk[:])
		d.buf = append(d.buf, chunk[:n]...)
		if n == 0 && err != nil {
			return nil, err
		}
	}
}
