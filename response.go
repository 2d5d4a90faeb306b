package respwire

import (
	"errors"

	"github.com/orange-cat-cat/respwire/resp"
)

// ErrMergeSelf is returned by Merge when a response batch is merged into
// itself, which is a programming error.
var ErrMergeSelf = errors.New("respwire: cannot merge a response batch into itself")

// Response holds the decoded replies of one executed Request, one reply per
// command in submission order. The reply trees are backed by an arena owned
// by the response; they stay valid for the lifetime of the Response (or of
// any Response they were merged into).
type Response struct {
	replies []*resp.Value
	arena   *resp.Arena
}

// ReplyCount returns the number of replies in the batch.
func (r *Response) ReplyCount() int {
	return len(r.replies)
}

// Reply returns the i-th reply. It panics when i is out of range; callers
// index within ReplyCount.
func (r *Response) Reply(i int) *resp.Value {
	return r.replies[i]
}

// Merge appends other's replies after the current ones. The resulting count
// is the sum of both counts; other is left unchanged and its storage is
// shared with the merged batch from then on.
func (r *Response) Merge(other *Response) error {
	if other == r {
		return ErrMergeSelf
	}
	r.replies = append(r.replies, other.replies...)
	return nil
}

// Clear drops all replies and their backing storage.
func (r *Response) Clear() {
	r.replies = nil
	r.arena = nil
}

// decodeArena returns the arena backing this batch's replies, creating it
// on first use.
func (r *Response) decodeArena() *resp.Arena {
	if r.arena == nil {
		r.arena = resp.NewArena()
	}
	return r.arena
}

func (r *Response) addReply(v *resp.Value) {
	r.replies = append(r.replies, v)
}
