package nes

import (
	"errors"

	"github.com/cespare/xxhash"
	"github.com/google/brotli/go/cbrotli"
)

// ErrNothingToRewind is returned by Rewind when no snapshot is left.
var ErrNothingToRewind = errors.New("nes: nothing to rewind")

type rewindEntry struct {
	hash uint64
	data []byte // brotli compressed
}

// Rewinder is a ring buffer of compressed snapshots. Consecutive
// identical snapshots are only stored once.
type Rewinder struct {
	ring  []rewindEntry
	head  int // next slot to write
	count int
}

// NewRewinder returns a Rewinder holding at most depth snapshots.
func NewRewinder(depth int) *Rewinder {
	return &Rewinder{ring: make([]rewindEntry, depth)}
}

// Len returns the number of snapshots held.
func (r *Rewinder) Len() int { return r.count }

// Push stores raw, dropping the oldest snapshot when full. It reports
// whether raw was stored, which it isn't when it matches the newest one.
func (r *Rewinder) Push(raw []byte) (bool, error) {
	hash := xxhash.Sum64(raw)
	if r.count > 0 && r.ring[r.prev(r.head)].hash == hash {
		return false, nil
	}

	data, err := cbrotli.Encode(raw, cbrotli.WriterOptions{
		Quality: 1,
	})
	if err != nil {
		return false, err
	}

	r.ring[r.head] = rewindEntry{hash: hash, data: data}
	r.head = (r.head + 1) % len(r.ring)
	if r.count < len(r.ring) {
		r.count++
	}
	return true, nil
}

// Pop removes and returns the newest snapshot.
func (r *Rewinder) Pop() ([]byte, error) {
	if r.count == 0 {
		return nil, ErrNothingToRewind
	}
	r.head = r.prev(r.head)
	r.count--

	s := r.ring[r.head]
	r.ring[r.head] = rewindEntry{}
	return cbrotli.Decode(s.data)
}

func (r *Rewinder) prev(i int) int {
	return (i + len(r.ring) - 1) % len(r.ring)
}

// Rewind restores the console to the start of the last frame run by
// Frame. It requires the WithRewind option.
func (n *NES) Rewind() error {
	if n.rewind == nil {
		return ErrNothingToRewind
	}
	raw, err := n.rewind.Pop()
	if err != nil {
		return err
	}
	return n.restore(raw)
}
