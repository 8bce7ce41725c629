package chat

import (
	"context"
	"io"
	"iter"
	"sync"
)

// Stream delivers the fragments of one reply in arrival order. It has a
// single consumer and cannot be restarted.
type Stream struct {
	ch   chan string
	done chan struct{}
	once sync.Once

	// err is written by the producer before ch is closed.
	err      error
	errTaken bool
}

func newStream() *Stream {
	return &Stream{
		ch:   make(chan string),
		done: make(chan struct{}),
	}
}

// Recv returns the next fragment. After the last fragment it returns the
// terminal *StreamError once, if the reply failed, and io.EOF from then on.
func (s *Stream) Recv() (string, error) {
	select {
	case <-s.done:
		return "", io.EOF
	default:
	}

	select {
	case text, ok := <-s.ch:
		if ok {
			return text, nil
		}
		if s.err != nil && !s.errTaken {
			s.errTaken = true
			return "", s.err
		}
		return "", io.EOF
	case <-s.done:
		return "", io.EOF
	}
}

// Chunks returns the stream as a sequence. Breaking out of the loop closes
// the stream.
func (s *Stream) Chunks() iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		for {
			text, err := s.Recv()
			if err == io.EOF {
				return
			}
			if !yield(text, err) {
				s.Close()
				return
			}
			if err != nil {
				return
			}
		}
	}
}

// Close drops the subscription. The producer stops forwarding fragments
// and stops reading from the provider.
func (s *Stream) Close() {
	s.once.Do(func() { close(s.done) })
}

// send hands one fragment to the consumer. It reports false once the
// consumer has closed the stream or ctx is done.
func (s *Stream) send(ctx context.Context, text string) bool {
	select {
	case s.ch <- text:
		return true
	case <-s.done:
		return false
	case <-ctx.Done():
		return false
	}
}

// finish ends the stream with an optional terminal error.
func (s *Stream) finish(err error) {
	s.err = err
	close(s.ch)
}
