package provider

import (
	"context"
	"io"
)

// Fake is a scripted Generator for tests. Each call returns the chunks in
// order; Err, when set, is returned after the chunks instead of io.EOF.
type Fake struct {
	Chunks []Chunk
	Err    error

	// Calls records every request seen, in order.
	Calls []Request
}

func (f *Fake) Stream(ctx context.Context, req Request) (Stream, error) {
	f.Calls = append(f.Calls, req)
	return &scriptedStream{chunks: append([]Chunk(nil), f.Chunks...), err: f.Err}, nil
}

type scriptedStream struct {
	chunks []Chunk
	err    error
}

func (s *scriptedStream) Recv() (Chunk, error) {
	if len(s.chunks) == 0 {
		if s.err != nil {
			err := s.err
			s.err = nil
			return Chunk{}, err
		}
		return Chunk{}, io.EOF
	}
	chunk := s.chunks[0]
	s.chunks = s.chunks[1:]
	return chunk, nil
}
