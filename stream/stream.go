package stream

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/rotblauer/routr/params"
)

// Slice, et al., taken from:
// https://betterprogramming.pub/writing-a-stream-api-in-go-afbc3c4350e2

func Slice[T any](ctx context.Context, in []T) <-chan T {
	out := make(chan T)
	go func() {
		defer close(out)
		for _, element := range in {
			select {
			case <-ctx.Done():
				return
			case out <- element:
			}
		}
	}()
	return out
}

// NDJSON decodes newline-delimited JSON values from in.
// Decoding stops at the first malformed line; its error, with the line number,
// is sent on the error channel. The error channel is closed once out is closed.
func NDJSON[T any](ctx context.Context, in io.Reader) (<-chan T, chan error) {
	out := make(chan T)
	errs := make(chan error, 1)
	go func() {
		defer close(errs)
		defer close(out)
		dec := json.NewDecoder(in)
		for line := 1; ; line++ {
			var element T
			if err := dec.Decode(&element); err != nil {
				if errors.Is(err, io.EOF) {
					return
				}
				errs <- fmt.Errorf("ndjson value %d: %w", line, err)
				return
			}
			select {
			case <-ctx.Done():
				errs <- ctx.Err()
				return
			case out <- element:
			}
		}
	}()
	return out, errs
}

// Lines emits each non-blank line of in. Lines are copies, safe to keep.
func Lines(ctx context.Context, in io.Reader) (<-chan []byte, chan error) {
	out := make(chan []byte, params.DefaultBatchSize)
	errs := make(chan error, 1)
	go func() {
		defer close(errs)
		defer close(out)
		scanner := bufio.NewScanner(in)
		scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
		for scanner.Scan() {
			line := bytes.TrimSpace(scanner.Bytes())
			if len(line) == 0 {
				continue
			}
			select {
			case <-ctx.Done():
				errs <- ctx.Err()
				return
			case out <- bytes.Clone(line):
			}
		}
		if err := scanner.Err(); err != nil {
			errs <- err
		}
	}()
	return out, errs
}

func Filter[T any](ctx context.Context, predicate func(T) bool, in <-chan T) <-chan T {
	out := make(chan T)
	go func() {
		defer close(out)
		for element := range in {
			if predicate(element) {
				select {
				case <-ctx.Done():
					return
				case out <- element:
				}
			}
		}
	}()
	return out
}

func Transform[I any, O any](ctx context.Context, transformer func(I) O, in <-chan I) <-chan O {
	out := make(chan O)
	go func() {
		defer close(out)
		for element := range in {
			select {
			case <-ctx.Done():
				return
			case out <- transformer(element):
			}
		}
	}()
	return out
}

func Collect[T any](ctx context.Context, in <-chan T) []T {
	out := make([]T, 0)
	for element := range in {
		select {
		case <-ctx.Done():
			return out
		default:
			out = append(out, element)
		}
	}
	return out
}

// GroupBy collects in into groups keyed by key.
// Groups and the elements within them keep their first-seen order.
func GroupBy[T any, K comparable](ctx context.Context, key func(T) K, in <-chan T) (keys []K, groups map[K][]T) {
	groups = make(map[K][]T)
	for element := range in {
		if ctx.Err() != nil {
			return
		}
		k := key(element)
		if _, ok := groups[k]; !ok {
			keys = append(keys, k)
		}
		groups[k] = append(groups[k], element)
	}
	return
}
