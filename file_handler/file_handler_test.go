package filehandler

import (
	"bytes"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/goblimey/go-cssr/clock"
)

// chunkReader returns its chunks one per Read.  A nil chunk gives EOF.
type chunkReader struct {
	chunks [][]byte
	err    error
}

func (r *chunkReader) Read(buffer []byte) (int, error) {
	if len(r.chunks) == 0 {
		if r.err != nil {
			return 0, r.err
		}
		return 0, io.EOF
	}
	chunk := r.chunks[0]
	r.chunks = r.chunks[1:]
	if chunk == nil {
		return 0, io.EOF
	}
	return copy(buffer, chunk), nil
}

// TestNoTimeout checks that with no timeout the Handler behaves like the
// reader it wraps.
func TestNoTimeout(t *testing.T) {
	h := New(bytes.NewReader([]byte("abc")), 0, 0)
	got, err := io.ReadAll(h)
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != "abc" {
		t.Errorf("want abc got %q", got)
	}
}

// TestRetryOnEOF checks that data arriving after a run of EOFs is read.
func TestRetryOnEOF(t *testing.T) {
	start := time.Date(2024, time.March, 1, 12, 0, 0, 0, time.UTC)
	times := make([]time.Time, 0)
	for i := 0; i < 10; i++ {
		times = append(times, start.Add(time.Duration(i)*time.Second))
	}
	var sleeps int
	source := &chunkReader{chunks: [][]byte{[]byte("ab"), nil, nil, nil, []byte("cd")}}
	h := newWithClock(source, time.Second, 5*time.Second, clock.NewStepping(times...),
		func(time.Duration) { sleeps++ })

	got, err := io.ReadAll(h)
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != "abcd" {
		t.Errorf("want abcd got %q", got)
	}
	// Three EOFs before "cd" and then EOFs until the timeout.
	if sleeps < 3 {
		t.Errorf("want at least 3 sleeps got %d", sleeps)
	}
}

// TestTimeout checks that the Handler gives up when EOFTimeout passes.
func TestTimeout(t *testing.T) {
	c := clock.NewStopped(time.Date(2024, time.March, 1, 12, 0, 0, 0, time.UTC))
	var sleeps int
	sleep := func(d time.Duration) {
		sleeps++
		c.Advance(d)
	}
	h := newWithClock(&chunkReader{}, 100*time.Millisecond, time.Second, c, sleep)

	buffer := make([]byte, 10)
	n, err := h.Read(buffer)
	if err != io.EOF {
		t.Errorf("want EOF got %v", err)
	}
	if n != 0 {
		t.Errorf("want 0 bytes got %d", n)
	}
	// The first EOF starts the clock.  The timeout has passed after 11
	// sleeps of 100 ms.
	if sleeps != 11 {
		t.Errorf("want 11 sleeps got %d", sleeps)
	}
}

// TestReadError checks that an error other than EOF is returned straight
// away.
func TestReadError(t *testing.T) {
	failure := errors.New("device gone")
	var sleeps int
	h := newWithClock(&chunkReader{chunks: [][]byte{nil}, err: failure}, time.Second, time.Minute,
		clock.System(), func(time.Duration) { sleeps++ })

	_, err := h.Read(make([]byte, 1))
	if !errors.Is(err, failure) {
		t.Errorf("want %v got %v", failure, err)
	}
	if sleeps != 1 {
		t.Errorf("want 1 sleep got %d", sleeps)
	}
}
