package main

import (
	"bytes"
	"errors"
	"io"
	"testing"
)

// timingOut returns its data and then reads of zero bytes.
type timingOut struct {
	data []byte
}

func (r *timingOut) Read(buffer []byte) (int, error) {
	n := copy(buffer, r.data)
	r.data = r.data[n:]
	return n, nil
}

type failingWriter struct{}

func (failingWriter) Write([]byte) (int, error) {
	return 0, errors.New("broken pipe")
}

func TestGrabFromPort(t *testing.T) {
	data := bytes.Repeat([]byte{0xd3, 0x00, 0x13}, 2000)
	var out bytes.Buffer

	err := GrabFromPort(&timingOut{data: data}, &out)
	if !errors.Is(err, errTimeout) {
		t.Errorf("want timeout got %v", err)
	}
	if !bytes.Equal(data, out.Bytes()) {
		t.Errorf("want %d bytes got %d", len(data), out.Len())
	}
}

func TestGrabFromPortReadError(t *testing.T) {
	var out bytes.Buffer
	err := GrabFromPort(bytes.NewReader([]byte("abc")), &out)
	if err != io.EOF {
		t.Errorf("want EOF got %v", err)
	}
	if out.String() != "abc" {
		t.Errorf("want abc got %q", out.String())
	}
}

func TestGrabFromPortWriteError(t *testing.T) {
	err := GrabFromPort(&timingOut{data: []byte("abc")}, failingWriter{})
	var writeErr *writeError
	if !errors.As(err, &writeErr) {
		t.Errorf("want a write error got %v", err)
	}
}

func TestMatchPort(t *testing.T) {
	var testData = []struct {
		Wanted []string
		Known  []string
		Want   string
		WantOK bool
	}{
		{[]string{"/dev/ttyACM0", "/dev/ttyACM1"}, []string{"/dev/ttyS0", "/dev/ttyACM1"}, "/dev/ttyACM1", true},
		{[]string{"/dev/ttyACM0", "/dev/ttyACM1"}, []string{"/dev/ttyACM1", "/dev/ttyACM0"}, "/dev/ttyACM0", true},
		{[]string{"COM4"}, []string{"COM5"}, "", false},
		{nil, []string{"COM5"}, "", false},
	}

	for _, td := range testData {
		got, ok := MatchPort(td.Wanted, td.Known)
		if got != td.Want || ok != td.WantOK {
			t.Errorf("%v in %v: want %q %v got %q %v", td.Wanted, td.Known, td.Want, td.WantOK, got, ok)
		}
	}
}
