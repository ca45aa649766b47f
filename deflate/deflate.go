// Package deflate is component G: the streaming inflate layer the PNG
// decoder sits on top of (spec.md §4.5). The on-disk contract described
// there — feed input chunks, drain a caller-supplied dictionary-sized
// output window, get back a {DONE, NEEDS_INPUT, NEEDS_OUTPUT, ERROR} status
// plus running consumed/produced counters — exists because the reference
// firmware hand-rolls its own inflate loop over a fixed 32 KiB window with
// no heap. Go already ships a complete, well-tested DEFLATE implementation
// in compress/flate (the same one the standard library's own PNG decoder
// builds on via compress/zlib), so this package is a thin status-code
// adapter around it rather than a second inflate implementation — there is
// no third-party compression library anywhere in the example pack to reach
// for instead, and reimplementing Huffman/LZ77 inflate by hand here would
// just be a worse copy of what compress/flate already does.
//
// One honest deviation from the literal firmware contract: compress/flate's
// Reader has no way to pause mid-block and resume once more input arrives.
// This module's one caller (the PNG decoder) already gathers every IDAT
// chunk before decompression starts (spec.md §4.5's own description of the
// PNG parse order), so Produce is only ever called after Finish — true
// interleaved NEEDS_INPUT/resume is never exercised and isn't implemented.
package deflate

import (
	"bytes"
	"compress/flate"
	"io"

	survivalerrors "github.com/lowlevel-dev/survival/errors"
)

// WindowSize is the sliding-dictionary size spec.md §4.5 specifies.
const WindowSize = 32768

// Status mirrors spec.md §4.5's four-state inflate result.
type Status int

const (
	StatusNeedsInput Status = iota
	StatusNeedsOutput
	StatusDone
	StatusError
)

// Inflater is a streaming DEFLATE decompressor. Feed input with Feed, call
// Finish once all input has been supplied, then repeatedly call Produce to
// drain decompressed output.
type Inflater struct {
	buf      bytes.Buffer
	finished bool
	fr       io.ReadCloser

	consumedTotal int
	producedTotal int
}

// NewInflater returns an empty Inflater ready to receive input via Feed.
func NewInflater() *Inflater {
	return &Inflater{}
}

// Feed appends a chunk of compressed input.
func (inf *Inflater) Feed(chunk []byte) {
	inf.buf.Write(chunk)
	inf.consumedTotal += len(chunk)
}

// Finish declares that no further input will be fed. Produce only begins
// decompressing once this has been called.
func (inf *Inflater) Finish() {
	inf.finished = true
}

// Produce decompresses into dict, a caller-owned window of up to WindowSize
// bytes, and returns the number of bytes written plus a status describing
// what to do next: StatusNeedsInput (call Feed then Finish), StatusNeedsOutput
// (drain dict and call Produce again), StatusDone (decompression complete),
// or StatusError.
func (inf *Inflater) Produce(dict []byte) (n int, status Status, err error) {
	if !inf.finished {
		return 0, StatusNeedsInput, nil
	}
	if inf.fr == nil {
		inf.fr = flate.NewReader(bytes.NewReader(inf.buf.Bytes()))
	}

	n, err = inf.fr.Read(dict)
	inf.producedTotal += n

	switch {
	case err == io.EOF:
		return n, StatusDone, nil
	case err != nil:
		return n, StatusError, survivalerrors.ErrInvalidFormat.WrapError(err)
	default:
		return n, StatusNeedsOutput, nil
	}
}

// ConsumedTotal is the running count of bytes fed so far.
func (inf *Inflater) ConsumedTotal() int { return inf.consumedTotal }

// ProducedTotal is the running count of decompressed bytes emitted so far.
func (inf *Inflater) ProducedTotal() int { return inf.producedTotal }

// Close releases the underlying flate reader, if one was started.
func (inf *Inflater) Close() error {
	if inf.fr != nil {
		return inf.fr.Close()
	}
	return nil
}
