package codec

import (
	"bufio"
	"bytes"
	"io"
	"strconv"

	"github.com/pkg/errors"
)

// RFC 6242 message framing. A framedReader delivers the content of one complete message
// at a time, so a framing change made after a message has been decoded applies from the
// very next message.

var (
	endOfMessage = []byte("]]>]]>")
	endOfChunks  = []byte("\n##\n")
)

// MaxMessageSize bounds the size of a single decoded message.
const MaxMessageSize = 16 * 1024 * 1024

// ErrMalformedChunk is reported when chunked framing is violated.
var ErrMalformedChunk = errors.New("malformed chunk")

type framedReader struct {
	in      *bufio.Reader
	chunked bool
	pending []byte
}

func newFramedReader(r io.Reader) *framedReader {
	return &framedReader{in: bufio.NewReader(r)}
}

func (f *framedReader) Read(p []byte) (int, error) {
	for len(f.pending) == 0 {
		var err error
		if f.chunked {
			f.pending, err = f.readChunkedMessage()
		} else {
			f.pending, err = f.readEOMMessage()
		}
		if err != nil {
			return 0, err
		}
	}
	n := copy(p, f.pending)
	f.pending = f.pending[n:]
	return n, nil
}

func (f *framedReader) readEOMMessage() ([]byte, error) {
	var msg []byte
	for {
		b, err := f.in.ReadByte()
		if err != nil {
			if err == io.EOF && len(bytes.TrimSpace(msg)) > 0 {
				return nil, io.ErrUnexpectedEOF
			}
			return nil, err
		}
		msg = append(msg, b)
		if bytes.HasSuffix(msg, endOfMessage) {
			return msg[:len(msg)-len(endOfMessage)], nil
		}
		if len(msg) > MaxMessageSize {
			return nil, errors.Errorf("message exceeds %d bytes", MaxMessageSize)
		}
	}
}

func (f *framedReader) readChunkedMessage() ([]byte, error) {
	var msg []byte
	for {
		if err := f.expect('\n', '#'); err != nil {
			return nil, err
		}
		b, err := f.in.ReadByte()
		if err != nil {
			return nil, errors.Wrap(err, "reading chunk header")
		}
		if b == '#' {
			if err := f.expect('\n'); err != nil {
				return nil, err
			}
			return msg, nil
		}
		size, err := f.readChunkSize(b)
		if err != nil {
			return nil, err
		}
		if len(msg)+size > MaxMessageSize {
			return nil, errors.Errorf("message exceeds %d bytes", MaxMessageSize)
		}
		chunk := make([]byte, size)
		if _, err := io.ReadFull(f.in, chunk); err != nil {
			return nil, errors.Wrap(err, "reading chunk data")
		}
		msg = append(msg, chunk...)
	}
}

func (f *framedReader) expect(want ...byte) error {
	for _, w := range want {
		b, err := f.in.ReadByte()
		if err != nil {
			return err
		}
		if b != w {
			return errors.Wrapf(ErrMalformedChunk, "expected %q, got %q", w, b)
		}
	}
	return nil
}

// readChunkSize reads the decimal chunk size whose first digit has been consumed.
func (f *framedReader) readChunkSize(first byte) (int, error) {
	digits := []byte{first}
	for {
		b, err := f.in.ReadByte()
		if err != nil {
			return 0, errors.Wrap(err, "reading chunk size")
		}
		if b == '\n' {
			break
		}
		digits = append(digits, b)
		if len(digits) > 10 {
			return 0, errors.Wrap(ErrMalformedChunk, "chunk size too long")
		}
	}
	if digits[0] < '1' || digits[0] > '9' {
		return 0, errors.Wrapf(ErrMalformedChunk, "invalid chunk size %q", digits)
	}
	size, err := strconv.ParseUint(string(digits), 10, 32)
	if err != nil {
		return 0, errors.Wrapf(ErrMalformedChunk, "invalid chunk size %q", digits)
	}
	return int(size), nil
}

// framedWriter buffers a message and frames it when EndOfMessage is called.
type framedWriter struct {
	out     io.Writer
	chunked bool
	buf     bytes.Buffer
}

func (f *framedWriter) Write(p []byte) (int, error) {
	return f.buf.Write(p)
}

func (f *framedWriter) EndOfMessage() error {
	defer f.buf.Reset()
	var framed bytes.Buffer
	if f.chunked {
		if f.buf.Len() > 0 {
			framed.WriteString("\n#" + strconv.Itoa(f.buf.Len()) + "\n")
			framed.Write(f.buf.Bytes())
		}
		framed.Write(endOfChunks)
	} else {
		framed.Write(f.buf.Bytes())
		framed.Write(endOfMessage)
	}
	_, err := f.out.Write(framed.Bytes())
	return err
}
