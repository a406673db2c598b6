package codec

import (
	"encoding/xml"
	"io"
)

// Decoder wraps the standard xml Decoder (for XML decoding)
// and an RFC6242-compliant reader (for netconf message framing)
type Decoder struct {
	*xml.Decoder
	framer *framedReader
}

// Encoder wraps the standard xml Encoder (for XML encoding)
// and an RFC6242-compliant writer (for netconf message framing)
type Encoder struct {
	xmlEncoder *xml.Encoder
	framer     *framedWriter
}

// Encode encodes netconf message.
func (e *Encoder) Encode(msg interface{}) error {
	// Prepend xml document declaration to each message.
	_, err := e.framer.Write([]byte(xml.Header))
	if err != nil {
		return err
	}

	err = e.xmlEncoder.Encode(msg)
	if err != nil {
		e.framer.buf.Reset()
		return err
	}
	return e.framer.EndOfMessage()
}

// NewDecoder delivers a new decoder.
func NewDecoder(t io.Reader) *Decoder {
	framer := newFramedReader(t)
	return &Decoder{Decoder: xml.NewDecoder(framer), framer: framer}
}

// NewEncoder delivers a new encoder.
func NewEncoder(t io.Writer) *Encoder {
	framer := &framedWriter{out: t}
	return &Encoder{xmlEncoder: xml.NewEncoder(framer), framer: framer}
}

// EnableChunkedFraming enables chunked framing on the specified decoder and encoder.
// The decoder switches from the next message it reads.
func EnableChunkedFraming(d *Decoder, e *Encoder) {
	d.framer.chunked = true
	e.framer.chunked = true
}
