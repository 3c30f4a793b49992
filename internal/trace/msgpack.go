package trace

import (
	"encoding/binary"
	"io"

	"github.com/juju/errors"
	"github.com/vmihailenco/msgpack/v5"
)

const headerSize = 4

type MsgpackSerializer struct{}

func (MsgpackSerializer) Marshal(v interface{}) ([]byte, error) {
	return msgpack.Marshal(v)
}

func (MsgpackSerializer) Unmarshal(data []byte, v interface{}) error {
	return msgpack.Unmarshal(data, v)
}

// MsgpackTransport frames messages with a 4-byte big-endian length. Either
// side may be nil for a one-way transport.
type MsgpackTransport struct {
	reader io.Reader
	writer io.Writer
}

func NewMsgpackTransport(reader io.Reader, writer io.Writer) *MsgpackTransport {
	return &MsgpackTransport{
		reader: reader,
		writer: writer,
	}
}

func (mt *MsgpackTransport) Send(data []byte) error {
	if mt.writer == nil {
		return errors.New("transport has no writer")
	}
	var header [headerSize]byte
	binary.BigEndian.PutUint32(header[:], uint32(len(data)))

	if _, err := mt.writer.Write(header[:]); err != nil {
		return errors.Trace(err)
	}
	if _, err := mt.writer.Write(data); err != nil {
		return errors.Trace(err)
	}
	return mt.Flush()
}

func (mt *MsgpackTransport) Receive() ([]byte, error) {
	if mt.reader == nil {
		return nil, errors.New("transport has no reader")
	}
	var header [headerSize]byte
	if _, err := io.ReadFull(mt.reader, header[:]); err != nil {
		// EOF between frames is a clean shutdown and is passed on unwrapped.
		if err == io.EOF {
			return nil, io.EOF
		}
		return nil, errors.Annotate(err, "reading frame header")
	}

	data := make([]byte, binary.BigEndian.Uint32(header[:]))
	if _, err := io.ReadFull(mt.reader, data); err != nil {
		return nil, errors.Annotate(err, "reading frame body")
	}
	return data, nil
}

func (mt *MsgpackTransport) Close() error {
	var firstErr error
	for _, v := range []interface{}{mt.reader, mt.writer} {
		if c, ok := v.(io.Closer); ok {
			if err := c.Close(); err != nil && firstErr == nil {
				firstErr = err
			}
		}
	}
	return firstErr
}

func (mt *MsgpackTransport) Flush() error {
	if flusher, ok := mt.writer.(interface{ Flush() error }); ok {
		return flusher.Flush()
	}
	return nil
}
