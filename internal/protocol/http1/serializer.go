package http1

import (
	"strconv"
	"time"

	"github.com/indigo-web/evhttp/http/proto"
	"github.com/indigo-web/evhttp/http/status"
	"github.com/indigo-web/evhttp/internal/buffer"
	"github.com/indigo-web/evhttp/kv"
	"github.com/indigo-web/evhttp/transport"
	"github.com/indigo-web/utils/strcomp"
	"github.com/indigo-web/utils/uf"
)

// DateLayout is the IMF-fixdate format used by the Date header.
const DateLayout = "Mon, 02 Jan 2006 15:04:05 GMT"

const (
	colonsp          = ": "
	chunkedFinalizer = "0\r\n\r\n"
)

// Head describes the status line and headers block of a response.
type Head struct {
	Proto   proto.Proto
	Code    status.Code
	Reason  string
	Headers *kv.Storage
	// Chunked makes the serializer frame every following body write as a separate chunk.
	Chunked bool
	// Close appends Connection: close unless the headers already carry a Connection field.
	Close bool
}

// Serializer renders responses into the staging buffer and flushes it into the client.
// Writes which don't fit into the buffer are flushed in several syscalls.
type Serializer struct {
	client  transport.Client
	buff    *buffer.Buffer
	chunked bool
	// Now is the clock used for the Date header.
	Now func() time.Time
}

func NewSerializer(client transport.Client, buff *buffer.Buffer) *Serializer {
	return &Serializer{
		client: client,
		buff:   buff,
		Now:    time.Now,
	}
}

// WriteHead stages the status line with the headers. The protocol defaults to HTTP/1.1
// if unknown, empty reason falls back to the standard phrase of the code.
func (s *Serializer) WriteHead(head Head) error {
	s.buff.Reset()
	s.chunked = head.Chunked

	protocol := head.Proto
	if protocol&proto.HTTP1 == 0 {
		protocol = proto.HTTP11
	}

	reason := head.Reason
	if len(reason) == 0 {
		reason = string(status.Text(head.Code))
	}

	var line [len("HTTP/1.1 999 ")]byte
	statusLine := append(line[:0], protocol.String()...)
	statusLine = append(statusLine, ' ')
	statusLine = strconv.AppendUint(statusLine, uint64(head.Code), 10)
	statusLine = append(statusLine, ' ')

	if err := s.emit(statusLine); err != nil {
		return err
	}

	if err := s.emitString(reason, crlf); err != nil {
		return err
	}

	var hasDate, hasConnection bool

	if head.Headers != nil {
		for key, value := range head.Headers.Pairs() {
			hasDate = hasDate || strcomp.EqualFold(key, "Date")
			hasConnection = hasConnection || strcomp.EqualFold(key, "Connection")

			if err := s.emitString(key, colonsp, value, crlf); err != nil {
				return err
			}
		}
	}

	if !hasDate {
		date := s.Now().UTC().Format(DateLayout)
		if err := s.emitString("Date: ", date, crlf); err != nil {
			return err
		}
	}

	if head.Chunked {
		if err := s.emitString("Transfer-Encoding: chunked", crlf); err != nil {
			return err
		}
	}

	if head.Close && !hasConnection {
		if err := s.emitString("Connection: close", crlf); err != nil {
			return err
		}
	}

	return s.emitString(crlf)
}

// WriteBody stages a piece of body. In chunked mode the piece is framed as a single chunk;
// empty pieces are skipped, as an empty chunk would terminate the body.
func (s *Serializer) WriteBody(data []byte) error {
	if len(data) == 0 {
		return nil
	}

	if !s.chunked {
		return s.emit(data)
	}

	var prefix [16 + len(crlf)]byte
	length := strconv.AppendUint(prefix[:0], uint64(len(data)), 16)
	length = append(length, crlf...)

	if err := s.emit(length); err != nil {
		return err
	}

	if err := s.emit(data); err != nil {
		return err
	}

	return s.emitString(crlf)
}

// WriteEnd stages the terminating zero-length chunk, if the body is chunked.
func (s *Serializer) WriteEnd() error {
	if !s.chunked {
		return nil
	}

	return s.emitString(chunkedFinalizer)
}

// Flush writes everything staged so far.
func (s *Serializer) Flush() error {
	data := s.buff.Bytes()
	s.buff.Reset()
	if len(data) == 0 {
		return nil
	}

	_, err := s.client.Write(data)
	return err
}

func (s *Serializer) emitString(strs ...string) error {
	for _, str := range strs {
		if err := s.emit(uf.S2B(str)); err != nil {
			return err
		}
	}

	return nil
}

func (s *Serializer) emit(data []byte) error {
	if s.buff.Append(data) {
		return nil
	}

	if err := s.Flush(); err != nil {
		return err
	}

	if s.buff.Append(data) {
		return nil
	}

	_, err := s.client.Write(data)
	return err
}
