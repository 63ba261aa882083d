package http

import (
	"fmt"
	"iter"
	"net"
	"strconv"
	"strings"

	"github.com/indigo-web/evhttp/config"
	"github.com/indigo-web/evhttp/http/method"
	"github.com/indigo-web/evhttp/http/mime"
	"github.com/indigo-web/evhttp/http/proto"
	"github.com/indigo-web/evhttp/http/status"
	"github.com/indigo-web/evhttp/internal/buffer"
	"github.com/indigo-web/evhttp/internal/protocol/http1"
	"github.com/indigo-web/evhttp/internal/vhost"
	"github.com/indigo-web/evhttp/kv"
	"github.com/indigo-web/evhttp/transport"
	"github.com/indigo-web/utils/strcomp"
	json "github.com/json-iterator/go"
)

type replyState uint8

const (
	headersWritable replyState = iota
	streaming
	finalized
)

// Exchange is a single request together with the reply to it. It's valid only inside the
// handler it was passed to and on the loop goroutine, until a reply is finalized.
//
// A reply is either sent at once (SendReply, SendError, JSON) or streamed (SendReplyStart,
// any number of SendReplyChunk and SendReplyEnd). Once finalized, every reply operation
// returns ErrAlreadyReplied.
type Exchange struct {
	request    *http1.Request
	client     transport.Client
	output     *kv.Storage
	serializer *http1.Serializer
	state      replyState
	keepAlive  bool
	bodyless   bool
	onDone     func(keepAlive bool)
}

func newExchange(
	cfg *config.Config, request *http1.Request, client transport.Client, onDone func(keepAlive bool),
) (*Exchange, error) {
	if request == nil {
		return nil, ErrNoRequest
	}

	buff := buffer.New(cfg.NET.WriteBufferSize.Default, cfg.NET.WriteBufferSize.Maximal)

	return &Exchange{
		request:    request,
		client:     client,
		output:     kv.NewPrealloc(cfg.Headers.OutputPrealloc),
		serializer: http1.NewSerializer(client, &buff),
		onDone:     onDone,
	}, nil
}

// RemoteHost returns the IP address of the peer.
func (e *Exchange) RemoteHost() string {
	host, _ := e.remote()
	return host
}

// RemotePort returns the port of the peer.
func (e *Exchange) RemotePort() int {
	_, port := e.remote()
	return port
}

func (e *Exchange) remote() (host string, port int) {
	if e.client == nil || e.client.Remote() == nil {
		return "", 0
	}

	switch addr := e.client.Remote().(type) {
	case *net.TCPAddr:
		return addr.IP.String(), addr.Port
	default:
		host, rawPort, err := net.SplitHostPort(addr.String())
		if err != nil {
			return addr.String(), 0
		}

		port, _ = strconv.Atoi(rawPort)
		return host, port
	}
}

// HTTPVersion returns the protocol of the request, e.g. HTTP/1.1.
func (e *Exchange) HTTPVersion() string {
	if e.request == nil {
		return ""
	}

	return e.request.Proto.String()
}

// Method returns method.Unknown for methods out of the standard set. The method as
// received is available via RawMethod.
func (e *Exchange) Method() method.Method {
	if e.request == nil {
		return method.Unknown
	}

	return e.request.Method
}

func (e *Exchange) RawMethod() string {
	if e.request == nil {
		return ""
	}

	return e.request.RawMethod
}

// URI returns the request-target exactly as it was received.
func (e *Exchange) URI() string {
	if e.request == nil {
		return ""
	}

	return e.request.URI
}

func (e *Exchange) Scheme() (string, bool) {
	if e.request == nil {
		return "", false
	}

	return e.request.Scheme()
}

func (e *Exchange) Path() (string, bool) {
	if e.request == nil {
		return "", false
	}

	return e.request.Path()
}

func (e *Exchange) Query() (string, bool) {
	if e.request == nil {
		return "", false
	}

	return e.request.Query()
}

// Host returns the effective host of the request without the port: the authority of an
// absolute request-target or the Host header.
func (e *Exchange) Host() string {
	if e.request == nil {
		return ""
	}

	return vhost.TrimPort(e.request.Host)
}

// InputHeaders returns the request headers as a map. The keys are in the case they were
// received; values of repeating keys are joined with a comma.
func (e *Exchange) InputHeaders() map[string]string {
	if e.request == nil {
		return nil
	}

	headers := make(map[string]string, e.request.Headers.Len())
	for key, value := range e.request.Headers.Pairs() {
		if prev, found := headers[key]; found {
			value = prev + ", " + value
		}

		headers[key] = value
	}

	return headers
}

// Headers returns the request headers as they were received, in order.
func (e *Exchange) Headers() *kv.Storage {
	if e.request == nil {
		return kv.New()
	}

	return e.request.Headers
}

// Body returns the request body. Chunked bodies are already decoded.
func (e *Exchange) Body() []byte {
	if e.request == nil {
		return nil
	}

	return e.request.Body
}

// AddOutputHeader stages a response header. Returns false if the reply has already been
// started or the header is malformed.
func (e *Exchange) AddOutputHeader(key, value string) bool {
	if !e.writable() || !validHeader(key, value) {
		return false
	}

	e.output.Add(key, value)
	return true
}

// SetOutputHeaders stages all the headers. Already staged headers are kept. Either all the
// headers are staged, or none of them.
func (e *Exchange) SetOutputHeaders(headers []kv.Pair) bool {
	if !e.writable() {
		return false
	}

	for _, header := range headers {
		if !validHeader(header.Key, header.Value) {
			return false
		}
	}

	for _, header := range headers {
		e.output.Add(header.Key, header.Value)
	}

	return true
}

// ClearOutputHeaders drops all the staged headers.
func (e *Exchange) ClearOutputHeaders() bool {
	if !e.writable() {
		return false
	}

	e.output.Clear()
	return true
}

// OutputHeaders returns the staged headers.
func (e *Exchange) OutputHeaders() *kv.Storage {
	if e.output == nil {
		return kv.New()
	}

	return e.output
}

func (e *Exchange) writable() bool {
	return e.request != nil && e.state == headersWritable
}

func validHeader(key, value string) bool {
	return len(key) > 0 && !strings.ContainsAny(key, "\r\n:") && !strings.ContainsAny(value, "\r\n")
}

func validStatus(code status.Code, reason string) bool {
	return status.Valid(code) && !strings.ContainsAny(reason, "\r\n")
}

// SendReply stages the headers, starts the reply and sends every element of the body as a
// separate chunk. A nil body results in an empty one.
func (e *Exchange) SendReply(code status.Code, headers []kv.Pair, body iter.Seq[[]byte]) error {
	if err := e.checkHeadersWritable(); err != nil {
		return err
	}

	if !status.Valid(code) {
		return ErrInvalidStatus
	}

	if !e.SetOutputHeaders(headers) {
		return ErrInvalidHeader
	}

	if err := e.SendReplyStart(code, ""); err != nil {
		return err
	}

	if body != nil {
		for chunk := range body {
			if err := e.SendReplyChunk(chunk); err != nil {
				return err
			}
		}
	}

	return e.SendReplyEnd()
}

// SendReplyStart sends the status line with the staged headers. An empty reason is replaced
// by the standard one for the code.
//
// The body is chunked for HTTP/1.1 peers, unless Content-Length was staged explicitly.
// HTTP/1.0 peers receive it as is, and the connection is closed afterwards.
func (e *Exchange) SendReplyStart(code status.Code, reason string) error {
	if err := e.checkHeadersWritable(); err != nil {
		return err
	}

	if !validStatus(code, reason) {
		return ErrInvalidStatus
	}

	chunked := !e.output.Has("Content-Length")
	// without chunked encoding an unsized body can only be delimited by closing
	// the connection
	framed := e.request.Proto.Chunked()
	keepAlive := framed || !chunked

	if err := e.writeHead(code, reason, chunked && framed, keepAlive); err != nil {
		return err
	}

	if err := e.serializer.Flush(); err != nil {
		return e.fail(err)
	}

	e.state = streaming
	return nil
}

// SendReplyChunk sends the data as a single chunk. Empty chunks are skipped, as an empty
// chunk would terminate the body.
func (e *Exchange) SendReplyChunk(chunk []byte) error {
	if err := e.checkStreaming(); err != nil {
		return err
	}

	if e.bodyless || len(chunk) == 0 {
		return nil
	}

	if err := e.serializer.WriteBody(chunk); err != nil {
		return e.fail(err)
	}

	if err := e.serializer.Flush(); err != nil {
		return e.fail(err)
	}

	return nil
}

// SendReplyEnd terminates the body and finalizes the reply.
func (e *Exchange) SendReplyEnd() error {
	if err := e.checkStreaming(); err != nil {
		return err
	}

	if !e.bodyless {
		if err := e.serializer.WriteEnd(); err != nil {
			return e.fail(err)
		}
	}

	if err := e.serializer.Flush(); err != nil {
		return e.fail(err)
	}

	e.finalize(e.keepAlive)
	return nil
}

const errorPage = "<HTML><HEAD>\n" +
	"<TITLE>%d %s</TITLE>\n" +
	"</HEAD><BODY>\n" +
	"<H1>%s</H1>\n" +
	"</BODY></HTML>\n"

// SendError replies with a minimal HTML page describing the error and closes the
// connection afterwards. Staged headers are ignored.
func (e *Exchange) SendError(code status.Code, reason string) error {
	if err := e.checkHeadersWritable(); err != nil {
		return err
	}

	if !validStatus(code, reason) {
		return ErrInvalidStatus
	}

	if len(reason) == 0 {
		reason = string(status.Text(code))
	}

	if len(reason) == 0 {
		reason = "Error"
	}

	e.output.Clear()
	e.output.
		Add("Content-Type", mime.WithCharset(mime.HTML, mime.UTF8)).
		Add("Connection", "close")
	e.keepAlive = false

	return e.reply(code, reason, fmt.Appendf(nil, errorPage, code, reason, reason))
}

// JSON serializes the model and sends it as a whole. Content-Type is set to
// application/json unless already staged.
func (e *Exchange) JSON(code status.Code, model any) error {
	if err := e.checkHeadersWritable(); err != nil {
		return err
	}

	if !status.Valid(code) {
		return ErrInvalidStatus
	}

	stream := json.ConfigDefault.BorrowStream(nil)
	defer json.ConfigDefault.ReturnStream(stream)

	stream.WriteVal(model)
	if stream.Error != nil {
		return stream.Error
	}

	if !e.output.Has("Content-Type") {
		e.output.Add("Content-Type", mime.JSON)
	}

	return e.reply(code, "", stream.Buffer())
}

// reply sends the whole body in a single write, with Content-Length.
func (e *Exchange) reply(code status.Code, reason string, body []byte) error {
	if status.AllowsBody(code) && !e.output.Has("Content-Length") {
		e.output.Add("Content-Length", strconv.Itoa(len(body)))
	}

	if err := e.writeHead(code, reason, false, true); err != nil {
		return err
	}

	if !e.bodyless {
		if err := e.serializer.WriteBody(body); err != nil {
			return e.fail(err)
		}
	}

	if err := e.serializer.Flush(); err != nil {
		return e.fail(err)
	}

	e.finalize(e.keepAlive)
	return nil
}

func (e *Exchange) writeHead(code status.Code, reason string, chunked, keepAlive bool) error {
	e.bodyless = e.request.Method == method.HEAD || !status.AllowsBody(code)
	if !status.AllowsBody(code) {
		// nothing to delimit
		keepAlive = true
	}

	e.keepAlive = keepAlive && e.request.KeepAlive && !e.closeStaged()
	if e.keepAlive && e.request.Proto == proto.HTTP10 && !e.output.Has("Connection") {
		e.output.Add("Connection", "keep-alive")
	}

	err := e.serializer.WriteHead(http1.Head{
		Proto:   e.request.Proto,
		Code:    code,
		Reason:  reason,
		Headers: e.output,
		Chunked: chunked && !e.bodyless,
		Close:   !e.keepAlive,
	})
	if err != nil {
		return e.fail(err)
	}

	return nil
}

func (e *Exchange) closeStaged() bool {
	for value := range e.output.Values("Connection") {
		for _, token := range strings.Split(value, ",") {
			if strcomp.EqualFold(strings.TrimSpace(token), "close") {
				return true
			}
		}
	}

	return false
}

func (e *Exchange) checkHeadersWritable() error {
	if e.request == nil {
		return ErrNoRequest
	}

	switch e.state {
	case streaming:
		return ErrReplyStarted
	case finalized:
		return ErrAlreadyReplied
	}

	return nil
}

func (e *Exchange) checkStreaming() error {
	if e.request == nil {
		return ErrNoRequest
	}

	switch e.state {
	case headersWritable:
		return ErrNotStreaming
	case finalized:
		return ErrAlreadyReplied
	}

	return nil
}

// fail finalizes the exchange after an I/O error. The connection can't be reused, as it's
// unknown how much of the reply has reached the peer.
func (e *Exchange) fail(err error) error {
	e.finalize(false)
	return err
}

func (e *Exchange) finalize(keepAlive bool) {
	e.state = finalized
	if e.onDone != nil {
		e.onDone(keepAlive)
	}
}

// Strings is a shorthand for a body consisting of string chunks.
func Strings(chunks ...string) iter.Seq[[]byte] {
	return func(yield func([]byte) bool) {
		for _, chunk := range chunks {
			if !yield([]byte(chunk)) {
				return
			}
		}
	}
}
