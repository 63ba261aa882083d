package http1

import (
	"bytes"
	"errors"
	"io"
	"net/url"
	"strconv"
	"strings"

	"github.com/indigo-web/chunkedbody"
	"github.com/indigo-web/evhttp/config"
	"github.com/indigo-web/evhttp/http/method"
	"github.com/indigo-web/evhttp/http/proto"
	"github.com/indigo-web/evhttp/http/status"
	"github.com/indigo-web/evhttp/internal/buffer"
	"github.com/indigo-web/evhttp/kv"
	"github.com/indigo-web/evhttp/transport"
	"github.com/indigo-web/utils/strcomp"
	"github.com/indigo-web/utils/uf"
)

const (
	crlf        = "\r\n"
	headTrailer = "\r\n\r\n"
)

// Parser reads requests off a client one by one. It never reads past the current request,
// so whatever arrives after it (pipelined requests) is pushed back into the client.
type Parser struct {
	cfg    *config.Config
	client transport.Client
	head   buffer.Buffer
	// Continue is written before reading the body of requests expecting 100-continue.
	Continue func() error
}

func NewParser(cfg *config.Config, client transport.Client) *Parser {
	headLimit := cfg.URI.RequestLineSize.Maximal + cfg.Headers.Space.Maximal

	return &Parser{
		cfg:    cfg,
		client: client,
		head:   buffer.New(cfg.URI.RequestLineSize.Default, headLimit),
	}
}

// Next reads and parses the next request. io.EOF is returned if the peer closed the connection
// gracefully between requests. Malformed requests result in status.HTTPError.
func (p *Parser) Next() (*Request, error) {
	head, err := p.readHead()
	if err != nil {
		return nil, err
	}

	request, err := p.parseHead(head)
	if err != nil {
		return nil, err
	}

	if err = p.readBody(request); err != nil {
		return nil, err
	}

	return request, nil
}

// readHead collects everything till the empty line terminating the headers block. The
// returned string is a copy and is owned by the caller.
func (p *Parser) readHead() (string, error) {
	p.head.Reset()

	for {
		data, err := p.client.Read()
		if len(data) == 0 && err != nil {
			if p.head.Len() == 0 && errors.Is(err, io.EOF) {
				return "", io.EOF
			}

			if errors.Is(err, io.EOF) {
				return "", io.ErrUnexpectedEOF
			}

			return "", err
		}

		// empty lines preceding the request line must be ignored
		if p.head.Len() == 0 {
			data = skipEmptyLines(data)
			if len(data) == 0 {
				continue
			}
		}

		// the read may carry the body too, so only what fits is taken in
		taken := data[:min(len(data), p.head.Room())]
		// the trailer might be split between two reads, so look a bit behind
		searchFrom := max(0, p.head.Len()-len(headTrailer)+1)
		p.head.Append(taken)

		accumulated := p.head.Bytes()
		boundary := bytes.Index(accumulated[searchFrom:], []byte(headTrailer))
		if boundary == -1 {
			if len(taken) < len(data) || p.head.Room() == 0 {
				return "", p.overflow()
			}

			if err != nil {
				return "", io.ErrUnexpectedEOF
			}

			continue
		}

		boundary += searchFrom
		head := string(accumulated[:boundary])
		// the rest lives partly in the head buffer, which is reused by the next request
		rest := append([]byte(nil), accumulated[boundary+len(headTrailer):]...)
		rest = append(rest, data[len(taken):]...)
		if len(rest) > 0 {
			p.client.Pushback(rest)
		}

		return head, nil
	}
}

// overflow decides which limit exactly was exceeded.
func (p *Parser) overflow() error {
	if !bytes.Contains(p.head.Bytes(), []byte(crlf)) {
		return status.ErrTooLongRequestLine
	}

	return status.ErrHeaderFieldsTooLarge
}

func (p *Parser) parseHead(head string) (*Request, error) {
	requestLine, fields, _ := strings.Cut(head, crlf)
	if len(requestLine) > p.cfg.URI.RequestLineSize.Maximal {
		return nil, status.ErrTooLongRequestLine
	}

	request := &Request{
		Headers: kv.NewPrealloc(p.cfg.Headers.Number.Default),
	}

	if err := parseRequestLine(request, requestLine); err != nil {
		return nil, err
	}

	for len(fields) > 0 {
		var line string
		line, fields, _ = strings.Cut(fields, crlf)

		if line[0] == ' ' || line[0] == '\t' {
			// obsolete line folding
			return nil, status.ErrBadRequest
		}

		key, value, found := strings.Cut(line, ":")
		if !found || len(key) == 0 || strings.ContainsAny(key, " \t") {
			return nil, status.ErrBadRequest
		}

		if request.Headers.Len() >= p.cfg.Headers.Number.Maximal {
			return nil, status.ErrTooManyHeaders
		}

		request.Headers.Add(key, strings.Trim(value, " \t"))
	}

	if len(request.Host) == 0 {
		request.Host = request.Headers.Value("Host")
	}

	request.KeepAlive = keepAlive(request)

	return request, nil
}

func parseRequestLine(request *Request, line string) error {
	methodToken, rest, found := strings.Cut(line, " ")
	if !found || len(methodToken) == 0 {
		return status.ErrBadRequest
	}

	target, protoToken, found := strings.Cut(rest, " ")
	if !found || len(target) == 0 || strings.IndexByte(protoToken, ' ') != -1 {
		return status.ErrBadRequest
	}

	if !proto.Wellformed(uf.S2B(protoToken)) {
		return status.ErrBadRequest
	}

	request.Proto = proto.FromBytes(uf.S2B(protoToken))
	if request.Proto&proto.HTTP1 == 0 {
		return status.ErrHTTPVersionNotSupported
	}

	request.RawMethod = methodToken
	request.Method = method.Parse(methodToken)
	request.URI = target

	var (
		u   *url.URL
		err error
	)
	if request.Method == method.CONNECT {
		// authority-form, e.g. CONNECT example.com:443
		if target[0] == '/' {
			return status.ErrBadRequest
		}

		u = &url.URL{Host: target}
	} else if u, err = url.ParseRequestURI(target); err != nil {
		return status.ErrBadRequest
	}

	request.URL = u
	request.Host = u.Host

	return nil
}

func keepAlive(request *Request) bool {
	persistent := request.Proto.Persistent()

	for value := range request.Headers.Values("Connection") {
		for _, token := range strings.Split(value, ",") {
			token = strings.TrimSpace(token)

			switch {
			case strcomp.EqualFold(token, "close"):
				return false
			case strcomp.EqualFold(token, "keep-alive"):
				persistent = true
			}
		}
	}

	return persistent
}

func (p *Parser) readBody(request *Request) error {
	length, chunked, err := framing(request)
	if err != nil {
		return err
	}

	request.Chunked = chunked
	if !chunked && length == 0 {
		return nil
	}

	if length > 0 && uint64(length) > p.cfg.Body.MaxSize {
		return status.ErrBodyTooLarge
	}

	if p.Continue != nil && request.Proto == proto.HTTP11 &&
		strcomp.EqualFold(request.Headers.Value("Expect"), "100-continue") {
		if err = p.Continue(); err != nil {
			return err
		}
	}

	if chunked {
		return p.readChunked(request)
	}

	return p.readPlain(request, length)
}

// framing determines how the body is delimited. Transfer-Encoding overrides Content-Length.
func framing(request *Request) (length int64, chunked bool, err error) {
	if te, found := request.Headers.Get("Transfer-Encoding"); found {
		tokens := strings.Split(te, ",")
		if !strcomp.EqualFold(strings.TrimSpace(tokens[len(tokens)-1]), "chunked") {
			return 0, false, status.ErrBadEncoding
		}

		return 0, true, nil
	}

	length = -1
	for value := range request.Headers.Values("Content-Length") {
		parsed, err := strconv.ParseUint(strings.TrimSpace(value), 10, 63)
		if err != nil || (length != -1 && int64(parsed) != length) {
			return 0, false, status.ErrBadContentLength
		}

		length = int64(parsed)
	}

	return max(length, 0), false, nil
}

func (p *Parser) readPlain(request *Request, length int64) error {
	// the declared length is only trusted as far as the data actually arrives
	body := make([]byte, 0, min(length, int64(p.cfg.NET.ReadBufferSize)))

	for int64(len(body)) < length {
		data, err := p.client.Read()
		if len(data) == 0 && err != nil {
			if errors.Is(err, io.EOF) {
				return io.ErrUnexpectedEOF
			}

			return err
		}

		if left := length - int64(len(body)); int64(len(data)) > left {
			p.client.Pushback(data[left:])
			data = data[:left]
		}

		body = append(body, data...)
	}

	request.Body = body
	return nil
}

func (p *Parser) readChunked(request *Request) error {
	parser := chunkedbody.NewParser(chunkedbody.DefaultSettings())
	trailer := request.Headers.Has("Trailer")
	var body []byte

	for {
		data, err := p.client.Read()
		if len(data) == 0 && err != nil {
			if errors.Is(err, io.EOF) {
				return io.ErrUnexpectedEOF
			}

			return err
		}

		for len(data) > 0 {
			chunk, extra, err := parser.Parse(data, trailer)
			if err != nil && err != io.EOF {
				return status.ErrBadChunk
			}

			if uint64(len(body)+len(chunk)) > p.cfg.Body.MaxSize {
				return status.ErrBodyTooLarge
			}

			body = append(body, chunk...)
			if err == io.EOF {
				request.Body = body
				if len(extra) > 0 {
					p.client.Pushback(extra)
				}

				return nil
			}

			data = extra
		}
	}
}

func skipEmptyLines(data []byte) []byte {
	for len(data) > 0 && (data[0] == '\r' || data[0] == '\n') {
		data = data[1:]
	}

	return data
}
