package http1

import (
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/indigo-web/chunkedbody"
	"github.com/indigo-web/evhttp/http/proto"
	"github.com/indigo-web/evhttp/http/status"
	"github.com/indigo-web/evhttp/internal/buffer"
	"github.com/indigo-web/evhttp/kv"
	"github.com/indigo-web/evhttp/transport/dummy"
	"github.com/stretchr/testify/require"
)

var fixedDate = time.Date(2024, time.March, 5, 10, 20, 30, 0, time.UTC)

func getSerializer(buffSize int) (*Serializer, *dummy.Client) {
	client := dummy.NewNopClient()
	buff := buffer.New(buffSize, buffSize)
	serializer := NewSerializer(client, &buff)
	serializer.Now = func() time.Time {
		return fixedDate
	}

	return serializer, client
}

func TestSerializer(t *testing.T) {
	t.Run("full reply", func(t *testing.T) {
		serializer, client := getSerializer(1024)
		headers := kv.New().Add("Content-Length", "2")
		require.NoError(t, serializer.WriteHead(Head{
			Proto:   proto.HTTP11,
			Code:    status.OK,
			Headers: headers,
		}))
		require.NoError(t, serializer.WriteBody([]byte("ok")))
		require.NoError(t, serializer.WriteEnd())
		require.Empty(t, client.Written(), "nothing must be written before flush")
		require.NoError(t, serializer.Flush())

		want := "HTTP/1.1 200 OK\r\nContent-Length: 2\r\nDate: Tue, 05 Mar 2024 10:20:30 GMT\r\n\r\nok"
		require.Equal(t, want, client.Written())
	})

	t.Run("custom reason and unknown code", func(t *testing.T) {
		serializer, client := getSerializer(1024)
		require.NoError(t, serializer.WriteHead(Head{
			Proto:   proto.HTTP10,
			Code:    299,
			Reason:  "Whatever",
			Headers: kv.New().Add("Date", "yesterday"),
			Close:   true,
		}))
		require.NoError(t, serializer.Flush())

		want := "HTTP/1.0 299 Whatever\r\nDate: yesterday\r\nConnection: close\r\n\r\n"
		require.Equal(t, want, client.Written())
	})

	t.Run("chunked", func(t *testing.T) {
		serializer, client := getSerializer(1024)
		require.NoError(t, serializer.WriteHead(Head{
			Proto:   proto.HTTP11,
			Code:    status.OK,
			Headers: kv.New(),
			Chunked: true,
		}))
		require.NoError(t, serializer.Flush())
		require.True(t, strings.HasSuffix(client.Flush(), "Transfer-Encoding: chunked\r\n\r\n"))

		for _, piece := range []string{"A", "", "BC"} {
			require.NoError(t, serializer.WriteBody([]byte(piece)))
			require.NoError(t, serializer.Flush())
		}

		require.NoError(t, serializer.WriteEnd())
		require.NoError(t, serializer.Flush())
		require.Equal(t, "1\r\nA\r\n2\r\nBC\r\n0\r\n\r\n", client.Written())
	})

	t.Run("long chunk into small buffer", func(t *testing.T) {
		const buffSize = 64
		serializer, client := getSerializer(buffSize)
		require.NoError(t, serializer.WriteHead(Head{
			Proto:   proto.HTTP11,
			Code:    status.OK,
			Headers: kv.New().Add("X-Long", strings.Repeat("h", 2*buffSize)),
			Chunked: true,
		}))
		require.NoError(t, serializer.Flush())
		head := client.Flush()
		require.Contains(t, head, strings.Repeat("h", 2*buffSize))

		payload := strings.Repeat("abcdefgh", 10*buffSize)
		require.NoError(t, serializer.WriteBody([]byte(payload)))
		require.NoError(t, serializer.WriteEnd())
		require.NoError(t, serializer.Flush())

		parser := chunkedbody.NewParser(chunkedbody.DefaultSettings())
		written := []byte(client.Written())
		var data []byte
		for len(written) > 0 {
			chunk, extra, err := parser.Parse(written, false)
			data = append(data, chunk...)
			if err != nil {
				require.EqualError(t, err, io.EOF.Error())
				break
			}

			written = extra
		}

		require.Equal(t, payload, string(data))
	})

	t.Run("write error", func(t *testing.T) {
		serializer, client := getSerializer(1024)
		client.WriteErr = errors.New("broken pipe")
		require.NoError(t, serializer.WriteHead(Head{Proto: proto.HTTP11, Code: status.OK}))
		require.EqualError(t, serializer.Flush(), "broken pipe")
	})
}
