package main

import (
	"flag"
	"os"
	"strconv"

	"github.com/indigo-web/evhttp"
	"github.com/indigo-web/evhttp/http"
	"github.com/indigo-web/evhttp/http/mime"
	"github.com/indigo-web/evhttp/http/status"
	"github.com/indigo-web/evhttp/kv"
	"go.uber.org/zap"
)

func main() {
	host := flag.String("host", "127.0.0.1", "address to listen on")
	port := flag.Int("port", 8080, "port to listen on")
	timeout := flag.Int("timeout", 0, "idle timeout of connections in seconds, 0 keeps the default")
	apiHost := flag.String("api-host", "api.*", "pattern of the virtual host serving the JSON API")
	flag.Parse()

	logger, err := zap.NewProduction()
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	app := evhttp.New().Logger(zap.NewStdLog(logger))
	_, err = app.Server(*host, *port, func(s *http.Service) {
		if *timeout != 0 {
			s.SetTimeout(*timeout)
		}

		_ = s.SetRequestHandler(index)
		s.VHost(*apiHost, func(api *http.Service) {
			_ = api.SetRequestHandler(info)
		})
	})
	if err != nil {
		logger.Error("cannot start server", zap.Error(err))
		os.Exit(1)
	}

	for _, name := range []string{"INT", "TERM"} {
		_, err := app.Signal(name, func() {
			logger.Info("shutting down", zap.String("signal", name))
			app.Loop().Stop()
		})
		if err != nil {
			logger.Error("cannot trap signal", zap.String("signal", name), zap.Error(err))
			os.Exit(1)
		}
	}

	app.NotifyOnStart(func() {
		logger.Info("listening", zap.String("addr", *host+":"+strconv.Itoa(*port)))
	})

	result, err := app.Dispatch()
	if err != nil {
		logger.Error("loop failed", zap.Error(err))
	}

	if err = app.Close(); err != nil {
		logger.Error("close", zap.Error(err))
	}

	logger.Info("loop exited", zap.Stringer("status", result))
}

var plainText = []kv.Pair{{Key: "Content-Type", Value: mime.WithCharset(mime.Plain, mime.UTF8)}}

func index(ex *http.Exchange) {
	path, _ := ex.Path()
	switch path {
	case "/stream":
		_ = ex.SendReply(status.OK, plainText, http.Strings("Hello", ", ", "world!\n"))
	case "/echo":
		if !mime.Complies(mime.Plain, ex.Headers().Value("Content-Type")) {
			_ = ex.SendError(status.UnsupportedMediaType, "")
			return
		}

		_ = ex.SendReply(status.OK, plainText, http.Strings(string(ex.Body())))
	default:
		_ = ex.SendReply(status.OK, plainText, http.Strings("ok:", path))
	}
}

type requestInfo struct {
	Method  string            `json:"method"`
	URI     string            `json:"uri"`
	Host    string            `json:"host"`
	Remote  string            `json:"remote"`
	Version string            `json:"version"`
	Headers map[string]string `json:"headers"`
}

func info(ex *http.Exchange) {
	_ = ex.JSON(status.OK, requestInfo{
		Method:  ex.RawMethod(),
		URI:     ex.URI(),
		Host:    ex.Host(),
		Remote:  ex.RemoteHost() + ":" + strconv.Itoa(ex.RemotePort()),
		Version: ex.HTTPVersion(),
		Headers: ex.InputHeaders(),
	})
}
