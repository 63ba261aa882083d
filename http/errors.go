package http

import "errors"

var (
	ErrNoRequest      = errors.New("exchange has no backing request")
	ErrAlreadyReplied = errors.New("the reply was already sent")
	ErrReplyStarted   = errors.New("the reply has already been started")
	ErrNotStreaming   = errors.New("the reply isn't started")
	ErrInvalidHeader  = errors.New("header key must be non-empty, header fields must not contain CR or LF")
	ErrInvalidStatus  = errors.New("status code must have three digits, reason must not contain CR or LF")
	ErrNilHandler     = errors.New("request handler must not be nil")
)
