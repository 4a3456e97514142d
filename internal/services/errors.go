package services

import "errors"

var (
	ErrUnsupportedFormat  = errors.New("unsupported document format")
	ErrExtraction         = errors.New("failed to extract text")
	ErrEmptyDocument      = errors.New("no text content found")
	ErrDimensionMismatch  = errors.New("embedding dimension mismatch")
	ErrUnknownCategory    = errors.New("unknown category index")
	ErrFileNotFound       = errors.New("file not found")
	ErrInvalidCredentials = errors.New("incorrect username or password")
	ErrInvalidToken       = errors.New("could not validate credentials")
	ErrForbidden          = errors.New("not enough permissions")
)
