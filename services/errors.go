package services

import "errors"

var (
	// ErrRetrievalUnavailable means the embedder or the vector index could not
	// serve a lookup. It is not retried.
	ErrRetrievalUnavailable = errors.New("retrieval unavailable")
	// ErrSynthesis means the generator could not produce an answer.
	ErrSynthesis = errors.New("answer synthesis failed")
	// ErrInvalidMode is returned for a mode other than chatbot, research or draft.
	ErrInvalidMode = errors.New("invalid mode specified")
	// ErrRequestFailed wraps any strategy failure surfaced to the caller.
	ErrRequestFailed = errors.New("request failed")
	// ErrUnsupportedFileType is returned by the file extractor.
	ErrUnsupportedFileType = errors.New("unsupported file type")
)
