package chart

import (
	"errors"
	"fmt"
)

// Kind classifies pipeline failures so callers branch on kind, not on text.
type Kind int

const (
	KindUnknown Kind = iota
	KindMissingCredentials
	KindUploadFailure
	KindServiceError
	KindEmptyResult
	KindPersistence
	KindQuery
)

var (
	ErrMissingCredentials = errors.New("missing credentials")
	ErrUploadFailure      = errors.New("upload failure")
	ErrServiceError       = errors.New("service error")
	ErrEmptyResult        = errors.New("empty result")
	ErrPersistence        = errors.New("persistence error")
	ErrQuery              = errors.New("query error")
)

var kindSentinels = map[Kind]error{
	KindMissingCredentials: ErrMissingCredentials,
	KindUploadFailure:      ErrUploadFailure,
	KindServiceError:       ErrServiceError,
	KindEmptyResult:        ErrEmptyResult,
	KindPersistence:        ErrPersistence,
	KindQuery:              ErrQuery,
}

func (k Kind) String() string {
	switch k {
	case KindMissingCredentials:
		return "MissingCredentials"
	case KindUploadFailure:
		return "UploadFailure"
	case KindServiceError:
		return "ServiceError"
	case KindEmptyResult:
		return "EmptyResult"
	case KindPersistence:
		return "PersistenceError"
	case KindQuery:
		return "QueryError"
	default:
		return "Unknown"
	}
}

// Error is a classified failure. errors.Is matches both the wrapped cause and
// the sentinel for Kind.
type Error struct {
	Kind Kind
	Op   string
	Err  error
}

func NewError(kind Kind, op string, err error) *Error {
	return &Error{Kind: kind, Op: op, Err: err}
}

func (e *Error) Error() string {
	msg := e.Kind.String()
	if sentinel, ok := kindSentinels[e.Kind]; ok {
		msg = sentinel.Error()
	}
	if e.Op != "" {
		msg = e.Op + ": " + msg
	}
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

func (e *Error) Is(target error) bool {
	sentinel, ok := kindSentinels[e.Kind]
	return ok && sentinel == target
}

// KindOf reports the kind of the first classified error in err's chain.
func KindOf(err error) Kind {
	if err == nil {
		return KindUnknown
	}

	var classified *Error
	if errors.As(err, &classified) {
		return classified.Kind
	}

	for kind, sentinel := range kindSentinels {
		if errors.Is(err, sentinel) {
			return kind
		}
	}
	return KindUnknown
}

// Describe renders err as a message for the operator.
func Describe(err error) string {
	if err == nil {
		return ""
	}

	switch KindOf(err) {
	case KindMissingCredentials:
		return "No API key configured. Set it with --api-key, the AICHART_API_KEY environment variable, or the config file."
	case KindUploadFailure:
		return fmt.Sprintf("The recording could not be uploaded to the transcription service: %v", err)
	case KindServiceError:
		return fmt.Sprintf("The transcription service returned an error: %v", err)
	case KindEmptyResult:
		return "The transcription service returned no chart text. Check the recording and try again."
	case KindPersistence:
		return fmt.Sprintf("The chart was generated but could not be saved to the chart log: %v", err)
	case KindQuery:
		return fmt.Sprintf("The chart log could not be read: %v", err)
	default:
		return err.Error()
	}
}
