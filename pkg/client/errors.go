package client

import (
	"errors"
	"fmt"
)

var (
	// ErrRemoteCallFailed matches every *RemoteCallError.
	ErrRemoteCallFailed = errors.New("remote call failed")
	// ErrInvalidOptions is returned by New.
	ErrInvalidOptions = errors.New("invalid client options")
	// ErrInvalidArgument means a call argument cannot be form encoded.
	ErrInvalidArgument = errors.New("invalid call argument")
	// ErrEmptyPath means a Call was invoked before any name was added.
	ErrEmptyPath = errors.New("empty procedure path")
)

// maxBodyInError bounds the response excerpt in RemoteCallError.Error.
const maxBodyInError = 512

// RemoteCallError reports an HTTP status of 400 or above. Body holds the raw response.
type RemoteCallError struct {
	Procedure  string
	StatusCode int
	Body       []byte
}

func (e *RemoteCallError) Error() string {
	body := string(e.Body)
	if len(body) > maxBodyInError {
		body = body[:maxBodyInError] + "..."
	}

	return fmt.Sprintf("%s: %s: status %d: %s", ErrRemoteCallFailed, e.Procedure, e.StatusCode, body)
}

// Is makes errors.Is(err, ErrRemoteCallFailed) hold.
func (e *RemoteCallError) Is(target error) bool {
	return target == ErrRemoteCallFailed
}
