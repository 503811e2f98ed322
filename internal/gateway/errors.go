package gateway

import (
	"errors"
	"strings"
)

var (
	// ErrFetchRejected means the provider could not download the image
	// itself. The caller may retry with the bytes inlined as a data URI.
	ErrFetchRejected = errors.New("provider could not fetch image")

	// ErrEmptyResponse means the model answered with no usable text.
	ErrEmptyResponse = errors.New("empty response from model")
)

// IsFetchRejected reports whether err is a classified image download failure.
func IsFetchRejected(err error) bool {
	return errors.Is(err, ErrFetchRejected)
}

var downloadMarkers = []string{
	"download", "could not fetch", "unable to fetch", "failed to fetch", "retriev",
	"could not process image", "unable to process", "invalid image", "image url", "invalid_image_url",
}

// mentionsDownload matches provider messages about an image that could not be
// retrieved or decoded.
func mentionsDownload(msg string) bool {
	msg = strings.ToLower(msg)
	for _, m := range downloadMarkers {
		if strings.Contains(msg, m) {
			return true
		}
	}
	return false
}

// looksFetchRejected is the last resort for errors without structure: a 400
// that talks about downloading.
func looksFetchRejected(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "400") && mentionsDownload(msg)
}

type fetchRejected struct {
	cause error
}

func (e *fetchRejected) Error() string   { return ErrFetchRejected.Error() + ": " + e.cause.Error() }
func (e *fetchRejected) Unwrap() []error { return []error{ErrFetchRejected, e.cause} }
