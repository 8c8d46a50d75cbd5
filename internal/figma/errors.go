package figma

import "fmt"

// TransportError means the images API could not be reached at all; no
// response was received.
type TransportError struct {
	URL string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("figma transport error for '%s': %v", e.URL, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// RemoteAPIError means the images API answered, but with an error, with a
// body that is not a JSON document, or without an image for the requested node.
type RemoteAPIError struct {
	StatusCode int
	NodeID     string
	Message    string
}

func (e *RemoteAPIError) Error() string {
	if e.NodeID != "" {
		return fmt.Sprintf("figma API error (status %d, node %s): %s", e.StatusCode, e.NodeID, e.Message)
	}
	return fmt.Sprintf("figma API error (status %d): %s", e.StatusCode, e.Message)
}

// DownloadError means the export could not be stored as a valid baseline.
// The destination file is never left partially written.
type DownloadError struct {
	Path       string
	StatusCode int
	Err        error
}

func (e *DownloadError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("failed to download design image to '%s': status %d: %v", e.Path, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("failed to download design image to '%s': %v", e.Path, e.Err)
}

func (e *DownloadError) Unwrap() error {
	return e.Err
}
