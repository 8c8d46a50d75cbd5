package models

import (
	"net/url"
	"strings"
	"time"
)

// DesignReference identifies exactly one remote design artifact.
// NodeID is always held in the canonical colon-separated form ("109:1005").
type DesignReference struct {
	FileKey     string
	NodeID      string
	AccessToken string
}

// RemoteImageHandle is the export URL returned for a node. It is consumed
// once by a download and never persisted.
type RemoteImageHandle struct {
	NodeID string
	URL    string
}

// BaselineImage describes a reference image persisted on disk
type BaselineImage struct {
	Name      string    `json:"name"`
	Path      string    `json:"path"`
	NodeID    string    `json:"node_id,omitempty"`
	Bytes     int64     `json:"bytes"`
	Width     int       `json:"width"`
	Height    int       `json:"height"`
	FetchedAt time.Time `json:"fetched_at"`
	// Stale is set when the latest fetch failed and a file from an earlier run is reused
	Stale bool `json:"stale,omitempty"`
}

// CandidateImage is a freshly captured screenshot, encoded as PNG
type CandidateImage struct {
	Name       string
	Data       []byte
	CapturedAt time.Time
}

// CanonicalNodeID converts a node identifier to the colon-separated form used by
// the images API ("109-1005" and "109%3A1005" both become "109:1005").
func CanonicalNodeID(nodeID string) string {
	id := strings.TrimSpace(nodeID)
	id = strings.ReplaceAll(id, "%3A", ":")
	id = strings.ReplaceAll(id, "%3a", ":")
	return strings.ReplaceAll(id, "-", ":")
}

// URLNodeID converts a node identifier to the hyphen form used in design URLs
func URLNodeID(nodeID string) string {
	return strings.ReplaceAll(CanonicalNodeID(nodeID), ":", "-")
}

// DesignURL is the browser URL of the referenced frame
func (r DesignReference) DesignURL() string {
	return "https://www.figma.com/design/" + url.PathEscape(r.FileKey) + "/?node-id=" + URLNodeID(r.NodeID)
}
