package types

// AudioMetadata is the record returned by get_audio_metadata.
//
// JSON field names follow the contract the UI already consumes.
type AudioMetadata struct {
	Title         string       `json:"title"`
	Artist        string       `json:"artist"`
	Album         string       `json:"album"`
	Duration      float64      `json:"duration"` // milliseconds
	FullPath      string       `json:"full_path"`
	CoverData     *string      `json:"cover_data"` // base64, std encoding
	CoverMIMEType *string      `json:"cover_mime_type"`
	Tier          MetadataTier `json:"tier"`
}

// HasCover reports whether an embedded picture was found
func (m *AudioMetadata) HasCover() bool {
	return m.CoverData != nil && *m.CoverData != ""
}

// MetadataTier names the extraction strategy that produced a record
type MetadataTier string

const (
	// TierTags means the fields came from an embedded tag
	TierTags MetadataTier = "tags"
	// TierFilename means the fields were derived from the filename
	TierFilename MetadataTier = "filename"
	// TierMinimal means the container was corrupt; filename fields only, no duration or cover
	TierMinimal MetadataTier = "minimal"
)

// MetadataRequest is the body of get_audio_metadata
type MetadataRequest struct {
	FullPath string `json:"full_path"`
}

// TextRequest is the body of http_get_text and http_post_text
type TextRequest struct {
	URL     string            `json:"url" binding:"required"`
	Header  map[string]string `json:"header"`
	ReqBody map[string]any    `json:"req_body"`
}

// AppInfo describes the running backend
type AppInfo struct {
	Name    string `json:"name"`
	Version string `json:"version"`
}

// UpdateInfo is the result of check_for_updates
type UpdateInfo struct {
	UpdateAvailable bool   `json:"update_available"`
	CurrentVersion  string `json:"current_version"`
	NewVersion      string `json:"new_version,omitempty"`
	Body            string `json:"body,omitempty"`
	DownloadURL     string `json:"download_url,omitempty"`
}

// InstancePayload is forwarded by a second instance to the running one
type InstancePayload struct {
	Args []string `json:"args"`
	Cwd  string   `json:"cwd"`
}
