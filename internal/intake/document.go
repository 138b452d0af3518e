package intake

import (
	"strings"
	"time"
)

// Document is the file under intake. Content holds the bytes supplied by the
// storage collaborator; the pipeline never persists them itself.
type Document struct {
	ID              string    `json:"id"`
	Name            string    `json:"name"`
	MimeType        string    `json:"mime_type"`
	SizeBytes       int64     `json:"size_bytes"`
	ContentRef      string    `json:"content_ref,omitempty"`
	Content         []byte    `json:"-"`
	Owner           string    `json:"owner,omitempty"`
	OwnerDepartment string    `json:"owner_department,omitempty"`
	SelectedAt      time.Time `json:"selected_at"`
}

// Common mime types handled by the bundled executors.
const (
	MimePDF   = "application/pdf"
	MimeText  = "text/plain"
	MimePNG   = "image/png"
	MimeJPEG  = "image/jpeg"
	MimeTIFF  = "image/tiff"
	MimeOctet = "application/octet-stream"
)

// IsPDF reports whether the declared type is a PDF.
func (d Document) IsPDF() bool {
	return strings.EqualFold(baseMime(d.MimeType), MimePDF)
}

// IsText reports whether the declared type is a text document.
func (d Document) IsText() bool {
	return strings.HasPrefix(strings.ToLower(baseMime(d.MimeType)), "text/")
}

// IsImage reports whether the declared type is a raster image.
func (d Document) IsImage() bool {
	return strings.HasPrefix(strings.ToLower(baseMime(d.MimeType)), "image/")
}

func baseMime(mime string) string {
	if idx := strings.IndexByte(mime, ';'); idx >= 0 {
		mime = mime[:idx]
	}
	return strings.TrimSpace(mime)
}

// Actor permissions consulted by the routing engine.
const (
	PermissionDistribute = "documents:distribute"
	PermissionNotify     = "documents:notify"
)

// ActorContext is the caller identity supplied by the auth collaborator.
type ActorContext struct {
	UserID      string   `json:"user_id"`
	Roles       []string `json:"roles,omitempty"`
	Department  string   `json:"department,omitempty"`
	Permissions []string `json:"permissions,omitempty"`
}

// HasPermission reports whether the actor holds permission.
func (a ActorContext) HasPermission(permission string) bool {
	return containsFold(a.Permissions, permission)
}

// HasAnyRole reports whether the actor holds one of roles.
func (a ActorContext) HasAnyRole(roles ...string) bool {
	for _, role := range roles {
		if containsFold(a.Roles, role) {
			return true
		}
	}
	return false
}

func containsFold(values []string, want string) bool {
	want = strings.TrimSpace(want)
	if want == "" {
		return false
	}
	for _, v := range values {
		if strings.EqualFold(strings.TrimSpace(v), want) {
			return true
		}
	}
	return false
}
