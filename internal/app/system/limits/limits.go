// internal/app/system/limits/limits.go
package limits

// Request body size limits.
// These limits help prevent memory exhaustion from oversized requests.
const (
	// MaxJSONBody is the maximum size for a JSON request body. The
	// largest legitimate payload is a report description plus metadata,
	// well under this.
	MaxJSONBody = 1 << 20 // 1 MB

	// MaxCSVUpload is the maximum size for a roster CSV upload.
	MaxCSVUpload = 5 << 20 // 5 MB
)
