package chat

import (
	"encoding/base64"
	"fmt"
	"strings"
)

// Request captures a single inbound chat turn. Immutable once constructed.
type Request struct {
	Prompt string
	Image  *ImageAttachment
}

// ImageAttachment holds decoded media bytes ready for upload.
type ImageAttachment struct {
	Data     []byte
	MIMEType string
}

// DecodeImage parses a base64 or data-URI image string into an attachment.
// A data URI carries its own MIME type; bare base64 defaults to JPEG.
func DecodeImage(raw string) (*ImageAttachment, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, fmt.Errorf("empty image payload")
	}

	mimeType := "image/jpeg"
	encoded := raw
	if idx := strings.Index(raw, ","); idx >= 0 {
		header := raw[:idx]
		encoded = raw[idx+1:]
		if strings.HasPrefix(header, "data:") {
			meta := strings.TrimPrefix(header, "data:")
			if semi := strings.Index(meta, ";"); semi >= 0 {
				meta = meta[:semi]
			}
			if meta != "" {
				mimeType = meta
			}
		}
	}

	data, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, fmt.Errorf("failed to decode base64 image: %w", err)
	}

	return &ImageAttachment{Data: data, MIMEType: mimeType}, nil
}
