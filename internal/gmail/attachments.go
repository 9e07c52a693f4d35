package gmail

import (
	"encoding/base64"
	"fmt"
	"strings"

	gmail "google.golang.org/api/gmail/v1"
)

// AttachmentInfo represents an attachment's metadata
type AttachmentInfo struct {
	MessageID    string
	PartID       string
	AttachmentID string
	Filename     string
	MimeType     string
	Size         int64

	// InlineData holds the encoded body of small parts that Gmail returns
	// inline instead of behind an attachment ID.
	InlineData string
}

// Inline reports whether the content is carried in the message itself.
func (a *AttachmentInfo) Inline() bool {
	return a.AttachmentID == ""
}

// ListAttachments returns every part of msg, the payload included, that has a
// filename. Parts are visited depth first in document order.
func ListAttachments(msg *gmail.Message) []*AttachmentInfo {
	if msg == nil {
		return nil
	}

	var attachments []*AttachmentInfo
	walkParts(msg.Payload, func(part *gmail.MessagePart) {
		if part.Filename == "" {
			return
		}
		info := &AttachmentInfo{
			MessageID: msg.Id,
			PartID:    part.PartId,
			Filename:  part.Filename,
			MimeType:  part.MimeType,
		}
		if part.Body != nil {
			info.AttachmentID = part.Body.AttachmentId
			info.Size = part.Body.Size
			if info.AttachmentID == "" {
				info.InlineData = part.Body.Data
			}
		}
		attachments = append(attachments, info)
	})

	return attachments
}

// walkParts recursively walks through message parts
func walkParts(part *gmail.MessagePart, fn func(*gmail.MessagePart)) {
	if part == nil {
		return
	}

	fn(part)

	for _, subpart := range part.Parts {
		walkParts(subpart, fn)
	}
}

// HeaderValue returns the value of the first header of msg named exactly
// name, or "" when there is none.
func HeaderValue(msg *gmail.Message, name string) string {
	if msg == nil || msg.Payload == nil {
		return ""
	}
	for _, h := range msg.Payload.Headers {
		if h.Name == name {
			return h.Value
		}
	}
	return ""
}

// DecodeData decodes Gmail body data. The API uses padded base64url, but
// unpadded and standard alphabet variants are accepted too.
func DecodeData(data string) ([]byte, error) {
	encodings := []*base64.Encoding{
		base64.URLEncoding,
		base64.RawURLEncoding,
		base64.StdEncoding,
		base64.RawStdEncoding,
	}

	var firstErr error
	for _, enc := range encodings {
		decoded, err := enc.DecodeString(data)
		if err == nil {
			return decoded, nil
		}
		if firstErr == nil {
			firstErr = err
		}
	}
	return nil, fmt.Errorf("invalid base64 data: %w", firstErr)
}

// SanitizeFilename sanitizes a filename to prevent path traversal attacks
func SanitizeFilename(filename string) string {
	filename = strings.ReplaceAll(filename, "/", "_")
	filename = strings.ReplaceAll(filename, "\\", "_")
	filename = strings.ReplaceAll(filename, "..", "_")
	filename = strings.ReplaceAll(filename, "\x00", "_")
	filename = strings.TrimSpace(filename)
	if filename == "" || filename == "." {
		return "_"
	}
	return filename
}
