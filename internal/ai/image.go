package ai

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"net/http"
	"strings"

	"github.com/disintegration/imaging"
)

const (
	maxImageDimension = 1600
	jpegQuality       = 85

	mimeJPEG = "image/jpeg"
	mimePDF  = "application/pdf"
)

// Attachment is an inline file sent with a chat message.
type Attachment struct {
	MIMEType string
	Data     []byte
}

// DecodeAttachment decodes a base64 payload sent by the app. fileType is
// "pdf" or "image"; anything but "pdf" is treated as an image. Data URL
// prefixes ("data:image/png;base64,") are accepted.
func DecodeAttachment(b64, fileType string) (*Attachment, error) {
	if i := strings.Index(b64, ";base64,"); i >= 0 && strings.HasPrefix(b64, "data:") {
		b64 = b64[i+len(";base64,"):]
	}
	data, err := base64.StdEncoding.DecodeString(strings.TrimSpace(b64))
	if err != nil {
		return nil, fmt.Errorf("decoding attachment: %w", err)
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("attachment is empty")
	}
	if fileType == "pdf" {
		return &Attachment{MIMEType: mimePDF, Data: data}, nil
	}
	mime := http.DetectContentType(data)
	if !strings.HasPrefix(mime, "image/") {
		mime = mimeJPEG
	}
	return &Attachment{MIMEType: mime, Data: data}, nil
}

// Downscale re-encodes image attachments as JPEG no larger than 1600 px on
// the long side. PDFs and undecodable images are returned unchanged.
func Downscale(a *Attachment) *Attachment {
	if a == nil || a.MIMEType == mimePDF {
		return a
	}
	img, err := imaging.Decode(bytes.NewReader(a.Data), imaging.AutoOrientation(true))
	if err != nil {
		return a
	}
	b := img.Bounds()
	if b.Dx() <= maxImageDimension && b.Dy() <= maxImageDimension {
		return a
	}
	img = imaging.Fit(img, maxImageDimension, maxImageDimension, imaging.Lanczos)
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.JPEG, imaging.JPEGQuality(jpegQuality)); err != nil {
		return a
	}
	return &Attachment{MIMEType: mimeJPEG, Data: buf.Bytes()}
}
