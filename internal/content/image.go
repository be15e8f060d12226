package content

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// ErrPendingImage is returned when an unresolved upload is about to be
// serialized. Pending images must be resolved to a URL before persistence.
var ErrPendingImage = errors.New("image has not been resolved to a url")

// PendingImage is an uploaded file that has not been stored yet.
type PendingImage struct {
	Data     []byte
	MIMEType string
	Filename string
}

// Size returns the length of the image payload in bytes.
func (p PendingImage) Size() int64 {
	return int64(len(p.Data))
}

// DataURL encodes the image as a base64 data URL.
func (p PendingImage) DataURL() string {
	mimeType := p.MIMEType
	if mimeType == "" {
		mimeType = "application/octet-stream"
	}
	return fmt.Sprintf("data:%s;base64,%s", mimeType, base64.StdEncoding.EncodeToString(p.Data))
}

// Image is either a durable URL (remote) or a pending upload. The zero value
// is a remote image with no URL.
type Image struct {
	url     string
	pending *PendingImage
}

func RemoteImage(url string) Image {
	return Image{url: url}
}

func NewPendingImage(p PendingImage) Image {
	return Image{pending: &p}
}

// URL returns the durable URL, or "" for pending and empty images.
func (i Image) URL() string {
	return i.url
}

// Pending reports the unresolved upload, if any.
func (i Image) Pending() (PendingImage, bool) {
	if i.pending == nil {
		return PendingImage{}, false
	}
	return *i.pending, true
}

func (i Image) IsPending() bool {
	return i.pending != nil
}

func (i Image) IsEmpty() bool {
	return i.pending == nil && i.url == ""
}

// IsDataURL reports whether the durable URL embeds the image bytes.
func (i Image) IsDataURL() bool {
	return strings.HasPrefix(i.url, "data:")
}

func (i Image) MarshalJSON() ([]byte, error) {
	if i.pending != nil {
		return nil, ErrPendingImage
	}
	return json.Marshal(i.url)
}

func (i *Image) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*i = Image{}
		return nil
	}
	var url string
	if err := json.Unmarshal(data, &url); err != nil {
		return fmt.Errorf("image must be a url string: %w", err)
	}
	*i = RemoteImage(url)
	return nil
}

// HasPendingImages reports whether any member still carries an unresolved upload.
func HasPendingImages(team []TeamMember) bool {
	for _, member := range team {
		if member.Image.IsPending() {
			return true
		}
	}
	return false
}
