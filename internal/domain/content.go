package domain

import (
	"encoding/json"
	"strings"
)

// ContentType represents the type of a multimodal content part.
type ContentType string

const (
	ContentTypeText     ContentType = "text"
	ContentTypeImageURL ContentType = "image_url"
)

// ContentPart represents a single part of multimodal message content.
type ContentPart struct {
	Type     ContentType `json:"type"`
	Text     string      `json:"text,omitempty"`
	ImageURL *ImageURL   `json:"image_url,omitempty"`
}

// ImageURL represents a URL reference to an image (OpenAI style).
type ImageURL struct {
	URL    string `json:"url"`
	Detail string `json:"detail,omitempty"`
}

// MessageContent can be a simple string or an array of ContentParts.
type MessageContent struct {
	Text  string
	Parts []ContentPart
}

// IsSimpleText returns true if the content is just plain text.
func (mc MessageContent) IsSimpleText() bool {
	return len(mc.Parts) == 0
}

// String flattens the content to text. Parts without text are rendered as
// their JSON so nothing silently disappears from a transcript.
func (mc MessageContent) String() string {
	if mc.IsSimpleText() {
		return mc.Text
	}
	lines := make([]string, 0, len(mc.Parts))
	for _, part := range mc.Parts {
		if part.Text != "" {
			lines = append(lines, part.Text)
			continue
		}
		raw, err := json.Marshal(part)
		if err != nil {
			continue
		}
		lines = append(lines, string(raw))
	}
	return strings.Join(lines, "\n")
}

// MarshalJSON implements json.Marshaler.
func (mc MessageContent) MarshalJSON() ([]byte, error) {
	if mc.IsSimpleText() {
		return json.Marshal(mc.Text)
	}
	return json.Marshal(mc.Parts)
}

// UnmarshalJSON implements json.Unmarshaler.
func (mc *MessageContent) UnmarshalJSON(data []byte) error {
	var str string
	if err := json.Unmarshal(data, &str); err == nil {
		mc.Text = str
		mc.Parts = nil
		return nil
	}

	var parts []ContentPart
	if err := json.Unmarshal(data, &parts); err != nil {
		return err
	}
	mc.Parts = parts
	mc.Text = ""
	return nil
}

// TextPart creates a text content part.
func TextPart(text string) ContentPart {
	return ContentPart{Type: ContentTypeText, Text: text}
}

// ImageURLPart creates an image URL content part.
func ImageURLPart(url, detail string) ContentPart {
	return ContentPart{
		Type:     ContentTypeImageURL,
		ImageURL: &ImageURL{URL: url, Detail: detail},
	}
}
