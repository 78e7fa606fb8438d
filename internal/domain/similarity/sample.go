package similarity

import "image"

// Sample is whatever pixel data could be resolved for one artifact.
// A zero Sample means "unavailable".
type Sample struct {
	Image image.Image
	Bytes []byte
}

// HasPixels reports whether a decoded image is present.
func (s Sample) HasPixels() bool {
	return usable(s.Image)
}

// HasBytes reports whether a raw byte stream is present.
func (s Sample) HasBytes() bool {
	return len(s.Bytes) > 0
}

// IsEmpty reports whether nothing was resolved.
func (s Sample) IsEmpty() bool {
	return !s.HasPixels() && !s.HasBytes()
}
