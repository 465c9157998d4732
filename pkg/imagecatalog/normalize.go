package imagecatalog

import (
	"fmt"
	"strings"
)

// SanitizeContainerName keeps only the characters [0-9A-Za-z-] of raw and
// lowercases the result. The output may be empty.
func SanitizeContainerName(raw string) string {
	var b strings.Builder
	b.Grow(len(raw))
	for i := 0; i < len(raw); i++ {
		c := raw[i]
		switch {
		case c >= '0' && c <= '9', c == '-':
			b.WriteByte(c)
		case c >= 'a' && c <= 'z':
			b.WriteByte(c)
		case c >= 'A' && c <= 'Z':
			b.WriteByte(c + ('a' - 'A'))
		}
	}
	return b.String()
}

// ContainerFor resolves the container that holds an owner's blobs, falling
// back to fallback when the sanitized owner is empty.
func ContainerFor(owner, fallback string) string {
	if name := SanitizeContainerName(owner); name != "" {
		return name
	}
	return fallback
}

// BlobFileName returns the blob file name for an image name.
func BlobFileName(imageName string) string {
	return imageName + ImageExt
}

// StripExt removes the last extension of a blob file name. Names without a
// dot are returned unchanged.
func StripExt(fileName string) string {
	if i := strings.LastIndexByte(fileName, '.'); i >= 0 {
		return fileName[:i]
	}
	return fileName
}

// RecordID derives the default record ID.
func RecordID(owner, category, imageName string) string {
	return fmt.Sprintf("%s-%s-%s", owner, category, imageName)
}
