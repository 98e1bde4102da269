package relocate

import (
	"bytes"
	"image"
	"strings"

	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// sniffExt guesses a file extension for an image payload whose URL has none.
func sniffExt(data []byte, contentType string) string {
	if _, format, err := image.DecodeConfig(bytes.NewReader(data)); err == nil {
		if format == "jpeg" {
			return ".jpg"
		}
		return "." + format
	}
	if strings.HasPrefix(strings.ToLower(contentType), "image/svg") {
		return ".svg"
	}
	return ""
}
