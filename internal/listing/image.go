package listing

import "strings"

// ImageResolution is a width x height size offered by the image CDN.
type ImageResolution string

// Resolutions offered by the image CDN.
const (
	ImageMicro     ImageResolution = "120x90"
	ImageThumbnail ImageResolution = "160x120"
	ImageSmall     ImageResolution = "240x180"
	ImageMedium    ImageResolution = "580x435"
	ImageLarge     ImageResolution = "800x600"
	ImageXL        ImageResolution = "1920x1080"
)

const imageToken = "{0}"

// ImageURL fills the resolution placeholder of a photo URL. Unknown or empty
// resolutions use ImageSmall.
func ImageURL(photoURL string, res ImageResolution) string {
	if photoURL == "" {
		return ""
	}
	if !res.Valid() {
		res = ImageSmall
	}
	return strings.Replace(photoURL, imageToken, string(res), 1)
}

// Valid reports whether r is one of the CDN sizes.
func (r ImageResolution) Valid() bool {
	switch r {
	case ImageMicro, ImageThumbnail, ImageSmall, ImageMedium, ImageLarge, ImageXL:
		return true
	}
	return false
}
