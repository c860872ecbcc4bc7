package newsletter

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	_ "image/jpeg"
	"image/png"
	"net/http"

	xdraw "golang.org/x/image/draw"
	"golang.org/x/image/webp"
)

// LogoWidth is the pixel width stored logos are scaled to.
const LogoWidth = 360

const maxLogoBytes = 5 << 20

// ErrInvalidLogo wraps every rejection of an uploaded logo.
var ErrInvalidLogo = errors.New("invalid logo")

var allowedLogoMimes = []string{"image/png", "image/jpeg", "image/webp"}

// NormalizeLogo decodes a PNG, JPEG or WebP upload and re-encodes it as a
// PNG LogoWidth pixels wide.
func NormalizeLogo(raw []byte) ([]byte, string, error) {
	if len(raw) == 0 {
		return nil, "", fmt.Errorf("%w: %s", ErrInvalidLogo, "file is empty")
	}
	if len(raw) > maxLogoBytes {
		return nil, "", fmt.Errorf("%w: %s", ErrInvalidLogo, "file is too large")
	}
	mime := http.DetectContentType(raw)
	allowed := false
	for _, m := range allowedLogoMimes {
		if m == mime {
			allowed = true
			break
		}
	}
	if !allowed {
		return nil, "", fmt.Errorf("%w: %s", ErrInvalidLogo, "must be png, jpeg, or webp")
	}

	img, _, err := image.Decode(bytes.NewReader(raw))
	if err != nil {
		decoded, decodeErr := webp.Decode(bytes.NewReader(raw))
		if decodeErr != nil {
			return nil, "", fmt.Errorf("%w: %s", ErrInvalidLogo, "unable to decode image")
		}
		img = decoded
	}

	bounds := img.Bounds()
	if bounds.Dx() <= 0 || bounds.Dy() <= 0 {
		return nil, "", fmt.Errorf("%w: %s", ErrInvalidLogo, "invalid image dimensions")
	}
	height := bounds.Dy() * LogoWidth / bounds.Dx()
	if height < 1 {
		height = 1
	}
	resized := image.NewRGBA(image.Rect(0, 0, LogoWidth, height))
	xdraw.CatmullRom.Scale(resized, resized.Bounds(), img, bounds, xdraw.Over, nil)

	var out bytes.Buffer
	if err := png.Encode(&out, resized); err != nil {
		return nil, "", fmt.Errorf("%w: %s", ErrInvalidLogo, "unable to encode image")
	}
	return out.Bytes(), "image/png", nil
}
