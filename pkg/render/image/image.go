// Package image renders raster images. Values are decoded images or
// encoded image bytes; the payload is PNG or JPEG bytes and the tree an
// img element with a data URI.
package image

import (
	"bytes"
	"context"
	"encoding/base64"
	stdimage "image"

	"github.com/disintegration/imaging"

	"github.com/matzehuels/kindview/pkg/errors"
	"github.com/matzehuels/kindview/pkg/kind"
	"github.com/matzehuels/kindview/pkg/markup"
	"github.com/matzehuels/kindview/pkg/mime"
	"github.com/matzehuels/kindview/pkg/note"
	"github.com/matzehuels/kindview/pkg/render"
)

// DefaultQuality is the JPEG quality when none is given.
const DefaultQuality = 90

var options = render.Schema{
	"width":   render.Int(),
	"height":  render.Int(),
	"format":  render.OneOf("png", "jpeg"),
	"quality": render.Int(),
	"alt":     render.String(),
}

type config struct {
	Width   int    `option:"width"`
	Height  int    `option:"height"`
	Format  string `option:"format"`
	Quality int    `option:"quality"`
	Alt     string `option:"alt"`
}

// Definition returns the image kind definition.
func Definition() render.Definition {
	return render.Definition{
		Kind:        kind.Image,
		Description: "raster image",
		Options:     options,
		Render:      Render,
	}
}

// Render encodes the image value. Encoded bytes pass through unchanged
// unless resizing or a different format is requested.
func Render(_ context.Context, _ *render.Engine, n note.Note, _ render.Scope) (render.Artifact, error) {
	var cfg config
	if err := render.Decode(n.Options, &cfg); err != nil {
		return render.Artifact{}, err
	}
	data, subtype, err := encode(n.Value, cfg)
	if err != nil {
		return render.Artifact{}, err
	}
	payload := mime.Image(subtype, data)

	attrs := markup.Attrs{
		"class": "kind-image",
		"src":   "data:" + payload.MIME + ";base64," + base64.StdEncoding.EncodeToString(data),
	}
	if cfg.Alt != "" {
		attrs["alt"] = cfg.Alt
	}
	return render.Artifact{Tree: markup.El("img", attrs), Payload: payload}, nil
}

func encode(v any, cfg config) ([]byte, string, error) {
	var img stdimage.Image
	switch v := v.(type) {
	case stdimage.Image:
		img = v
	case []byte:
		_, format, err := stdimage.DecodeConfig(bytes.NewReader(v))
		if err != nil {
			return nil, "", errors.Wrap(errors.ErrCodeInvalidValue, err, "image bytes could not be decoded")
		}
		if cfg.Width == 0 && cfg.Height == 0 && (cfg.Format == "" || cfg.Format == format) {
			return v, format, nil
		}
		img, err = imaging.Decode(bytes.NewReader(v))
		if err != nil {
			return nil, "", errors.Wrap(errors.ErrCodeInvalidValue, err, "image bytes could not be decoded")
		}
		if cfg.Format == "" {
			cfg.Format = format
		}
	default:
		return nil, "", errors.New(errors.ErrCodeInvalidValue, "image expects an image or encoded bytes, got %T", v)
	}

	if cfg.Width > 0 || cfg.Height > 0 {
		img = imaging.Resize(img, cfg.Width, cfg.Height, imaging.Lanczos)
	}

	var buf bytes.Buffer
	switch cfg.Format {
	case "jpeg":
		q := cfg.Quality
		if q <= 0 || q > 100 {
			q = DefaultQuality
		}
		if err := imaging.Encode(&buf, img, imaging.JPEG, imaging.JPEGQuality(q)); err != nil {
			return nil, "", errors.Wrap(errors.ErrCodeInternal, err, "jpeg encoding failed")
		}
		return buf.Bytes(), "jpeg", nil
	default:
		if err := imaging.Encode(&buf, img, imaging.PNG); err != nil {
			return nil, "", errors.Wrap(errors.ErrCodeInternal, err, "png encoding failed")
		}
		return buf.Bytes(), "png", nil
	}
}
