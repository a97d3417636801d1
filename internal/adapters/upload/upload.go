package upload

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"io"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/disintegration/imaging"
)

// DefaultThumbMaxPx bounds the longest side of an uploaded thumbnail.
const DefaultThumbMaxPx = 1600

// ErrEmptyFile is returned for zero-byte uploads.
var ErrEmptyFile = errors.New("file is empty")

// File is a local file ready to be sent to object storage.
type File struct {
	Name        string
	ContentType string
	Data        []byte
}

// ReadFile loads path and guesses its content type from the extension, then
// from the first bytes.
// PRE: path names a readable file
// POST: Returns a non-empty File or an error
func ReadFile(path string) (File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return File{}, fmt.Errorf("read %s: %w", path, err)
	}
	if len(data) == 0 {
		return File{}, fmt.Errorf("read %s: %w", path, ErrEmptyFile)
	}
	name := filepath.Base(path)
	ct := mime.TypeByExtension(strings.ToLower(filepath.Ext(name)))
	if ct == "" {
		ct = http.DetectContentType(data)
	}
	if i := strings.IndexByte(ct, ';'); i >= 0 {
		ct = strings.TrimSpace(ct[:i])
	}
	return File{Name: name, ContentType: ct, Data: data}, nil
}

// Uploader sends files to presigned object-storage URLs. It never carries the
// API bearer token.
type Uploader struct {
	http       *http.Client
	thumbMaxPx int
}

// NewUploader builds an uploader on transport (nil means the default).
func NewUploader(transport http.RoundTripper, timeout time.Duration, thumbMaxPx int) *Uploader {
	if thumbMaxPx <= 0 {
		thumbMaxPx = DefaultThumbMaxPx
	}
	return &Uploader{
		http:       &http.Client{Transport: transport, Timeout: timeout},
		thumbMaxPx: thumbMaxPx,
	}
}

// Put uploads f to a presigned URL with a single PUT.
// PRE: url is a presigned PUT URL
// POST: Returns nil on a 2xx answer
func (u *Uploader) Put(ctx context.Context, url string, f File) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, url, bytes.NewReader(f.Data))
	if err != nil {
		return fmt.Errorf("build upload request: %w", err)
	}
	req.ContentLength = int64(len(f.Data))
	req.Header.Set("Content-Type", f.ContentType)

	resp, err := u.http.Do(req)
	if err != nil {
		return fmt.Errorf("upload %s: %w", f.Name, err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, io.LimitReader(resp.Body, 4<<10))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("upload %s: storage answered %d", f.Name, resp.StatusCode)
	}
	return nil
}

// PrepareThumbnail downscales an image whose longest side exceeds the
// configured maximum, keeping its aspect ratio and format. Images already
// small enough, and files that are not decodable images, are returned as is.
// PRE: none
// POST: Returns a File whose image side is at most thumbMaxPx when decodable
func (u *Uploader) PrepareThumbnail(f File) (File, error) {
	img, err := imaging.Decode(bytes.NewReader(f.Data), imaging.AutoOrientation(true))
	if err != nil {
		return f, nil
	}
	b := img.Bounds()
	if b.Dx() <= u.thumbMaxPx && b.Dy() <= u.thumbMaxPx {
		return f, nil
	}

	format, err := imaging.FormatFromFilename(f.Name)
	if err != nil {
		format = imaging.JPEG
	}
	resized := imaging.Fit(img, u.thumbMaxPx, u.thumbMaxPx, imaging.Lanczos)

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, resized, format, imaging.JPEGQuality(85)); err != nil {
		return File{}, fmt.Errorf("encode thumbnail: %w", err)
	}
	out := File{Name: f.Name, ContentType: f.ContentType, Data: buf.Bytes()}
	if format == imaging.JPEG && !strings.HasPrefix(out.ContentType, "image/jpeg") {
		out.ContentType = "image/jpeg"
	}
	return out, nil
}

// Dimensions decodes only the header of an image file.
func Dimensions(f File) (image.Config, error) {
	cfg, _, err := image.DecodeConfig(bytes.NewReader(f.Data))
	return cfg, err
}
