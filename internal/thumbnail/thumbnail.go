// Package thumbnail 为图片预览生成固定尺寸的 JPEG 缩略图。
package thumbnail

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/disintegration/imaging"
	_ "golang.org/x/image/webp"
)

const (
	MaxSize = 200
	Quality = 80

	// CacheControl 是缩略图响应使用的缓存头，一周。
	CacheControl = "public, max-age=604800"
)

// ErrUnsupported 表示文件不是可解码的图片。
var ErrUnsupported = errors.New("unsupported image format")

var imageExts = map[string]struct{}{
	".jpg":  {},
	".jpeg": {},
	".png":  {},
	".gif":  {},
	".webp": {},
}

// IsImage 按扩展名判断是否可以生成缩略图。
func IsImage(name string) bool {
	_, ok := imageExts[strings.ToLower(filepath.Ext(name))]
	return ok
}

// Generate 解码图片，等比缩放到 MaxSize x MaxSize 以内（不放大），
// 并按 EXIF 方向校正后编码为 JPEG。
func Generate(r io.Reader) ([]byte, error) {
	img, err := imaging.Decode(r, imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnsupported, err)
	}

	thumb := imaging.Fit(img, MaxSize, MaxSize, imaging.Lanczos)

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, thumb, imaging.JPEG, imaging.JPEGQuality(Quality)); err != nil {
		return nil, fmt.Errorf("encode thumbnail: %w", err)
	}
	return buf.Bytes(), nil
}
