package fsindex

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
)

// Open 打开根目录下的普通文件，供静态下载与预览使用。调用方负责关闭文件。
func (r *Root) Open(ctx context.Context, rel string) (*os.File, os.FileInfo, error) {
	if strings.TrimSpace(rel) == "" {
		return nil, nil, fmt.Errorf("%w: path parameter is missing", ErrInvalidRequest)
	}
	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}
	full, err := r.Resolve(rel)
	if err != nil {
		return nil, nil, err
	}
	info, err := os.Stat(full)
	if err != nil {
		return nil, nil, classify(err, rel)
	}
	if info.IsDir() {
		return nil, nil, fmt.Errorf("%w: %s is a directory", ErrInvalidRequest, rel)
	}
	f, err := os.Open(full)
	if err != nil {
		return nil, nil, classify(err, rel)
	}
	return f, info, nil
}

// ReadText 读取整个文件内容，用于小型文本/CSV 预览。
// MaxTextBytes 为 0 时不限制大小。
func (r *Root) ReadText(ctx context.Context, rel string) ([]byte, error) {
	f, info, err := r.Open(ctx, rel)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	if limit := r.opts.MaxTextBytes; limit > 0 && info.Size() > limit {
		return nil, fmt.Errorf("%w: %s is %d bytes, limit %d", ErrTooLarge, rel, info.Size(), limit)
	}
	data, err := io.ReadAll(f)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", rel, err)
	}
	return data, nil
}
