package fsindex

import (
	"errors"
	"fmt"
	"io/fs"
	"syscall"
)

// 调用级错误。HTTP 层据此映射状态码。
var (
	ErrAccessDenied   = errors.New("access denied")
	ErrNotFound       = errors.New("not found")
	ErrInvalidRequest = errors.New("invalid request")
	ErrTooLarge       = errors.New("file too large")
)

// skippable 判断单个条目的错误是否只需丢弃该条目。
// 权限不足、文件被占用，以及枚举后被外部删除的条目都属于这一类。
func skippable(err error) bool {
	return errors.Is(err, fs.ErrPermission) ||
		errors.Is(err, syscall.EBUSY) ||
		errors.Is(err, fs.ErrNotExist)
}

func classify(err error, rel string) error {
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return fmt.Errorf("%w: %s", ErrNotFound, rel)
	case errors.Is(err, fs.ErrPermission):
		return fmt.Errorf("%w: %s", ErrAccessDenied, rel)
	default:
		return fmt.Errorf("%s: %w", rel, err)
	}
}
