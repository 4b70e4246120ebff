// Package fsindex 实现共享根目录的列举、搜索与内容读取，
// 所有路径都必须经过包含性检查，不允许越出根目录。
package fsindex

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/hitushen/localbrowser/internal/models"
	"gopkg.in/djherbis/times.v1"
)

// Options 控制搜索与文本读取的上限，0 表示不限制。
type Options struct {
	MaxSearchResults int
	MaxTextBytes     int64
}

// Root 是进程生命周期内不可变的共享根目录。
type Root struct {
	path string
	opts Options
}

// New 校验并解析共享根目录。
func New(dir string, opts Options) (*Root, error) {
	if strings.TrimSpace(dir) == "" {
		return nil, fmt.Errorf("content path is required")
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("resolve content path %s: %w", dir, err)
	}
	real, err := filepath.EvalSymlinks(abs)
	if err != nil {
		return nil, fmt.Errorf("stat content path %s: %w", dir, err)
	}
	info, err := os.Stat(real)
	if err != nil {
		return nil, fmt.Errorf("stat content path %s: %w", dir, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("content path %s is not a directory", dir)
	}
	return &Root{path: filepath.Clean(real), opts: opts}, nil
}

// Path 返回根目录的绝对路径。
func (r *Root) Path() string {
	return r.path
}

// Resolve 把相对路径拼接到根目录下，越界时返回 ErrAccessDenied。
// 词法检查之后还会解析符号链接，链接指向根目录之外同样视为越界。
func (r *Root) Resolve(rel string) (string, error) {
	if strings.ContainsRune(rel, 0) {
		return "", fmt.Errorf("%w: path contains NUL", ErrInvalidRequest)
	}
	full := filepath.Join(r.path, filepath.FromSlash(normalize(rel)))
	if !r.contains(full) {
		return "", fmt.Errorf("%w: %s", ErrAccessDenied, rel)
	}
	if real, ok := anchor(full, 0); !ok || !r.contains(real) {
		return "", fmt.Errorf("%w: %s", ErrAccessDenied, rel)
	}
	return full, nil
}

// maxLinkHops 与内核的 ELOOP 上限保持一致。
const maxLinkHops = 40

// anchor 返回 p 最深的已存在祖先解析符号链接后的真实路径。
// 目标不存在时按链接实际指向判断，悬空链接按其目标判断。
func anchor(p string, hops int) (string, bool) {
	if hops > maxLinkHops {
		return "", false
	}
	for {
		if real, err := filepath.EvalSymlinks(p); err == nil {
			return real, true
		}
		if fi, err := os.Lstat(p); err == nil && fi.Mode()&fs.ModeSymlink != 0 {
			target, err := os.Readlink(p)
			if err != nil {
				return "", false
			}
			if !filepath.IsAbs(target) {
				target = filepath.Join(filepath.Dir(p), target)
			}
			return anchor(target, hops+1)
		}
		parent := filepath.Dir(p)
		if parent == p {
			return "", false
		}
		p = parent
	}
}

// contains 要求路径等于根目录，或以“根目录+分隔符”开头，
// 避免 /srv/data 误放行 /srv/data2。
func (r *Root) contains(p string) bool {
	if p == r.path {
		return true
	}
	prefix := r.path
	if !strings.HasSuffix(prefix, string(filepath.Separator)) {
		prefix += string(filepath.Separator)
	}
	return strings.HasPrefix(p, prefix)
}

// relative 把根目录下的绝对路径转换为不带前导斜杠的 POSIX 相对路径。
func (r *Root) relative(full string) string {
	rel, err := filepath.Rel(r.path, full)
	if err != nil || rel == "." {
		return ""
	}
	return filepath.ToSlash(rel)
}

// normalize 保证路径以 / 开头。这里不能先 Clean，
// 否则 "/../../etc" 会被折叠成 "/etc"，掩盖越界请求。
func normalize(rel string) string {
	return "/" + strings.TrimLeft(rel, "/")
}

func newEntry(name, rel string, info os.FileInfo) models.DirectoryEntry {
	entry := models.DirectoryEntry{
		Name:        name,
		IsDirectory: info.IsDir(),
		Path:        rel,
		Created:     createdAt(info),
		Modified:    info.ModTime(),
	}
	if !info.IsDir() {
		size := info.Size()
		entry.Size = &size
	}
	return entry
}

// createdAt 优先使用文件创建时间，平台不支持时退回到 ctime，再退回到 mtime。
func createdAt(info os.FileInfo) time.Time {
	ts := times.Get(info)
	if ts.HasBirthTime() {
		return ts.BirthTime()
	}
	if ts.HasChangeTime() {
		return ts.ChangeTime()
	}
	return info.ModTime()
}
