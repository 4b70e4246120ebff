package fsindex

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"

	"go.uber.org/zap"

	"github.com/hitushen/localbrowser/internal/logging"
	"github.com/hitushen/localbrowser/internal/metrics"
	"github.com/hitushen/localbrowser/internal/models"
)

// List 返回 rel 目录的直接子项，目录排在文件之前。
// 无法 stat 的条目（权限不足、被占用）会被静默丢弃，不影响整体结果。
func (r *Root) List(ctx context.Context, rel string) ([]models.DirectoryEntry, error) {
	full, err := r.Resolve(rel)
	if err != nil {
		return nil, err
	}
	info, err := os.Stat(full)
	if err != nil {
		return nil, classify(err, rel)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%w: %s is not a directory", ErrInvalidRequest, rel)
	}

	dirents, err := os.ReadDir(full)
	if err != nil {
		return nil, classify(err, rel)
	}

	entries := make([]models.DirectoryEntry, 0, len(dirents))
	for _, d := range dirents {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		childFull := filepath.Join(full, d.Name())
		childRel := r.relative(childFull)

		if d.Type()&fs.ModeSymlink != 0 {
			if _, err := r.Resolve(childRel); err != nil {
				logging.Debug("skipped symlink leaving served root", zap.String("path", childRel))
				continue
			}
		}

		childInfo, err := os.Stat(childFull)
		if err != nil {
			if skippable(err) {
				logging.Debug("skipped inaccessible entry",
					zap.String("path", childRel),
					zap.Error(err))
				metrics.RecordEntrySkipped("list")
				continue
			}
			return nil, fmt.Errorf("stat %s: %w", childRel, err)
		}
		entries = append(entries, newEntry(d.Name(), childRel, childInfo))
	}

	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].IsDirectory && !entries[j].IsDirectory
	})
	return entries, nil
}
