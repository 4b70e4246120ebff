package fsindex

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/hitushen/localbrowser/internal/logging"
	"github.com/hitushen/localbrowser/internal/metrics"
	"github.com/hitushen/localbrowser/internal/models"
)

var errLimitReached = errors.New("search result limit reached")

// Search 深度优先遍历整个根目录，按名称做不区分大小写的子串匹配。
// 符号链接整体跳过；匹配的目录本身会出现在结果中，并继续向下搜索。
// 遍历没有内置超时，调用方通过 ctx 取消。
func (r *Root) Search(ctx context.Context, term string) ([]models.DirectoryEntry, error) {
	results := []models.DirectoryEntry{}
	if strings.TrimSpace(term) == "" {
		return results, nil
	}

	start := time.Now()
	defer func() { metrics.RecordSearch(time.Since(start)) }()

	needle := strings.ToLower(term)
	err := r.walk(ctx, r.path, needle, &results)
	if errors.Is(err, errLimitReached) {
		logging.Debug("search truncated",
			zap.String("term", term),
			zap.Int("limit", r.opts.MaxSearchResults))
		return results, nil
	}
	if err != nil {
		return nil, err
	}
	return results, nil
}

func (r *Root) walk(ctx context.Context, dir, needle string, out *[]models.DirectoryEntry) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	dirents, err := os.ReadDir(dir)
	if err != nil {
		if skippable(err) {
			logging.Debug("skipped inaccessible directory during search",
				zap.String("path", r.relative(dir)),
				zap.Error(err))
			metrics.RecordEntrySkipped("search")
			return nil
		}
		return fmt.Errorf("read dir %s: %w", r.relative(dir), err)
	}

	for _, d := range dirents {
		if d.Type()&fs.ModeSymlink != 0 {
			continue
		}
		full := filepath.Join(dir, d.Name())
		rel := r.relative(full)

		info, err := d.Info()
		if err != nil {
			if skippable(err) {
				metrics.RecordEntrySkipped("search")
				continue
			}
			return fmt.Errorf("stat %s: %w", rel, err)
		}

		if strings.Contains(strings.ToLower(d.Name()), needle) {
			*out = append(*out, newEntry(d.Name(), rel, info))
			if limit := r.opts.MaxSearchResults; limit > 0 && len(*out) >= limit {
				return errLimitReached
			}
		}
		if d.IsDir() {
			if err := r.walk(ctx, full, needle, out); err != nil {
				return err
			}
		}
	}
	return nil
}
