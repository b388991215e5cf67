package fetch

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

const workbookExt = ".xlsx"

// LocalSource lists workbooks already present in a directory.
type LocalSource struct {
	dir string
}

func NewLocalSource(dir string) *LocalSource {
	return &LocalSource{dir: dir}
}

// FetchAll returns the .xlsx files of the directory in name order. Excel lock
// files (~$name.xlsx) are ignored.
func (s *LocalSource) FetchAll(ctx context.Context) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("read dir %s: %w", s.dir, err)
	}
	var out []string
	for _, e := range entries {
		if e.IsDir() || !isWorkbook(e.Name()) {
			continue
		}
		out = append(out, filepath.Join(s.dir, e.Name()))
	}
	sort.Strings(out)
	return out, nil
}

func isWorkbook(name string) bool {
	return strings.EqualFold(filepath.Ext(name), workbookExt) && !strings.HasPrefix(name, "~$")
}
