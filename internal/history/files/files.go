// Package files reads travel history from CSV exports, one file per month
// named "<yyyy-mm>.csv".
package files

import (
	"bufio"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"ovdeclare/internal/core"
	"ovdeclare/internal/history"
)

var _ history.RowSource = (*Store)(nil)

type Store struct {
	dir string
}

func New(dir string) *Store {
	return &Store{dir: dir}
}

// Path returns the CSV file read for a month.
func (s *Store) Path(m core.Month) string {
	return filepath.Join(s.dir, m.String()+".csv")
}

// MonthRows returns the month's cells in file order. A missing file means no
// data for the month. The header row and blank lines are skipped.
func (s *Store) MonthRows(_ context.Context, m core.Month) ([]string, error) {
	path := s.Path(m)
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	cells, err := readCells(f)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return cells, nil
}

func readCells(r io.Reader) ([]string, error) {
	br := bufio.NewReader(r)
	comma, err := sniffDelimiter(br)
	if err != nil {
		return nil, err
	}

	cr := csv.NewReader(br)
	cr.Comma = comma
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	var out []string
	first := true
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}
		if first {
			first = false
			if history.IsHeaderRow(rec) {
				continue
			}
		}
		if history.IsBlankRow(rec) {
			continue
		}
		if len(rec) != core.RowCells {
			line, _ := cr.FieldPos(0)
			return nil, fmt.Errorf("line %d: %w: expected %d fields, got %d", line, core.ErrMalformedRow, core.RowCells, len(rec))
		}
		for _, c := range rec {
			out = append(out, strings.TrimSpace(c))
		}
	}
	return out, nil
}

// sniffDelimiter picks ';' when the first line uses it, ',' otherwise.
// Dutch exports use ';' because ',' is the decimal separator.
func sniffDelimiter(br *bufio.Reader) (rune, error) {
	line, err := br.Peek(br.Size())
	if err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, bufio.ErrBufferFull) {
		return 0, err
	}
	if i := strings.IndexByte(string(line), '\n'); i >= 0 {
		line = line[:i]
	}
	if strings.Count(string(line), ";") > strings.Count(string(line), ",") {
		return ';', nil
	}
	return ',', nil
}
