package google

import (
	"fmt"
	"strings"

	"ovdeclare/internal/core"
	"ovdeclare/internal/history"
)

// flattenHistory converts a values matrix (as returned by Sheets API) into
// the flat cell sequence of history.RowSource. The API trims trailing empty
// cells, so each row is padded back to core.RowCells. The header row and
// blank rows are dropped; anything past column F is ignored.
func flattenHistory(values [][]interface{}) []string {
	out := make([]string, 0, len(values)*core.RowCells)
	for i, raw := range values {
		row := toRow(raw)
		if i == 0 && history.IsHeaderRow(row) {
			continue
		}
		if history.IsBlankRow(row) {
			continue
		}
		out = append(out, row...)
	}
	return out
}

func toRow(in []interface{}) []string {
	row := make([]string, core.RowCells)
	for i := 0; i < len(in) && i < core.RowCells; i++ {
		if in[i] == nil {
			continue
		}
		row[i] = strings.TrimSpace(fmt.Sprint(in[i]))
	}
	return row
}
