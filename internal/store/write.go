package store

import (
	"context"
	"fmt"

	"github.com/JonMunkholm/sheetimport/internal/core"
)

// execer runs one statement and reports the affected row count.
type execer interface {
	exec(ctx context.Context, sql string, args ...any) (int64, error)
}

// writeRows applies rows one statement at a time inside the caller's
// transaction.
func writeRows(ctx context.Context, ex execer, p plan, mode core.ImportMode, rows []core.Values, ph placeholder, conv convert) (Result, error) {
	var res Result
	insert := p.insertSQL(ph)
	update := ""
	if mode != core.ModeAppend {
		update = p.updateSQL(ph)
	}

	for i, row := range rows {
		if err := ctx.Err(); err != nil {
			return res, err
		}

		if update != "" {
			n, err := ex.exec(ctx, update, p.updateArgs(row, conv)...)
			if err != nil {
				return res, fmt.Errorf("update row %d: %w", i+1, err)
			}
			if n > 0 {
				res.Updated += int(n)
				continue
			}
			if mode == core.ModeUpdate {
				res.Skipped++
				continue
			}
		}

		if _, err := ex.exec(ctx, insert, p.insertArgs(row, conv)...); err != nil {
			return res, fmt.Errorf("insert row %d: %w", i+1, err)
		}
		res.Inserted++
	}
	return res, nil
}
