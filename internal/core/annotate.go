package core

import (
	"context"
	"errors"
	"fmt"
)

// ErrHookResultMismatch is returned when a table hook hands back a different
// number of records, or records in a different order, than it received.
var ErrHookResultMismatch = errors.New("table hook must return the records it received, in order")

// Annotator applies a schema's validations and the session hooks to
// record sets.
type Annotator struct {
	validator *RowValidator
	hooks     Hooks
}

// NewAnnotator compiles the field validations once for repeated use.
func NewAnnotator(fields []Field, hooks Hooks) (*Annotator, error) {
	v, err := NewRowValidator(fields)
	if err != nil {
		return nil, err
	}
	return &Annotator{validator: v, hooks: hooks}, nil
}

// Annotate is the one-shot form of Annotator.Annotate.
func Annotate(ctx context.Context, records []Record, fields []Field, hooks Hooks, only []int) ([]Record, error) {
	a, err := NewAnnotator(fields, hooks)
	if err != nil {
		return nil, err
	}
	return a.Annotate(ctx, records, only)
}

// Annotate recomputes the error maps of records and returns them as a new
// slice in the same order. The input is never modified.
//
// With only == nil every record is revalidated. Otherwise only the records
// at the listed positions are; all others are copied through with the error
// maps they came in with. Unique checks and the table hook still see the
// full set so duplicates against untouched rows are caught, but their
// results land only on targeted records.
//
// Order of precedence per field: built-in validations, then the row hook,
// then the table hook. Each hook's entries are merged over what came
// before. A hook error aborts the run and is returned as is; no partial
// result is produced.
func (a *Annotator) Annotate(ctx context.Context, records []Record, only []int) ([]Record, error) {
	out := make([]Record, len(records))
	for i, rec := range records {
		out[i] = rec.Clone()
	}

	targets := targetPositions(len(out), only)
	if len(targets) == 0 {
		return out, nil
	}

	unique := a.validator.UniqueErrors(out)
	for _, pos := range targets {
		errs := a.validator.ValidateRecord(out[pos])
		if u, ok := unique[pos]; ok {
			if errs == nil {
				errs = make(Errors)
			}
			errs.Merge(u)
		}
		out[pos].Errors = errs
	}

	if a.hooks.Row != nil {
		snapshot := append([]Record(nil), out...)
		for _, pos := range targets {
			res, err := a.hooks.Row.HookRow(ctx, out[pos].Clone(), snapshot).Await(ctx)
			if err != nil {
				return nil, fmt.Errorf("row hook: %w", err)
			}
			out[pos] = adoptHookResult(out[pos], res, SourceRow)
		}
	}

	if a.hooks.Table != nil {
		in := make([]Record, len(out))
		for i, rec := range out {
			in[i] = rec.Clone()
		}
		res, err := a.hooks.Table.HookTable(ctx, in).Await(ctx)
		if err != nil {
			return nil, fmt.Errorf("table hook: %w", err)
		}
		if len(res) != len(out) {
			return nil, ErrHookResultMismatch
		}
		for _, pos := range targets {
			if res[pos].Index != out[pos].Index {
				return nil, ErrHookResultMismatch
			}
			out[pos] = adoptHookResult(out[pos], res[pos], SourceTable)
		}
	}

	return out, nil
}

// adoptHookResult takes the values a hook returned for prev and merges its
// error entries over prev's by key. A hook can add or override entries but
// never drop one the earlier stages found. The index is never changed by a
// hook. Entries the hook supplied without a source are attributed to it.
func adoptHookResult(prev, res Record, src Source) Record {
	next := Record{Index: prev.Index, Data: res.Data, Errors: prev.Errors.clone()}
	if next.Data == nil {
		next.Data = prev.Data
	}
	if len(res.Errors) == 0 {
		return next
	}
	if next.Errors == nil {
		next.Errors = make(Errors, len(res.Errors))
	}
	for k, info := range res.Errors {
		if info.Source == "" {
			info.Source = src
		}
		next.Errors[k] = info
	}
	return next
}

// targetPositions normalises the optional subset: nil means all records,
// out-of-range and repeated positions are dropped, order is preserved.
func targetPositions(n int, only []int) []int {
	if only == nil {
		all := make([]int, n)
		for i := range all {
			all[i] = i
		}
		return all
	}

	seen := make(map[int]bool, len(only))
	targets := make([]int, 0, len(only))
	for _, pos := range only {
		if pos < 0 || pos >= n || seen[pos] {
			continue
		}
		seen[pos] = true
		targets = append(targets, pos)
	}
	return targets
}

// PositionsOf maps record indices to positions in records. Unknown indices
// are skipped.
func PositionsOf(records []Record, indices []string) []int {
	want := make(map[string]bool, len(indices))
	for _, idx := range indices {
		want[idx] = true
	}
	positions := make([]int, 0, len(indices))
	for pos, rec := range records {
		if want[rec.Index] {
			positions = append(positions, pos)
		}
	}
	return positions
}

// FilterErrors returns the records carrying at least one error-level entry.
func FilterErrors(records []Record) []Record {
	var out []Record
	for _, rec := range records {
		if rec.HasErrors() {
			out = append(out, rec)
		}
	}
	return out
}

// HasInvalid reports whether any record carries an error-level entry.
func HasInvalid(records []Record) bool {
	for _, rec := range records {
		if rec.HasErrors() {
			return true
		}
	}
	return false
}
