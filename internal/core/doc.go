// Package core provides the business logic for spreadsheet import sessions.
//
// The package has no UI or transport dependencies. The web handlers and the
// terminal wizard both drive the same [Wizard] through [Service].
//
// # Flow
//
// A session walks the steps of [Steps] in order:
//
//	upload (selectSheet) -> selectHeader -> matchColumns -> validateData -> importMode
//
// Each completed step hands a fresh [StepState] forward; [Wizard.Back]
// restores the previous one.
//
// # Records and annotation
//
// Rows become [Record] values: the user data, a stable index and an error
// map keyed by field. [Annotator] fills the error map from the schema's
// [Validation] rules and the optional [RowHook] and [TableHook]. Hooks return
// a [Future] so inline and background implementations are awaited the same
// way:
//
//	reg.MustRegister(schema, core.Hooks{
//	    Row: core.RowHookFunc(func(ctx context.Context, rec core.Record, _ []core.Record) (core.Record, error) {
//	        if rec.Data.String("email") == "" {
//	            rec.Errors = core.Errors{"email": {Level: core.LevelWarning, Message: "no email"}}
//	        }
//	        return rec, nil
//	    }),
//	})
//
// # Submission
//
// The last step partitions records with [PartitionRecords] (error-level
// annotations make a record invalid) and passes a [Payload] to the
// configured [Submitter]. [SubmitLimiter] bounds concurrent destination
// writes across sessions.
//
// # Error Handling
//
// Technical errors are mapped to user-facing messages with [MapError]:
//
//   - VAL001-VAL005: validation preconditions
//   - FILE001-FILE006: upload problems
//   - SES001-SES006: session and step problems
//   - SUB001-SUB006: submission problems
package core
