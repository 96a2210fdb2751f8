// Package mailmerge resolves personalised message templates against rows of
// tabular data and turns the results into ready-to-store messages.
//
// Templates use {{ and }} delimiters:
//
//	Dear {{name}},
//
// # Basic Usage
//
// Create an engine, build rows and resolve:
//
//	engine := mailmerge.MustNew()
//	row := mailmerge.NewRow([]string{"name", "plan"}, []string{"Ann", "pro"})
//	out := engine.Resolve("Hi {{name}}, you are on {{plan|pro|Pro|Free}}.", row)
//	// out: "Hi Ann, you are on Pro."
//
// # Tag Syntax
//
// A tag holds a field name or a '|'-separated conditional:
//
//	{{field}}                          value of field, or "" when the row has no such column
//	{{field|expect|then}}              then when field equals expect, else ""
//	{{field|expect|then|else}}         then when field equals expect, else else
//	{{field|op|operand|then|else}}     comparator, op one of * ^ $ == > >= < <=
//
// Comparators * ^ and $ test containment, prefix and suffix. The ordering
// comparators compare numerically when both sides are numeric strings and
// byte-wise otherwise. Tags nest; inner tags are resolved first:
//
//	{{a|{{b|yes|1|0}}|match|nomatch}}
//
// Resolution never fails. Unknown fields become empty strings, tags with too
// few tokens are replaced by their own content, a dangling }} is kept as text
// and an unterminated {{ leaves the rest of the string untouched. A
// replacement is never scanned again, so values containing {{ are inserted
// verbatim.
//
// # Batches
//
// Merge resolves a MergeTemplate against many rows in parallel and always
// returns one output per input row, in input order:
//
//	table, err := mailmerge.ReadCSV(file, mailmerge.CSVOptions{Separator: ";"})
//	batch, err := engine.Merge(ctx, tmpl, table.Rows())
//
// # Jobs
//
// A Runner ties the pieces together: it merges a table, composes RFC 5322
// messages and saves them into a MessageSink folder.
//
//	report, err := mailmerge.NewRunner(engine, sink).Run(ctx, cfg, table)
//
// # Configuration
//
// Customize the engine with functional options:
//
//	engine, _ := mailmerge.New(
//	    mailmerge.WithLogger(logger),
//	    mailmerge.WithConcurrency(16),
//	    mailmerge.WithTraceHook(func(ev mailmerge.TraceEvent) { ... }),
//	)
package mailmerge
