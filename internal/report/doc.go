// Package report renders humanizer results for the command line.
//
// Three writers share the Writer interface:
//   - SimpleWriter prints aligned plain text for terminals
//   - JSONWriter prints the result structures as JSON
//   - MarkdownWriter prints GitHub flavored markdown with tables, alerts
//     and a mermaid pie chart of flagged segments
//
// The result types themselves live in the model, service and database
// packages; this package only formats them.
package report
