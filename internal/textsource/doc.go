// Package textsource reads the text a command operates on.
//
// Text comes from command line arguments, a file, or standard input. HTML
// input (detected by file extension or by content) is reduced to its
// readable text: scripts, styles and other non-content elements are
// dropped, block elements become line breaks, and runs of whitespace inside
// a block collapse to one space. Line breaks matter because line
// granularity segments on them.
package textsource
