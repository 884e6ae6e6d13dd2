// Package highlight renders a text with its AI-flagged segments marked.
//
// Three formats are supported: Markdown (**bold**), HTML (<mark>) and plain
// text ([brackets]). Source text is escaped so that Strip recovers it byte
// for byte from any rendering.
package highlight
