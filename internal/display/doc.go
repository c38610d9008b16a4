// Package display renders scan results and command output for the terminal.
//
// A Printer writes summary lines, warnings and reference blocks. Color is enabled
// only when the target writer is a terminal:
//
//	p := display.NewPrinter(os.Stdout)
//	p.Summary(reference.Summarize(alive))
//	p.References(alive)
//
// A reference block shows the matched line between its context lines, each
// prefixed by a line-number gutter padded to the widest number of the block:
//
//	8:  import client
//	9:
//	10: if client.get_value("my_flag", False):
//	11:     enable()
//
// Warnings use the Warning type, which renders a title with optional message,
// affected files and a suggestion.
package display
