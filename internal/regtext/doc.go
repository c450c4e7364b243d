// Package regtext reads and rewrites Windows .reg text the way reg.exe and
// regedit produce it.
//
// The package works on whole documents held as strings. Documents are split
// into lines; a value "block" is a value line plus every continuation line
// that follows a line ending in a backslash (long hex payloads). All rewrites
// operate on blocks so multi-line values are never torn apart.
//
// Input may be UTF-16LE with a byte-order mark (reg.exe export), UTF-8 with or
// without a BOM, or BOM-less UTF-16LE. Output for reg.exe import is always
// UTF-16LE with a BOM and CRLF line endings.
package regtext
