// Package hive is a small read-only REGF reader used to look inside snapshot
// copies of NTUSER.DAT without mounting them.
//
// It understands exactly what a value lookup needs: the base block, NK key
// records, the lf/lh/li/ri subkey indexes, VK value records, and db big-data
// chains. Transaction logs, security descriptors and class names are ignored,
// so a hive with a dirty log may look slightly older than Windows would see it.
// Callers treat the result as a hint and still go through reg.exe for the
// authoritative copy.
//
// Every offset read from the file is bounds checked; malformed input yields an
// error wrapping ErrCorrupt, never a panic.
package hive
