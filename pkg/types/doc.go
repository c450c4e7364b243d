// Package types holds the registry value model shared by the offline hive
// reader, the .reg text codec and the live registry writer.
//
// A Value is a name, a Windows value type and the raw little-endian bytes
// exactly as the registry stores them. Nothing here interprets or copies data
// beyond what the accessors document.
package types
