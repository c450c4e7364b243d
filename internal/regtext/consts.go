package regtext

const (
	// RegFileHeader is the required first line of a version 5 .reg file.
	RegFileHeader = "Windows Registry Editor Version 5.00"

	KeyOpenBracket     = "["
	KeyCloseBracket    = "]"
	DeleteKeyPrefix    = "-"
	ValueAssignment    = "="
	DefaultValuePrefix = "@="
	DefaultValueName   = "@"
	CommentPrefix      = ";"
	DeleteValueToken   = "-"

	Quote            = "\""
	Backslash        = "\\"
	EscapedQuote     = "\\\""
	EscapedBackslash = "\\\\"

	CRLF = "\r\n"
	CR   = "\r"
	LF   = "\n"

	DWORDPrefix    = "dword:"
	HexPrefix      = "hex:"
	HexTypedPrefix = "hex("
	HexTypeFormat  = "hex(%x):"
	DWORDHexFormat = "%08x"
	DWORDHexLength = 8

	HexByteSeparator = ","
	HexByteFormat    = "%02x"

	// MaxLineWidth is the column reg.exe wraps hex payloads at.
	MaxLineWidth = 80
	// ContinuationIndent prefixes every wrapped hex line.
	ContinuationIndent = "  "

	HKEYLocalMachine       = "HKEY_LOCAL_MACHINE"
	HKEYLocalMachineShort  = "HKLM"
	HKEYClassesRoot        = "HKEY_CLASSES_ROOT"
	HKEYClassesRootShort   = "HKCR"
	HKEYCurrentUser        = "HKEY_CURRENT_USER"
	HKEYCurrentUserShort   = "HKCU"
	HKEYUsers              = "HKEY_USERS"
	HKEYUsersShort         = "HKU"
	HKEYCurrentConfig      = "HKEY_CURRENT_CONFIG"
	HKEYCurrentConfigShort = "HKCC"
)

var rootAliases = map[string]string{
	HKEYLocalMachineShort:  HKEYLocalMachine,
	HKEYClassesRootShort:   HKEYClassesRoot,
	HKEYCurrentUserShort:   HKEYCurrentUser,
	HKEYUsersShort:         HKEYUsers,
	HKEYCurrentConfigShort: HKEYCurrentConfig,
}
