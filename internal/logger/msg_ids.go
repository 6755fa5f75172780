package logger

// Every message gets an ID. Error IDs decide which kind of failure an
// operation reports. Warning IDs are informational.
type MsgID = uint8

const (
	MsgID_None MsgID = iota

	// Errors
	MsgID_SyntaxError
	MsgID_UnsupportedSyntax
	MsgID_ResolutionError
	MsgID_BundleError
	MsgID_InternalError

	// Warnings
	MsgID_JS_LexicalDeclarationLowered
	MsgID_JS_DuplicateObjectKey
	MsgID_JS_DirectEval
	MsgID_JS_EqualsNaN
	MsgID_JS_UnreachableCode
	MsgID_JS_NotLowered
	MsgID_Bundler_CircularImport
	MsgID_Bundler_ImportIsUndefined

	MsgID_END // Keep this at the end (used only for tests)
)

func MsgIDToString(id MsgID) string {
	switch id {
	case MsgID_SyntaxError:
		return "syntax-error"
	case MsgID_UnsupportedSyntax:
		return "unsupported-syntax"
	case MsgID_ResolutionError:
		return "resolution-error"
	case MsgID_BundleError:
		return "bundle-error"
	case MsgID_InternalError:
		return "internal-error"

	case MsgID_JS_LexicalDeclarationLowered:
		return "lexical-declaration-lowered"
	case MsgID_JS_DuplicateObjectKey:
		return "duplicate-object-key"
	case MsgID_JS_DirectEval:
		return "direct-eval"
	case MsgID_JS_EqualsNaN:
		return "equals-nan"
	case MsgID_JS_UnreachableCode:
		return "unreachable-code"
	case MsgID_JS_NotLowered:
		return "not-lowered"
	case MsgID_Bundler_CircularImport:
		return "circular-import"
	case MsgID_Bundler_ImportIsUndefined:
		return "import-is-undefined"
	}

	return ""
}

func StringToMsgID(str string) (MsgID, bool) {
	for id := MsgID_None; id < MsgID_END; id++ {
		if MsgIDToString(id) == str {
			return id, true
		}
	}
	return MsgID_None, false
}
