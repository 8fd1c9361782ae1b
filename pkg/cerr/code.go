package cerr

type Code int

const (
	OK                 = Code(0)
	Unknown            = Code(1)
	InvalidArgument    = Code(2)
	UnsupportedBackend = Code(3)
	MissingModule      = Code(4)
	CheckoutExecution  = Code(5)
	MalformedDocument  = Code(6)
	InvalidDirectory   = Code(7)
	CorruptLogFragment = Code(8)
	Internal           = Code(9)
)

var codeNames = map[Code]string{
	OK:                 "ok",
	Unknown:            "unknown",
	InvalidArgument:    "invalid_argument",
	UnsupportedBackend: "unsupported_backend",
	MissingModule:      "missing_module",
	CheckoutExecution:  "checkout_execution",
	MalformedDocument:  "malformed_document",
	InvalidDirectory:   "invalid_directory",
	CorruptLogFragment: "corrupt_log_fragment",
	Internal:           "internal",
}

func (c Code) String() string {
	if name, ok := codeNames[c]; ok {
		return name
	}
	return "unknown"
}

// ExitStatus maps a code to the process exit status used by the CLI.
func (c Code) ExitStatus() int {
	switch c {
	case OK:
		return 0
	case InvalidArgument, UnsupportedBackend, MissingModule:
		return 2
	case CheckoutExecution:
		return 3
	case MalformedDocument, CorruptLogFragment:
		return 4
	case InvalidDirectory:
		return 5
	default:
		return 1
	}
}

// Internal and Unknown errors are bugs or environment failures rather than
// bad input; only those carry a stack trace.
func (c Code) capturesStack() bool {
	return c == Internal || c == Unknown
}
