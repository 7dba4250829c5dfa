package errors

// Sentinel values for the taxonomy of spec §7. Call sites wrap these with
// New/Wrap to attach context; errors.Is works against them because they are
// the canonical parent-less instance of each code.
var (
	ErrBadArgument   = New(ArgError, "bad argument", nil)
	ErrBadFilename   = New(FilenameError, "bad filename", nil)
	ErrConnect       = New(ConnectError, "connect failed", nil)
	ErrAuth          = New(AuthError, "authentication failed", nil)
	ErrMemory        = New(MemoryError, "memory allocation failed", nil)
	ErrUnimplemented = New(UnimplementedError, "unimplemented", nil)
	ErrProtocol      = New(ProtocolError, "protocol error", nil)
)
