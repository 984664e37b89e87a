package trap

// OsError is the stable numeric error code written into a trap
// frame's x7 on syscall failure. Values fixed by §6 ("Error numbers
// (stable)"); never renumber a live constant.
type OsError uint64

const (
	Ok              OsError = 1
	NoEntry         OsError = 10
	NoMemory        OsError = 20
	NoVmSpace       OsError = 30
	NoAccess        OsError = 40
	BadAddress      OsError = 50
	FileExists      OsError = 60
	InvalidArgument OsError = 70

	IoError             OsError = 101
	IoErrorEof          OsError = 102
	IoErrorInvalidData  OsError = 103
	IoErrorInvalidInput OsError = 104
	IoErrorTimedOut     OsError = 105

	InvalidSocket          OsError = 200
	IllegalSocketOperation OsError = 201

	IdOverflow OsError = 300

	MailboxError  OsError = 400
	MailboxFailed OsError = 401
)
