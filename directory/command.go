package directory

// Command names the operation a Packet carries.
type Command int

// The command set understood by the directory, split into requests coming
// from caches/memory, responses going back, and the control command used
// during initialization.
const (
	GetS Command = iota
	GetX
	GetSX
	Write
	PutS
	PutM
	PutE
	PutX
	FlushLine
	FlushLineInv
	FetchInv
	FetchInvX
	ForceInv
	Inv

	GetSResp
	GetXResp
	WriteResp
	FlushLineResp
	AckInv
	AckPut
	FetchResp
	FetchXResp
	NACK

	NULLCMD
)

var commandNames = map[Command]string{
	GetS:          "GetS",
	GetX:          "GetX",
	GetSX:         "GetSX",
	Write:         "Write",
	PutS:          "PutS",
	PutM:          "PutM",
	PutE:          "PutE",
	PutX:          "PutX",
	FlushLine:     "FlushLine",
	FlushLineInv:  "FlushLineInv",
	FetchInv:      "FetchInv",
	FetchInvX:     "FetchInvX",
	ForceInv:      "ForceInv",
	Inv:           "Inv",
	GetSResp:      "GetSResp",
	GetXResp:      "GetXResp",
	WriteResp:     "WriteResp",
	FlushLineResp: "FlushLineResp",
	AckInv:        "AckInv",
	AckPut:        "AckPut",
	FetchResp:     "FetchResp",
	FetchXResp:    "FetchXResp",
	NACK:          "NACK",
	NULLCMD:       "NULLCMD",
}

// String returns the command's canonical name, used in stats keys and
// panic messages.
func (c Command) String() string {
	name, ok := commandNames[c]
	if !ok {
		return "Unknown"
	}

	return name
}

// Class enumerates the three message classes a command can belong to.
type Class int

const (
	// ClassCache carries cache-coherence traffic, subject to the directory's
	// per-line state machine.
	ClassCache Class = iota
	// ClassData carries plain data traffic that bypasses the state machine
	// (non-cacheable accesses).
	ClassData
	// ClassControl carries control/initialization traffic.
	ClassControl
)

var requestCommands = map[Command]bool{
	GetS: true, GetX: true, GetSX: true, Write: true,
	PutS: true, PutM: true, PutE: true, PutX: true,
	FlushLine: true, FlushLineInv: true,
	FetchInv: true, FetchInvX: true, ForceInv: true, Inv: true,
}

var responseCommands = map[Command]bool{
	GetSResp: true, GetXResp: true, WriteResp: true, FlushLineResp: true,
	AckInv: true, AckPut: true, FetchResp: true, FetchXResp: true, NACK: true,
}

// IsRequest reports whether c is one of the request commands.
func (c Command) IsRequest() bool {
	return requestCommands[c]
}

// IsResponse reports whether c is one of the response commands.
func (c Command) IsResponse() bool {
	return responseCommands[c]
}

// Class classifies a command for routing purposes. Every command recognized
// by the directory's coherence protocol is ClassCache; NULLCMD alone is
// ClassControl. Non-cacheable traffic is distinguished at the packet level
// by the FlagNonCacheable flag, not by command, per the pass-through design.
func (c Command) Class() Class {
	if c == NULLCMD {
		return ClassControl
	}

	return ClassCache
}

// IsFromMemorySide reports whether a request of this command is the kind
// the directory issues to caches on behalf of memory-side pressure
// (invalidations and fetches against an owner/sharer), as opposed to a
// request originating from a cache.
func (c Command) IsFromMemorySide() bool {
	switch c {
	case FetchInv, FetchInvX, ForceInv, Inv:
		return true
	default:
		return false
	}
}
