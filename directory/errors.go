package directory

import "log"

// configError marks the class of problems that must be caught when the
// controller is constructed: invalid units, missing required fields,
// divisibility violations. Config.Validate and ConfigBuilder.Build return
// it to the caller rather than aborting the process.
type configError struct {
	msg string
}

func (e configError) Error() string {
	return e.msg
}

func errInvalidConfig(msg string) error {
	return configError{msg: msg}
}

// mustNotError panics with the teacher's log.Panic convention when err is
// non-nil. Used at construction time, where a configError always means the
// caller gave us something we cannot run with.
func mustNotError(err error) {
	if err != nil {
		log.Panic(err)
	}
}

// unexpectedState reports a handler reaching a (state, command) pair its
// transition table has no arm for — a protocol violation upstream, not a
// recoverable directory-level condition.
func unexpectedState(cmd Command, s CoherenceState) {
	log.Panicf("directory received %s in unexpected state %s", cmd, s)
}

// badAddress reports an event whose address does not belong to this
// directory's region.
func badAddress(addr Addr) {
	log.Panicf("address %#x is not valid for this directory's region", uint64(addr))
}

// noPendingNoncacheableRequest reports a non-cacheable response whose
// originating request the directory never recorded.
func noPendingNoncacheableRequest(eventID string) {
	log.Panicf("no pending non-cacheable request for event %s", eventID)
}

// noPendingDirEntryFetch reports a directory-entry response whose request
// the directory never recorded.
func noPendingDirEntryFetch(eventID string) {
	log.Panicf("no pending directory-entry fetch for event %s", eventID)
}
