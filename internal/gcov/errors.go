package gcov

import "fmt"

// FormatError reports a malformed or unsupported coverage artifact.
type FormatError struct {
	Path   string
	Reason string
}

func (e *FormatError) Error() string {
	return fmt.Sprintf("%s: invalid coverage data: %s", e.Path, e.Reason)
}

// TruncatedError reports an artifact shorter than its own declared lengths
// imply, usually the result of an interrupted write.
type TruncatedError struct {
	Path string
	Want int
	Have int
}

func (e *TruncatedError) Error() string {
	return fmt.Sprintf("%s: truncated coverage data: need %d more bytes, have %d (was the write interrupted?)", e.Path, e.Want, e.Have)
}

// ChecksumMismatchError reports a count file whose stamp does not match its
// graph file. The counts belong to a different build of the program.
type ChecksumMismatchError struct {
	GraphPath  string
	CountPath  string
	GraphStamp uint32
	CountStamp uint32
}

func (e *ChecksumMismatchError) Error() string {
	return fmt.Sprintf("%s: stamp %#x does not match %s stamp %#x; re-run the instrumented program to refresh its counts",
		e.CountPath, e.CountStamp, e.GraphPath, e.GraphStamp)
}
