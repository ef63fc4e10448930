package ports

// Flags is the bitmask passed to an engine when it is opened.
// The bit values match enum aug_flags of libaugeas.
type Flags uint

const (
	FlagNone           Flags = 0
	FlagSaveBackup     Flags = 1 << 0
	FlagSaveNewFile    Flags = 1 << 1
	FlagTypeCheck      Flags = 1 << 2
	FlagNoStdInc       Flags = 1 << 3
	FlagSaveNoop       Flags = 1 << 4
	FlagNoLoad         Flags = 1 << 5
	FlagNoModlAutoload Flags = 1 << 6
	FlagEnableSpan     Flags = 1 << 7
	FlagNoErrClose     Flags = 1 << 8
)

// Has reports whether every bit of f2 is set in f.
func (f Flags) Has(f2 Flags) bool {
	return f&f2 == f2
}

// ErrorCode is the engine's numeric error code as reported by Engine.Error.
type ErrorCode int

const (
	CodeNoError ErrorCode = iota
	CodeNoMemory
	CodeInternal
	CodePathExpr
	CodeNoMatch
	CodeMultipleMatches
	CodeSyntax
	CodeNoLens
	CodeMultipleTransforms
	CodeNoSpan
	CodeMoveDescendant
	CodeCommandRun
	CodeBadArgument
	CodeBadLabel
)

// ErrorInfo is the engine's last recorded error. It is overwritten by every
// operation, so it must be read right after the call it describes.
type ErrorInfo struct {
	Code    ErrorCode
	Message string
	Details string
	Minor   string
}

// Span is the raw position information of a node, as reported by the engine.
type Span struct {
	Filename   string
	LabelStart int
	LabelEnd   int
	ValueStart int
	ValueEnd   int
	SpanStart  int
	SpanEnd    int
}

// Engine is one open handle to a configuration-tree engine.
//
// Values are passed as *string because the tree distinguishes a node with no
// value (nil) from a node whose value is the empty string. Operations that
// return an int follow the engine convention: a negative value means failure,
// and the reason, when the engine knows it, is available from Error.
//
// An Engine is not safe for concurrent use.
type Engine interface {
	// Close releases the handle. Using the engine afterwards is an error.
	Close() error

	// Get returns the value of the single node matching path. The int is the
	// number of matches (0 or 1) or negative on failure.
	Get(path string) (*string, int)

	// Set sets the value of the single node matching path, creating it and
	// missing ancestors if needed.
	Set(path string, value *string) int

	// SetM sets sub relative to every node matching base and returns the
	// number of nodes modified.
	SetM(base, sub string, value *string) int

	// Rm removes all nodes matching path and their descendants. It returns
	// the number of removed nodes.
	Rm(path string) int

	// Mv moves the single node matching src to dst.
	Mv(src, dst string) int

	// Match returns the paths of all nodes matching path.
	Match(path string) ([]string, int)

	// DefVar binds name to the nodeset of expr; a nil expr removes the
	// variable. It returns the size of the nodeset.
	DefVar(name string, expr *string) int

	// DefNode is DefVar that creates a node with value when expr matches nothing.
	DefNode(name, expr string, value *string) (created bool, rc int)

	Save() int
	Load() int

	Span(path string) (Span, int)

	// Insert creates label as a sibling before or after the node matching path.
	Insert(path, label string, before bool) int

	// Rename relabels every node matching path and returns how many changed.
	Rename(path, label string) int

	TextStore(lens, node, path string) int
	TextRetrieve(lens, nodeIn, path, nodeOut string) int

	// Srun runs newline-separated commands and returns their output and the
	// number of commands run, -2 if a quit command was executed, or -1.
	Srun(text string) (string, int)

	// Label returns the label of the single node matching path.
	Label(path string) (*string, int)

	// Exists returns 1 if path matches a node, 0 if not, negative on failure.
	Exists(path string) int

	// Error returns the error recorded by the last operation.
	Error() ErrorInfo
}

// OpenFunc opens an engine handle. A non-nil error means no handle could be
// created at all; errors the engine records while opening are reported
// through the returned handle's Error.
type OpenFunc func(root string, loadPath []string, flags Flags) (Engine, error)
