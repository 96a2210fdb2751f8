package internal

// Tag syntax. These are persisted in user templates and must stay bit-exact.
const (
	StrOpenDelim  = "{{"
	StrCloseDelim = "}}"
	StrSeparator  = "|"
)

// delimWidth is the byte width of both open and close markers.
const delimWidth = 2

// Comparator operator tokens recognized in token position 1.
const (
	OpContains   = "*"
	OpStartsWith = "^"
	OpEndsWith   = "$"
	OpEqual      = "=="
	OpGreater    = ">"
	OpGreaterEq  = ">="
	OpLess       = "<"
	OpLessEq     = "<="
)

// Token counts for the tag shapes.
const (
	MinTernaryTokens    = 3
	TernaryElseTokens   = 4
	MinComparatorTokens = 5
)

// Token positions within a split tag.
const (
	tokField    = 0
	tokOperator = 1
	tokExpect   = 1
	tokOperand  = 2
	tokThen     = 2
	tokElse     = 3
	tokCmpThen  = 3
	tokCmpElse  = 4
)

// EvalKind classifies how a tag was evaluated.
type EvalKind string

// Evaluation kinds
const (
	EvalKindLookup     EvalKind = "lookup"
	EvalKindMissing    EvalKind = "missing"
	EvalKindTernary    EvalKind = "ternary"
	EvalKindComparator EvalKind = "comparator"
	EvalKindMalformed  EvalKind = "malformed"
)

// TracePoint identifies where in a resolution pass a trace event was raised.
type TracePoint string

// Trace points
const (
	TracePointTagOpen  TracePoint = "tag_open"
	TracePointTagClose TracePoint = "tag_close"
	TracePointEvaluate TracePoint = "evaluate"
)

// CSV defaults
const (
	CSVSeparatorComma     = ','
	CSVSeparatorSemicolon = ';'
	CSVSeparatorPipe      = '|'
	CSVSeparatorTab       = '\t'
	CSVEnclosureDouble    = '"'
	CSVEnclosureSingle    = '\''
	CSVUTF8BOM            = "\xEF\xBB\xBF"
)

// Log messages
const (
	LogMsgResolverCreated  = "resolver created"
	LogMsgResolveStart     = "resolving template"
	LogMsgResolveEnd       = "template resolved"
	LogMsgTagOpened        = "tag opened"
	LogMsgTagClosed        = "tag closed"
	LogMsgTagEvaluated     = "tag evaluated"
	LogMsgUnterminatedTag  = "unterminated tag left literal"
	LogMsgDanglingClose    = "dangling close marker left literal"
	LogMsgCSVParsed        = "csv parsed"
	LogMsgInspectorCreated = "inspector created"
)

// Log fields
const (
	LogFieldSource  = "source_length"
	LogFieldResult  = "result_length"
	LogFieldOffset  = "offset"
	LogFieldDepth   = "depth"
	LogFieldLevel   = "level"
	LogFieldTag     = "tag"
	LogFieldKind    = "kind"
	LogFieldRecords = "records"
)

// Inspection issue messages
const (
	IssueMsgUnterminatedTag = "unterminated tag: no matching }}"
	IssueMsgDanglingClose   = "dangling }} without matching {{"
	IssueMsgMalformedTag    = "malformed tag: fewer than 3 tokens"
	IssueMsgEmptyTag        = "empty tag resolves to empty string"
	IssueMsgUnknownOperator = "comparator-like token is not a recognized operator"
)
