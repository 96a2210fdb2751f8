package internal

import (
	"fmt"
	"strings"

	"go.uber.org/zap"
)

// IssueKind classifies a static finding in a template string.
type IssueKind string

// Issue kinds
const (
	IssueUnterminatedTag IssueKind = "unterminated_tag"
	IssueDanglingClose   IssueKind = "dangling_close"
	IssueMalformedTag    IssueKind = "malformed_tag"
	IssueEmptyTag        IssueKind = "empty_tag"
	IssueUnknownOperator IssueKind = "unknown_operator"
)

// operatorChars are the characters comparator tokens are built from.
const operatorChars = "*^$=<>!~"

// Position is a location in a template string.
type Position struct {
	Offset int // Byte offset from start
	Line   int // 1-indexed line number
	Column int // 1-indexed column number
}

// String returns a human-readable position string
func (p Position) String() string {
	return fmt.Sprintf("line %d, column %d", p.Line, p.Column)
}

// Issue is a single finding produced by Inspect.
type Issue struct {
	Kind     IssueKind
	Message  string
	Position Position
	Tag      string
}

// Inspection is the result of statically walking a template string.
type Inspection struct {
	Issues []Issue
	// Fields lists statically known field references in first-seen order.
	Fields []string
}

// Inspector walks template strings without a row, the same way the resolver
// does, and reports what the resolver would silently tolerate.
type Inspector struct {
	logger *zap.Logger
}

// NewInspector creates an inspector.
func NewInspector(logger *zap.Logger) *Inspector {
	if logger == nil {
		logger = zap.NewNop()
	}
	logger.Debug(LogMsgInspectorCreated)
	return &Inspector{logger: logger}
}

// Inspect reports unbalanced markers, malformed operator tags and the field
// names the template reads.
func (in *Inspector) Inspect(src string) *Inspection {
	result := &Inspection{}
	seen := make(map[string]bool)
	in.walk(src, 0, src, result, seen)
	return result
}

// walk scans src, which starts at base within the full template string.
func (in *Inspector) walk(src string, base int, full string, result *Inspection, seen map[string]bool) {
	depth := 0
	openedAt := -1

	for i := 0; i < len(src); {
		if strings.HasPrefix(src[i:], StrOpenDelim) {
			if depth == 0 {
				openedAt = i
			}
			depth++
			i += delimWidth
			continue
		}
		if strings.HasPrefix(src[i:], StrCloseDelim) {
			switch {
			case depth == 0:
				result.Issues = append(result.Issues, Issue{
					Kind:     IssueDanglingClose,
					Message:  IssueMsgDanglingClose,
					Position: positionAt(full, base+i),
				})
			case depth == 1:
				content := src[openedAt+delimWidth : i]
				contentBase := base + openedAt + delimWidth
				in.walk(content, contentBase, full, result, seen)
				in.analyzeTag(content, positionAt(full, base+openedAt), result, seen)
				depth = 0
			default:
				depth--
			}
			i += delimWidth
			continue
		}
		i++
	}

	if depth > 0 {
		result.Issues = append(result.Issues, Issue{
			Kind:     IssueUnterminatedTag,
			Message:  IssueMsgUnterminatedTag,
			Position: positionAt(full, base+openedAt),
		})
	}
}

// analyzeTag classifies one outermost tag. Tags whose shape depends on nested
// tags are only checked for a static field name.
func (in *Inspector) analyzeTag(content string, pos Position, result *Inspection, seen map[string]bool) {
	addField := func(name string) {
		if name != "" && !seen[name] {
			seen[name] = true
			result.Fields = append(result.Fields, name)
		}
	}
	addIssue := func(kind IssueKind, msg string) {
		result.Issues = append(result.Issues, Issue{Kind: kind, Message: msg, Position: pos, Tag: content})
	}

	if idx := strings.Index(content, StrOpenDelim); idx >= 0 {
		prefix := content[:idx]
		if sep := strings.Index(prefix, StrSeparator); sep >= 0 {
			addField(prefix[:sep])
		}
		return
	}

	if !strings.Contains(content, StrSeparator) {
		if content == "" {
			addIssue(IssueEmptyTag, IssueMsgEmptyTag)
			return
		}
		addField(content)
		return
	}

	tokens := strings.Split(content, StrSeparator)
	if len(tokens) < MinTernaryTokens {
		addIssue(IssueMalformedTag, IssueMsgMalformedTag)
		return
	}
	addField(tokens[tokField])

	op := tokens[tokOperator]
	if len(tokens) >= MinComparatorTokens && !IsComparator(op) && looksLikeOperator(op) {
		addIssue(IssueUnknownOperator, IssueMsgUnknownOperator)
	}
}

func looksLikeOperator(tok string) bool {
	if tok == "" {
		return false
	}
	for i := 0; i < len(tok); i++ {
		if !strings.ContainsRune(operatorChars, rune(tok[i])) {
			return false
		}
	}
	return true
}

// positionAt computes the line and column of offset in src.
func positionAt(src string, offset int) Position {
	pos := Position{Offset: offset, Line: 1, Column: 1}
	for i := 0; i < offset && i < len(src); i++ {
		if src[i] == '\n' {
			pos.Line++
			pos.Column = 1
		} else {
			pos.Column++
		}
	}
	return pos
}
