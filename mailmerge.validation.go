package mailmerge

import (
	"fmt"
	"slices"

	"github.com/itsatony/go-mailmerge/internal"
)

// ValidationSeverity indicates the severity of a validation issue.
type ValidationSeverity int

// Severity levels
const (
	SeverityError ValidationSeverity = iota
	SeverityWarning
	SeverityInfo
)

// String returns the severity name.
func (s ValidationSeverity) String() string {
	switch s {
	case SeverityError:
		return SeverityNameError
	case SeverityWarning:
		return SeverityNameWarning
	default:
		return SeverityNameInfo
	}
}

// Position is a location in a template string.
type Position = internal.Position

// Issue kinds reported by Validate.
const (
	IssueUnterminatedTag = internal.IssueUnterminatedTag
	IssueDanglingClose   = internal.IssueDanglingClose
	IssueMalformedTag    = internal.IssueMalformedTag
	IssueEmptyTag        = internal.IssueEmptyTag
	IssueUnknownOperator = internal.IssueUnknownOperator
	IssueUnknownField    = internal.IssueKind("unknown_field")
)

// IssueKind classifies a validation issue.
type IssueKind = internal.IssueKind

// ValidationIssue represents a single validation finding.
type ValidationIssue struct {
	Severity ValidationSeverity
	Kind     IssueKind
	Message  string
	Position Position
	// Source names the template string the issue was found in when a whole
	// MergeTemplate was validated, e.g. "subject" or "to[1]".
	Source string
	Tag    string
	Field  string
}

// String formats the issue for display.
func (i ValidationIssue) String() string {
	prefix := i.Severity.String()
	if i.Source != "" {
		prefix += " " + i.Source
	}
	if i.Position.Line == 0 {
		return fmt.Sprintf("%s: %s", prefix, i.Message)
	}
	return fmt.Sprintf("%s: %s: %s", prefix, i.Position, i.Message)
}

// ValidationResult contains the results of template validation.
type ValidationResult struct {
	issues []ValidationIssue
	fields []string
}

// Issues returns all validation issues found.
func (r *ValidationResult) Issues() []ValidationIssue {
	return r.issues
}

// Fields returns the field names the template reads, in first-seen order.
func (r *ValidationResult) Fields() []string {
	return r.fields
}

// Errors returns only issues with error severity.
func (r *ValidationResult) Errors() []ValidationIssue {
	return r.bySeverity(SeverityError)
}

// Warnings returns only issues with warning severity.
func (r *ValidationResult) Warnings() []ValidationIssue {
	return r.bySeverity(SeverityWarning)
}

func (r *ValidationResult) bySeverity(s ValidationSeverity) []ValidationIssue {
	var out []ValidationIssue
	for _, issue := range r.issues {
		if issue.Severity == s {
			out = append(out, issue)
		}
	}
	return out
}

// HasErrors returns true if there are any error-severity issues.
func (r *ValidationResult) HasErrors() bool {
	return len(r.Errors()) > 0
}

// HasWarnings returns true if there are any warning-severity issues.
func (r *ValidationResult) HasWarnings() bool {
	return len(r.Warnings()) > 0
}

// IsValid returns true if there are no error-severity issues.
func (r *ValidationResult) IsValid() bool {
	return !r.HasErrors()
}

// Validate statically checks a template string. Resolution tolerates every
// problem reported here; Validate exists to surface them before a batch runs.
// When header is non-nil, fields the template reads but the header lacks are
// reported as warnings.
func (e *Engine) Validate(template string, header []string) *ValidationResult {
	result := &ValidationResult{issues: make([]ValidationIssue, 0)}
	e.validateString(result, "", template, headerSet(header))
	return result
}

// ValidateTemplate validates every string of t.
func (e *Engine) ValidateTemplate(t *MergeTemplate, header []string) *ValidationResult {
	result := &ValidationResult{issues: make([]ValidationIssue, 0)}
	known := headerSet(header)

	e.validateString(result, SourceSubject, t.Subject, known)
	e.validateString(result, SourceBody, t.Body, known)
	for _, list := range []struct {
		name    string
		entries []string
	}{
		{SourceTo, t.To},
		{SourceCc, t.Cc},
		{SourceBcc, t.Bcc},
		{SourceReplyTo, t.ReplyTo},
		{SourceFollowupTo, t.FollowupTo},
	} {
		for i, entry := range list.entries {
			e.validateString(result, fmt.Sprintf(SourceIndexFmt, list.name, i), entry, known)
		}
	}
	return result
}

func (e *Engine) validateString(result *ValidationResult, source, template string, known map[string]bool) {
	inspection := e.inspector.Inspect(template)

	for _, issue := range inspection.Issues {
		result.issues = append(result.issues, ValidationIssue{
			Severity: severityOf(issue.Kind),
			Kind:     issue.Kind,
			Message:  issue.Message,
			Position: issue.Position,
			Source:   source,
			Tag:      issue.Tag,
		})
	}

	for _, field := range inspection.Fields {
		if !slices.Contains(result.fields, field) {
			result.fields = append(result.fields, field)
		}
		if known != nil && !known[field] {
			result.issues = append(result.issues, ValidationIssue{
				Severity: SeverityWarning,
				Kind:     IssueUnknownField,
				Message:  IssueMsgUnknownField + ": " + field,
				Source:   source,
				Field:    field,
			})
		}
	}
}

func severityOf(kind IssueKind) ValidationSeverity {
	if kind == IssueUnterminatedTag {
		return SeverityError
	}
	return SeverityWarning
}

func headerSet(header []string) map[string]bool {
	if header == nil {
		return nil
	}
	set := make(map[string]bool, len(header))
	for _, h := range header {
		set[h] = true
	}
	return set
}
