package mailmerge

import (
	"strings"
)

// Mode selects how a message body is rendered.
type Mode string

// Valid reports whether m is a known mode. The empty mode counts as plain.
func (m Mode) Valid() bool {
	switch m {
	case "", ModePlain, ModeHTML, ModeMarkdown:
		return true
	}
	return false
}

// orDefault returns ModePlain for the empty mode.
func (m Mode) orDefault() Mode {
	if m == "" {
		return ModePlain
	}
	return m
}

// MergeTemplate is the set of template strings resolved once per row.
// Recipient fields hold one template per entry; use SplitRecipients to turn
// a comma-separated list into entries.
type MergeTemplate struct {
	Name       string   `json:"name,omitempty" yaml:"name,omitempty"`
	Subject    string   `json:"subject" yaml:"subject"`
	Body       string   `json:"body" yaml:"body"`
	To         []string `json:"to,omitempty" yaml:"to,omitempty"`
	Cc         []string `json:"cc,omitempty" yaml:"cc,omitempty"`
	Bcc        []string `json:"bcc,omitempty" yaml:"bcc,omitempty"`
	ReplyTo    []string `json:"reply_to,omitempty" yaml:"reply_to,omitempty"`
	FollowupTo []string `json:"followup_to,omitempty" yaml:"followup_to,omitempty"`
	Mode       Mode     `json:"mode,omitempty" yaml:"mode,omitempty"`
}

// Strings returns every template string of t: subject, body, then each
// recipient entry.
func (t *MergeTemplate) Strings() []string {
	out := make([]string, 0, 2+len(t.To)+len(t.Cc)+len(t.Bcc)+len(t.ReplyTo)+len(t.FollowupTo))
	out = append(out, t.Subject, t.Body)
	for _, list := range [][]string{t.To, t.Cc, t.Bcc, t.ReplyTo, t.FollowupTo} {
		out = append(out, list...)
	}
	return out
}

// Fields is the resolved counterpart of a MergeTemplate for one row.
type Fields struct {
	Subject    string   `json:"subject"`
	Body       string   `json:"body"`
	To         []string `json:"to,omitempty"`
	Cc         []string `json:"cc,omitempty"`
	Bcc        []string `json:"bcc,omitempty"`
	ReplyTo    []string `json:"reply_to,omitempty"`
	FollowupTo []string `json:"followup_to,omitempty"`
	Mode       Mode     `json:"mode,omitempty"`
}

// SplitRecipients splits a comma-separated recipient list into trimmed,
// non-empty entries.
func SplitRecipients(s string) []string {
	parts := strings.Split(s, RecipientSeparator)
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
