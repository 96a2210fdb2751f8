package internal

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

// mapRow is a minimal RowAccessor for tests.
type mapRow map[string]string

func (m mapRow) Lookup(name string) (string, bool) {
	v, ok := m[name]
	return v, ok
}

func TestResolver_Resolve(t *testing.T) {
	tests := []struct {
		name     string
		template string
		row      mapRow
		expected string
	}{
		{"no tags", "Hello, World!", mapRow{"name": "Ann"}, "Hello, World!"},
		{"empty template", "", mapRow{}, ""},
		{"plain lookup", "Hi {{name}}", mapRow{"name": "Ann"}, "Hi Ann"},
		{"missing key", "Hi {{missing}}", mapRow{"name": "Ann"}, "Hi "},
		{"several tags", "{{a}}-{{b}}-{{c}}", mapRow{"a": "1", "b": "2", "c": "3"}, "1-2-3"},
		{"adjacent tags", "{{a}}{{b}}", mapRow{"a": "x", "b": "y"}, "xy"},
		{"ternary match", "{{plan|pro|Pro User|Free User}}", mapRow{"plan": "pro"}, "Pro User"},
		{"ternary else", "{{plan|pro|Pro User|Free User}}", mapRow{"plan": "free"}, "Free User"},
		{"ternary three tokens no match", "{{plan|pro|Pro User}}", mapRow{"plan": "free"}, ""},
		{"contains yes", "{{tags|*|b|Yes|No}}", mapRow{"tags": "a,b,c"}, "Yes"},
		{"contains no", "{{tags|*|b|Yes|No}}", mapRow{"tags": "x,y"}, "No"},
		{"numeric greater", "{{score|>|5|High|Low}}", mapRow{"score": "10"}, "High"},
		{
			"nested operand",
			"{{a|{{b|yes|1|0}}|match|nomatch}}",
			mapRow{"a": "1", "b": "yes"},
			"match",
		},
		{
			"nested operand no match",
			"{{a|{{b|yes|1|0}}|match|nomatch}}",
			mapRow{"a": "1", "b": "no"},
			"nomatch",
		},
		{"nested field name", "{{{{which}}}}", mapRow{"which": "first", "first": "Ann"}, "Ann"},
		{"nested in then branch", "{{vip|yes|Dear {{name}}|Hello}}", mapRow{"vip": "yes", "name": "Ann"}, "Dear Ann"},
		{"plain lookup is not malformed", "{{onlytoken}}", mapRow{"onlytoken": "v"}, "v"},
		{"malformed two tokens", "{{a|b}}", mapRow{"a": "b"}, "a|b"},
		{"malformed keeps resolved inner", "[{{a|{{b}}}}]", mapRow{"b": "x"}, "[a|x]"},
		{"dangling close", "a}}b", mapRow{}, "a}}b"},
		{"dangling close after tag", "{{a}}}}", mapRow{"a": "1"}, "1}}"},
		{"unterminated", "{{unterminated", mapRow{"unterminated": "x"}, "{{unterminated"},
		{"unterminated after resolved tag", "{{a}} {{b", mapRow{"a": "1"}, "1 {{b"},
		{"unterminated nested", "x {{a {{b}}", mapRow{"b": "B"}, "x {{a {{b}}"},
		{"empty tag", "[{{}}]", mapRow{"": "empty-key"}, "[empty-key]"},
		{"triple brace open", "{{{a}}}", mapRow{"{a": "brace"}, "brace}"},
		{"multiline body", "Dear {{name}},\n\nYour plan: {{plan|pro|Pro|Free}}.\n", mapRow{"name": "Ann", "plan": "pro"}, "Dear Ann,\n\nYour plan: Pro.\n"},
		{"unicode around tags", "Grüße {{name}} ✓", mapRow{"name": "Jürgen"}, "Grüße Jürgen ✓"},
	}

	r := NewResolver(nil, nil)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, r.Resolve(tt.template, tt.row))
		})
	}
}

func TestResolver_ReplacementIsNotRescanned(t *testing.T) {
	r := NewResolver(nil, nil)
	row := mapRow{"a": "{{b}}", "b": "SHOULD NOT APPEAR"}

	assert.Equal(t, "x {{b}} y", r.Resolve("x {{a}} y", row))
}

func TestResolver_ReplacementDelimitersDoNotAffectDepth(t *testing.T) {
	r := NewResolver(nil, nil)
	row := mapRow{"open": "{{", "close": "}}", "n": "N"}

	assert.Equal(t, "{{ N", r.Resolve("{{open}} {{n}}", row))
	assert.Equal(t, "}} N", r.Resolve("{{close}} {{n}}", row))
}

func TestResolver_Idempotent(t *testing.T) {
	r := NewResolver(nil, nil)
	row := mapRow{"name": "Ann", "score": "7"}
	tmpl := "{{name}} scored {{score|>=|5|pass|fail}}"

	first := r.Resolve(tmpl, row)
	second := r.Resolve(tmpl, row)

	assert.Equal(t, first, second)
	assert.Equal(t, "Ann scored pass", first)
}

func TestResolver_DeepNesting(t *testing.T) {
	r := NewResolver(nil, nil)
	row := mapRow{"k0": "k1", "k1": "k2", "k2": "k3", "k3": "done"}

	tmpl := "{{{{{{{{k0}}}}}}}}"
	assert.Equal(t, "done", r.Resolve(tmpl, row))

	// Arbitrary depth is accepted without a limit.
	depth := 500
	deep := strings.Repeat("{{", depth) + "x" + strings.Repeat("}}", depth)
	assert.Equal(t, "", r.Resolve(deep, mapRow{}))
}

func TestResolver_Trace(t *testing.T) {
	var events []TraceEvent
	r := NewResolver(func(ev TraceEvent) { events = append(events, ev) }, nil)

	out := r.Resolve("a {{x|{{y}}|1|0}} b", mapRow{"x": "Y", "y": "Y"})
	require.Equal(t, "a 1 b", out)

	var points []TracePoint
	for _, ev := range events {
		points = append(points, ev.Point)
	}
	assert.Equal(t, []TracePoint{
		TracePointTagOpen,  // outer {{
		TracePointTagOpen,  // inner {{
		TracePointTagClose, // outer }}
		TracePointTagOpen,  // inner {{ during pre-resolution
		TracePointTagClose, // inner }}
		TracePointEvaluate, // inner y
		TracePointEvaluate, // outer
	}, points)

	last := events[len(events)-1]
	assert.Equal(t, "x|Y|1|0", last.Content)
	assert.Equal(t, "1", last.Result)
	assert.Equal(t, EvalKindTernary, last.Kind)
	assert.Equal(t, 0, last.Level)
	assert.Equal(t, 2, last.Offset)

	inner := events[len(events)-2]
	assert.Equal(t, 1, inner.Level)
	assert.Equal(t, EvalKindLookup, inner.Kind)
}

func TestResolver_Logging(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	r := NewResolver(nil, zap.New(core))

	r.Resolve("a}} {{b", mapRow{})

	assert.Equal(t, 1, logs.FilterMessage(LogMsgDanglingClose).Len())
	assert.Equal(t, 1, logs.FilterMessage(LogMsgUnterminatedTag).Len())
	assert.Equal(t, 1, logs.FilterMessage(LogMsgResolveEnd).Len())
}

func TestResolver_ConcurrentUse(t *testing.T) {
	r := NewResolver(nil, nil)
	done := make(chan string, 50)

	for i := 0; i < 50; i++ {
		go func() {
			done <- r.Resolve("{{a|{{b|yes|1|0}}|match|nomatch}}", mapRow{"a": "1", "b": "yes"})
		}()
	}
	for i := 0; i < 50; i++ {
		assert.Equal(t, "match", <-done)
	}
}
