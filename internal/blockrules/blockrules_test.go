package blockrules

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMatchFirstRuleWins(t *testing.T) {
	rs, err := New([]Rule{
		{Pattern: "access denied", Label: "access-denied"},
		{Pattern: "denied", Label: "generic"},
	})
	require.NoError(t, err)

	label, ok := rs.Match("", "Access Denied - you don't have permission")
	require.True(t, ok)
	assert.Equal(t, "access-denied", label)
}

func TestMatchDefaults(t *testing.T) {
	rs := Default()

	tests := []struct {
		name    string
		title   string
		content string
		label   string
		matched bool
	}{
		{
			name:    "access denied page",
			content: "<h1>Access Denied</h1> You don't have permission to access this server.",
			label:   "access-denied",
			matched: true,
		},
		{
			name:    "captcha challenge",
			content: "please solve this CAPTCHA to continue",
			label:   "captcha",
			matched: true,
		},
		{
			name:    "human check",
			content: "Are you human? Confirm below.",
			label:   "captcha",
			matched: true,
		},
		{
			name:    "cdn interstitial in title",
			title:   "Attention Required! | Cloudflare",
			content: "<html><body></body></html>",
			label:   "cdn",
			matched: true,
		},
		{
			name:    "akamai reference",
			content: "Reference #18.abc. errors.edgesuite.net akamai",
			label:   "cdn",
			matched: true,
		},
		{
			name:    "ordinary product page",
			title:   "Lavadora Automática 18kg",
			content: "<h1>Lavadora Automática 18kg</h1><span class=\"price\">$8,999</span>",
			matched: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			label, ok := rs.Match(tt.title, tt.content)
			assert.Equal(t, tt.matched, ok)
			assert.Equal(t, tt.label, label)
		})
	}
}

func TestMatchIsIdempotent(t *testing.T) {
	rs := Default()
	content := "Request blocked. Please solve the captcha."

	first, ok1 := rs.Match("", content)
	second, ok2 := rs.Match("", content)
	third, ok3 := rs.Match("", content)

	assert.True(t, ok1)
	assert.Equal(t, first, second)
	assert.Equal(t, second, third)
	assert.Equal(t, ok1, ok2)
	assert.Equal(t, ok2, ok3)
}

func TestNewRejectsBadRules(t *testing.T) {
	tests := []struct {
		name  string
		rules []Rule
	}{
		{name: "empty list", rules: nil},
		{name: "empty pattern", rules: []Rule{{Pattern: " ", Label: "x"}}},
		{name: "empty label", rules: []Rule{{Pattern: "captcha", Label: ""}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(tt.rules)
			assert.Error(t, err)
		})
	}
}

func TestLoadFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "rules.yaml")
	content := "- pattern: \"zugriff verweigert\"\n  label: access-denied\n- pattern: \"sicherheitsprüfung\"\n  label: captcha\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	rs, err := LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, 2, rs.Len())

	label, ok := rs.Match("", "Zugriff verweigert")
	require.True(t, ok)
	assert.Equal(t, "access-denied", label)

	// The file replaces the defaults wholesale.
	_, ok = rs.Match("", "please solve this captcha")
	assert.False(t, ok)
}

func TestLoadFileMalformed(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "rules.yaml")
	require.NoError(t, os.WriteFile(path, []byte("pattern: not-a-list"), 0644))

	_, err := LoadFile(path)
	assert.Error(t, err)
}

func TestLoadFileMissing(t *testing.T) {
	_, err := LoadFile(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}
