package assistant

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestReplyEchoesShortInput(t *testing.T) {
	got := Reply("Hello")
	require.True(t, strings.HasPrefix(got, "Entendi. "))
	require.Contains(t, got, "Resumo: Hello\n")
	require.Contains(t, got, "Sugestões:")
	require.NotContains(t, got, "...")
}

func TestReplyIsDeterministic(t *testing.T) {
	require.Equal(t, Reply("same input"), Reply("same input"))
}

func TestReplyTrimsWhitespace(t *testing.T) {
	require.Equal(t, Reply("hi"), Reply("  hi \n"))
}

func TestReplyTruncatesLongInput(t *testing.T) {
	in := strings.Repeat("a", 200)
	got := Reply(in)
	require.Contains(t, got, "Resumo: "+strings.Repeat("a", EchoLimit)+"...")
	require.NotContains(t, got, strings.Repeat("a", EchoLimit+1))
}

func TestReplyKeepsExactLimitInput(t *testing.T) {
	in := strings.Repeat("b", EchoLimit)
	got := Reply(in)
	require.Contains(t, got, "Resumo: "+in+"\n")
	require.NotContains(t, got, "...")
}

func TestReplyTruncatesByRunes(t *testing.T) {
	in := strings.Repeat("é", 200)
	got := Reply(in)
	require.Contains(t, got, "Resumo: "+strings.Repeat("é", EchoLimit)+"...")
}

func TestRoleConstants(t *testing.T) {
	require.Equal(t, "user", UserRole)
	require.Equal(t, "assistant", AssistantRole)
	require.Equal(t, "system", SystemRole)
	require.Equal(t, "gpt-4o-mini", DefaultModel)
}
