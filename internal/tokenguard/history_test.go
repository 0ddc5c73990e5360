package tokenguard

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/Kocoro-lab/Shannon/go/research/internal/session"
)

func msgs(roles ...string) []session.Message {
	out := make([]session.Message, len(roles))
	for i, r := range roles {
		out[i] = session.Message{ID: string(rune('a' + i)), Role: r}
	}
	return out
}

func roles(history []session.Message) []string {
	out := make([]string, len(history))
	for i, m := range history {
		out[i] = m.Role
	}
	return out
}

func TestTruncateAtLastAssistant(t *testing.T) {
	u, a, s := session.RoleUser, session.RoleAssistant, session.RoleSystem

	tests := []struct {
		name string
		in   []session.Message
		want []string
	}{
		{"alternating", msgs(u, a, u, a, u), []string{u, a, u}},
		{"ends with assistant", msgs(s, u, a), []string{s, u}},
		{"assistant first", msgs(a, u), []string{}},
		{"no assistant", msgs(s, u, u), []string{s, u, u}},
		{"empty", nil, []string{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, roles(TruncateAtLastAssistant(tt.in)))
		})
	}
}

func TestTruncateAtLastAssistantDoesNotAliasAppends(t *testing.T) {
	in := msgs(session.RoleUser, session.RoleAssistant, session.RoleUser)
	out := TruncateAtLastAssistant(in)
	_ = append(out, session.Message{Role: session.RoleTool})
	assert.Equal(t, session.RoleAssistant, in[1].Role)
}
