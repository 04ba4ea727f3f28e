package avatarx_test

import (
	"testing"

	"github.com/keywarden/keywarden/pkg/avatarx"
	"github.com/stretchr/testify/require"
)

func TestInitials(t *testing.T) {
	tests := []struct {
		name string
		want string
	}{
		{"alice", "A"},
		{"alice cooper", "AC"},
		{"bob.smith", "BS"},
		{"carol-jane-doe", "CJ"},
		{"d_admin", "DA"},
		{"", "?"},
		{"---", "?"},
		{"ümit", "Ü"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, avatarx.Initials(tt.name))
		})
	}
}

func TestRenderDeterministic(t *testing.T) {
	a := avatarx.Render("alice")
	b := avatarx.Render("alice")
	require.Equal(t, a, b, "same name must render identically")

	c := avatarx.Render("bob")
	require.NotEqual(t, a, c)
}

func TestRenderIsSVG(t *testing.T) {
	out := string(avatarx.Render("alice cooper"))
	require.Contains(t, out, "<svg")
	require.Contains(t, out, ">AC</text>")
}
