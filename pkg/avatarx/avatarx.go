// Package avatarx renders deterministic initials avatars for accounts that
// never uploaded a picture. The same name always produces the same image.
package avatarx

import (
	"fmt"
	"hash/fnv"
	"strings"
	"unicode"
)

// ContentType is the MIME type of generated avatars.
const ContentType = "image/svg+xml"

const size = 128

// Background palette. Index chosen by hashing the name so an account keeps
// its colour across restarts.
var palette = []string{
	"#1abc9c", "#2ecc71", "#3498db", "#9b59b6", "#34495e",
	"#f39c12", "#d35400", "#c0392b", "#7f8c8d", "#16a085",
}

// Render produces an SVG avatar showing the initials of name on a colored
// background.
func Render(name string) []byte {
	initials := Initials(name)
	bg := palette[hash(name)%uint32(len(palette))]

	svg := fmt.Sprintf(
		`<svg xmlns="http://www.w3.org/2000/svg" width="%d" height="%d" viewBox="0 0 %d %d">`+
			`<rect width="%d" height="%d" fill="%s"/>`+
			`<text x="50%%" y="50%%" dy=".1em" fill="#ffffff" font-family="sans-serif" `+
			`font-size="%d" text-anchor="middle" dominant-baseline="middle">%s</text>`+
			`</svg>`,
		size, size, size, size, size, size, bg, size/2, initials,
	)
	return []byte(svg)
}

// Initials extracts up to two uppercase initials from a display name or
// username. Separators recognised are spaces, dots, dashes and underscores;
// a single-word name yields its first rune only.
func Initials(name string) string {
	words := strings.FieldsFunc(name, func(r rune) bool {
		return r == ' ' || r == '.' || r == '-' || r == '_'
	})

	var b strings.Builder
	count := 0
	for _, w := range words {
		for _, r := range w {
			b.WriteRune(unicode.ToUpper(r))
			count++
			break
		}
		if count >= 2 {
			break
		}
	}
	if count == 0 {
		return "?"
	}
	return b.String()
}

func hash(s string) uint32 {
	h := fnv.New32a()
	_, _ = h.Write([]byte(s))
	return h.Sum32()
}
