package asset

import (
	"encoding/base64"
	"fmt"
	"html"
	"strconv"
	"strings"

	"github.com/shouni/go-storybook-kit/pkg/synth"
)

// ParseSize は "1024x768" 形式のサイズを幅と高さに分解します。
func ParseSize(size string) (width, height int, ok bool) {
	w, h, found := strings.Cut(strings.ToLower(strings.TrimSpace(size)), "x")
	if !found {
		return 0, 0, false
	}
	width, errW := strconv.Atoi(w)
	height, errH := strconv.Atoi(h)
	if errW != nil || errH != nil || width <= 0 || height <= 0 {
		return 0, 0, false
	}
	return width, height, true
}

// PlaceholderSVG は画像がまだ無いセクション用のプレースホルダー SVG を返します。
func PlaceholderSVG(label, size string) string {
	w, h, ok := ParseSize(size)
	if !ok {
		w, h, _ = ParseSize(synth.DefaultSize)
	}
	return fmt.Sprintf(`<svg xmlns="http://www.w3.org/2000/svg" width="%d" height="%d" viewBox="0 0 %d %d">`+
		`<rect width="100%%" height="100%%" fill="#f3efe6"/>`+
		`<text x="50%%" y="50%%" font-family="sans-serif" font-size="%d" fill="#9a8f7a" text-anchor="middle" dominant-baseline="middle">%s</text>`+
		`</svg>`, w, h, w, h, max(h/16, 12), html.EscapeString(label))
}

// PlaceholderDataURI は PlaceholderSVG を data URI として返します。
func PlaceholderDataURI(label, size string) string {
	return "data:image/svg+xml;base64," + base64.StdEncoding.EncodeToString([]byte(PlaceholderSVG(label, size)))
}
