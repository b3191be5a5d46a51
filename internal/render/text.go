package render

import (
	"image"
	"image/color"
	"image/draw"
	"strings"
	"time"
	"unicode"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

const (
	glyphWidth = 7
	lineHeight = 16
)

var (
	textFace = basicfont.Face7x13
	printer  = message.NewPrinter(language.BrazilianPortuguese)
)

// fold strips diacritics and replaces whatever the bitmap font cannot draw.
func fold(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		out = s
	}

	return strings.Map(func(r rune) rune {
		switch {
		case r == '\n' || r == '\t':
			return ' '
		case r < 0x20 || r > 0x7e:
			return '?'
		default:
			return r
		}
	}, out)
}

// truncate shortens s to at most n runes, marking the cut with "...".
func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	if n <= 3 {
		return string(r[:n])
	}
	return string(r[:n-3]) + "..."
}

// wrap splits s into at most maxLines lines of width runes.
func wrap(s string, width, maxLines int) []string {
	words := strings.Fields(s)
	var lines []string
	var cur string

	for _, w := range words {
		switch {
		case cur == "":
			cur = w
		case len([]rune(cur))+1+len([]rune(w)) <= width:
			cur += " " + w
		default:
			lines = append(lines, cur)
			cur = w
		}
	}
	if cur != "" {
		lines = append(lines, cur)
	}

	for i := range lines {
		lines[i] = truncate(lines[i], width)
	}
	if len(lines) > maxLines {
		lines = lines[:maxLines]
		lines[maxLines-1] = truncate(lines[maxLines-1]+" ...", width)
	}
	return lines
}

func drawText(dst draw.Image, x, baseline int, c color.Color, s string) {
	d := &font.Drawer{
		Dst:  dst,
		Src:  image.NewUniform(c),
		Face: textFace,
		Dot:  fixed.P(x, baseline),
	}
	d.DrawString(fold(s))
}

// drawTextRight draws s so that it ends at x.
func drawTextRight(dst draw.Image, x, baseline int, c color.Color, s string) {
	s = fold(s)
	drawText(dst, x-len(s)*glyphWidth, baseline, c, s)
}

// FormatCount groups thousands the pt-BR way: 12345 -> "12.345".
func FormatCount(n int) string {
	return printer.Sprintf("%d", n)
}

// FormatDate renders t as dd/mm/yyyy, or "" for nil.
func FormatDate(t *time.Time) string {
	if t == nil || t.IsZero() {
		return ""
	}
	return t.UTC().Format("02/01/2006")
}
