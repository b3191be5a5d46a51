package render

import (
	"bytes"
	_ "embed"
	"encoding/base64"
	"fmt"
	"html"
	"net/http"
	"text/template"

	"github.com/vukan322/gitcard/internal/core"
)

const (
	svgWidth  = CardWidth * 2
	svgHeight = CardHeight
)

//go:embed templates/card.svg.tmpl
var cardTemplate string

var cardTmpl = template.Must(
	template.New("card").
		Funcs(template.FuncMap{
			"esc":   html.EscapeString,
			"count": FormatCount,
			"add":   func(a, b int) int { return a + b },
			"mul":   func(a, b int) int { return a * b },
		}).
		Parse(cardTemplate),
)

// Card is what the SVG embed shows: both faces side by side.
type Card struct {
	Profile       core.Profile
	Repositories  []core.Repository
	AvatarDataURI string
}

type cardViewModel struct {
	Width  int
	Height int
	Half   int

	Title     string
	Bio       string
	AvatarURI string
	Initial   string

	Details  []string
	Counters []string
	Created  string
	Updated  string

	Repos []core.Repository
}

func RenderSVG(c Card) ([]byte, error) {
	p := c.Profile
	if p.Login == "" {
		return nil, fmt.Errorf("render svg: %w: empty login", core.ErrNoProfile)
	}

	title := p.Login
	if p.Name != "" {
		title += " (" + p.Name + ")"
	}

	vm := cardViewModel{
		Width:     svgWidth,
		Height:    svgHeight,
		Half:      CardWidth,
		Title:     title,
		Bio:       p.Bio,
		AvatarURI: c.AvatarDataURI,
		Initial:   string([]rune(p.Login)[:1]),
		Details:   details(p),
		Counters:  counters(p),
		Created:   FormatDate(p.CreatedAt),
		Updated:   FormatDate(p.UpdatedAt),
		Repos:     core.RankRepositories(c.Repositories),
	}

	var buf bytes.Buffer
	if err := cardTmpl.Execute(&buf, vm); err != nil {
		return nil, fmt.Errorf("render svg: %w", err)
	}
	return buf.Bytes(), nil
}

// AvatarDataURI inlines image bytes so the SVG has no external references.
func AvatarDataURI(data []byte) string {
	if len(data) == 0 {
		return ""
	}
	return "data:" + http.DetectContentType(data) + ";base64," + base64.StdEncoding.EncodeToString(data)
}
