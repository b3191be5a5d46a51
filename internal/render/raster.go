package render

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"strings"

	xdraw "golang.org/x/image/draw"

	"github.com/vukan322/gitcard/internal/card"
	"github.com/vukan322/gitcard/internal/core"
	"github.com/vukan322/gitcard/internal/export"
	"github.com/vukan322/gitcard/internal/logging"
	"github.com/vukan322/gitcard/internal/providers"
)

// Logical card size; captures are this times the scale multiplier.
const (
	CardWidth  = 400
	CardHeight = 260

	padding    = 16
	avatarSize = 64
	textLeft   = padding + avatarSize + padding
)

var (
	colorPaper   = color.RGBA{0xF0, 0xF0, 0xF0, 0xFF}
	colorBorder  = color.RGBA{0xD0, 0xD0, 0xD0, 0xFF}
	colorPrimary = color.RGBA{0x80, 0x00, 0x80, 0xFF}
	colorAccent  = color.RGBA{0xFF, 0xC0, 0xCB, 0xFF}
	colorText    = color.RGBA{0x21, 0x21, 0x21, 0xFF}
	colorMuted   = color.RGBA{0x66, 0x66, 0x66, 0xFF}
	colorError   = color.RGBA{0xD3, 0x2F, 0x2F, 0xFF}
)

// Rasterizer draws the face a card currently shows. It implements
// export.Capturer.
type Rasterizer struct {
	avatars providers.AvatarFetcher
	logger  logging.Logger
}

var _ export.Capturer = (*Rasterizer)(nil)

// NewRasterizer returns a rasterizer; avatars may be nil, in which case a
// placeholder with the login's initial is drawn.
func NewRasterizer(avatars providers.AvatarFetcher, logger logging.Logger) *Rasterizer {
	if logger == nil {
		logger = logging.Nop{}
	}
	return &Rasterizer{avatars: avatars, logger: logger}
}

func (r *Rasterizer) Capture(ctx context.Context, s export.Surface, scale int) (image.Image, error) {
	if scale < 1 {
		return nil, fmt.Errorf("render: invalid scale %d", scale)
	}
	st := s.Snapshot()
	if st.Profile == nil {
		return nil, core.ErrNoProfile
	}

	base := image.NewRGBA(image.Rect(0, 0, CardWidth, CardHeight))
	drawPaper(base)

	if st.Face == card.Back {
		drawBack(base, st)
	} else {
		drawFront(base, st)
	}

	out := base
	if scale > 1 {
		out = image.NewRGBA(image.Rect(0, 0, CardWidth*scale, CardHeight*scale))
		xdraw.NearestNeighbor.Scale(out, out.Bounds(), base, base.Bounds(), xdraw.Src, nil)
	}

	if st.Face != card.Back {
		// drawn after scaling so the photo keeps full resolution
		avatarRect := image.Rect(padding, padding, padding+avatarSize, padding+avatarSize)
		r.drawAvatar(ctx, out, scaleRect(avatarRect, scale), *st.Profile)
	}

	return out, nil
}

func drawPaper(dst *image.RGBA) {
	b := dst.Bounds()
	draw.Draw(dst, b, image.NewUniform(colorBorder), image.Point{}, draw.Src)
	draw.Draw(dst, b.Inset(1), image.NewUniform(colorPaper), image.Point{}, draw.Src)
	draw.Draw(dst, image.Rect(b.Min.X+1, b.Min.Y+1, b.Max.X-1, b.Min.Y+5), image.NewUniform(colorPrimary), image.Point{}, draw.Src)
}

func drawFront(dst *image.RGBA, st card.State) {
	p := *st.Profile
	maxChars := (CardWidth - textLeft - padding) / glyphWidth

	title := p.Login
	if p.Name != "" {
		title += " (" + p.Name + ")"
	}
	drawText(dst, textLeft, 34, colorPrimary, truncate(fold(title), maxChars))

	y := 34 + lineHeight
	for _, line := range wrap(fold(p.Bio), maxChars, 3) {
		drawText(dst, textLeft, y, colorMuted, line)
		y += lineHeight - 2
	}

	divider := padding + avatarSize + padding + 8
	draw.Draw(dst, image.Rect(padding, divider, CardWidth-padding, divider+1), image.NewUniform(colorBorder), image.Point{}, draw.Src)

	y = divider + 20
	detailChars := (CardWidth - 2*padding) / glyphWidth
	for _, d := range details(p) {
		drawText(dst, padding, y, colorText, truncate(fold(d), detailChars))
		y += lineHeight
	}

	x := padding
	chipY := CardHeight - 64
	for _, c := range counters(p) {
		x = drawChip(dst, x, chipY, c) + 8
	}

	if created := FormatDate(p.CreatedAt); created != "" {
		drawText(dst, padding, CardHeight-26, colorMuted, "Criado em: "+created)
	}
	if updated := FormatDate(p.UpdatedAt); updated != "" {
		drawTextRight(dst, CardWidth-padding, CardHeight-26, colorMuted, "Atualizado em: "+updated)
	}
}

func drawBack(dst *image.RGBA, st card.State) {
	p := *st.Profile

	drawText(dst, padding, 34, colorPrimary, "Top repositorios")
	drawTextRight(dst, CardWidth-padding, 34, colorMuted, truncate(fold(p.Login), 24))
	draw.Draw(dst, image.Rect(padding, 44, CardWidth-padding, 45), image.NewUniform(colorBorder), image.Point{}, draw.Src)

	switch st.Stage {
	case card.StageRepoLoading:
		drawText(dst, padding, 72, colorMuted, "Carregando repositorios...")
		return
	case card.StageRepoFailed:
		drawText(dst, padding, 72, colorError, core.Message(st.RepositoryErr))
		return
	}

	if len(st.Repositories) == 0 {
		drawText(dst, padding, 72, colorMuted, "Nenhum repositorio publico")
		return
	}

	nameChars := (CardWidth-2*padding)/glyphWidth - 14
	for i, repo := range st.Repositories {
		y := 72 + i*32
		drawText(dst, padding, y, colorText, fmt.Sprintf("%d. %s", i+1, truncate(fold(repo.Name), nameChars)))
		drawTextRight(dst, CardWidth-padding, y, colorPrimary, "* "+FormatCount(repo.Stars))
		if i < len(st.Repositories)-1 {
			draw.Draw(dst, image.Rect(padding, y+14, CardWidth-padding, y+15), image.NewUniform(colorAccent), image.Point{}, draw.Src)
		}
	}
}

func details(p core.Profile) []string {
	var out []string
	if p.Company != "" {
		out = append(out, "Empresa: "+p.Company)
	}
	if p.Email != "" {
		out = append(out, "E-mail: "+p.Email)
	}
	if p.Blog != "" {
		out = append(out, "Site: "+p.Blog)
	}
	if p.Location != "" {
		out = append(out, "Local: "+p.Location)
	}
	if len(out) > 4 {
		out = out[:4]
	}
	return out
}

// counters lists the non-zero profile counters, as on the card chips.
func counters(p core.Profile) []string {
	var out []string
	if p.PublicRepos > 0 {
		out = append(out, FormatCount(p.PublicRepos)+" Repositorios")
	}
	if p.Followers > 0 {
		out = append(out, FormatCount(p.Followers)+" Seguidores")
	}
	if p.Following > 0 {
		out = append(out, FormatCount(p.Following)+" Seguindo")
	}
	return out
}

// drawChip draws an outlined label and returns its right edge.
func drawChip(dst *image.RGBA, x, y int, label string) int {
	w := len(fold(label))*glyphWidth + 16
	outer := image.Rect(x, y, x+w, y+22)
	draw.Draw(dst, outer, image.NewUniform(colorPrimary), image.Point{}, draw.Src)
	draw.Draw(dst, outer.Inset(1), image.NewUniform(colorPaper), image.Point{}, draw.Src)
	drawText(dst, x+8, y+15, colorPrimary, label)
	return outer.Max.X
}

func (r *Rasterizer) drawAvatar(ctx context.Context, dst *image.RGBA, rect image.Rectangle, p core.Profile) {
	mask := &circle{center: image.Pt(rect.Min.X+rect.Dx()/2, rect.Min.Y+rect.Dy()/2), radius: rect.Dx() / 2}

	if img := r.loadAvatar(ctx, p); img != nil {
		scaled := image.NewRGBA(rect)
		xdraw.CatmullRom.Scale(scaled, rect, img, img.Bounds(), xdraw.Src, nil)
		draw.DrawMask(dst, rect, scaled, rect.Min, mask, rect.Min, draw.Over)
		return
	}

	draw.DrawMask(dst, rect, image.NewUniform(colorAccent), image.Point{}, mask, rect.Min, draw.Over)

	initial := strings.ToUpper(truncate(fold(p.Login), 1))
	glyph := image.NewRGBA(image.Rect(0, 0, glyphWidth, 13))
	drawText(glyph, 0, 10, colorPrimary, initial)
	target := image.Rect(rect.Min.X+rect.Dx()/4, rect.Min.Y+rect.Dy()/8, rect.Max.X-rect.Dx()/4, rect.Max.Y-rect.Dy()/8)
	xdraw.NearestNeighbor.Scale(dst, target, glyph, glyph.Bounds(), xdraw.Over, nil)
}

func (r *Rasterizer) loadAvatar(ctx context.Context, p core.Profile) image.Image {
	if r.avatars == nil || p.AvatarURL == "" {
		return nil
	}

	data, err := r.avatars.FetchAvatar(ctx, p.AvatarURL)
	if err != nil {
		r.logger.Warn(ctx, "avatar unavailable, using placeholder", "login", p.Login, "error", err)
		return nil
	}
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		r.logger.Warn(ctx, "avatar undecodable, using placeholder", "login", p.Login, "error", err)
		return nil
	}
	return img
}

func scaleRect(r image.Rectangle, scale int) image.Rectangle {
	return image.Rect(r.Min.X*scale, r.Min.Y*scale, r.Max.X*scale, r.Max.Y*scale)
}

// circle is an alpha mask that is opaque inside the circle.
type circle struct {
	center image.Point
	radius int
}

func (c *circle) ColorModel() color.Model {
	return color.AlphaModel
}

func (c *circle) Bounds() image.Rectangle {
	return image.Rect(c.center.X-c.radius, c.center.Y-c.radius, c.center.X+c.radius, c.center.Y+c.radius)
}

func (c *circle) At(x, y int) color.Color {
	dx, dy := x-c.center.X, y-c.center.Y
	if dx*dx+dy*dy <= c.radius*c.radius {
		return color.Alpha{A: 255}
	}
	return color.Alpha{}
}
