package preview

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"strconv"
	"sync"

	"github.com/fogleman/gg"
	"github.com/golang/freetype/truetype"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/gofont/goregular"

	"github.com/farejai/fareja/internal/imaging"
	"github.com/farejai/fareja/internal/models"
)

// Card is the content drawn on a procedural preview image.
type Card struct {
	Title     string
	Price     string
	PriceFrom string
	StoreName string
	Coupon    string
	Image     image.Image
}

// PromotionCard fills a card from p. img may be nil.
func PromotionCard(p *models.Promotion, img image.Image) Card {
	return Card{
		Title:     p.Title,
		Price:     p.Price,
		PriceFrom: p.PriceFromValue(),
		StoreName: p.StoreName,
		Coupon:    p.CouponCode(),
		Image:     img,
	}
}

// MissingCard is drawn for shortIds that do not exist.
func MissingCard() Card {
	return Card{Title: "Promoção não encontrada", Price: "Fareja"}
}

var (
	fontsOnce sync.Once
	fontsErr  error
	regular   *truetype.Font
	bold      *truetype.Font
)

func loadFonts() error {
	fontsOnce.Do(func() {
		if regular, fontsErr = truetype.Parse(goregular.TTF); fontsErr != nil {
			return
		}
		bold, fontsErr = truetype.Parse(gobold.TTF)
	})
	return fontsErr
}

func face(f *truetype.Font, size float64) font.Face {
	return truetype.NewFace(f, &truetype.Options{Size: size, Hinting: font.HintingFull})
}

const (
	cardMargin  = 40.0
	photoBox    = 470.0
	textLeft    = cardMargin + 40 + photoBox + 40
	textWidth   = CardWidth - textLeft - cardMargin - 40
	maxTitleLns = 3
)

var (
	orangeLight = color.RGBA{0xf3, 0xa7, 0x5c, 0xff}
	orangeDark  = color.RGBA{0xff, 0x6b, 0x35, 0xff}
	green       = color.RGBA{0x22, 0xc5, 0x5e, 0xff}
	ink         = color.RGBA{0x1f, 0x29, 0x37, 0xff}
	muted       = color.RGBA{0x6b, 0x72, 0x80, 0xff}
	navy        = color.RGBA{0x15, 0x1e, 0x3e, 0xff}
)

// RenderCard draws c as a 1200x630 PNG.
func RenderCard(c Card) ([]byte, error) {
	if err := loadFonts(); err != nil {
		return nil, fmt.Errorf("load fonts: %w", err)
	}

	dc := gg.NewContext(CardWidth, CardHeight)

	grad := gg.NewLinearGradient(0, 0, CardWidth, CardHeight)
	grad.AddColorStop(0, orangeLight)
	grad.AddColorStop(1, orangeDark)
	dc.SetFillStyle(grad)
	dc.DrawRectangle(0, 0, CardWidth, CardHeight)
	dc.Fill()

	dc.SetColor(color.White)
	dc.DrawRoundedRectangle(cardMargin, cardMargin, CardWidth-2*cardMargin, CardHeight-2*cardMargin, 24)
	dc.Fill()

	drawPhoto(dc, c.Image)

	y := cardMargin + 70
	dc.SetFontFace(face(bold, 28))
	dc.SetColor(orangeDark)
	dc.DrawString("FAREJA", textLeft, y)

	if c.StoreName != "" {
		dc.SetFontFace(face(bold, 22))
		drawBadge(dc, c.StoreName, CardWidth-cardMargin-40, y-24, navy, true)
	}

	y += 30
	dc.SetFontFace(face(bold, 40))
	dc.SetColor(ink)
	lines := dc.WordWrap(c.Title, textWidth)
	if len(lines) > maxTitleLns {
		lines = lines[:maxTitleLns]
		lines[maxTitleLns-1] = ellipsize(dc, lines[maxTitleLns-1], textWidth)
	}
	for _, line := range lines {
		y += 48
		dc.DrawString(line, textLeft, y)
	}

	if c.PriceFrom != "" {
		y += 50
		dc.SetFontFace(face(regular, 28))
		dc.SetColor(muted)
		from := "De: " + c.PriceFrom
		dc.DrawString(from, textLeft, y)
		w, h := dc.MeasureString(from)
		dc.SetLineWidth(2)
		dc.DrawLine(textLeft, y-h/3, textLeft+w, y-h/3)
		dc.Stroke()
	}

	y += 70
	dc.SetFontFace(face(bold, 64))
	dc.SetColor(orangeDark)
	dc.DrawString(c.Price, textLeft, y)

	if pct, ok := Discount(c.Price, c.PriceFrom); ok {
		pw, _ := dc.MeasureString(c.Price)
		dc.SetFontFace(face(bold, 26))
		drawBadge(dc, "-"+strconv.Itoa(pct)+"% OFF", textLeft+pw+24, y-44, green, false)
	}

	if c.Coupon != "" {
		y += 50
		dc.SetFontFace(face(regular, 24))
		dc.SetColor(ink)
		dc.DrawString("Cupom: "+c.Coupon, textLeft, y)
	}

	drawCTA(dc)

	dc.SetFontFace(face(regular, 18))
	dc.SetColor(color.White)
	dc.DrawStringAnchored("fareja.com.br", CardWidth-cardMargin, CardHeight-12, 1, 0)

	var buf bytes.Buffer
	if err := dc.EncodePNG(&buf); err != nil {
		return nil, fmt.Errorf("encode card: %w", err)
	}
	return buf.Bytes(), nil
}

func drawPhoto(dc *gg.Context, img image.Image) {
	x, y := cardMargin+40, (CardHeight-photoBox)/2
	if img == nil {
		dc.SetColor(color.RGBA{0xf3, 0xf4, 0xf6, 0xff})
		dc.DrawRoundedRectangle(x, y, photoBox, photoBox, 16)
		dc.Fill()
		dc.SetFontFace(face(bold, 36))
		dc.SetColor(orangeLight)
		dc.DrawStringAnchored("Produto", x+photoBox/2, y+photoBox/2, 0.5, 0.5)
		return
	}
	fitted := imaging.Fit(img, imaging.Size{W: int(photoBox), H: int(photoBox)}, imaging.Contain)
	dc.DrawImage(fitted, int(x), int(y))
}

// drawBadge draws label in a pill. With alignRight, x is the right edge.
func drawBadge(dc *gg.Context, label string, x, y float64, bg color.Color, alignRight bool) {
	w, h := dc.MeasureString(label)
	padX, padY := 16.0, 10.0
	if alignRight {
		x -= w + 2*padX
	}
	dc.SetColor(bg)
	dc.DrawRoundedRectangle(x, y, w+2*padX, h+2*padY, (h+2*padY)/2)
	dc.Fill()
	dc.SetColor(color.White)
	dc.DrawStringAnchored(label, x+padX+w/2, y+padY+h/2, 0.5, 0.35)
}

func drawCTA(dc *gg.Context) {
	const w, h = 300.0, 64.0
	x, y := textLeft, CardHeight-cardMargin-40-h
	dc.SetColor(orangeDark)
	dc.DrawRoundedRectangle(x, y, w, h, 12)
	dc.Fill()
	dc.SetFontFace(face(bold, 28))
	dc.SetColor(color.White)
	dc.DrawStringAnchored("VER OFERTA", x+w/2, y+h/2, 0.5, 0.35)
}

func ellipsize(dc *gg.Context, s string, max float64) string {
	r := []rune(s)
	for len(r) > 0 {
		candidate := string(r) + "..."
		if w, _ := dc.MeasureString(candidate); w <= max {
			return candidate
		}
		r = r[:len(r)-1]
	}
	return "..."
}
