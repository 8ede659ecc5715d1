package preview

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"strings"
	"testing"
	"time"

	"github.com/farejai/fareja/internal/models"
	"github.com/farejai/fareja/internal/scraper"
)

func strPtr(s string) *string { return &s }

func promo() *models.Promotion {
	return &models.Promotion{
		ShortID:   "abc123",
		Title:     "Fone Bluetooth JBL",
		Price:     "R$ 75,00",
		PriceFrom: strPtr("R$ 100,00"),
		StoreName: "Amazon",
		ImageURL:  "https://m.media-amazon.com/images/I/x.jpg",
		CreatedAt: time.Now(),
	}
}

func TestTitle(t *testing.T) {
	if got := Title("Fone JBL", "R$ 99,90"); got != "Fone JBL - R$ 99,90" {
		t.Errorf("short title = %q", got)
	}

	long := strings.Repeat("á", 50)
	got := Title(long, "R$ 10,00")
	want := strings.Repeat("á", 45) + "... - R$ 10,00"
	if got != want {
		t.Errorf("long title = %q, want %q", got, want)
	}

	exact := strings.Repeat("x", 45)
	if got := Title(exact, "R$ 1"); got != exact+" - R$ 1" {
		t.Errorf("45-rune title truncated: %q", got)
	}
}

func TestDescription(t *testing.T) {
	if got := Description(25, true); got != "🔥25% OFF! Corre que acaba rápido!" {
		t.Errorf("got %q", got)
	}
	if got := Description(0, false); got != "🔥Corre que acaba rápido!" {
		t.Errorf("got %q", got)
	}
}

func TestMetadata(t *testing.T) {
	m := Metadata(promo(), "http://fareja.test/")

	if m.Title != "Fone Bluetooth JBL - R$ 75,00" {
		t.Errorf("Title = %q", m.Title)
	}
	if !m.HasDiscount || m.Discount != 25 {
		t.Errorf("discount = %d, %v", m.Discount, m.HasDiscount)
	}
	if m.URL != "https://fareja.test/p/abc123" {
		t.Errorf("URL = %q", m.URL)
	}
	if m.Image != "https://m.media-amazon.com/images/I/x.jpg" || m.ImageType != "image/jpeg" {
		t.Errorf("Image = %q (%s)", m.Image, m.ImageType)
	}
	if m.PriceAmount != "75.00" || m.Currency != "BRL" {
		t.Errorf("price = %q %q", m.PriceAmount, m.Currency)
	}
	if m.TwitterCard != "summary_large_image" {
		t.Errorf("TwitterCard = %q", m.TwitterCard)
	}
}

func TestMetadata_NoDiscount(t *testing.T) {
	p := promo()
	p.PriceFrom = nil
	m := Metadata(p, "https://fareja.test")
	if m.HasDiscount {
		t.Error("expected no discount without price_from")
	}
	if m.Description != "🔥Corre que acaba rápido!" {
		t.Errorf("Description = %q", m.Description)
	}
}

func TestImageURL(t *testing.T) {
	base := "https://fareja.test"
	tests := []struct {
		name, ref, want string
	}{
		{"placeholder", scraper.Placeholder, base + "/api/og-image/abc123"},
		{"empty", "", base + "/api/og-image/abc123"},
		{"insecure", "http://cdn.test/a.png", "https://cdn.test/a.png"},
		{"localhost", "http://localhost:3000/images/products/abc123.jpg", base + "/images/products/abc123.jpg"},
		{"relative", "/images/products/abc123.jpg", base + "/images/products/abc123.jpg"},
		{"bare filename", "abc123.jpg", base + "/images/products/abc123.jpg"},
		{"protocol relative", "//cdn.test/a.jpg", "https://cdn.test/a.jpg"},
		{
			"cloudinary",
			"https://res.cloudinary.com/demo/image/upload/v1/fareja/produtos/abc123.jpg",
			"https://res.cloudinary.com/demo/image/upload/c_pad,w_1200,h_630,b_white,g_center,q_auto:good,f_jpg/v1/fareja/produtos/abc123.jpg",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, _ := ImageURL(tt.ref, "abc123", base)
			if got != tt.want {
				t.Errorf("ImageURL(%q) = %q, want %q", tt.ref, got, tt.want)
			}
		})
	}
}

func TestPreferCard(t *testing.T) {
	m := Metadata(promo(), "https://fareja.test")
	m.PreferCard("https://fareja.test", "abc123")
	if m.Image != "https://fareja.test/api/og-image/abc123" || m.ImageType != "image/png" {
		t.Errorf("Image = %q (%s)", m.Image, m.ImageType)
	}
}

func decodeCard(t *testing.T, data []byte) image.Image {
	t.Helper()
	img, err := png.Decode(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("decode card: %v", err)
	}
	if b := img.Bounds(); b.Dx() != CardWidth || b.Dy() != CardHeight {
		t.Fatalf("card size = %dx%d, want %dx%d", b.Dx(), b.Dy(), CardWidth, CardHeight)
	}
	return img
}

func TestRenderCard(t *testing.T) {
	data, err := RenderCard(PromotionCard(promo(), nil))
	if err != nil {
		t.Fatal(err)
	}
	img := decodeCard(t, data)

	// Top-left corner sits on the gradient, outside the white card.
	r, g, b, _ := img.At(5, 5).RGBA()
	if r>>8 < 0xe0 || g>>8 > 0xc0 || b>>8 > 0x80 {
		t.Errorf("corner = %d,%d,%d, want orange", r>>8, g>>8, b>>8)
	}
}

func TestRenderCard_WithPhotoAndLongTitle(t *testing.T) {
	photo := image.NewRGBA(image.Rect(0, 0, 300, 200))
	for y := 0; y < 200; y++ {
		for x := 0; x < 300; x++ {
			photo.Set(x, y, color.RGBA{0, 0, 255, 255})
		}
	}
	c := PromotionCard(promo(), photo)
	c.Title = strings.Repeat("Notebook Gamer com placa de vídeo dedicada ", 6)
	c.Coupon = "FAREJA10"

	data, err := RenderCard(c)
	if err != nil {
		t.Fatal(err)
	}
	img := decodeCard(t, data)

	// Center of the photo box is the blue product photo.
	r, g, b, _ := img.At(80+235, 315).RGBA()
	if b>>8 < 0xf0 || r>>8 > 0x10 || g>>8 > 0x10 {
		t.Errorf("photo center = %d,%d,%d, want blue", r>>8, g>>8, b>>8)
	}
}

func TestRenderCard_Missing(t *testing.T) {
	data, err := RenderCard(MissingCard())
	if err != nil {
		t.Fatal(err)
	}
	decodeCard(t, data)
}
