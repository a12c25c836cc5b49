package artwork

import (
	"context"
	"image"
	"image/color"
	"image/png"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/lucasb-eyer/go-colorful"
)

func checkerboard(a, b color.Color) image.Image {
	img := image.NewRGBA(image.Rect(0, 0, 64, 64))
	for y := 0; y < 64; y++ {
		for x := 0; x < 64; x++ {
			if (x/8+y/8)%2 == 0 {
				img.Set(x, y, a)
			} else {
				img.Set(x, y, b)
			}
		}
	}
	return img
}

func TestDefaultPalette(t *testing.T) {
	p := DefaultPalette()
	if p.Sung != "#8ba4e8" {
		t.Errorf("unexpected sung color %q", p.Sung)
	}
	if len(p.Gradient) != 20 {
		t.Errorf("expected 20 gradient steps, got %d", len(p.Gradient))
	}
	if p.Unsung == p.Sung {
		t.Error("unsung text should be dimmer than sung text")
	}
}

func TestExtractPaletteNil(t *testing.T) {
	if p := ExtractPalette(nil); p.Sung != DefaultPalette().Sung {
		t.Errorf("nil image should give the default palette, got %+v", p)
	}
}

func TestExtractPaletteReadable(t *testing.T) {
	img := checkerboard(color.RGBA{R: 20, G: 0, B: 60, A: 255}, color.RGBA{R: 200, G: 30, B: 30, A: 255})

	p := ExtractPalette(img)

	for _, hex := range []string{p.Sung, p.Translation} {
		c, err := colorful.Hex(hex)
		if err != nil {
			t.Fatalf("invalid hex %q: %v", hex, err)
		}
		if _, _, l := c.Hsl(); l < 0.4 {
			t.Errorf("color %s is too dark for text (l=%.2f)", hex, l)
		}
	}
	if p.Sung == p.Translation {
		t.Errorf("sung and translation colors should differ: %s", p.Sung)
	}
}

func TestFetchLocalAndRemote(t *testing.T) {
	img := checkerboard(color.White, color.Black)
	path := filepath.Join(t.TempDir(), "cover.png")
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}
	if err := png.Encode(f, img); err != nil {
		t.Fatalf("encode failed: %v", err)
	}
	f.Close()

	got, err := Fetch(context.Background(), "file://"+path)
	if err != nil {
		t.Fatalf("local fetch failed: %v", err)
	}
	if got.Bounds().Dx() != 64 {
		t.Errorf("unexpected size %v", got.Bounds())
	}

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.ServeFile(w, r, path)
	}))
	defer server.Close()

	if _, err := Fetch(context.Background(), server.URL+"/cover.png"); err != nil {
		t.Errorf("remote fetch failed: %v", err)
	}

	if _, err := Fetch(context.Background(), ""); err == nil {
		t.Error("empty url should fail")
	}
}

func TestRenderHalfBlockArt(t *testing.T) {
	lines := RenderHalfBlockArt(checkerboard(color.White, color.Black), 8, 4)
	if len(lines) != 4 {
		t.Fatalf("expected 4 rows, got %d", len(lines))
	}
	if RenderHalfBlockArt(nil, 8, 4) != nil {
		t.Error("nil image should render nothing")
	}
}
