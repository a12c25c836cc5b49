package artwork

import (
	"context"
	"errors"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"net/http"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/EdlinOrg/prominentcolor"
	"github.com/charmbracelet/lipgloss"
	"github.com/lucasb-eyer/go-colorful"
	"github.com/nfnt/resize"

	"karolbroda.com/lyricsync/internal/track"
)

const fetchTimeout = 5 * time.Second

// Palette holds the lyric colors derived from album art.
type Palette struct {
	// Sung is the color of highlighted characters.
	Sung string
	// Unsung is the color of characters not reached yet.
	Unsung string
	// Translation colors the translated line under the original.
	Translation string
	Dim         string
	// Gradient runs from Sung to Translation for the header title.
	Gradient []string
}

func DefaultPalette() *Palette {
	return newPalette(mustHex("#8BA4E8"), mustHex("#E8A4C8"))
}

// Fetch loads artwork from a file:// url, a plain path or http(s).
func Fetch(ctx context.Context, artworkURL string) (image.Image, error) {
	if artworkURL == "" {
		return nil, errors.New("empty artwork url")
	}

	if path, ok := track.LocalPath(artworkURL); ok {
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("failed to open artwork file: %w", err)
		}
		defer f.Close()

		img, _, err := image.Decode(f)
		if err != nil {
			return nil, fmt.Errorf("failed to decode artwork image: %w", err)
		}
		return img, nil
	}

	ctx, cancel := context.WithTimeout(ctx, fetchTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, artworkURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch artwork: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("artwork fetch returned status %d", resp.StatusCode)
	}

	img, _, err := image.Decode(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to decode artwork: %w", err)
	}
	return img, nil
}

// ExtractPalette picks the two most vivid mid-bright colors of the image.
func ExtractPalette(img image.Image) *Palette {
	if img == nil {
		return DefaultPalette()
	}

	// prominentcolor is slow on full size covers
	small := resize.Thumbnail(prominentcolor.DefaultSize, prominentcolor.DefaultSize, img, resize.Bilinear)

	items, err := prominentcolor.KmeansWithAll(5, small, prominentcolor.ArgumentDefault, prominentcolor.DefaultSize, nil)
	if err != nil || len(items) < 2 {
		return DefaultPalette()
	}

	type scored struct {
		color colorful.Color
		score float64
	}

	candidates := make([]scored, 0, len(items))
	for _, item := range items {
		c := colorful.Color{
			R: float64(item.Color.R) / 255,
			G: float64(item.Color.G) / 255,
			B: float64(item.Color.B) / 255,
		}
		_, s, v := c.Hsv()
		candidates = append(candidates, scored{color: c, score: s * (1 - abs(v-0.6))})
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].score > candidates[j].score
	})

	primary := readable(candidates[0].color)
	secondary := readable(candidates[1].color)

	// too similar colors make sung and translated text indistinguishable
	if primary.DistanceLab(secondary) < 0.15 {
		h, c, l := primary.Hcl()
		secondary = colorful.Hcl(h+120, c, l).Clamped()
	}

	return newPalette(primary, secondary)
}

func newPalette(sung colorful.Color, translation colorful.Color) *Palette {
	dim := colorful.Color{R: 0.38, G: 0.45, B: 0.64}

	gradient := make([]string, 20)
	for i := range gradient {
		t := float64(i) / float64(len(gradient)-1)
		gradient[i] = sung.BlendHcl(translation, t).Clamped().Hex()
	}

	return &Palette{
		Sung:        sung.Hex(),
		Unsung:      sung.BlendLab(dim, 0.7).Clamped().Hex(),
		Translation: translation.Hex(),
		Dim:         dim.Hex(),
		Gradient:    gradient,
	}
}

// readable lifts dark colors and tames near-white ones so text stays legible
// on a dark terminal.
func readable(c colorful.Color) colorful.Color {
	h, s, l := c.Hsl()
	if l < 0.45 {
		l = 0.45 + l/4
	}
	if l > 0.85 {
		l = 0.8
	}
	if s > 0.9 {
		s = 0.9
	}
	return colorful.Hsl(h, s, l).Clamped()
}

// RenderHalfBlockArt draws the image with upper half blocks, two pixel rows
// per terminal row.
func RenderHalfBlockArt(img image.Image, width int, height int) []string {
	if img == nil || width < 4 || height < 2 {
		return nil
	}

	resized := resize.Resize(uint(width), uint(height*2), img, resize.Lanczos3)
	bounds := resized.Bounds()
	lines := make([]string, height)

	for y := 0; y < height; y++ {
		var line strings.Builder
		for x := 0; x < bounds.Dx(); x++ {
			top, topOK := colorful.MakeColor(resized.At(bounds.Min.X+x, bounds.Min.Y+y*2))
			bottom, bottomOK := top, topOK
			if y*2+1 < bounds.Dy() {
				bottom, bottomOK = colorful.MakeColor(resized.At(bounds.Min.X+x, bounds.Min.Y+y*2+1))
			}

			if !topOK && !bottomOK {
				line.WriteString(" ")
				continue
			}

			style := lipgloss.NewStyle().
				Foreground(lipgloss.Color(top.Hex())).
				Background(lipgloss.Color(bottom.Hex()))
			line.WriteString(style.Render("▀"))
		}
		lines[y] = line.String()
	}

	return lines
}

func mustHex(hex string) colorful.Color {
	c, err := colorful.Hex(hex)
	if err != nil {
		panic(err)
	}
	return c
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
