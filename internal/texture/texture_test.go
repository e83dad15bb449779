package texture

import (
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/HugoSmits86/nativewebp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/image/bmp"
)

func checker() *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, 4, 4))
	for y := 0; y < 4; y++ {
		for x := 0; x < 4; x++ {
			c := color.NRGBA{255, 255, 255, 255}
			if (x+y)%2 == 1 {
				c = color.NRGBA{255, 0, 0, 255}
			}
			img.SetNRGBA(x, y, c)
		}
	}
	return img
}

func writeFile(t *testing.T, name string, encode func(f *os.File) error) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	f, err := os.Create(path)
	require.NoError(t, err)
	require.NoError(t, encode(f))
	require.NoError(t, f.Close())
	return path
}

func TestLoadTextureFormats(t *testing.T) {
	src := checker()
	paths := map[string]string{
		"png": writeFile(t, "tex.png", func(f *os.File) error { return png.Encode(f, src) }),
		"bmp": writeFile(t, "tex.BMP", func(f *os.File) error { return bmp.Encode(f, src) }),
		"webp": writeFile(t, "tex.webp", func(f *os.File) error {
			return nativewebp.Encode(f, src, nil)
		}),
	}
	for format, path := range paths {
		img, err := LoadTexture(path)
		require.NoError(t, err, format)
		assert.Equal(t, image.Rect(0, 0, 4, 4), img.Bounds(), format)
		assert.Equal(t, color.NRGBA{255, 0, 0, 255}, img.NRGBAAt(1, 0), format)
		assert.Equal(t, color.NRGBA{255, 255, 255, 255}, img.NRGBAAt(1, 1), format)
	}
}

func TestLoadTextureErrors(t *testing.T) {
	_, err := LoadTexture("texture.psd")
	assert.ErrorContains(t, err, "unknown extension")

	_, err = LoadTexture(filepath.Join(t.TempDir(), "missing.png"))
	assert.ErrorIs(t, err, os.ErrNotExist)

	bad := writeFile(t, "bad.png", func(f *os.File) error {
		_, err := f.WriteString("not a png")
		return err
	})
	_, err = LoadTexture(bad)
	assert.ErrorContains(t, err, "texture: decode")
}

func TestSupported(t *testing.T) {
	for _, p := range []string{"a.png", "a.JPG", "a.jpeg", "a.bmp", "a.webp", "a.tga"} {
		assert.True(t, Supported(p), p)
	}
	assert.False(t, Supported("a.ozj"))
}

func TestToNRGBAShiftsOrigin(t *testing.T) {
	src := image.NewRGBA(image.Rect(2, 2, 4, 4))
	src.Set(2, 2, color.RGBA{0, 0, 255, 255})
	dst := toNRGBA(src)
	assert.Equal(t, image.Rect(0, 0, 2, 2), dst.Bounds())
	assert.Equal(t, color.NRGBA{0, 0, 255, 255}, dst.NRGBAAt(0, 0))
}

func TestCacheLoadsOnce(t *testing.T) {
	path := writeFile(t, "tex.png", func(f *os.File) error { return png.Encode(f, checker()) })
	c := NewCache()
	calls := 0
	c.load = func(p string) (*image.NRGBA, error) {
		calls++
		return LoadTexture(p)
	}

	a := c.Resolve(path)
	b := c.Resolve(path)
	require.NotNil(t, a)
	assert.Same(t, a, b)
	assert.Equal(t, 1, calls)

	assert.Nil(t, c.Resolve(filepath.Join(t.TempDir(), "missing.png")))
	_, err := c.Load(filepath.Join(t.TempDir(), "missing.png"))
	assert.Error(t, err)
	assert.Nil(t, c.Resolve(""))
	assert.Equal(t, 3, c.Len())
}
