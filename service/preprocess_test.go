package service

import (
	"bytes"
	"errors"
	"image"
	"image/color"
	"image/gif"
	"image/jpeg"
	"image/png"
	"math"
	"os"
	"path/filepath"
	"testing"
)

func solidNRGBA(w, h int, c color.NRGBA) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := range h {
		for x := range w {
			img.SetNRGBA(x, y, c)
		}
	}
	return img
}

func gradientRGBA(w, h int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := range h {
		for x := range w {
			img.Set(x, y, color.RGBA{uint8(x * 255 / w), uint8(y * 255 / h), 128, 255})
		}
	}
	return img
}

func encodePNG(t *testing.T, img image.Image) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func encodeJPEG(t *testing.T, img image.Image) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: 90}); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func readFixture(t *testing.T, name string) []byte {
	t.Helper()
	data, err := os.ReadFile(filepath.Join("testdata", name))
	if err != nil {
		t.Fatal(err)
	}
	return data
}

func checkTensor(t *testing.T, tensor *Tensor) {
	t.Helper()
	want := [4]int64{1, ImageSize, ImageSize, 3}
	if tensor.Shape != want {
		t.Fatalf("expected shape %v, got %v", want, tensor.Shape)
	}
	if len(tensor.Data) != ImageSize*ImageSize*3 {
		t.Fatalf("expected %d values, got %d", ImageSize*ImageSize*3, len(tensor.Data))
	}
	for i, v := range tensor.Data {
		if v < 0 || v > 1 || math.IsNaN(float64(v)) {
			t.Fatalf("value %d out of range: %v", i, v)
		}
	}
}

func TestPreprocessFormatsAndModes(t *testing.T) {
	gray := image.NewGray(image.Rect(0, 0, 50, 80))
	for i := range gray.Pix {
		gray.Pix[i] = uint8(i % 256)
	}
	paletted := image.NewPaletted(image.Rect(0, 0, 31, 17), color.Palette{color.Black, color.White})

	var gifBuf bytes.Buffer
	if err := gif.Encode(&gifBuf, paletted, nil); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name string
		data []byte
	}{
		{"png rgba large", encodePNG(t, gradientRGBA(640, 480))},
		{"png rgba small", encodePNG(t, gradientRGBA(10, 3))},
		{"png exact size", encodePNG(t, gradientRGBA(ImageSize, ImageSize))},
		{"png gray", encodePNG(t, gray)},
		{"png translucent", encodePNG(t, solidNRGBA(300, 200, color.NRGBA{200, 100, 50, 60}))},
		{"jpeg", encodeJPEG(t, gradientRGBA(333, 555))},
		{"jpeg gray", encodeJPEG(t, gray)},
		{"gif", gifBuf.Bytes()},
		{"webp lossless", readFixture(t, "gopher.lossless.webp")},
		{"webp lossy", readFixture(t, "video.lossy.webp")},
		{"avif", readFixture(t, "sample.avif")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tensor, err := Preprocess(tt.data)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			checkTensor(t, tensor)
		})
	}
}

func TestPreprocessChannelLastScaling(t *testing.T) {
	tensor, err := Preprocess(encodePNG(t, solidNRGBA(100, 60, color.NRGBA{255, 0, 51, 255})))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	const eps = 1.0 / 255
	for _, i := range []int{0, len(tensor.Data)/2 - 1, len(tensor.Data) - 3} {
		px := tensor.Data[i-i%3 : i-i%3+3]
		if math.Abs(float64(px[0])-1) > eps || math.Abs(float64(px[1])) > eps || math.Abs(float64(px[2])-0.2) > eps {
			t.Errorf("pixel at %d = %v, want ~[1 0 0.2]", i, px)
		}
	}
}

func TestPreprocessDropsAlpha(t *testing.T) {
	tensor, err := Preprocess(encodePNG(t, solidNRGBA(8, 8, color.NRGBA{0, 255, 0, 0})))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if g := tensor.Data[1]; math.Abs(float64(g)-1) > 1.0/255 {
		t.Errorf("expected transparent green to stay green, got %v", tensor.Data[:3])
	}
}

func TestPreprocessInvalid(t *testing.T) {
	full := encodePNG(t, gradientRGBA(64, 64))
	tests := []struct {
		name string
		data []byte
	}{
		{"empty", nil},
		{"text", []byte("definitely not an image\n")},
		{"truncated png", full[:len(full)/2]},
		{"png header only", full[:16]},
		{"truncated webp", readFixture(t, "video.lossy.webp")[:64]},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Preprocess(tt.data)
			var invalid *InvalidImageError
			if !errors.As(err, &invalid) {
				t.Fatalf("expected *InvalidImageError, got %T: %v", err, err)
			}
			if invalid.Err == nil {
				t.Error("expected underlying cause")
			}
		})
	}
}
