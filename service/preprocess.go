package service

import (
	"bytes"
	"errors"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	"github.com/disintegration/imaging"
	_ "github.com/gen2brain/avif"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

var errEmptyImage = errors.New("empty image")

// Preprocess decodes an upload into a (1, 224, 224, 3) tensor scaled to [0,1].
func Preprocess(data []byte) (*Tensor, error) {
	img, err := DecodeImage(data)
	if err != nil {
		return nil, err
	}
	return ImageToTensor(img), nil
}

// DecodeImage fully decodes data; header sniffing alone is not enough to pass.
func DecodeImage(data []byte) (image.Image, error) {
	if len(data) == 0 {
		return nil, &InvalidImageError{Err: errEmptyImage}
	}
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, &InvalidImageError{Err: err}
	}
	if b := img.Bounds(); b.Dx() <= 0 || b.Dy() <= 0 {
		return nil, &InvalidImageError{Err: errEmptyImage}
	}
	return img, nil
}

// ImageToTensor converts img to RGB by dropping alpha, resizes it to
// ImageSize x ImageSize with bicubic resampling and lays it out channel-last.
func ImageToTensor(img image.Image) *Tensor {
	rgb := imaging.Clone(img)
	for i := 3; i < len(rgb.Pix); i += 4 {
		rgb.Pix[i] = 0xff
	}
	resized := imaging.Resize(rgb, ImageSize, ImageSize, imaging.CatmullRom)

	out := make([]float32, ImageSize*ImageSize*3)
	i := 0
	for y := range ImageSize {
		row := resized.Pix[y*resized.Stride : y*resized.Stride+ImageSize*4]
		for x := range ImageSize {
			px := row[x*4 : x*4+3]
			out[i] = float32(px[0]) / 255.0
			out[i+1] = float32(px[1]) / 255.0
			out[i+2] = float32(px[2]) / 255.0
			i += 3
		}
	}
	return &Tensor{
		Shape: [4]int64{1, ImageSize, ImageSize, 3},
		Data:  out,
	}
}
