package qrscan_test

import (
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"os"
	"testing"

	"github.com/qrscan/qrscan"
	"github.com/qrscan/qrscan/binarizer"
	"github.com/qrscan/qrscan/internal/testencode"
	"github.com/qrscan/qrscan/qrcode/decoder"

	_ "github.com/qrscan/qrscan/qrcode"
)

func loadTestImage(path string) image.Image {
	f, err := os.Open(path)
	if err != nil {
		panic("failed to open image: " + err.Error())
	}
	defer f.Close()
	img, _, err := image.Decode(f)
	if err != nil {
		panic("failed to decode image: " + err.Error())
	}
	return img
}

var decodeTests = []struct {
	name string
	path string
}{
	{"QRCode", "testdata/blackbox/qrcode-1/1.png"},
}

func BenchmarkDecode(b *testing.B) {
	for _, tc := range decodeTests {
		b.Run(tc.name, func(b *testing.B) {
			if _, err := os.Stat(tc.path); err != nil {
				b.Skipf("test image %s not found, skipping", tc.path)
			}
			img := loadTestImage(tc.path)
			opts := &qrscan.DecodeOptions{
				PossibleFormats: []qrscan.Format{qrscan.FormatQRCode},
			}
			b.ReportAllocs()
			b.ResetTimer()
			for i := 0; i < b.N; i++ {
				// Create fresh binarizer/bitmap each iteration since HybridBinarizer caches
				source := qrscan.NewImageLuminanceSource(img)
				bitmap := qrscan.NewBinaryBitmap(binarizer.NewHybrid(source))
				_, err := qrscan.Decode(bitmap, opts)
				if err != nil {
					b.Fatal(err)
				}
			}
		})
	}
}

func BenchmarkEncode(b *testing.B) {
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, err := testencode.Encode("Hello, World! This is a QR code benchmark test.", decoder.ECLevelQ, 0, -1)
		if err != nil {
			b.Fatal(err)
		}
	}
}
