package cmd

import (
	"encoding/json"
	"fmt"
	"image"
	"log/slog"
	"os"

	"github.com/disintegration/imaging"
	"github.com/spf13/cobra"

	"github.com/qrscan/qrscan"
	"github.com/qrscan/qrscan/preprocess"
	"github.com/qrscan/qrscan/strategy"
)

var scanJSON bool

var scanCmd = &cobra.Command{
	Use:   "scan <image-file>...",
	Short: "Detect and decode QR codes in one or more image files",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := GetConfig()
		strategyCfg := cfg.Detect.StrategyConfig()
		if cmd.Flags().Changed("max-dimension") {
			strategyCfg.MaxDimension, _ = cmd.Flags().GetInt("max-dimension")
		}

		for _, path := range args {
			payloads, tel, err := scanFile(path, strategyCfg)
			if err != nil {
				slog.Error("scan failed", "file", path, "error", err)
				continue
			}
			if scanJSON {
				if err := printJSON(path, payloads, tel); err != nil {
					return err
				}
				continue
			}
			printText(path, payloads, tel)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(scanCmd)
	scanCmd.Flags().BoolVar(&scanJSON, "json", false, "print results as JSON")
	scanCmd.Flags().Int("max-dimension", 0, "downscale images larger than this before detecting")
}

// scanFile loads an image file and runs it through the strategy controller.
// The file is decoded with imaging.Open and re-packed as an RGBA pixel
// buffer, exercising the same raw-buffer ingestion path (preprocess.New)
// that a non-file caller (e.g. a camera frame) would use.
func scanFile(path string, cfg strategy.Config) ([]qrscan.Payload, strategy.Telemetry, error) {
	img, err := imaging.Open(path)
	if err != nil {
		return nil, strategy.Telemetry{}, fmt.Errorf("open %s: %w", path, err)
	}

	pixels, w, h := toRGBA(img)
	payloads, tel, err := strategy.Detect(pixels, w, h, preprocess.FormatRGBA32, cfg)
	if err != nil {
		return nil, tel, err
	}
	return payloads, tel, nil
}

func toRGBA(img image.Image) ([]byte, int, int) {
	bounds := img.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	rgba := imaging.Clone(img) // normalizes to *image.NRGBA
	pixels := make([]byte, w*h*4)
	for y := 0; y < h; y++ {
		srcOff := y * rgba.Stride
		copy(pixels[y*w*4:(y+1)*w*4], rgba.Pix[srcOff:srcOff+w*4])
	}
	return pixels, w, h
}

func printText(path string, payloads []qrscan.Payload, tel strategy.Telemetry) {
	if len(payloads) == 0 {
		fmt.Printf("%s: no QR codes found (profile=%s attempts=%d)\n", path, tel.Profile, tel.AttemptsUsed)
		return
	}
	for i, p := range payloads {
		fmt.Printf("%s[%d]: %s (version=%d ec=%s errors=%d erasures=%d)\n",
			path, i, p.Text, p.Version, p.ECLevel, p.ErrorsCorrected, p.ErasuresCorrected)
	}
}

func printJSON(path string, payloads []qrscan.Payload, tel strategy.Telemetry) error {
	out := struct {
		File      string             `json:"file"`
		Payloads  []qrscan.Payload   `json:"payloads"`
		Telemetry strategy.Telemetry `json:"telemetry"`
	}{File: path, Payloads: payloads, Telemetry: tel}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}
