package qrscan_test

import (
	"testing"

	"github.com/qrscan/qrscan"

	_ "github.com/qrscan/qrscan/qrcode"
)

func TestBlackBoxQRCode1(t *testing.T) {
	runBlackBoxTest(t, blackboxTestCase{
		dir:    "qrcode-1",
		format: qrscan.FormatQRCode,
		tests: []blackboxTestRotation{
			rot(0, 17, 17),
			rot(90, 14, 14),
			rot(180, 17, 17),
			rot(270, 14, 14),
		},
	})
}

func TestBlackBoxQRCode2(t *testing.T) {
	runBlackBoxTest(t, blackboxTestCase{
		dir:    "qrcode-2",
		format: qrscan.FormatQRCode,
		tests: []blackboxTestRotation{
			rot(0, 32, 32),
			rot(90, 30, 30),
			rot(180, 31, 31),
			rot(270, 31, 31),
		},
	})
}

func TestBlackBoxQRCode3(t *testing.T) {
	runBlackBoxTest(t, blackboxTestCase{
		dir:    "qrcode-3",
		format: qrscan.FormatQRCode,
		tests: []blackboxTestRotation{
			rot(0, 38, 38),
			rot(90, 39, 39),
			rot(180, 36, 36),
			rot(270, 39, 39),
		},
	})
}

func TestBlackBoxQRCode4(t *testing.T) {
	runBlackBoxTest(t, blackboxTestCase{
		dir:    "qrcode-4",
		format: qrscan.FormatQRCode,
		tests: []blackboxTestRotation{
			rot(0, 36, 36),
			rot(90, 35, 35),
			rot(180, 35, 35),
			rot(270, 35, 35),
		},
	})
}

func TestBlackBoxQRCode5(t *testing.T) {
	runBlackBoxTest(t, blackboxTestCase{
		dir:    "qrcode-5",
		format: qrscan.FormatQRCode,
		tests: []blackboxTestRotation{
			rot(0, 19, 19),
			rot(90, 19, 19),
			rot(180, 19, 19),
			rot(270, 19, 19),
		},
	})
}

func TestBlackBoxQRCode6(t *testing.T) {
	runBlackBoxTest(t, blackboxTestCase{
		dir:    "qrcode-6",
		format: qrscan.FormatQRCode,
		tests: []blackboxTestRotation{
			rot(0, 15, 15),
			rot(90, 14, 14),
			rot(180, 13, 13),
			rot(270, 14, 14),
		},
	})
}
