// Command qrscan detects and decodes QR codes from image files, either as a
// one-shot CLI invocation or as an HTTP service (see the "serve" subcommand).
package main

import "github.com/qrscan/qrscan/cmd/qrscan/cmd"

func main() {
	cmd.Execute()
}
