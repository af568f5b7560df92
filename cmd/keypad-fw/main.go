// keypad-fw is the keypad firmware: build it with
//
//	tinygo flash -target=pico -scheduler=cores ./cmd/keypad-fw
package main

import (
	"time"

	"keypad-go/platform"
	"keypad-go/services/app"
)

func main() {
	// Allow USB to enumerate before the first report goes out.
	time.Sleep(200 * time.Millisecond)

	app.New(platform.Board()).Run()
}
