package main

import (
	"fmt"
	"os"
	"runtime"
	"runtime/debug"

	"github.com/common-nighthawk/go-figure"
	"github.com/cyhsu/AgriGeoSpatial/internal/notification"
	"github.com/cyhsu/AgriGeoSpatial/internal/ui"
	bannercolor "github.com/fatih/color"
)

func printBanner() {
	bannercolor.Cyan(figure.NewFigure("AgriGeo", "isometric1", true).String())
	fmt.Println()
}

// recoverPanic reports a panic to Discord before exiting.
func recoverPanic() {
	r := recover()
	if r == nil {
		return
	}
	location := "unknown location"
	if pc, file, line, ok := runtime.Caller(3); ok {
		location = fmt.Sprintf("%s:%d in %s", file, line, runtime.FuncForPC(pc).Name())
	}
	ui.PrintError(fmt.Sprintf("panic: %v\nLocation: %s", r, location))
	err := notification.SendDiscordErrorNotification("panic", fmt.Errorf("%v\n\nLocation: %s\n\nStack trace:\n%s", r, location, debug.Stack()))
	if err != nil {
		ui.PrintError(fmt.Sprintf("failed to send notification: %s", err))
	}
	os.Exit(2)
}

func main() {
	defer recoverPanic()
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
