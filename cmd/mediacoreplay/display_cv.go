//go:build with_cv

package main

import (
	"github.com/mediacore/playbackcore/adapters/gocvdisplay"
	"github.com/mediacore/playbackcore/contracts"
)

func displaySink(title string) contracts.DisplaySink {
	return gocvdisplay.New(title)
}
