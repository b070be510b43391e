//go:build !with_cv

package main

import "github.com/mediacore/playbackcore/contracts"

// displaySink returns nil without the with_cv build tag: the video
// output worker already treats a nil Display as "no sink, run headless"
// (see vout.Worker's manageSink and New), which lets this demo still
// decode and print stats on a build with no gocv/highgui available.
func displaySink(title string) contracts.DisplaySink {
	return nil
}
