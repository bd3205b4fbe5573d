//go:build hackrf

package main

import "github.com/wbscan/wbscan/internal/radio/hackrf"

func init() {
	drivers = append(drivers, hackrf.New())
}
