//go:build rtlsdr

package main

import "github.com/wbscan/wbscan/internal/radio/rtl"

func init() {
	drivers = append(drivers, rtl.New())
}
