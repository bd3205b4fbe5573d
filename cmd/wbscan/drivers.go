package main

import (
	"github.com/wbscan/wbscan/internal/radio"
	"github.com/wbscan/wbscan/internal/radio/mock"
)

// drivers accumulates every radio.Driver compiled into this binary. The
// mock backend is always present; real hardware backends register
// themselves from build-tag-gated files (drivers_rtl.go, drivers_hackrf.go),
// mirroring internal/sdr/driver/runtime_linux.go's platform-gated-file
// idiom in the teacher repo.
var drivers = []radio.Driver{
	mock.New(mock.Config{Name: "mock"}),
}
