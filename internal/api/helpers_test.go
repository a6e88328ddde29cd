package api

import (
	"fmt"

	"github.com/banshee-data/marbles/internal/monitoring"
)

func captureLogs(lines *[]string) func() {
	old := monitoring.Logf
	monitoring.SetLogger(func(format string, v ...interface{}) {
		*lines = append(*lines, fmt.Sprintf(format, v...))
	})
	return func() { monitoring.Logf = old }
}
