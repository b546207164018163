package cibox_lib

import (
	"strings"

	wzlib_logger "github.com/infra-whizz/wzlib/logger"
)

// StdoutLogger is an io.Writer that forwards each chunk to the current
// logger at info level. Used to relay live subprocess output, the way
// package manager progress should appear in the log.
type StdoutLogger struct {
	wzlib_logger.WzLogger
}

func (sl *StdoutLogger) Write(p []byte) (n int, err error) {
	out := strings.TrimSpace(string(p))
	if out != "" {
		sl.GetLogger().Info(out)
	}
	return len(p), nil
}
