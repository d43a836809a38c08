// Package cli wires the process-wide apex/log handler: colorized
// console output plus a rotating file handler that reopens its target
// on SIGHUP, the same split the daemon's terminal and its logfile
// expect from a long-running foreground or systemd-managed process.
package cli

import (
	"github.com/NYTimes/logrotate"
	"github.com/apex/log"
	alog "github.com/apex/log/handlers/cli"
	"github.com/apex/log/handlers/multi"
	"github.com/apex/log/handlers/text"
)

// Setup builds a *log.Logger with a console+file handler pair and
// returns it plus a closer for the rotating file handle; it does not
// change the apex/log default handler, which is the caller's job.
// logFile may be empty, in which case only the console handler is used.
func Setup(logFile string, level log.Level) (*log.Logger, func() error, error) {
	logger := &log.Logger{
		Level: level,
	}

	if logFile == "" {
		logger.Handler = alog.Default
		return logger, func() error { return nil }, nil
	}

	file, err := logrotate.NewFile(logFile)
	if err != nil {
		return nil, nil, err
	}

	logger.Handler = multi.New(alog.Default, text.New(file))
	return logger, file.Close, nil
}

// Default is the console-only handler, the same one Setup uses when no
// log file is configured.
var Default = alog.Default
