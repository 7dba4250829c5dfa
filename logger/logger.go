/*
 * MIT License
 *
 * Copyright (c) 2020 Nicolas JUHEL
 *
 * Permission is hereby granted, free of charge, to any person obtaining a copy
 * of this software and associated documentation files (the "Software"), to deal
 * in the Software without restriction, including without limitation the rights
 * to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
 * copies of the Software, and to permit persons to whom the Software is
 * furnished to do so, subject to the following conditions:
 *
 * The above copyright notice and this permission notice shall be included in all
 * copies or substantial portions of the Software.
 *
 * THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
 * IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
 * FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
 * AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
 * LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
 * OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
 * SOFTWARE.
 *
 *
 */

// Package logger configures the process-wide logrus.Logger used by the famd
// daemon: a colorized text formatter on a terminal, plain text otherwise,
// with a verbose toggle (wired to SIGUSR2 by the server loop and to
// GAM_DEBUG at startup).
package logger

import (
	"io"
	"os"
	"sync/atomic"

	"github.com/mattn/go-colorable"
	"github.com/mattn/go-isatty"
	"github.com/sirupsen/logrus"
)

var verbose int32

// New builds a logrus.Logger writing to stderr, colorized when stderr is a
// terminal (mirrors nabbar-golib/logger's HookStandard color selection).
func New() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(output())
	l.SetFormatter(defaultFormatter())
	l.SetLevel(logrus.InfoLevel)
	return l
}

func output() io.Writer {
	if isatty.IsTerminal(os.Stderr.Fd()) {
		return colorable.NewColorableStderr()
	}
	return os.Stderr
}

func defaultFormatter() *logrus.TextFormatter {
	return &logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: "2006-01-02T15:04:05.000Z07:00",
	}
}

// SetVerbose toggles debug-level logging process-wide. The server loop
// calls this from its SIGUSR2 handler (spec §4.9); famd's startup calls
// it once with the resolved GAM_DEBUG/--debug setting.
func SetVerbose(l *logrus.Logger, on bool) {
	if on {
		atomic.StoreInt32(&verbose, 1)
		l.SetLevel(logrus.DebugLevel)
	} else {
		atomic.StoreInt32(&verbose, 0)
		l.SetLevel(logrus.InfoLevel)
	}
}

// Verbose reports the last value passed to SetVerbose.
func Verbose() bool {
	return atomic.LoadInt32(&verbose) != 0
}

// ToggleVerbose flips the current verbosity and returns the new state;
// used directly by the SIGUSR2 handler.
func ToggleVerbose(l *logrus.Logger) bool {
	on := !Verbose()
	SetVerbose(l, on)
	return on
}
