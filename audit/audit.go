// Package audit writes the append-only failure trail: a timestamped
// error log and a CSV of players skipped after their retry budget ran out.
// Neither file is read back by the collector; they exist for the operator.
package audit

import (
	"fmt"
	"os"
	"time"

	"boxout/utils"
)

const timestampLayout = "2006-01-02 15:04:05"

type ErrorLog struct {
	path string
}

func NewErrorLog(path string) *ErrorLog {
	return &ErrorLog{path: path}
}

func (l *ErrorLog) Append(playerID int, playerName, msg string) error {
	line := fmt.Sprintf("[%s] %d - %s: %s\n", time.Now().Format(timestampLayout), playerID, playerName, msg)
	return appendLine(l.path, line)
}

// System records run-level failures that are not tied to a single player,
// e.g. a setup error before collection starts.
func (l *ErrorLog) System(msg string) error {
	line := fmt.Sprintf("[%s] MAIN - SCRIPT: %s\n", time.Now().Format(timestampLayout), msg)
	return appendLine(l.path, line)
}

type SkippedLog struct {
	path string
}

func NewSkippedLog(path string) *SkippedLog {
	return &SkippedLog{path: path}
}

func (l *SkippedLog) Append(playerID int, playerName string) error {
	return appendLine(l.path, fmt.Sprintf("%d,%s\n", playerID, playerName))
}

func appendLine(path, line string) error {
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return utils.ErrorWithTrace(err)
	}
	defer f.Close()
	if _, err := f.WriteString(line); err != nil {
		return utils.ErrorWithTrace(err)
	}
	return nil
}
