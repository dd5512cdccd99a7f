package logging

import (
	"bytes"

	log "github.com/sirupsen/logrus"
)

// CommandLineFormatter writes the bare message, for output meant to be read by a person at a terminal.
// Warnings and errors are prefixed with their level.
type CommandLineFormatter struct{}

func (f *CommandLineFormatter) Format(entry *log.Entry) ([]byte, error) {
	var b bytes.Buffer
	if entry.Level <= log.WarnLevel {
		b.WriteString(entry.Level.String())
		b.WriteString(": ")
	}
	b.WriteString(entry.Message)
	b.WriteByte('\n')
	return b.Bytes(), nil
}
