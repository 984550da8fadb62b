// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package logging

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
)

const (
	// ParticipantKey is the entry field holding the participant name.
	ParticipantKey = "participant"
	// IndexKey is the entry field holding the participant start index.
	IndexKey = "index"
	// RunKey is the entry field holding the coordinator run ID.
	RunKey = "run"

	// DefaultName labels entries that do not belong to a participant.
	DefaultName = "observer"

	nameWidth     = 14
	severityWidth = 8
	elapsedWidth  = 8
)

// Formatter renders entries as `[SEVERITY] elapsed [name]<tabs>message`.
// Every section is optional.
type Formatter struct {
	ShowSeverity    bool
	ShowElapsed     bool
	ShowParticipant bool
	TabOffset       bool

	// Start is the reference point for elapsed time.
	Start time.Time
}

// Format implements logrus.Formatter.
func (f *Formatter) Format(entry *logrus.Entry) ([]byte, error) {
	var prefix string

	if f.ShowParticipant {
		name, _ := entry.Data[ParticipantKey].(string)
		if name == "" {
			name = DefaultName
		}
		prefix = fmt.Sprintf("%*s", nameWidth, "["+name+"]")
	}

	if f.TabOffset {
		index, _ := entry.Data[IndexKey].(int)
		if index > 0 {
			prefix += strings.Repeat("\t", index+1)
		} else {
			prefix += "\t"
		}
	}

	if f.ShowElapsed {
		elapsed := entry.Time.Sub(f.Start).Seconds()
		elapsed = float64(int64(elapsed*10000)) / 10000
		prefix = fmt.Sprintf("%-*s %s", elapsedWidth, strconv.FormatFloat(elapsed, 'f', -1, 64), prefix)
	}

	if f.ShowSeverity {
		prefix = fmt.Sprintf("%-*s", severityWidth, "["+severity(entry.Level)+"]") + prefix
	}

	var b bytes.Buffer
	b.WriteString(prefix)
	b.WriteString(entry.Message)
	if err, ok := entry.Data[logrus.ErrorKey]; ok {
		fmt.Fprintf(&b, " (%v)", err)
	}
	b.WriteByte('\n')
	return b.Bytes(), nil
}

func severity(level logrus.Level) string {
	switch level {
	case logrus.WarnLevel:
		return "WARN"
	case logrus.PanicLevel, logrus.FatalLevel:
		return "FATAL"
	default:
		return strings.ToUpper(level.String())
	}
}
