// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package logging

import (
	"bytes"
	"io"
	"log"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
)

func TestLogPrint(t *testing.T) {
	buf := new(bytes.Buffer)
	SetOutput(buf)
	defer SetOutput(io.Discard)
	log.Print("hello log")
	assert.Contains(t, buf.String(), "hello log")
}

func TestLogrusPrint(t *testing.T) {
	buf := new(bytes.Buffer)
	SetOutput(buf)
	defer SetOutput(io.Discard)
	logrus.Print("hello logrus")
	assert.Contains(t, buf.String(), "hello logrus")
}

func BenchmarkFormatterParticipantLine(b *testing.B) {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	logger.SetFormatter(&Formatter{ShowSeverity: true, ShowParticipant: true, TabOffset: true})
	entry := logger.WithFields(logrus.Fields{ParticipantKey: "bob", IndexKey: 1})
	for n := 0; n < b.N; n++ {
		entry.Info("=> 2")
	}
}
