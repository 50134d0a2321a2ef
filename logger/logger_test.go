package logger

import (
	"bytes"
	"testing"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
)

func newBufferedLogger(isDebug bool, prefix string) (*Logger, *bytes.Buffer) {
	buf := &bytes.Buffer{}
	l := GetLogger(isDebug, prefix)
	l.out = buf
	return l, buf
}

func TestPrefixing(t *testing.T) {
	color.NoColor = true

	l, buf := newBufferedLogger(false, "[stage-1] ")
	l.Infof("running")

	assert.Equal(t, "[stage-1] running\n", buf.String())
}

func TestMultilineMessagesArePrefixedPerLine(t *testing.T) {
	color.NoColor = true

	l, buf := newBufferedLogger(false, "[x] ")
	l.Errorf("first\nsecond")

	assert.Equal(t, "[x] first\n[x] second\n", buf.String())
}

func TestDebugf_OnlyInDebugMode(t *testing.T) {
	color.NoColor = true

	l, buf := newBufferedLogger(false, "")
	l.Debugf("hidden")
	assert.Empty(t, buf.String())

	l, buf = newBufferedLogger(true, "")
	l.Debugf("visible")
	assert.Equal(t, "visible\n", buf.String())
}

func TestQuietLogger_OnlyEmitsCritical(t *testing.T) {
	color.NoColor = true

	buf := &bytes.Buffer{}
	l := GetQuietLogger("[quiet] ")
	l.out = buf

	l.Successf("pass")
	l.Infof("info")
	l.Debugf("debug")
	l.Errorf("error")
	l.Plainf("plain")
	assert.Empty(t, buf.String())

	l.Criticalf("critical")
	assert.Equal(t, "[quiet] critical\n", buf.String())
}

func TestPlainln(t *testing.T) {
	color.NoColor = true

	l, buf := newBufferedLogger(false, "[prog] ")
	l.Plainln("output line")

	assert.Equal(t, "[prog] output line\n", buf.String())
}

func TestTrailingNewlineIsNotDoubled(t *testing.T) {
	color.NoColor = true

	l, buf := newBufferedLogger(false, "")
	l.Plainf("line\n")

	assert.Equal(t, "line\n", buf.String())
}
