package logx

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestInfofSuppressedUnderQuiet(t *testing.T) {
	var buf bytes.Buffer
	l := NewTo(LevelQuiet, &buf)
	l.Infof("hello %s", "world")
	assert.Empty(t, buf.String())
}

func TestInfofPrintsAtNormal(t *testing.T) {
	var buf bytes.Buffer
	l := NewTo(LevelNormal, &buf)
	l.Infof("hello %s", "world")
	assert.Contains(t, buf.String(), "hello world")
}

func TestVerbosefRequiresVerboseOrAbove(t *testing.T) {
	var buf bytes.Buffer
	l := NewTo(LevelNormal, &buf)
	l.Verbosef("detail")
	assert.Empty(t, buf.String())

	buf.Reset()
	l = NewTo(LevelVerbose, &buf)
	l.Verbosef("detail")
	assert.Contains(t, buf.String(), "detail")
}

func TestDebugfRequiresDebugLevel(t *testing.T) {
	var buf bytes.Buffer
	l := NewTo(LevelVerbose, &buf)
	l.Debugf("trace")
	assert.Empty(t, buf.String())

	buf.Reset()
	l = NewTo(LevelDebug, &buf)
	l.Debugf("trace")
	assert.Contains(t, buf.String(), "trace")
}

func TestWarnfAndErrorfIgnoreQuiet(t *testing.T) {
	var buf bytes.Buffer
	l := NewTo(LevelQuiet, &buf)
	l.Warnf("overflow on %s", "a.go")
	l.Errorf("schema mismatch")

	out := buf.String()
	assert.Contains(t, out, "warning: overflow on a.go")
	assert.Contains(t, out, "error: schema mismatch")
}
