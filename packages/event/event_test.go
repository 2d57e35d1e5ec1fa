package event

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMulti(t *testing.T) {
	a := &Recorder{}
	b := &Recorder{}
	s := Multi(a, nil, b)

	s.Emit(Event{Kind: KindSaved, Index: 2})

	assert.Len(t, a.Events, 1)
	assert.Len(t, b.Events, 1)
	assert.Equal(t, 2, b.Events[0].Index)
}

func TestMulti_AllNil(t *testing.T) {
	s := Multi(nil, nil)
	assert.NotPanics(t, func() { s.Emit(Event{Kind: KindWarning}) })
}

func TestRecorder_OfKind(t *testing.T) {
	r := &Recorder{}
	r.Emit(Event{Kind: KindAttempt})
	r.Emit(Event{Kind: KindRetry})
	r.Emit(Event{Kind: KindAttempt})

	assert.Len(t, r.OfKind(KindAttempt), 2)
	assert.Len(t, r.OfKind(KindRetry), 1)
	assert.Empty(t, r.OfKind(KindSaved))
}

func TestWarn(t *testing.T) {
	r := &Recorder{}
	Warn(r, "header dropped", errors.New("missing colon"))

	assert.Len(t, r.Events, 1)
	assert.Equal(t, KindWarning, r.Events[0].Kind)
	assert.Equal(t, LevelWarn, r.Events[0].Level)
	assert.Equal(t, -1, r.Events[0].Index)
	assert.NotPanics(t, func() { Warn(nil, "ignored", nil) })
}

func TestLevel_String(t *testing.T) {
	assert.Equal(t, "debug", LevelDebug.String())
	assert.Equal(t, "error", LevelError.String())
	assert.Equal(t, "unknown", Level(42).String())
}
