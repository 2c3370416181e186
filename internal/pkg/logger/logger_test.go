package logger

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestCreateLogger(t *testing.T) {
	l, err := CreateLogger("debug")
	require.NoError(t, err)
	assert.True(t, l.Core().Enabled(zap.DebugLevel))

	l, err = CreateLogger("loud")
	assert.Error(t, err)
	require.NotNil(t, l)
	assert.False(t, l.Core().Enabled(zap.DebugLevel))
	assert.True(t, l.Core().Enabled(zap.InfoLevel))
}

func TestWithLogging(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	l := &Logger{Logger: zap.New(core)}

	h := l.WithLogging()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
		w.Write([]byte("short and stout"))
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/cards", nil))

	require.Equal(t, 1, logs.Len())
	entry := logs.All()[0]
	assert.Equal(t, "served", entry.Message)
	ctx := entry.ContextMap()
	assert.Equal(t, "/api/cards", ctx["uri"])
	assert.EqualValues(t, http.StatusTeapot, ctx["status"])
	assert.EqualValues(t, len("short and stout"), ctx["size"])
}
