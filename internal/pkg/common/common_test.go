package common

import (
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestRound(t *testing.T) {
	assert.Equal(t, 1.33, Round(1.333, 2))
	assert.Equal(t, 0.13, Round(0.125, 2))
	assert.Equal(t, -2.5, Round(-2.45, 1))
	assert.Equal(t, 400.0, Round(400, 1))
	assert.Equal(t, 360.8, Round(120.25*3, 1))
}

func TestFormatNumber(t *testing.T) {
	assert.Equal(t, "200", FormatNumber(200))
	assert.Equal(t, "1.33", FormatNumber(1.33))
	assert.Equal(t, "0.5", FormatNumber(0.5))
	assert.Equal(t, "0", FormatNumber(0))
}

func TestGenerateUUID(t *testing.T) {
	a, b := GenerateUUID(), GenerateUUID()
	assert.Len(t, a, 36)
	assert.NotEqual(t, a, b)
}

func TestCustomError(t *testing.T) {
	cause := errors.New("index 5 out of range")
	err := fmt.Errorf("calculate: %w", ErrIndexOutOfRange.Wrap(cause))

	ce := AsCustomError(err)
	assert.Equal(t, ErrCodeIndexOutOfRange, ce.Code)
	assert.Equal(t, http.StatusBadRequest, ce.Status)
	assert.True(t, errors.Is(err, cause))
	assert.Equal(t, cause.Error(), ce.Error())

	assert.Empty(t, ce.Response(false).Details)
	assert.Equal(t, cause.Error(), ce.Response(true).Details)

	unknown := AsCustomError(errors.New("boom"))
	assert.Equal(t, ErrCodeInternalError, unknown.Code)
	assert.Equal(t, http.StatusInternalServerError, unknown.Status)

	assert.Equal(t, "緩存未命中", ErrCacheMiss.Error())
}

func TestDecodeJSON(t *testing.T) {
	var v struct {
		N interface{} `json:"n"`
	}
	require.NoError(t, DecodeJSON(strings.NewReader(`{"n": 2, "extra": 1}`), &v))
	assert.Equal(t, "2", fmt.Sprint(v.N))

	assert.Error(t, ParseJSON(`{"n": 1} {"n": 2}`, &v))
	assert.Error(t, ParseJSONBytes([]byte(`{"n": 1} null`), &v))
	assert.NoError(t, ParseJSONBytes([]byte("{\"n\": 1}\n"), &v))
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, zapcore.DebugLevel, ParseLevel("DEBUG"))
	assert.Equal(t, zapcore.WarnLevel, ParseLevel(" warn "))
	assert.Equal(t, zapcore.InfoLevel, ParseLevel("verbose"))
}

func TestFilterFields(t *testing.T) {
	fields := filterFields([]zap.Field{
		zap.String("openrouter_api_key", "sk-secret"),
		zap.String("Authorization", "Bearer x"),
		zap.String("redis_password", "pw"),
		zap.String("path", "/api/v1/calculate"),
	})
	require.Len(t, fields, 1)
	assert.Equal(t, "path", fields[0].Key)
}

func withObservedLogger(t *testing.T) *observer.ObservedLogs {
	t.Helper()
	core, logs := observer.New(zapcore.DebugLevel)
	prev, prevMode := Logger, LogMode
	Logger = zap.New(core)
	t.Cleanup(func() {
		Logger, LogMode = prev, prevMode
	})
	return logs
}

func TestConciseMode(t *testing.T) {
	logs := withObservedLogger(t)
	LogMode = "concise"

	LogInfo("快取命中")
	LogInfo("請求完成", zap.String("password", "x"))
	LogWarn("warned")

	entries := logs.All()
	require.Len(t, entries, 2)
	assert.Equal(t, "請求完成", entries[0].Message)
	assert.Empty(t, entries[0].Context)
	assert.Equal(t, "warned", entries[1].Message)
}

func TestLogRelayCall(t *testing.T) {
	logs := withObservedLogger(t)

	LogRelayCall("echo", 0, 3, nil)
	LogRelayCall("openrouter", 0, 0, errors.New("status 401"))

	assert.Equal(t, 1, logs.FilterMessage("生成請求完成").Len())
	assert.Equal(t, 1, logs.FilterLevelExact(zapcore.ErrorLevel).Len())
}

func TestInitLoggerWritesFile(t *testing.T) {
	prev := Logger
	t.Cleanup(func() { Logger = prev })

	dir := filepath.Join(t.TempDir(), "logs")
	require.NoError(t, InitLogger("debug", dir))
	LogWarn("file check")
	Sync()

	data, err := os.ReadFile(filepath.Join(dir, "app.log"))
	require.NoError(t, err)
	assert.Contains(t, string(data), "file check")
	assert.Contains(t, string(data), `"service":"recipe-nutrition"`)
}
