package logger

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInitializeAndConfigure(t *testing.T) {
	defer InitializeAndConfigure("info", "json")

	InitializeAndConfigure("debug", "json")
	assert.Equal(t, logrus.DebugLevel, log.GetLevel())

	InitializeAndConfigure("nonsense", "text")
	assert.Equal(t, logrus.InfoLevel, log.GetLevel())
	_, isText := log.Formatter.(*logrus.TextFormatter)
	assert.True(t, isText)
}

func TestInfoWithFieldsWritesJSON(t *testing.T) {
	InitializeAndConfigure("info", "json")
	var buf bytes.Buffer
	SetOutput(&buf)
	defer InitializeAndConfigure("info", "json")

	InfoWithFields("key pair reused", Fields{"key_name": "deploy"})

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "key pair reused", entry["msg"])
	assert.Equal(t, "deploy", entry["key_name"])
	assert.Equal(t, "info", entry["level"])
}
