package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewJSONFormat(t *testing.T) {
	var buf bytes.Buffer
	logger := NewWithOutput(&buf, "debug", "json")
	assert.Equal(t, logrus.DebugLevel, logger.GetLevel())

	logger.WithField("band_id", 7).Info("band created")

	var line map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "band created", line["msg"])
	assert.Equal(t, float64(7), line["band_id"])
}

func TestNewUnknownLevel(t *testing.T) {
	logger := NewWithOutput(&bytes.Buffer{}, "loud", "text")
	assert.Equal(t, logrus.InfoLevel, logger.GetLevel())
}

func TestContextRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	entry := NewWithOutput(&buf, "info", "text").WithField("request_id", "abc")

	ctx := WithEntry(context.Background(), entry)
	FromContext(ctx).Info("hello")
	assert.Contains(t, buf.String(), "request_id=abc")

	// No entry stored: logging must not panic.
	FromContext(context.Background()).Info("dropped")
}
