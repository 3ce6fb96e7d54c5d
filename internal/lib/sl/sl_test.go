package sl_test

import (
	"bytes"
	"encoding/json"
	"errors"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/magabrotheeeer/aihub-gateway/internal/lib/sl"
)

func TestErr_ReturnsCorrectAttr(t *testing.T) {
	err := errors.New("something went wrong")
	attr := sl.Err(err)

	assert.Equal(t, "error", attr.Key)
	assert.Equal(t, slog.StringValue("something went wrong"), attr.Value)
}

func TestErr_NilError(t *testing.T) {
	assert.NotPanics(t, func() {
		attr := sl.Err(nil)
		assert.Equal(t, "<nil>", attr.Value.String())
	})
}

func TestNewLogger(t *testing.T) {
	var buf bytes.Buffer
	sl.NewLogger(sl.EnvLocal, &buf).Debug("visible")
	assert.Contains(t, buf.String(), "msg=visible")

	buf.Reset()
	log := sl.NewLogger(sl.EnvProd, &buf)
	log.Debug("hidden")
	assert.Empty(t, buf.String())

	log.Info("shown", sl.Err(errors.New("boom")))
	var rec map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &rec))
	assert.Equal(t, "shown", rec["msg"])
	assert.Equal(t, "boom", rec["error"])
}
