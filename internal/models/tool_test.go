package models

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFlexInt_UnmarshalJSON(t *testing.T) {
	tests := []struct {
		name string
		body string
		want FlexInt
	}{
		{name: "число", body: `{"amount": 3}`, want: 3},
		{name: "строка", body: `{"amount": "2"}`, want: 2},
		{name: "пустая строка", body: `{"amount": ""}`, want: 0},
		{name: "null", body: `{"amount": null}`, want: 0},
		{name: "нечисловая строка", body: `{"amount": "many"}`, want: -1},
		{name: "дробное число", body: `{"amount": 1.5}`, want: -1},
		{name: "поле отсутствует", body: `{}`, want: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var req ImageRequest
			require.NoError(t, json.Unmarshal([]byte(tt.body), &req))
			assert.Equal(t, tt.want, req.Amount)
		})
	}
}

func TestImageRequest_ApplyDefaults(t *testing.T) {
	req := &ImageRequest{Prompt: "cat"}
	req.ApplyDefaults()
	assert.Equal(t, FlexInt(DefaultImageAmount), req.Amount)
	assert.Equal(t, DefaultImageResolution, req.Resolution)

	req = &ImageRequest{Prompt: "cat", Amount: 4, Resolution: "1024x1024"}
	req.ApplyDefaults()
	assert.Equal(t, FlexInt(4), req.Amount)
	assert.Equal(t, "1024x1024", req.Resolution)
}

func TestTool_NewRequest(t *testing.T) {
	for _, tool := range Tools() {
		req, err := tool.NewRequest()
		require.NoError(t, err, tool)
		assert.NotNil(t, req)
	}

	_, err := Tool("poetry").NewRequest()
	assert.Error(t, err)
}
