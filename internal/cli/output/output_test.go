package output

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTitleCase(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"stream", "Stream"},
		{"materialized_view", "Materialized View"},
		{"changelog", "Changelog"},
		{"store", "Store"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, TitleCase(tt.in))
		})
	}
}

func TestRenderer_JSON(t *testing.T) {
	var buf bytes.Buffer
	r := NewRenderer(&buf, &buf)

	require.NoError(t, r.JSON(map[string]int{"steps": 3}))

	var decoded map[string]int
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	assert.Equal(t, 3, decoded["steps"])
}

func TestRenderer_Writers(t *testing.T) {
	var out, errOut bytes.Buffer
	r := NewRenderer(&out, &errOut)

	r.Println("hello")
	r.Errorf("bad: %s", "thing")

	assert.Contains(t, out.String(), "hello")
	assert.Contains(t, errOut.String(), "bad: thing")
	assert.NotContains(t, out.String(), "bad", "errors must not reach stdout")
}
