package browser

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vidyasagar/journey/internal/history"
)

func TestEncodeStateFlattensFields(t *testing.T) {
	data, err := EncodeState(history.State{
		Time:    1700000000123,
		Title:   "Docs",
		Session: "run-1",
		Fields:  map[string]any{"scroll": 12},
	})
	require.NoError(t, err)
	assert.JSONEq(t, `{"scroll":12,"session":"run-1","time":1700000000123,"title":"Docs"}`, string(data))
}

func TestEncodeStateWritesNullSession(t *testing.T) {
	data, err := EncodeState(history.State{Time: 5})
	require.NoError(t, err)
	assert.JSONEq(t, `{"session":null,"time":5,"title":""}`, string(data))
}

func TestDecodeState(t *testing.T) {
	s, err := DecodeState([]byte(`{"time":1700000000123,"title":"Docs","session":"run-1","scroll":12,"tags":["a"]}`))
	require.NoError(t, err)

	assert.Equal(t, int64(1700000000123), s.Time)
	assert.Equal(t, "Docs", s.Title)
	assert.Equal(t, history.Session("run-1"), s.Session)
	assert.Equal(t, json.Number("12"), s.Fields["scroll"])
	assert.Len(t, s.Fields, 2)
}

func TestDecodeStateWithoutSession(t *testing.T) {
	s, err := DecodeState([]byte(`{"time":9,"title":"x","session":null}`))
	require.NoError(t, err)
	assert.Equal(t, history.Session(""), s.Session)
	assert.Nil(t, s.Fields)
}

func TestDecodeStateRejectsBadPayloads(t *testing.T) {
	for _, payload := range []string{
		`not json`,
		`{"title":"no time"}`,
		`{"time":"yesterday"}`,
		`{"time":1.5}`,
	} {
		_, err := DecodeState([]byte(payload))
		assert.Error(t, err, payload)
	}
}
