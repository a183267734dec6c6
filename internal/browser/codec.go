package browser

import (
	"encoding/json"
	"errors"
	"fmt"
	"maps"

	"github.com/bytedance/sonic"

	"github.com/vidyasagar/journey/internal/history"
)

// Keys reserved in the flattened payload; application fields sit beside them.
const (
	keyTime    = "time"
	keyTitle   = "title"
	keySession = "session"
)

var payloadAPI = sonic.Config{
	UseNumber:   true,
	SortMapKeys: true,
}.Froze()

var errNoTime = errors.New("payload has no time")

// EncodeState serializes s as {time, title, session, ...fields}. An unset
// session is written as null.
func EncodeState(s history.State) ([]byte, error) {
	m := make(map[string]any, len(s.Fields)+3)
	maps.Copy(m, s.Fields)
	m[keyTime] = s.Time
	m[keyTitle] = s.Title
	if s.Session == "" {
		m[keySession] = nil
	} else {
		m[keySession] = string(s.Session)
	}
	return payloadAPI.Marshal(m)
}

// DecodeState parses a payload written by EncodeState. Application fields
// keep their JSON shape; numbers come back as json.Number.
func DecodeState(data []byte) (*history.State, error) {
	var m map[string]any
	if err := payloadAPI.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("decoding payload: %w", err)
	}

	t, err := payloadTime(m[keyTime])
	if err != nil {
		return nil, err
	}
	s := &history.State{Time: t}
	if title, ok := m[keyTitle].(string); ok {
		s.Title = title
	}
	if session, ok := m[keySession].(string); ok {
		s.Session = history.Session(session)
	}

	delete(m, keyTime)
	delete(m, keyTitle)
	delete(m, keySession)
	if len(m) > 0 {
		s.Fields = m
	}
	return s, nil
}

func payloadTime(v any) (int64, error) {
	switch t := v.(type) {
	case json.Number:
		n, err := t.Int64()
		if err != nil {
			return 0, fmt.Errorf("payload time %q: %w", t, err)
		}
		return n, nil
	case float64:
		return int64(t), nil
	case nil:
		return 0, errNoTime
	default:
		return 0, fmt.Errorf("payload time has type %T", v)
	}
}
