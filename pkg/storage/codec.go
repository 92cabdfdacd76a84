package storage

import (
	"bytes"
	"encoding/gob"
)

// LoggedAction is one entry of the durable action log: the caller a host
// attributed an action to, and the action's canonical wire bytes (§9). The
// log is append-only and replayable: replaying it through the engine from
// an empty state must reproduce the same state hash (§4.F, §8 determinism).
type LoggedAction struct {
	Caller string
	Raw    []byte
}

func encodeGob(v any) ([]byte, error) {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func decodeGob(b []byte, v any) error {
	return gob.NewDecoder(bytes.NewReader(b)).Decode(v)
}
