package combat

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"

	"github.com/pierrec/lz4/v4"
)

// Turn logs run to thousands of entries for large fleets; they are stored
// lz4-compressed in the battle record and only inflated on replay requests.

// EncodeLog serializes and compresses a turn log for storage.
func EncodeLog(log []TurnEntry) ([]byte, error) {
	raw, err := json.Marshal(log)
	if err != nil {
		return nil, fmt.Errorf("marshal turn log: %w", err)
	}
	var buf bytes.Buffer
	zw := lz4.NewWriter(&buf)
	if _, err := zw.Write(raw); err != nil {
		return nil, fmt.Errorf("compress turn log: %w", err)
	}
	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("flush turn log: %w", err)
	}
	return buf.Bytes(), nil
}

// DecodeLog inflates a stored turn log.
func DecodeLog(data []byte) ([]TurnEntry, error) {
	zr := lz4.NewReader(bytes.NewReader(data))
	raw, err := io.ReadAll(zr)
	if err != nil {
		return nil, fmt.Errorf("decompress turn log: %w", err)
	}
	var log []TurnEntry
	if err := json.Unmarshal(raw, &log); err != nil {
		return nil, fmt.Errorf("unmarshal turn log: %w", err)
	}
	return log, nil
}
