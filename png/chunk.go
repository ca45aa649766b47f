package png

import (
	"encoding/binary"

	survivalerrors "github.com/lowlevel-dev/survival/errors"
)

// chunk is one parsed PNG chunk; the trailing 4-byte CRC is read but
// discarded per spec.md §4.5 ("the CRC is skipped").
type chunk struct {
	Type string
	Data []byte
}

func readChunks(data []byte) ([]chunk, error) {
	var chunks []chunk
	for len(data) > 0 {
		if len(data) < 12 {
			return nil, survivalerrors.ErrInvalidFormat.WithMessage("truncated PNG chunk header")
		}
		length := binary.BigEndian.Uint32(data[0:4])
		typ := string(data[4:8])
		if uint64(len(data)) < 12+uint64(length) {
			return nil, survivalerrors.ErrInvalidFormat.WithMessage("truncated %s chunk body", typ)
		}
		payload := data[8 : 8+length]
		chunks = append(chunks, chunk{Type: typ, Data: payload})
		data = data[12+length:]
		if typ == "IEND" {
			break
		}
	}
	return chunks, nil
}
