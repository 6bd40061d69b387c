package storage

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/klauspost/compress/zstd"
	"golang.org/x/crypto/blake2b"

	"github.com/coffersTech/nanotrace/internal/frame"
)

var (
	ErrInvalidHeader = errors.New("invalid .ntab file header")
	ErrChecksum      = errors.New(".ntab digest mismatch")
)

type ColumnReader struct {
	decoder *zstd.Decoder
}

func NewColumnReader() (*ColumnReader, error) {
	dec, err := zstd.NewReader(nil)
	if err != nil {
		return nil, err
	}
	return &ColumnReader{decoder: dec}, nil
}

// ReadSnapshot reads a .ntab file back into a table. The digest is
// verified before any block is decoded.
func (cr *ColumnReader) ReadSnapshot(filename string) (*frame.Frame, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, err
	}
	return cr.decode(data)
}

func (cr *ColumnReader) decode(data []byte) (*frame.Frame, error) {
	// Magic(8) + ColumnCount(4) + RowCount(4) + Digest(32)
	if len(data) < len(MagicHeader)+8+DigestSize {
		return nil, ErrInvalidHeader
	}
	if !bytes.Equal(data[:len(MagicHeader)], MagicHeader) {
		return nil, ErrInvalidHeader
	}

	body := data[:len(data)-DigestSize]
	sum := blake2b.Sum256(body)
	if !bytes.Equal(sum[:], data[len(data)-DigestSize:]) {
		return nil, ErrChecksum
	}

	rowCount := int(binary.LittleEndian.Uint32(body[len(body)-4:]))
	r := bytes.NewReader(body[len(MagicHeader) : len(body)-4])

	var colCount uint32
	if err := binary.Read(r, binary.LittleEndian, &colCount); err != nil {
		return nil, err
	}

	names := make([]string, 0, colCount)
	presence := make([][]byte, 0, colCount)
	values := make([][]string, 0, colCount)
	for i := uint32(0); i < colCount; i++ {
		name, err := readString(r)
		if err != nil {
			return nil, fmt.Errorf("column %d name: %w", i, err)
		}

		flags, err := cr.readAndDecompress(r)
		if err != nil {
			return nil, fmt.Errorf("column %q presence: %w", name, err)
		}
		if len(flags) != rowCount {
			return nil, fmt.Errorf("column %q: presence length %d, want %d", name, len(flags), rowCount)
		}

		valData, err := cr.readAndDecompress(r)
		if err != nil {
			return nil, fmt.Errorf("column %q values: %w", name, err)
		}
		vals, err := decodeStrings(valData)
		if err != nil {
			return nil, fmt.Errorf("column %q values: %w", name, err)
		}

		names = append(names, name)
		presence = append(presence, flags)
		values = append(values, vals)
	}
	if r.Len() != 0 {
		return nil, errors.New("trailing bytes after last column")
	}

	f, err := frame.NewWithColumns(names...)
	if err != nil {
		return nil, err
	}

	next := make([]int, len(names))
	for row := 0; row < rowCount; row++ {
		rec := make(frame.Record, 0, len(names))
		for c, name := range names {
			if presence[c][row] == 0 {
				continue
			}
			if next[c] >= len(values[c]) {
				return nil, fmt.Errorf("column %q: value block short at row %d", name, row)
			}
			rec = append(rec, frame.Field{Key: name, Value: values[c][next[c]]})
			next[c]++
		}
		f.AppendRecord(rec)
	}
	for c, name := range names {
		if next[c] != len(values[c]) {
			return nil, fmt.Errorf("column %q: %d values beyond presence flags", name, len(values[c])-next[c])
		}
	}

	return f, nil
}

// readAndDecompress reads a compressed block (size + data) and decompresses it.
func (cr *ColumnReader) readAndDecompress(r io.Reader) ([]byte, error) {
	var size uint32
	if err := binary.Read(r, binary.LittleEndian, &size); err != nil {
		return nil, err
	}

	compressed := make([]byte, size)
	if _, err := io.ReadFull(r, compressed); err != nil {
		return nil, err
	}

	return cr.decoder.DecodeAll(compressed, nil)
}

func readString(r *bytes.Reader) (string, error) {
	var length uint32
	if err := binary.Read(r, binary.LittleEndian, &length); err != nil {
		return "", err
	}
	b := make([]byte, length)
	if _, err := io.ReadFull(r, b); err != nil {
		return "", err
	}
	return string(b), nil
}

// decodeStrings unpacks a [Len uint32][Bytes]... sequence.
func decodeStrings(data []byte) ([]string, error) {
	var result []string
	buf := bytes.NewReader(data)

	for buf.Len() > 0 {
		s, err := readString(buf)
		if err != nil {
			return nil, err
		}
		result = append(result, s)
	}
	return result, nil
}
