package storage

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"io"
	"os"

	"github.com/klauspost/compress/zstd"
	"golang.org/x/crypto/blake2b"

	"github.com/coffersTech/nanotrace/internal/frame"
)

// .ntab layout, integers little-endian:
//
//	[8]     magic "NANOTAB1"
//	[4]     column count
//	per column:
//	  [4+n] name
//	  block: presence flags, one byte per row
//	  block: present values, each [4+n]; absent cells take no space
//	[4]     row count
//	[32]    BLAKE2b-256 of everything before it
//
// A block is a zstd frame prefixed with its compressed size (uint32).
var MagicHeader = []byte("NANOTAB1")

const DigestSize = blake2b.Size256

type ColumnWriter struct {
	encoder *zstd.Encoder
}

func NewColumnWriter() (*ColumnWriter, error) {
	enc, err := zstd.NewWriter(nil)
	if err != nil {
		return nil, err
	}
	return &ColumnWriter{encoder: enc}, nil
}

// WriteSnapshot writes the table to a .ntab file.
func (cw *ColumnWriter) WriteSnapshot(filename string, f *frame.Frame) error {
	out, err := os.Create(filename)
	if err != nil {
		return err
	}
	defer out.Close()

	digest, err := blake2b.New256(nil)
	if err != nil {
		return err
	}
	bw := bufio.NewWriter(out)
	w := io.MultiWriter(bw, digest)

	if _, err := w.Write(MagicHeader); err != nil {
		return err
	}

	names := f.Columns()
	if err := binary.Write(w, binary.LittleEndian, uint32(len(names))); err != nil {
		return err
	}

	for _, name := range names {
		col, err := f.Column(name)
		if err != nil {
			return err
		}
		if err := writeString(w, name); err != nil {
			return err
		}
		if err := cw.writePresenceCol(w, col); err != nil {
			return err
		}
		if err := cw.writeValueCol(w, col); err != nil {
			return err
		}
	}

	if err := binary.Write(w, binary.LittleEndian, uint32(f.Len())); err != nil {
		return err
	}

	// The digest itself is not part of the digested bytes.
	if _, err := bw.Write(digest.Sum(nil)); err != nil {
		return err
	}
	return bw.Flush()
}

func (cw *ColumnWriter) writePresenceCol(w io.Writer, col *frame.Column) error {
	raw := make([]byte, col.Len())
	for i := range raw {
		if _, ok := col.Value(i); ok {
			raw[i] = 1
		}
	}
	return cw.compressAndWrite(w, raw)
}

func (cw *ColumnWriter) writeValueCol(w io.Writer, col *frame.Column) error {
	buf := new(bytes.Buffer)
	for i := 0; i < col.Len(); i++ {
		v, ok := col.Value(i)
		if !ok {
			continue
		}
		b := []byte(v)
		binary.Write(buf, binary.LittleEndian, uint32(len(b)))
		buf.Write(b)
	}
	return cw.compressAndWrite(w, buf.Bytes())
}

func (cw *ColumnWriter) compressAndWrite(w io.Writer, raw []byte) error {
	compressed := cw.encoder.EncodeAll(raw, make([]byte, 0, len(raw)))

	size := uint32(len(compressed))
	if err := binary.Write(w, binary.LittleEndian, size); err != nil {
		return err
	}
	_, err := w.Write(compressed)
	return err
}

func writeString(w io.Writer, s string) error {
	if err := binary.Write(w, binary.LittleEndian, uint32(len(s))); err != nil {
		return err
	}
	_, err := io.WriteString(w, s)
	return err
}
