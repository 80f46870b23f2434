// Package codec implements the wire encoding for commit records: a
// 1-byte variant tag, length-prefixed strings (a
// little-endian uint32 length followed by the bytes), little-endian int64
// offsets, and 16 raw bytes for a FileID. Byte length of text is measured in
// the encoded form, matching commit.Commit's own length unit.
//
// This package is ambient I/O-facing code, not part of the pure core: unlike
// the algebra, its functions return errors rather than panicking, following
// ordinary Go convention for code that parses untrusted bytes.
package codec

import (
	"encoding/binary"
	"fmt"
	"io"

	"github.com/rcowham/otcore/commit"
)

const (
	tagInsertText byte = iota
	tagDeleteText
	tagAddFile
	tagDeleteFile
)

// Writer serializes a stream of commit.Record values to an underlying
// io.Writer, in positional order.
type Writer struct {
	w io.Writer
}

// NewWriter wraps w for writing a sequence of records.
func NewWriter(w io.Writer) *Writer {
	return &Writer{w: w}
}

// WriteRecord appends one record to the stream.
func (wr *Writer) WriteRecord(rec commit.Record) error {
	var id [4]byte
	binary.LittleEndian.PutUint32(id[:], rec.ID)
	if _, err := wr.w.Write(id[:]); err != nil {
		return fmt.Errorf("codec: write id: %w", err)
	}
	return EncodeCommit(wr.w, rec.Content)
}

// WriteAll writes every record in recs, in order.
func (wr *Writer) WriteAll(recs []commit.Record) error {
	for _, rec := range recs {
		if err := wr.WriteRecord(rec); err != nil {
			return err
		}
	}
	return nil
}

// Reader deserializes a stream of commit.Record values previously written
// by Writer.
type Reader struct {
	r io.Reader
}

// NewReader wraps r for reading a sequence of records.
func NewReader(r io.Reader) *Reader {
	return &Reader{r: r}
}

// ReadRecord reads one record from the stream. It returns io.EOF (unwrapped)
// when the stream is exhausted at a record boundary.
func (rd *Reader) ReadRecord() (commit.Record, error) {
	var id [4]byte
	if _, err := io.ReadFull(rd.r, id[:]); err != nil {
		if err == io.ErrUnexpectedEOF {
			return commit.Record{}, fmt.Errorf("codec: truncated record id: %w", err)
		}
		return commit.Record{}, err
	}
	c, err := DecodeCommit(rd.r)
	if err != nil {
		return commit.Record{}, err
	}
	return commit.Record{ID: binary.LittleEndian.Uint32(id[:]), Content: c}, nil
}

// ReadAll reads records until io.EOF, returning everything read so far on
// any other error.
func (rd *Reader) ReadAll() ([]commit.Record, error) {
	var out []commit.Record
	for {
		rec, err := rd.ReadRecord()
		if err == io.EOF {
			return out, nil
		}
		if err != nil {
			return out, err
		}
		out = append(out, rec)
	}
}

// EncodeCommit writes a single commit (without any record id) to w.
func EncodeCommit(w io.Writer, c commit.Commit) error {
	switch c.Kind() {
	case commit.KindInsertText:
		if err := writeByte(w, tagInsertText); err != nil {
			return err
		}
		if err := writeFileID(w, c.File()); err != nil {
			return err
		}
		if err := writeInt64(w, c.Location()); err != nil {
			return err
		}
		return writeString(w, c.Text())
	case commit.KindDeleteText:
		if err := writeByte(w, tagDeleteText); err != nil {
			return err
		}
		if err := writeFileID(w, c.File()); err != nil {
			return err
		}
		if err := writeInt64(w, c.Location()); err != nil {
			return err
		}
		return writeInt64(w, c.Length())
	case commit.KindAddFile:
		if err := writeByte(w, tagAddFile); err != nil {
			return err
		}
		if err := writeFileID(w, c.File()); err != nil {
			return err
		}
		if err := writeString(w, c.Name()); err != nil {
			return err
		}
		content, has := c.Content()
		if err := writeBool(w, has); err != nil {
			return err
		}
		if !has {
			return nil
		}
		return writeBytes(w, content)
	case commit.KindDeleteFile:
		if err := writeByte(w, tagDeleteFile); err != nil {
			return err
		}
		if err := writeFileID(w, c.File()); err != nil {
			return err
		}
		return writeString(w, c.Name())
	default:
		return fmt.Errorf("codec: unknown commit kind %v", c.Kind())
	}
}

// DecodeCommit reads a single commit (without any record id) from r.
func DecodeCommit(r io.Reader) (commit.Commit, error) {
	tag, err := readByte(r)
	if err != nil {
		return commit.Commit{}, err
	}
	file, err := readFileID(r)
	if err != nil {
		return commit.Commit{}, err
	}
	switch tag {
	case tagInsertText:
		loc, err := readInt64(r)
		if err != nil {
			return commit.Commit{}, err
		}
		text, err := readString(r)
		if err != nil {
			return commit.Commit{}, err
		}
		return commit.NewInsertText(file, loc, text), nil
	case tagDeleteText:
		loc, err := readInt64(r)
		if err != nil {
			return commit.Commit{}, err
		}
		length, err := readInt64(r)
		if err != nil {
			return commit.Commit{}, err
		}
		return commit.NewDeleteText(file, loc, length), nil
	case tagAddFile:
		name, err := readString(r)
		if err != nil {
			return commit.Commit{}, err
		}
		has, err := readBool(r)
		if err != nil {
			return commit.Commit{}, err
		}
		if !has {
			return commit.NewAddFile(file, name, nil), nil
		}
		content, err := readBytes(r)
		if err != nil {
			return commit.Commit{}, err
		}
		return commit.NewAddFile(file, name, content), nil
	case tagDeleteFile:
		name, err := readString(r)
		if err != nil {
			return commit.Commit{}, err
		}
		return commit.NewDeleteFile(file, name), nil
	default:
		return commit.Commit{}, fmt.Errorf("codec: unknown wire tag %d", tag)
	}
}

func writeByte(w io.Writer, b byte) error {
	_, err := w.Write([]byte{b})
	return err
}

func readByte(r io.Reader) (byte, error) {
	var b [1]byte
	if _, err := io.ReadFull(r, b[:]); err != nil {
		return 0, fmt.Errorf("codec: read tag: %w", err)
	}
	return b[0], nil
}

func writeBool(w io.Writer, v bool) error {
	if v {
		return writeByte(w, 1)
	}
	return writeByte(w, 0)
}

func readBool(r io.Reader) (bool, error) {
	b, err := readByte(r)
	if err != nil {
		return false, err
	}
	return b != 0, nil
}

func writeFileID(w io.Writer, f commit.FileID) error {
	_, err := w.Write(f.Bytes())
	if err != nil {
		return fmt.Errorf("codec: write file id: %w", err)
	}
	return nil
}

func readFileID(r io.Reader) (commit.FileID, error) {
	var b [16]byte
	if _, err := io.ReadFull(r, b[:]); err != nil {
		return commit.FileID{}, fmt.Errorf("codec: read file id: %w", err)
	}
	return commit.FileIDFromBytes(b[:]), nil
}

func writeInt64(w io.Writer, v int64) error {
	var b [8]byte
	binary.LittleEndian.PutUint64(b[:], uint64(v))
	if _, err := w.Write(b[:]); err != nil {
		return fmt.Errorf("codec: write int64: %w", err)
	}
	return nil
}

func readInt64(r io.Reader) (int64, error) {
	var b [8]byte
	if _, err := io.ReadFull(r, b[:]); err != nil {
		return 0, fmt.Errorf("codec: read int64: %w", err)
	}
	return int64(binary.LittleEndian.Uint64(b[:])), nil
}

func writeBytes(w io.Writer, data []byte) error {
	var lenBuf [4]byte
	binary.LittleEndian.PutUint32(lenBuf[:], uint32(len(data)))
	if _, err := w.Write(lenBuf[:]); err != nil {
		return fmt.Errorf("codec: write length: %w", err)
	}
	if len(data) == 0 {
		return nil
	}
	if _, err := w.Write(data); err != nil {
		return fmt.Errorf("codec: write bytes: %w", err)
	}
	return nil
}

func readBytes(r io.Reader) ([]byte, error) {
	var lenBuf [4]byte
	if _, err := io.ReadFull(r, lenBuf[:]); err != nil {
		return nil, fmt.Errorf("codec: read length: %w", err)
	}
	n := binary.LittleEndian.Uint32(lenBuf[:])
	if n == 0 {
		return []byte{}, nil
	}
	data := make([]byte, n)
	if _, err := io.ReadFull(r, data); err != nil {
		return nil, fmt.Errorf("codec: read bytes: %w", err)
	}
	return data, nil
}

func writeString(w io.Writer, s string) error {
	return writeBytes(w, []byte(s))
}

func readString(r io.Reader) (string, error) {
	b, err := readBytes(r)
	if err != nil {
		return "", err
	}
	return string(b), nil
}
