package protocol

import (
	"bytes"
	"encoding/binary"
)

// 所有多字节字段均为小端序，逐字段读写，不依赖结构体内存布局

type binaryWriter struct {
	buf bytes.Buffer
}

func (w *binaryWriter) writeUint8(v uint8) {
	_ = w.buf.WriteByte(v)
}

func (w *binaryWriter) writeBool(v bool) {
	if v {
		w.writeUint8(1)
		return
	}
	w.writeUint8(0)
}

func (w *binaryWriter) writeInt16(v int16) {
	_ = binary.Write(&w.buf, binary.LittleEndian, v)
}

func (w *binaryWriter) writeUint16(v uint16) {
	_ = binary.Write(&w.buf, binary.LittleEndian, v)
}

func (w *binaryWriter) writeInt32(v int32) {
	_ = binary.Write(&w.buf, binary.LittleEndian, v)
}

// writeShortString 长度前缀 1 字节，超出 max 截断
func (w *binaryWriter) writeShortString(v string, max int) {
	b := []byte(v)
	if len(b) > max {
		b = b[:max]
	}
	w.writeUint8(uint8(len(b)))
	_, _ = w.buf.Write(b)
}

func (w *binaryWriter) writeBytes(b []byte) {
	_, _ = w.buf.Write(b)
}

func (w *binaryWriter) len() int { return w.buf.Len() }

type binaryReader struct {
	data   []byte
	offset int
}

func (r *binaryReader) need(n int) error {
	if r.offset+n > len(r.data) {
		return ErrShortBuffer
	}
	return nil
}

func (r *binaryReader) readUint8() (uint8, error) {
	if err := r.need(1); err != nil {
		return 0, err
	}
	v := r.data[r.offset]
	r.offset++
	return v, nil
}

func (r *binaryReader) readBool() (bool, error) {
	v, err := r.readUint8()
	return v != 0, err
}

func (r *binaryReader) readUint16() (uint16, error) {
	if err := r.need(2); err != nil {
		return 0, err
	}
	v := binary.LittleEndian.Uint16(r.data[r.offset:])
	r.offset += 2
	return v, nil
}

func (r *binaryReader) readInt16() (int16, error) {
	v, err := r.readUint16()
	return int16(v), err
}

func (r *binaryReader) readInt32() (int32, error) {
	if err := r.need(4); err != nil {
		return 0, err
	}
	v := binary.LittleEndian.Uint32(r.data[r.offset:])
	r.offset += 4
	return int32(v), nil
}

func (r *binaryReader) readShortString() (string, error) {
	n, err := r.readUint8()
	if err != nil {
		return "", err
	}
	b, err := r.readBytes(int(n))
	return string(b), err
}

func (r *binaryReader) readBytes(n int) ([]byte, error) {
	if err := r.need(n); err != nil {
		return nil, err
	}
	out := make([]byte, n)
	copy(out, r.data[r.offset:r.offset+n])
	r.offset += n
	return out, nil
}
