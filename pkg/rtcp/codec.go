// Примитивы бинарного кодека RTCP
//
// Все многобайтовые поля RTCP - big-endian фиксированной ширины
// (RFC 3550 Section 6). Чтения проверяют границы буфера и возвращают
// BufferTooShort вместо паники или молчаливого усечения. Битовые поля
// общего заголовка упаковываются арифметическими сдвигами и масками.
package rtcp

import "encoding/binary"

// rtcpVersion - единственная поддерживаемая версия протокола
const rtcpVersion uint8 = 2

// readUint16 читает big-endian uint16 с проверкой границ
func readUint16(buf []byte, offset int) (uint16, *CodecError) {
	if offset < 0 || offset+2 > len(buf) {
		return 0, newCodecError(ErrorCodeBufferTooShort, offset,
			"нужно 2 байта, доступно %d", len(buf)-offset)
	}
	return binary.BigEndian.Uint16(buf[offset : offset+2]), nil
}

// readUint32 читает big-endian uint32 с проверкой границ
func readUint32(buf []byte, offset int) (uint32, *CodecError) {
	if offset < 0 || offset+4 > len(buf) {
		return 0, newCodecError(ErrorCodeBufferTooShort, offset,
			"нужно 4 байта, доступно %d", len(buf)-offset)
	}
	return binary.BigEndian.Uint32(buf[offset : offset+4]), nil
}

// readUint64 читает big-endian uint64 с проверкой границ
func readUint64(buf []byte, offset int) (uint64, *CodecError) {
	if offset < 0 || offset+8 > len(buf) {
		return 0, newCodecError(ErrorCodeBufferTooShort, offset,
			"нужно 8 байт, доступно %d", len(buf)-offset)
	}
	return binary.BigEndian.Uint64(buf[offset : offset+8]), nil
}

// putUint16 записывает big-endian uint16 с проверкой границ
func putUint16(buf []byte, offset int, v uint16) *CodecError {
	if offset < 0 || offset+2 > len(buf) {
		return newCodecError(ErrorCodeBufferTooShort, offset,
			"запись uint16 за границей буфера длины %d", len(buf))
	}
	binary.BigEndian.PutUint16(buf[offset:offset+2], v)
	return nil
}

// putUint32 записывает big-endian uint32 с проверкой границ
func putUint32(buf []byte, offset int, v uint32) *CodecError {
	if offset < 0 || offset+4 > len(buf) {
		return newCodecError(ErrorCodeBufferTooShort, offset,
			"запись uint32 за границей буфера длины %d", len(buf))
	}
	binary.BigEndian.PutUint32(buf[offset:offset+4], v)
	return nil
}

// putUint64 записывает big-endian uint64 с проверкой границ
func putUint64(buf []byte, offset int, v uint64) *CodecError {
	if offset < 0 || offset+8 > len(buf) {
		return newCodecError(ErrorCodeBufferTooShort, offset,
			"запись uint64 за границей буфера длины %d", len(buf))
	}
	binary.BigEndian.PutUint64(buf[offset:offset+8], v)
	return nil
}

// packHeaderByte упаковывает первый байт общего RTCP заголовка:
// версия (биты 7-6), флаг padding (бит 5), счетчик RC/SC (биты 4-0)
func packHeaderByte(padding bool, count uint8) byte {
	b := rtcpVersion << 6
	if padding {
		b |= 1 << 5
	}
	return b | (count & 0x1F)
}

// unpackHeaderByte распаковывает первый байт общего RTCP заголовка
func unpackHeaderByte(b byte) (version uint8, padding bool, count uint8) {
	version = (b >> 6) & 0x03
	padding = (b>>5)&0x01 == 1
	count = b & 0x1F
	return
}

// pad4 возвращает n, округленное вверх до границы 4 байт
func pad4(n int) int {
	return (n + 3) &^ 3
}
