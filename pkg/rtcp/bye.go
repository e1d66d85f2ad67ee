// Goodbye пакет (RFC 3550 Section 6.6)
package rtcp

import "unicode/utf8"

// maxReasonText - максимум октетов причины ухода (8-битная длина)
const maxReasonText = 255

// Bye - RTCP BYE пакет: список покидающих сессию SSRC и необязательная
// причина ухода
type Bye struct {
	Hdr     Header
	Sources []uint32 // SSRC/CSRC покидающих источников
	Reason  string   // Причина ухода, пустая строка - отсутствует
}

// NewBye создает BYE пакет для перечисленных источников
func NewBye(sources []uint32, reason string) *Bye {
	b := &Bye{
		Hdr: Header{
			Version:    rtcpVersion,
			PacketType: TypeBYE,
			Count:      uint8(len(sources)),
		},
		Sources: sources,
		Reason:  reason,
	}
	b.Hdr.Length = uint16(b.wireSize()/4 - 1)
	return b
}

// wireSize возвращает размер пакета на проводе в байтах
func (b *Bye) wireSize() int {
	size := headerSize + 4*len(b.Sources)
	if b.Reason != "" {
		size = pad4(size + 1 + len(b.Reason))
	}
	return size
}

// Header возвращает заголовок пакета
func (b *Bye) Header() Header {
	return b.Hdr
}

// Marshal кодирует BYE пакет в байты
func (b *Bye) Marshal() ([]byte, error) {
	if len(b.Sources) > maxCount {
		return nil, newCodecError(ErrorCodeInvalidCount, 0,
			"%d источников не помещаются в 5-битный SC", len(b.Sources))
	}
	if len(b.Reason) > maxReasonText {
		return nil, newCodecError(ErrorCodeTextDecode, 0,
			"причина ухода длиннее %d байт", maxReasonText)
	}

	data := make([]byte, b.wireSize())
	if err := marshalHeader(data, b.Hdr.Padding, uint8(len(b.Sources)), TypeBYE); err != nil {
		return nil, err
	}

	offset := headerSize
	for _, ssrc := range b.Sources {
		_ = putUint32(data, offset, ssrc)
		offset += 4
	}
	if b.Reason != "" {
		data[offset] = uint8(len(b.Reason))
		copy(data[offset+1:], b.Reason)
		// остаток до границы 4 байт уже нулевой
	}
	return data, nil
}

// Unmarshal декодирует BYE пакет из среза, содержащего ровно один пакет.
// Причина присутствует, если после списка SSRC остались байты.
func (b *Bye) Unmarshal(data []byte) error {
	h, cerr := parseHeader(data)
	if cerr != nil {
		return cerr
	}
	if err := checkPacket(h, data, TypeBYE); err != nil {
		return err
	}
	if h.byteLength() < headerSize+4*int(h.Count) {
		return newCodecError(ErrorCodeLengthMismatch, 2,
			"BYE с SC=%d требует минимум %d байт, заявлено %d",
			h.Count, headerSize+4*int(h.Count), h.byteLength())
	}

	b.Hdr = h
	b.Sources = nil
	b.Reason = ""
	offset := headerSize
	for i := 0; i < int(h.Count); i++ {
		ssrc, err := readUint32(data, offset)
		if err != nil {
			return err
		}
		b.Sources = append(b.Sources, ssrc)
		offset += 4
	}

	if offset == len(data) {
		return nil
	}

	reasonLen := int(data[offset])
	offset++
	if offset+reasonLen > len(data) {
		return newCodecError(ErrorCodeBufferTooShort, offset,
			"причина заявляет %d байт, доступно %d", reasonLen, len(data)-offset)
	}
	reason := data[offset : offset+reasonLen]
	if !utf8.Valid(reason) {
		return newCodecError(ErrorCodeTextDecode, offset,
			"причина ухода не является валидным UTF-8")
	}
	b.Reason = string(reason)
	offset += reasonLen

	// хвост - выравнивание до границы 4 байт, байты обязаны быть нулевыми
	if pad4(offset) != len(data) {
		return newCodecError(ErrorCodeLengthMismatch, offset,
			"после причины осталось %d лишних байт", len(data)-offset)
	}
	for ; offset < len(data); offset++ {
		if data[offset] != 0 {
			return newCodecError(ErrorCodeTextDecode, offset,
				"ненулевой байт 0x%02x в выравнивании причины", data[offset])
		}
	}
	return nil
}
