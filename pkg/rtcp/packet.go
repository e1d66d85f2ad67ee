package rtcp

// RTCP Packet Type согласно RFC 3550 Section 6.1
const (
	TypeSR   uint8 = 200 // Sender Report
	TypeRR   uint8 = 201 // Receiver Report
	TypeSDES uint8 = 202 // Source Description
	TypeBYE  uint8 = 203 // Goodbye
	TypeAPP  uint8 = 204 // Application-Defined
)

// SDES Types согласно RFC 3550 Section 6.5
const (
	SDESTypeEnd   uint8 = 0 // Конец списка items
	SDESTypeCNAME uint8 = 1 // Canonical name
	SDESTypeName  uint8 = 2 // User name
	SDESTypeEmail uint8 = 3 // Email address
	SDESTypePhone uint8 = 4 // Phone number
	SDESTypeLoc   uint8 = 5 // Geographic location
	SDESTypeTool  uint8 = 6 // Application/tool name
	SDESTypeNote  uint8 = 7 // Notice/status
	SDESTypePriv  uint8 = 8 // Private extensions
)

// headerSize - размер общего RTCP заголовка в байтах
const headerSize = 4

// maxCount - максимум для 5-битного счетчика RC/SC
const maxCount = 31

// maxPacketSize - максимум байт одного пакета, описываемый 16-битным
// полем length: 4*(0xFFFF+1)
const maxPacketSize = 4 * 0x10000

// Header представляет общий заголовок RTCP пакета согласно RFC 3550 Section 6.1
type Header struct {
	Version    uint8  // Version (V): 2 бита, всегда 2
	Padding    bool   // Padding (P): 1 бит
	Count      uint8  // RC/SC/subtype: 5 бит
	PacketType uint8  // Packet type (PT): 8 бит
	Length     uint16 // Длина в 32-битных словах минус 1
}

// byteLength возвращает полный размер пакета в байтах, заявленный
// полем Length: 4*(length+1)
func (h Header) byteLength() int {
	return 4 * (int(h.Length) + 1)
}

// parseHeader читает общий заголовок из первых 4 байт буфера.
// Версия здесь не проверяется: для нераспознанных типов пакетов
// compound декодер пропускает содержимое не интерпретируя его.
func parseHeader(data []byte) (Header, *CodecError) {
	if len(data) < headerSize {
		return Header{}, newCodecError(ErrorCodeBufferTooShort, 0,
			"заголовок RTCP требует 4 байта, доступно %d", len(data))
	}
	version, padding, count := unpackHeaderByte(data[0])
	length, err := readUint16(data, 2)
	if err != nil {
		return Header{}, err
	}
	return Header{
		Version:    version,
		Padding:    padding,
		Count:      count,
		PacketType: data[1],
		Length:     length,
	}, nil
}

// marshalHeader записывает общий заголовок в первые 4 байта буфера.
// Поле Length вычисляется из фактического размера буфера, а не
// берется из структуры: сериализация всегда самосогласованна. Буфер
// больше maxPacketSize не представим полем length - ошибка, а не
// молчаливое усечение.
func marshalHeader(buf []byte, padding bool, count uint8, packetType uint8) *CodecError {
	if len(buf) > maxPacketSize {
		return newCodecError(ErrorCodeLengthMismatch, 2,
			"пакет %d байт не описывается 16-битным полем length (максимум %d)",
			len(buf), maxPacketSize)
	}
	buf[0] = packHeaderByte(padding, count)
	buf[1] = packetType
	_ = putUint16(buf, 2, uint16(len(buf)/4-1))
	return nil
}

// checkPacket валидирует заголовок распознанного типа пакета против
// фактического среза: версия должна быть 2, а срез обязан иметь ровно
// 4*(length+1) байт. Более строгий вариант, чем молчаливое усечение.
func checkPacket(h Header, data []byte, packetType uint8) *CodecError {
	if h.Version != rtcpVersion {
		return newCodecError(ErrorCodeInvalidVersion, 0,
			"версия %d, ожидалась %d", h.Version, rtcpVersion)
	}
	if h.PacketType != packetType {
		return newCodecError(ErrorCodeUnknownPacketType, 1,
			"packet type %d, ожидался %d", h.PacketType, packetType)
	}
	if h.byteLength() != len(data) {
		return newCodecError(ErrorCodeLengthMismatch, 2,
			"заголовок заявляет %d байт, срез содержит %d", h.byteLength(), len(data))
	}
	return nil
}

// Packet - интерфейс для всех типов RTCP пакетов
type Packet interface {
	Header() Header
	Marshal() ([]byte, error)
	Unmarshal(data []byte) error
}

// RawPacket хранит RTCP пакет нераспознанного типа как непрозрачные
// байты. Поле length в заголовке делает границы пакета известными
// даже когда содержимое интерпретировать нельзя, поэтому compound
// декодер сохраняет такие пакеты вместо прерывания разбора.
type RawPacket struct {
	Hdr  Header
	Data []byte // Полные байты пакета, включая заголовок
}

// Header возвращает заголовок пакета
func (rp *RawPacket) Header() Header {
	return rp.Hdr
}

// Marshal возвращает сохраненные байты пакета как есть
func (rp *RawPacket) Marshal() ([]byte, error) {
	out := make([]byte, len(rp.Data))
	copy(out, rp.Data)
	return out, nil
}

// Unmarshal сохраняет байты пакета без интерпретации содержимого
func (rp *RawPacket) Unmarshal(data []byte) error {
	h, err := parseHeader(data)
	if err != nil {
		return err
	}
	if h.byteLength() != len(data) {
		return newCodecError(ErrorCodeLengthMismatch, 2,
			"заголовок заявляет %d байт, срез содержит %d", h.byteLength(), len(data))
	}
	rp.Hdr = h
	rp.Data = make([]byte, len(data))
	copy(rp.Data, data)
	return nil
}

// IsRTCPPacket проверяет, похож ли буфер на начало RTCP пакета.
// Используется для демультиплексирования RTP/RTCP на одном порту.
func IsRTCPPacket(data []byte) bool {
	if len(data) < headerSize {
		return false
	}
	version, _, _ := unpackHeaderByte(data[0])
	packetType := data[1]
	return version == rtcpVersion && packetType >= TypeSR && packetType <= TypeAPP
}
