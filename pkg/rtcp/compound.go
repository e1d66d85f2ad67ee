// Compound RTCP пакеты (RFC 3550 Section 6.1)
//
// Один транспортный датаграм несет цепочку RTCP пакетов; границы
// каждого задает поле length его заголовка. Декодер идет по буферу,
// вырезает ровно 4*(length+1) байт на пакет и диспетчеризует по
// packet type. Пакет нераспознанного типа не прерывает разбор:
// его границы известны из length, поэтому он сохраняется как
// RawPacket в списке Skipped, а разбор продолжается.
package rtcp

// Compound - упорядоченная последовательность RTCP пакетов из одного
// датаграма. Порядок - порядок на проводе, он сохраняется при
// повторной сериализации.
type Compound struct {
	Packets []Packet    // Распознанные пакеты в порядке на проводе
	Skipped []RawPacket // Пакеты нераспознанных типов, пропущенные при разборе
}

// StartsWithReport сообщает, начинается ли compound пакет с SR или RR,
// как требует RFC 3550 Section 6.1. Для декодера правило
// рекомендательное: нарушение не мешает разбору, но видно вызывающей
// стороне. Для кодирования оно обязательное.
func (c *Compound) StartsWithReport() bool {
	if len(c.Packets) == 0 {
		return false
	}
	pt := c.Packets[0].Header().PacketType
	return pt == TypeSR || pt == TypeRR
}

// DecodeCompound разбирает буфер с одним или несколькими RTCP пакетами.
//
// Фатальны только нарушения уровня заголовков, делающие дальнейший
// разбор небезопасным: BufferTooShort, LengthMismatch и InvalidVersion
// на распознанном типе. Некорректное содержимое одного распознанного
// пакета прерывает весь вызов; частичный успех вызывающая сторона
// при необходимости организует сама, нарезая буфер по полям length.
func DecodeCompound(data []byte) (*Compound, error) {
	if len(data) < headerSize {
		return nil, newCodecError(ErrorCodeBufferTooShort, 0,
			"буфер %d байт короче минимального RTCP заголовка", len(data))
	}

	compound := &Compound{}
	offset := 0
	for offset < len(data) {
		if offset+headerSize > len(data) {
			return nil, newCodecError(ErrorCodeBufferTooShort, offset,
				"осталось %d байт, заголовок требует 4", len(data)-offset)
		}
		h, err := parseHeader(data[offset:])
		if err != nil {
			return nil, err
		}
		packetLen := h.byteLength()
		if offset+packetLen > len(data) {
			return nil, newCodecError(ErrorCodeLengthMismatch, offset,
				"заголовок заявляет %d байт, в буфере осталось %d",
				packetLen, len(data)-offset)
		}
		chunk := data[offset : offset+packetLen]

		packet, perr := decodePacket(h.PacketType, chunk)
		if perr != nil {
			return nil, perr
		}
		// RawPacket возникает только для нераспознанного packet type
		if raw, ok := packet.(*RawPacket); ok {
			compound.Skipped = append(compound.Skipped, *raw)
		} else {
			compound.Packets = append(compound.Packets, packet)
		}
		offset += packetLen
	}
	return compound, nil
}

// decodePacket диспетчеризует срез одного пакета по packet type
func decodePacket(packetType uint8, chunk []byte) (Packet, error) {
	var packet Packet
	switch packetType {
	case TypeSR:
		packet = &SenderReport{}
	case TypeRR:
		packet = &ReceiverReport{}
	case TypeSDES:
		packet = &SourceDescription{}
	case TypeBYE:
		packet = &Bye{}
	case TypeAPP:
		packet = &App{}
	default:
		packet = &RawPacket{}
	}
	if err := packet.Unmarshal(chunk); err != nil {
		return nil, err
	}
	return packet, nil
}

// EncodeCompound сериализует compound пакет в один буфер.
//
// Пустая последовательность и последовательность, не начинающаяся с
// SR или RR - ошибки вызывающей стороны (RFC 3550 Section 6.1).
// Контроль итогового размера относительно path MTU остается за
// вызывающим: кодек не фрагментирует.
func EncodeCompound(c *Compound) ([]byte, error) {
	if len(c.Packets) == 0 {
		return nil, newCodecError(ErrorCodeCompoundOrder, 0,
			"compound пакет не может быть пустым")
	}
	if !c.StartsWithReport() {
		return nil, newCodecError(ErrorCodeCompoundOrder, 0,
			"compound пакет обязан начинаться с SR или RR, первый тип %d",
			c.Packets[0].Header().PacketType)
	}

	var out []byte
	for _, packet := range c.Packets {
		data, err := packet.Marshal()
		if err != nil {
			return nil, err
		}
		out = append(out, data...)
	}
	return out, nil
}
