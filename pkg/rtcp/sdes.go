// Source Description пакет и TLV кодек его items (RFC 3550 Section 6.5)
//
// Каждый chunk: SSRC + список items (тег 1 байт, длина 1 байт, текст),
// терминированный тегом END (0) и дополненный нулями до границы 4 байт.
// Item с невалидным UTF-8 - восстановимая ошибка уровня item: он
// пропускается, остальной chunk разбирается дальше.
package rtcp

import "unicode/utf8"

// maxItemText - максимум октетов текста в одном SDES item (8-битная длина)
const maxItemText = 255

// SDESItem - один элемент описания источника
type SDESItem struct {
	Type uint8  // Тип item (CNAME, NAME, ...)
	Text string // Текст в UTF-8
}

// SDESChunk - описание одного источника: SSRC плюс упорядоченный
// список items. CNAME по конвенции обязателен для конформного chunk,
// но кодек этого не требует: валидация - дело вызывающей стороны.
type SDESChunk struct {
	Source uint32 // SSRC/CSRC
	Items  []SDESItem
}

// item возвращает текст первого item заданного типа
func (c *SDESChunk) item(itemType uint8) (string, bool) {
	for _, it := range c.Items {
		if it.Type == itemType {
			return it.Text, true
		}
	}
	return "", false
}

// CNAME возвращает canonical name источника, если он присутствует
func (c *SDESChunk) CNAME() (string, bool) {
	return c.item(SDESTypeCNAME)
}

// Tool возвращает название приложения источника, если оно присутствует
func (c *SDESChunk) Tool() (string, bool) {
	return c.item(SDESTypeTool)
}

// chunkSize возвращает размер chunk на проводе: SSRC + items + END,
// дополненный до границы 4 байт
func (c *SDESChunk) chunkSize() int {
	size := 4
	for _, it := range c.Items {
		size += 2 + len(it.Text)
	}
	size++ // END
	return pad4(size)
}

// SourceDescription - RTCP SDES пакет согласно RFC 3550 Section 6.5
type SourceDescription struct {
	Hdr    Header
	Chunks []SDESChunk
}

// NewSourceDescription создает пустой SDES пакет
func NewSourceDescription() *SourceDescription {
	return &SourceDescription{
		Hdr: Header{
			Version:    rtcpVersion,
			PacketType: TypeSDES,
			Length:     0,
		},
	}
}

// AddChunk добавляет chunk и пересчитывает заголовок. Chunk, с которым
// пакет перестает помещаться в 16-битное поле length, отклоняется.
func (sd *SourceDescription) AddChunk(ssrc uint32, items []SDESItem) error {
	chunk := SDESChunk{Source: ssrc, Items: items}
	size := headerSize + chunk.chunkSize()
	for i := range sd.Chunks {
		size += sd.Chunks[i].chunkSize()
	}
	if size > maxPacketSize {
		return newCodecError(ErrorCodeLengthMismatch, 0,
			"пакет %d байт не описывается 16-битным полем length (максимум %d)",
			size, maxPacketSize)
	}
	sd.Chunks = append(sd.Chunks, chunk)
	sd.Hdr.Count = uint8(len(sd.Chunks))
	sd.Hdr.Length = uint16(size/4 - 1)
	return nil
}

// Header возвращает заголовок пакета
func (sd *SourceDescription) Header() Header {
	return sd.Hdr
}

// Marshal кодирует SDES пакет в байты
func (sd *SourceDescription) Marshal() ([]byte, error) {
	if len(sd.Chunks) > maxCount {
		return nil, newCodecError(ErrorCodeInvalidCount, 0,
			"%d chunks не помещаются в 5-битный SC", len(sd.Chunks))
	}

	size := headerSize
	for i := range sd.Chunks {
		for _, it := range sd.Chunks[i].Items {
			if len(it.Text) > maxItemText {
				return nil, newCodecError(ErrorCodeTextDecode, 0,
					"текст SDES item типа %d длиннее %d байт", it.Type, maxItemText)
			}
		}
		size += sd.Chunks[i].chunkSize()
	}

	data := make([]byte, size)
	if err := marshalHeader(data, sd.Hdr.Padding, uint8(len(sd.Chunks)), TypeSDES); err != nil {
		return nil, err
	}

	offset := headerSize
	for i := range sd.Chunks {
		chunk := &sd.Chunks[i]
		_ = putUint32(data, offset, chunk.Source)
		offset += 4
		for _, it := range chunk.Items {
			data[offset] = it.Type
			data[offset+1] = uint8(len(it.Text))
			copy(data[offset+2:], it.Text)
			offset += 2 + len(it.Text)
		}
		data[offset] = SDESTypeEnd
		offset++
		// выравнивание chunk до границы 4 байт нулями
		offset = pad4(offset)
	}
	return data, nil
}

// Unmarshal декодирует SDES пакет из среза, содержащего ровно один пакет.
// Меньше SC корректных chunks, чем заявлено - ошибка разбора.
func (sd *SourceDescription) Unmarshal(data []byte) error {
	h, cerr := parseHeader(data)
	if cerr != nil {
		return cerr
	}
	if err := checkPacket(h, data, TypeSDES); err != nil {
		return err
	}

	sd.Hdr = h
	sd.Chunks = nil
	offset := headerSize
	for i := 0; i < int(h.Count); i++ {
		chunk, next, err := parseSDESChunk(data, offset)
		if err != nil {
			return err
		}
		sd.Chunks = append(sd.Chunks, chunk)
		offset = next
	}
	if offset != len(data) {
		return newCodecError(ErrorCodeLengthMismatch, offset,
			"после %d chunks осталось %d лишних байт", h.Count, len(data)-offset)
	}
	return nil
}

// parseSDESChunk разбирает один chunk начиная с offset и возвращает
// смещение сразу за его выравниванием
func parseSDESChunk(data []byte, offset int) (SDESChunk, int, *CodecError) {
	source, err := readUint32(data, offset)
	if err != nil {
		return SDESChunk{}, 0, err
	}
	chunk := SDESChunk{Source: source}
	offset += 4

	for {
		if offset >= len(data) {
			return SDESChunk{}, 0, newCodecError(ErrorCodeBufferTooShort, offset,
				"список SDES items не терминирован")
		}
		if data[offset] == SDESTypeEnd {
			offset++
			break
		}
		if offset+2 > len(data) {
			return SDESChunk{}, 0, newCodecError(ErrorCodeBufferTooShort, offset,
				"SDES item обрезан на теге/длине")
		}
		itemType := data[offset]
		itemLen := int(data[offset+1])
		offset += 2
		if offset+itemLen > len(data) {
			return SDESChunk{}, 0, newCodecError(ErrorCodeBufferTooShort, offset,
				"SDES item заявляет %d байт текста", itemLen)
		}
		text := data[offset : offset+itemLen]
		offset += itemLen
		if !utf8.Valid(text) {
			// восстановимая ошибка уровня item: пропускаем его
			continue
		}
		chunk.Items = append(chunk.Items, SDESItem{Type: itemType, Text: string(text)})
	}

	// выравнивание до границы 4 байт, байты обязаны быть нулевыми
	for offset%4 != 0 {
		if offset >= len(data) {
			return SDESChunk{}, 0, newCodecError(ErrorCodeBufferTooShort, offset,
				"chunk обрезан на выравнивании")
		}
		if data[offset] != 0 {
			return SDESChunk{}, 0, newCodecError(ErrorCodeTextDecode, offset,
				"ненулевой байт 0x%02x в выравнивании chunk", data[offset])
		}
		offset++
	}
	return chunk, offset, nil
}
