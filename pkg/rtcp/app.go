// Application-Defined пакет (RFC 3550 Section 6.7)
package rtcp

// appFixedSize - заголовок + SSRC + 4-байтовое имя
const appFixedSize = headerSize + 8

// App - RTCP APP пакет: экспериментальное расширение с 4-символьным
// ASCII именем и непрозрачным payload. Длина payload не кодируется
// отдельно - она выводится из поля length внешнего заголовка.
type App struct {
	Hdr     Header
	Subtype uint8   // Субтип приложения (5 бит, поле count заголовка)
	SSRC    uint32  // SSRC отправителя
	Name    [4]byte // 4 ASCII символа, уникальные для приложения
	Data    []byte  // Непрозрачный payload, кратный 4 байтам
}

// NewApp создает APP пакет. Payload обязан быть кратен 4 байтам и
// вместе с заголовком помещаться в 16-битное поле length; payload
// больше этого предела Marshal отклоняет.
func NewApp(subtype uint8, ssrc uint32, name [4]byte, data []byte) *App {
	a := &App{
		Hdr: Header{
			Version:    rtcpVersion,
			Count:      subtype & 0x1F,
			PacketType: TypeAPP,
		},
		Subtype: subtype & 0x1F,
		SSRC:    ssrc,
		Name:    name,
		Data:    data,
	}
	if size := appFixedSize + len(data); size <= maxPacketSize {
		a.Hdr.Length = uint16(size/4 - 1)
	}
	return a
}

// Header возвращает заголовок пакета
func (a *App) Header() Header {
	return a.Hdr
}

// Marshal кодирует APP пакет в байты
func (a *App) Marshal() ([]byte, error) {
	if a.Subtype > maxCount {
		return nil, newCodecError(ErrorCodeInvalidCount, 0,
			"субтип %d не помещается в 5 бит", a.Subtype)
	}
	if len(a.Data)%4 != 0 {
		return nil, newCodecError(ErrorCodeLengthMismatch, 0,
			"payload APP (%d байт) не кратен 4", len(a.Data))
	}
	for i, c := range a.Name {
		if c >= 0x80 {
			return nil, newCodecError(ErrorCodeTextDecode, i,
				"байт 0x%02x имени APP вне диапазона ASCII", c)
		}
	}

	data := make([]byte, appFixedSize+len(a.Data))
	if err := marshalHeader(data, a.Hdr.Padding, a.Subtype, TypeAPP); err != nil {
		return nil, err
	}
	_ = putUint32(data, 4, a.SSRC)
	copy(data[8:12], a.Name[:])
	copy(data[12:], a.Data)
	return data, nil
}

// Unmarshal декодирует APP пакет из среза, содержащего ровно один пакет
func (a *App) Unmarshal(data []byte) error {
	h, cerr := parseHeader(data)
	if cerr != nil {
		return cerr
	}
	if err := checkPacket(h, data, TypeAPP); err != nil {
		return err
	}
	if h.byteLength() < appFixedSize {
		return newCodecError(ErrorCodeLengthMismatch, 2,
			"APP требует минимум %d байт, заявлено %d", appFixedSize, h.byteLength())
	}

	a.Hdr = h
	a.Subtype = h.Count
	a.SSRC, _ = readUint32(data, 4)
	copy(a.Name[:], data[8:12])
	payload := data[appFixedSize:]
	if len(payload) > 0 {
		a.Data = make([]byte, len(payload))
		copy(a.Data, payload)
	} else {
		a.Data = nil
	}
	return nil
}
