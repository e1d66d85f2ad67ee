package rtcp

import (
	"errors"
	"testing"
)

func TestPackHeaderByte(t *testing.T) {
	tests := []struct {
		name    string
		padding bool
		count   uint8
		want    byte
	}{
		{"без padding, count 0", false, 0, 0x80},
		{"без padding, count 1", false, 1, 0x81},
		{"с padding", true, 0, 0xA0},
		{"максимальный count", false, 31, 0x9F},
		{"count обрезается до 5 бит", false, 0xFF, 0x9F},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := packHeaderByte(tt.padding, tt.count)
			if got != tt.want {
				t.Errorf("packHeaderByte(%v, %d) = 0x%02X, ожидалось 0x%02X",
					tt.padding, tt.count, got, tt.want)
			}

			// Распаковка обязана быть обратной операцией
			version, padding, count := unpackHeaderByte(got)
			if version != rtcpVersion {
				t.Errorf("версия после распаковки %d, ожидалось %d", version, rtcpVersion)
			}
			if padding != tt.padding {
				t.Errorf("padding после распаковки %v, ожидалось %v", padding, tt.padding)
			}
			if count != tt.count&0x1F {
				t.Errorf("count после распаковки %d, ожидалось %d", count, tt.count&0x1F)
			}
		})
	}
}

func TestReadBoundsChecking(t *testing.T) {
	buf := []byte{0x01, 0x02, 0x03, 0x04, 0x05, 0x06, 0x07, 0x08}

	if v, err := readUint32(buf, 0); err != nil || v != 0x01020304 {
		t.Errorf("readUint32(buf, 0) = %08X, %v", v, err)
	}
	if v, err := readUint64(buf, 0); err != nil || v != 0x0102030405060708 {
		t.Errorf("readUint64(buf, 0) = %016X, %v", v, err)
	}

	// Чтение за границей буфера обязано вернуть BufferTooShort,
	// а не усечь или запаниковать
	if _, err := readUint32(buf, 5); !errors.Is(err, ErrBufferTooShort) {
		t.Errorf("readUint32 за границей: ожидался BufferTooShort, получено %v", err)
	}
	if _, err := readUint64(buf, 1); !errors.Is(err, ErrBufferTooShort) {
		t.Errorf("readUint64 за границей: ожидался BufferTooShort, получено %v", err)
	}
	if _, err := readUint16(buf, 7); !errors.Is(err, ErrBufferTooShort) {
		t.Errorf("readUint16 за границей: ожидался BufferTooShort, получено %v", err)
	}
}

func TestWriteBoundsChecking(t *testing.T) {
	buf := make([]byte, 4)

	if err := putUint32(buf, 0, 0xAABBCCDD); err != nil {
		t.Fatalf("putUint32: %v", err)
	}
	if buf[0] != 0xAA || buf[3] != 0xDD {
		t.Errorf("putUint32 записал %v", buf)
	}
	if err := putUint32(buf, 1, 0); !errors.Is(err, ErrBufferTooShort) {
		t.Errorf("putUint32 за границей: ожидался BufferTooShort, получено %v", err)
	}
	if err := putUint64(buf, 0, 0); !errors.Is(err, ErrBufferTooShort) {
		t.Errorf("putUint64 за границей: ожидался BufferTooShort, получено %v", err)
	}
}

func TestPad4(t *testing.T) {
	cases := map[int]int{0: 0, 1: 4, 2: 4, 3: 4, 4: 4, 5: 8, 17: 20}
	for in, want := range cases {
		if got := pad4(in); got != want {
			t.Errorf("pad4(%d) = %d, ожидалось %d", in, got, want)
		}
	}
}

func TestIsRTCPPacket(t *testing.T) {
	rr := NewReceiverReport(0x1234)
	data, err := rr.Marshal()
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	if !IsRTCPPacket(data) {
		t.Error("сериализованный RR не распознан как RTCP")
	}

	if IsRTCPPacket([]byte{0x80, 0x00}) {
		t.Error("буфер короче 4 байт распознан как RTCP")
	}
	// payload type RTP пакета не попадает в диапазон 200-204
	if IsRTCPPacket([]byte{0x80, 0x60, 0x00, 0x01}) {
		t.Error("RTP-подобный буфер распознан как RTCP")
	}
}

func TestCodecErrorIs(t *testing.T) {
	err := newCodecError(ErrorCodeLengthMismatch, 8, "тест")
	if !errors.Is(err, ErrLengthMismatch) {
		t.Error("errors.Is не сопоставил ошибку по коду")
	}
	if errors.Is(err, ErrBufferTooShort) {
		t.Error("errors.Is сопоставил ошибки с разными кодами")
	}
	if err.Error() == "" {
		t.Error("пустое сообщение ошибки")
	}
}
