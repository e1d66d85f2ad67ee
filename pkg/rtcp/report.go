// Sender Report и Receiver Report (RFC 3550 Section 6.4)
package rtcp

// Размеры фиксированных частей в байтах
const (
	senderInfoSize  = 20 // NTP(8) + RTP ts(4) + packets(4) + octets(4)
	reportBlockSize = 24 // SSRC(4) + lost(4) + ext seq(4) + jitter(4) + LSR(4) + DLSR(4)
	srFixedSize     = headerSize + 4 + senderInfoSize // заголовок + SSRC + sender info
	rrFixedSize     = headerSize + 4                  // заголовок + SSRC
)

// maxCumulativeLost - потолок 24-битного поля cumulative lost
const maxCumulativeLost = 0x00FFFFFF

// SenderInfo - фиксированный 20-байтовый блок Sender Report
// (RFC 3550 Section 6.4.1). Снимок счетчиков передачи на момент
// построения отчета; после создания не изменяется.
type SenderInfo struct {
	NTPTimestamp uint64 // NTP timestamp (64 бита)
	RTPTimestamp uint32 // RTP timestamp в той же точке времени
	PacketCount  uint32 // Всего отправлено RTP пакетов
	OctetCount   uint32 // Всего отправлено байт payload
}

// ReceptionReport - фиксированный 24-байтовый report block
// (RFC 3550 Section 6.4.1), по одному на отслеживаемый удаленный SSRC
type ReceptionReport struct {
	SSRC             uint32 // SSRC источника, о котором отчет
	FractionLost     uint8  // Доля потерь за интервал (8-битная фиксированная точка)
	CumulativeLost   uint32 // Всего потеряно пакетов (24 бита, насыщается)
	HighestSeqNum    uint32 // Extended highest sequence number (cycles<<16 | seq)
	Jitter           uint32 // Interarrival jitter в единицах RTP timestamp
	LastSR           uint32 // Средние 32 бита NTP из последнего SR (LSR)
	DelaySinceLastSR uint32 // Задержка с момента последнего SR, 1/65536 с (DLSR)
}

// marshalReceptionReport записывает 24-байтовый report block
func marshalReceptionReport(buf []byte, offset int, rr ReceptionReport) {
	_ = putUint32(buf, offset, rr.SSRC)
	// fraction lost (1 байт) и cumulative lost (24 бита) упакованы в одно слово
	lost := rr.CumulativeLost
	if lost > maxCumulativeLost {
		lost = maxCumulativeLost
	}
	_ = putUint32(buf, offset+4, uint32(rr.FractionLost)<<24|lost)
	_ = putUint32(buf, offset+8, rr.HighestSeqNum)
	_ = putUint32(buf, offset+12, rr.Jitter)
	_ = putUint32(buf, offset+16, rr.LastSR)
	_ = putUint32(buf, offset+20, rr.DelaySinceLastSR)
}

// parseReceptionReport читает 24-байтовый report block
func parseReceptionReport(data []byte, offset int) (ReceptionReport, *CodecError) {
	if offset+reportBlockSize > len(data) {
		return ReceptionReport{}, newCodecError(ErrorCodeBufferTooShort, offset,
			"report block требует %d байт", reportBlockSize)
	}
	var rr ReceptionReport
	rr.SSRC, _ = readUint32(data, offset)
	lostWord, _ := readUint32(data, offset+4)
	rr.FractionLost = uint8(lostWord >> 24)
	rr.CumulativeLost = lostWord & maxCumulativeLost
	rr.HighestSeqNum, _ = readUint32(data, offset+8)
	rr.Jitter, _ = readUint32(data, offset+12)
	rr.LastSR, _ = readUint32(data, offset+16)
	rr.DelaySinceLastSR, _ = readUint32(data, offset+20)
	return rr, nil
}

// SenderReport - RTCP Sender Report согласно RFC 3550 Section 6.4.1
type SenderReport struct {
	Hdr              Header
	SSRC             uint32     // SSRC отправителя
	Info             SenderInfo // Снимок счетчиков передачи
	ReceptionReports []ReceptionReport
}

// NewSenderReport создает Sender Report без report blocks
func NewSenderReport(ssrc uint32, info SenderInfo) *SenderReport {
	return &SenderReport{
		Hdr: Header{
			Version:    rtcpVersion,
			PacketType: TypeSR,
			Length:     uint16((srFixedSize / 4) - 1),
		},
		SSRC: ssrc,
		Info: info,
	}
}

// AddReceptionReport добавляет report block и пересчитывает заголовок
func (sr *SenderReport) AddReceptionReport(rr ReceptionReport) {
	sr.ReceptionReports = append(sr.ReceptionReports, rr)
	sr.Hdr.Count = uint8(len(sr.ReceptionReports))
	sr.Hdr.Length = uint16((srFixedSize+len(sr.ReceptionReports)*reportBlockSize)/4 - 1)
}

// Header возвращает заголовок пакета
func (sr *SenderReport) Header() Header {
	return sr.Hdr
}

// Marshal кодирует Sender Report в байты.
// Количество report blocks больше 31 не представимо в 5-битном поле
// RC: такой пакет нужно разбивать на несколько записей compound
// пакета на стороне вызывающего.
func (sr *SenderReport) Marshal() ([]byte, error) {
	if len(sr.ReceptionReports) > maxCount {
		return nil, newCodecError(ErrorCodeInvalidCount, 0,
			"%d report blocks не помещаются в 5-битный RC", len(sr.ReceptionReports))
	}

	size := srFixedSize + len(sr.ReceptionReports)*reportBlockSize
	data := make([]byte, size)
	if err := marshalHeader(data, sr.Hdr.Padding, uint8(len(sr.ReceptionReports)), TypeSR); err != nil {
		return nil, err
	}

	_ = putUint32(data, 4, sr.SSRC)
	_ = putUint64(data, 8, sr.Info.NTPTimestamp)
	_ = putUint32(data, 16, sr.Info.RTPTimestamp)
	_ = putUint32(data, 20, sr.Info.PacketCount)
	_ = putUint32(data, 24, sr.Info.OctetCount)

	offset := srFixedSize
	for _, rr := range sr.ReceptionReports {
		marshalReceptionReport(data, offset, rr)
		offset += reportBlockSize
	}
	return data, nil
}

// Unmarshal декодирует Sender Report из среза, содержащего ровно один пакет
func (sr *SenderReport) Unmarshal(data []byte) error {
	h, cerr := parseHeader(data)
	if cerr != nil {
		return cerr
	}
	if err := checkPacket(h, data, TypeSR); err != nil {
		return err
	}
	// length обязан покрывать SSRC + sender info + RC report blocks и ничего кроме
	if h.byteLength() != srFixedSize+int(h.Count)*reportBlockSize {
		return newCodecError(ErrorCodeLengthMismatch, 2,
			"SR с RC=%d требует %d байт, заявлено %d",
			h.Count, srFixedSize+int(h.Count)*reportBlockSize, h.byteLength())
	}

	sr.Hdr = h
	sr.SSRC, _ = readUint32(data, 4)
	sr.Info.NTPTimestamp, _ = readUint64(data, 8)
	sr.Info.RTPTimestamp, _ = readUint32(data, 16)
	sr.Info.PacketCount, _ = readUint32(data, 20)
	sr.Info.OctetCount, _ = readUint32(data, 24)

	sr.ReceptionReports = nil
	offset := srFixedSize
	for i := 0; i < int(h.Count); i++ {
		rr, err := parseReceptionReport(data, offset)
		if err != nil {
			return err
		}
		sr.ReceptionReports = append(sr.ReceptionReports, rr)
		offset += reportBlockSize
	}
	return nil
}

// ReceiverReport - RTCP Receiver Report согласно RFC 3550 Section 6.4.2
type ReceiverReport struct {
	Hdr              Header
	SSRC             uint32 // SSRC отправителя отчета
	ReceptionReports []ReceptionReport
}

// NewReceiverReport создает Receiver Report без report blocks
func NewReceiverReport(ssrc uint32) *ReceiverReport {
	return &ReceiverReport{
		Hdr: Header{
			Version:    rtcpVersion,
			PacketType: TypeRR,
			Length:     uint16((rrFixedSize / 4) - 1),
		},
		SSRC: ssrc,
	}
}

// AddReceptionReport добавляет report block и пересчитывает заголовок
func (rr *ReceiverReport) AddReceptionReport(report ReceptionReport) {
	rr.ReceptionReports = append(rr.ReceptionReports, report)
	rr.Hdr.Count = uint8(len(rr.ReceptionReports))
	rr.Hdr.Length = uint16((rrFixedSize+len(rr.ReceptionReports)*reportBlockSize)/4 - 1)
}

// Header возвращает заголовок пакета
func (rr *ReceiverReport) Header() Header {
	return rr.Hdr
}

// Marshal кодирует Receiver Report в байты
func (rr *ReceiverReport) Marshal() ([]byte, error) {
	if len(rr.ReceptionReports) > maxCount {
		return nil, newCodecError(ErrorCodeInvalidCount, 0,
			"%d report blocks не помещаются в 5-битный RC", len(rr.ReceptionReports))
	}

	size := rrFixedSize + len(rr.ReceptionReports)*reportBlockSize
	data := make([]byte, size)
	if err := marshalHeader(data, rr.Hdr.Padding, uint8(len(rr.ReceptionReports)), TypeRR); err != nil {
		return nil, err
	}
	_ = putUint32(data, 4, rr.SSRC)

	offset := rrFixedSize
	for _, report := range rr.ReceptionReports {
		marshalReceptionReport(data, offset, report)
		offset += reportBlockSize
	}
	return data, nil
}

// Unmarshal декодирует Receiver Report из среза, содержащего ровно один пакет
func (rr *ReceiverReport) Unmarshal(data []byte) error {
	h, cerr := parseHeader(data)
	if cerr != nil {
		return cerr
	}
	if err := checkPacket(h, data, TypeRR); err != nil {
		return err
	}
	if h.byteLength() != rrFixedSize+int(h.Count)*reportBlockSize {
		return newCodecError(ErrorCodeLengthMismatch, 2,
			"RR с RC=%d требует %d байт, заявлено %d",
			h.Count, rrFixedSize+int(h.Count)*reportBlockSize, h.byteLength())
	}

	rr.Hdr = h
	rr.SSRC, _ = readUint32(data, 4)

	rr.ReceptionReports = nil
	offset := rrFixedSize
	for i := 0; i < int(h.Count); i++ {
		report, err := parseReceptionReport(data, offset)
		if err != nil {
			return err
		}
		rr.ReceptionReports = append(rr.ReceptionReports, report)
		offset += reportBlockSize
	}
	return nil
}
