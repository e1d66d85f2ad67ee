// Прием RTP пакетов для трекеров источников
//
// RTCP кодек этого пакета написан вручную, а RTP заголовки разбирает
// github.com/pion/rtp: трекеру нужны только sequence number, RTP
// timestamp, SSRC и список CSRC, payload не интерпретируется.
package rtcp

import "github.com/pion/rtp"

// DecodeRTPHeader разбирает фиксированный RTP заголовок из буфера.
// Ошибки разбора (короткий буфер, обрезанный список CSRC или
// extension) сводятся к BufferTooShort: для этого компонента любой
// некорректный заголовок означает недостаток байт для его полей.
func DecodeRTPHeader(data []byte) (*rtp.Header, error) {
	var h rtp.Header
	if _, err := h.Unmarshal(data); err != nil {
		return nil, newCodecError(ErrorCodeBufferTooShort, 0,
			"RTP заголовок: %v", err)
	}
	return &h, nil
}
