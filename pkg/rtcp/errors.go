package rtcp

import (
	"errors"
	"fmt"
)

// CodecErrorCode определяет типизированные коды ошибок кодека RTCP.
// Позволяет классифицировать ошибки декодирования/кодирования и
// обрабатывать их программно, без разбора текста сообщения.
type CodecErrorCode int

const (
	// Ошибки декодирования
	ErrorCodeBufferTooShort CodecErrorCode = iota + 100 // Буфер короче, чем требует поле/пакет
	ErrorCodeInvalidVersion                             // Версия в заголовке не равна 2
	ErrorCodeLengthMismatch                             // Поле length не согласуется с буфером
	ErrorCodeTextDecode                                 // Текст SDES/BYE не прошел валидацию
	ErrorCodeUnknownPacketType                          // Нераспознанный packet type (не фатально)

	// Ошибки кодирования
	ErrorCodeInvalidCount  // Счетчик превышает 5-битный диапазон (>31)
	ErrorCodeCompoundOrder // Compound пакет не начинается с SR/RR
)

// String возвращает строковое представление кода ошибки
func (code CodecErrorCode) String() string {
	switch code {
	case ErrorCodeBufferTooShort:
		return "BufferTooShort"
	case ErrorCodeInvalidVersion:
		return "InvalidVersion"
	case ErrorCodeLengthMismatch:
		return "LengthMismatch"
	case ErrorCodeTextDecode:
		return "TextDecodeError"
	case ErrorCodeUnknownPacketType:
		return "UnknownPacketType"
	case ErrorCodeInvalidCount:
		return "InvalidCount"
	case ErrorCodeCompoundOrder:
		return "CompoundOrder"
	default:
		return fmt.Sprintf("Unknown(%d)", int(code))
	}
}

// CodecError представляет ошибку кодека RTCP с контекстом
//
// Содержит код ошибки, смещение в буфере на котором она обнаружена
// и человекочитаемые детали. Поддерживает errors.Is через сравнение
// кодов, поэтому вызывающая сторона может писать
// errors.Is(err, ErrBufferTooShort) независимо от деталей.
type CodecError struct {
	Code   CodecErrorCode // Код ошибки
	Offset int            // Смещение в буфере (байты от начала)
	Detail string         // Детали ошибки
}

// Error реализует интерфейс error
func (e *CodecError) Error() string {
	if e.Detail == "" {
		return fmt.Sprintf("rtcp: %s (offset %d)", e.Code, e.Offset)
	}
	return fmt.Sprintf("rtcp: %s (offset %d): %s", e.Code, e.Offset, e.Detail)
}

// Is поддерживает сравнение через errors.Is по коду ошибки
func (e *CodecError) Is(target error) bool {
	var other *CodecError
	if !errors.As(target, &other) {
		return false
	}
	return e.Code == other.Code
}

// newCodecError создает CodecError с форматированными деталями
func newCodecError(code CodecErrorCode, offset int, format string, args ...interface{}) *CodecError {
	return &CodecError{
		Code:   code,
		Offset: offset,
		Detail: fmt.Sprintf(format, args...),
	}
}

// Sentinel значения для errors.Is. Сравнение идет только по коду,
// поэтому offset и detail у sentinel пустые.
var (
	ErrBufferTooShort    = &CodecError{Code: ErrorCodeBufferTooShort}
	ErrInvalidVersion    = &CodecError{Code: ErrorCodeInvalidVersion}
	ErrLengthMismatch    = &CodecError{Code: ErrorCodeLengthMismatch}
	ErrTextDecode        = &CodecError{Code: ErrorCodeTextDecode}
	ErrUnknownPacketType = &CodecError{Code: ErrorCodeUnknownPacketType}
	ErrInvalidCount      = &CodecError{Code: ErrorCodeInvalidCount}
	ErrCompoundOrder     = &CodecError{Code: ErrorCodeCompoundOrder}
)
