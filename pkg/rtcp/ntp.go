package rtcp

import "time"

// ntpEpoch - начало NTP эпохи, 1 января 1900 UTC
var ntpEpoch = time.Date(1900, 1, 1, 0, 0, 0, 0, time.UTC)

// NTPTimestamp конвертирует время в 64-битный NTP timestamp
// (RFC 3550 Section 4): старшие 32 бита - секунды с 1900 года,
// младшие - доли секунды
func NTPTimestamp(t time.Time) uint64 {
	duration := t.Sub(ntpEpoch)
	seconds := uint64(duration / time.Second)
	fraction := uint64(duration%time.Second) << 32 / uint64(time.Second)
	return seconds<<32 | fraction
}

// NTPToTime конвертирует 64-битный NTP timestamp обратно в time.Time
func NTPToTime(ntp uint64) time.Time {
	seconds := int64(ntp >> 32)
	nanoseconds := (int64(ntp&0xFFFFFFFF) * int64(time.Second)) >> 32
	return ntpEpoch.Add(time.Duration(seconds)*time.Second + time.Duration(nanoseconds))
}

// NTPMiddle32 возвращает средние 32 бита NTP timestamp - компактную
// форму, используемую в полях LSR/DLSR report block
func NTPMiddle32(ntp uint64) uint32 {
	return uint32(ntp >> 16)
}
