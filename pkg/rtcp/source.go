// Отслеживание состояния удаленного источника RTP
//
// RemoteSource превращает поток принятых RTP пакетов одного SSRC в
// цифры для Reception Report согласно RFC 3550:
//   - Extended sequence numbers: 16-битный номер с провода плюс
//     счетчик переполнений дает монотонный 32-битный номер
//   - Потери: ожидаемое число пакетов минус принятое, накопительно
//     (с насыщением 24-битного поля) и по интервалам между отчетами
//   - Jitter: сглаженная оценка вариации времени прохождения
//     (RFC 3550 Appendix A.8, фиксированный делитель 16)
//   - LSR/DLSR: привязка к последнему принятому SR этого источника
//
// Трекер не выполняет блокировок: доступ сериализует владеющая Session
// либо сама вызывающая сторона.
package rtcp

import (
	"time"

	"github.com/looplab/fsm"
)

// RemoteSource - изменяемое состояние одного удаленного SSRC.
// Создается лениво при первом пакете или отчете с новым SSRC,
// удаляется только явным вытеснением из сессии.
type RemoteSource struct {
	SSRC uint32 // Идентификатор источника

	state *fsm.FSM // Жизненный цикл: probation -> valid -> departed

	// Sequence tracking
	hasRTP  bool   // Получен ли хоть один RTP пакет
	baseSeq uint16 // Первый принятый sequence number
	maxSeq  uint16 // Наибольший принятый sequence number
	cycles  uint32 // Число переполнений 16-битного счетчика

	// Счетчики пакетов
	received       uint32 // Всего принято пакетов
	expectedPrior  uint32 // Ожидалось на момент прошлого отчета
	receivedPrior  uint32 // Принято на момент прошлого отчета
	cumulativeLost uint32 // Всего потеряно (насыщается, никогда не убывает)

	// Jitter (RFC 3550 Appendix A.8)
	jitter      float64 // Текущая сглаженная оценка
	lastTransit int64   // Время прохождения предыдущего пакета
	hasTransit  bool    // Есть ли база для дельты

	// Привязка к последнему SR этого источника
	lastSRNTP     uint32    // Средние 32 бита NTP из SR (базис LSR)
	lastSRArrival time.Time // Локальное время приема SR (для DLSR)

	// Описание источника из SDES
	Description *SDESChunk
}

// newRemoteSource создает трекер для нового SSRC
func newRemoteSource(ssrc uint32) *RemoteSource {
	return &RemoteSource{
		SSRC:  ssrc,
		state: newSourceFSM(),
	}
}

// State возвращает текущее состояние жизненного цикла источника
func (src *RemoteSource) State() string {
	return src.state.Current()
}

// Departed сообщает, прислал ли источник BYE
func (src *RemoteSource) Departed() bool {
	return src.state.Current() == SourceStateDeparted
}

// Validated сообщает, подтвержден ли источник последовательными пакетами
func (src *RemoteSource) Validated() bool {
	return src.state.Current() == SourceStateValid
}

// depart переводит источник в состояние departed (по BYE)
func (src *RemoteSource) depart() {
	_ = src.state.Event(fsmContext(), "depart")
}

// Update обрабатывает принятый RTP пакет источника.
//
// seq - sequence number с провода, rtpTS - RTP timestamp пакета,
// arrivalTS - локальное время приема, выраженное в тех же единицах,
// что и RTP timestamp (тактовая частота потока). Время приема
// передает вызывающая сторона: трекер детерминирован и не читает
// часы сам.
func (src *RemoteSource) Update(seq uint16, rtpTS uint32, arrivalTS uint32) {
	if !src.hasRTP {
		src.hasRTP = true
		src.baseSeq = seq
		src.maxSeq = seq
		src.received = 1
		src.noteTransit(rtpTS, arrivalTS)
		return
	}

	// подтверждение источника последовательным пакетом
	if src.state.Current() == SourceStateProbation && seq == src.maxSeq+1 {
		_ = src.state.Event(fsmContext(), "validate")
	}

	// переполнение 16-битного счетчика: новый номер "ниже" прежнего
	// максимума больше чем на половину диапазона
	switch {
	case seq > src.maxSeq && seq-src.maxSeq <= 0x8000:
		src.maxSeq = seq
	case seq < src.maxSeq && src.maxSeq-seq > 0x8000:
		src.cycles++
		src.maxSeq = seq
	}
	// иначе пакет пришел не по порядку, максимум не двигается

	src.received++
	src.noteTransit(rtpTS, arrivalTS)
}

// noteTransit обновляет jitter по дельте времени прохождения
func (src *RemoteSource) noteTransit(rtpTS uint32, arrivalTS uint32) {
	transit := int64(arrivalTS) - int64(rtpTS)
	if src.hasTransit {
		d := transit - src.lastTransit
		if d < 0 {
			d = -d
		}
		src.jitter += (float64(d) - src.jitter) / 16.0
	}
	src.lastTransit = transit
	src.hasTransit = true
}

// NoteSenderReport фиксирует прием SR от этого источника: базис LSR
// (средние 32 бита NTP) и локальное время приема для вычисления DLSR
// в следующем исходящем отчете
func (src *RemoteSource) NoteSenderReport(ntpTimestamp uint64, arrival time.Time) {
	src.lastSRNTP = NTPMiddle32(ntpTimestamp)
	src.lastSRArrival = arrival
}

// ExtendedSeq возвращает расширенный sequence number:
// счетчик циклов в старших 16 битах, максимум с провода - в младших
func (src *RemoteSource) ExtendedSeq() uint32 {
	return src.cycles<<16 | uint32(src.maxSeq)
}

// Jitter возвращает текущую оценку jitter в единицах RTP timestamp
func (src *RemoteSource) Jitter() uint32 {
	return uint32(src.jitter)
}

// PacketsReceived возвращает число принятых пакетов
func (src *RemoteSource) PacketsReceived() uint32 {
	return src.received
}

// BuildReceptionReport строит 24-байтовый report block по состоянию
// трекера и сбрасывает интервальные счетчики.
//
// Доля потерь считается за интервал с прошлого вызова и округляется
// до ближайшего значения 8-битной фиксированной точки. Накопленные
// потери не убывают: при отрицательной арифметике из-за дублей и
// пакетов не по порядку значение насыщается на последнем известном.
func (src *RemoteSource) BuildReceptionReport(now time.Time) ReceptionReport {
	extended := src.ExtendedSeq()
	expected := extended - uint32(src.baseSeq) + 1

	// интервал с прошлого отчета
	expectedInterval := expected - src.expectedPrior
	receivedInterval := src.received - src.receivedPrior
	src.expectedPrior = expected
	src.receivedPrior = src.received

	var fraction uint8
	if expectedInterval > 0 && expectedInterval >= receivedInterval {
		lostInterval := expectedInterval - receivedInterval
		scaled := (lostInterval*256 + expectedInterval/2) / expectedInterval
		if scaled > 255 {
			scaled = 255
		}
		fraction = uint8(scaled)
	}

	// накопленные потери: насыщение вместо ухода в минус
	if expected >= src.received {
		lost := expected - src.received
		if lost > maxCumulativeLost {
			lost = maxCumulativeLost
		}
		if lost > src.cumulativeLost {
			src.cumulativeLost = lost
		}
	}

	var lsr, dlsr uint32
	if !src.lastSRArrival.IsZero() {
		lsr = src.lastSRNTP
		delay := now.Sub(src.lastSRArrival)
		if delay > 0 {
			dlsr = uint32(delay * 65536 / time.Second)
		}
	}

	return ReceptionReport{
		SSRC:             src.SSRC,
		FractionLost:     fraction,
		CumulativeLost:   src.cumulativeLost,
		HighestSeqNum:    extended,
		Jitter:           uint32(src.jitter),
		LastSR:           lsr,
		DelaySinceLastSR: dlsr,
	}
}
