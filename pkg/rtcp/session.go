// RTP сессия - владелец локального SSRC и трекеров удаленных источников
//
// Session связывает кодек и трекеры в три операции:
//   - IngestRTP: принятый RTP пакет обновляет трекер своего SSRC
//   - IngestRTCP: принятый compound пакет обновляет привязку LSR/DLSR
//     (по SR), описания источников (по SDES) и помечает ушедших (по BYE)
//   - BuildReport: строит SR либо RR с report blocks по отслеживаемым
//     источникам
//
// Архитектура:
//   - Локальный SSRC задается явно либо берется из инжектированного
//     источника случайности: создание сессии детерминировано и
//     тестируемо, process-wide рандом не используется
//   - Session не блокируется и не читает часы напрямую (часы тоже
//     инжектируются); дисциплина "один писатель" - на вызывающей
//     стороне
//   - Когда вызывать BuildReport, решает внешний планировщик
//     (RFC 3550 Section 6.2 вне этого пакета); операция синхронная,
//     результат можно отбросить
package rtcp

import (
	"crypto/rand"
	"encoding/binary"
	"io"
	"sort"
	"time"

	"github.com/pion/rtp"
)

// Session - состояние одной RTP сессии: локальная идентичность плюс
// карта SSRC -> RemoteSource. Живет столько же, сколько медиа сессия,
// уничтожается владельцем.
type Session struct {
	ssrc    uint32              // Локальный SSRC, неизменен до конца сессии
	clock   func() time.Time    // Источник времени
	sources map[uint32]*RemoteSource

	// Счетчики собственной передачи (для SenderInfo)
	packetsSent     uint32 // Всего отправлено RTP пакетов
	octetsSent      uint32 // Всего отправлено байт payload
	lastSentRTPTime uint32 // RTP timestamp последнего отправленного пакета
	sentSinceReport bool   // Отправляли ли RTP с прошлого отчета

	metrics *Metrics // Опциональная инструментация (nil = выключена)

	// Обработчики событий
	onSourceAdded    func(uint32, *RemoteSource) // Появился новый источник
	onSourceDeparted func(uint32, *RemoteSource) // Источник прислал BYE
}

// SessionConfig - конфигурация сессии. Нулевые значения заменяются
// значениями по умолчанию в конструкторе.
type SessionConfig struct {
	SSRC uint32    // Локальный SSRC; 0 - сгенерировать из Rand
	Rand io.Reader // Источник случайности для SSRC (nil = crypto/rand)

	Clock func() time.Time // Часы (nil = time.Now)

	Metrics *Metrics // Prometheus инструментация (nil = выключена)

	// Обработчики событий
	OnSourceAdded    func(uint32, *RemoteSource)
	OnSourceDeparted func(uint32, *RemoteSource)
}

// NewSession создает сессию с заданной конфигурацией.
//
// Разрешение коллизий SSRC (RFC 3550 Section 8.2) вне этого пакета:
// обнаружив коллизию, владелец создает новую сессию с другим SSRC.
func NewSession(config SessionConfig) (*Session, error) {
	ssrc := config.SSRC
	if ssrc == 0 {
		source := config.Rand
		if source == nil {
			source = rand.Reader
		}
		if err := binary.Read(source, binary.BigEndian, &ssrc); err != nil {
			return nil, err
		}
	}

	clock := config.Clock
	if clock == nil {
		clock = time.Now
	}

	return &Session{
		ssrc:             ssrc,
		clock:            clock,
		sources:          make(map[uint32]*RemoteSource),
		metrics:          config.Metrics,
		onSourceAdded:    config.OnSourceAdded,
		onSourceDeparted: config.OnSourceDeparted,
	}, nil
}

// SSRC возвращает локальный SSRC сессии
func (s *Session) SSRC() uint32 {
	return s.ssrc
}

// source возвращает трекер для SSRC, создавая его лениво
func (s *Session) source(ssrc uint32) *RemoteSource {
	src, exists := s.sources[ssrc]
	if !exists {
		src = newRemoteSource(ssrc)
		s.sources[ssrc] = src
		s.metrics.setTrackedSources(len(s.sources))
		if s.onSourceAdded != nil {
			s.onSourceAdded(ssrc, src)
		}
	}
	return src
}

// IngestRTP обновляет трекер источника по принятому RTP пакету.
//
// arrivalTS - локальное время приема пакета, выраженное в единицах
// RTP timestamp потока (тактовую частоту знает вызывающая сторона).
func (s *Session) IngestRTP(header *rtp.Header, arrivalTS uint32) {
	src := s.source(header.SSRC)
	src.Update(header.SequenceNumber, header.Timestamp, arrivalTS)
	s.metrics.countRTPIngested()
}

// IngestRTCP обрабатывает принятый compound RTCP пакет:
//   - SR: фиксирует базис LSR и время приема для DLSR
//   - SDES: сохраняет описание источника на его трекере
//   - BYE: помечает источники как ушедшие; трекеры сохраняются до
//     явного EvictSource - решение об удалении принимает владелец
//   - RR/APP: полезной нагрузки для трекеров не несут
func (s *Session) IngestRTCP(compound *Compound) {
	now := s.clock()
	for _, packet := range compound.Packets {
		s.metrics.countRTCPPacket(packet.Header().PacketType)
		switch p := packet.(type) {
		case *SenderReport:
			s.source(p.SSRC).NoteSenderReport(p.Info.NTPTimestamp, now)
		case *SourceDescription:
			for i := range p.Chunks {
				chunk := p.Chunks[i]
				s.source(chunk.Source).Description = &chunk
			}
		case *Bye:
			for _, ssrc := range p.Sources {
				src, exists := s.sources[ssrc]
				if !exists || src.Departed() {
					continue
				}
				src.depart()
				if s.onSourceDeparted != nil {
					s.onSourceDeparted(ssrc, src)
				}
			}
		}
	}
}

// RecordSent учитывает отправленный RTP пакет в счетчиках передачи.
// Счетчики попадают в SenderInfo следующего SR; факт отправки
// переключает BuildReport с RR на SR.
func (s *Session) RecordSent(payloadOctets int, rtpTimestamp uint32) {
	s.packetsSent++
	s.octetsSent += uint32(payloadOctets)
	s.lastSentRTPTime = rtpTimestamp
	s.sentSinceReport = true
}

// reportableSources возвращает источники для report blocks:
// подтвержденные, не ушедшие, упорядоченные по возрастанию SSRC
func (s *Session) reportableSources() []*RemoteSource {
	result := make([]*RemoteSource, 0, len(s.sources))
	for _, src := range s.sources {
		if src.Validated() && src.hasRTP {
			result = append(result, src)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].SSRC < result[j].SSRC
	})
	return result
}

// BuildReport строит исходящий отчет: SR, если с прошлого отчета
// сессия отправляла RTP данные, иначе RR. Report blocks идут по
// возрастанию SSRC - порядок детерминирован. Источники на испытании
// (до подтверждения последовательным seq) и ушедшие в отчет не
// попадают: их статистика еще не достоверна либо уже не нужна.
//
// Операция синхронная и без побочных эффектов планирования: момент
// вызова выбирает внешний таймер интервалов RTCP.
func (s *Session) BuildReport() Packet {
	now := s.clock()
	reportable := s.reportableSources()
	s.metrics.countReportBuilt()

	if s.sentSinceReport {
		s.sentSinceReport = false
		sr := NewSenderReport(s.ssrc, SenderInfo{
			NTPTimestamp: NTPTimestamp(now),
			RTPTimestamp: s.lastSentRTPTime,
			PacketCount:  s.packetsSent,
			OctetCount:   s.octetsSent,
		})
		for _, src := range reportable {
			sr.AddReceptionReport(src.BuildReceptionReport(now))
		}
		return sr
	}

	rr := NewReceiverReport(s.ssrc)
	for _, src := range reportable {
		rr.AddReceptionReport(src.BuildReceptionReport(now))
	}
	return rr
}

// BuildBye строит BYE пакет для локального SSRC
func (s *Session) BuildBye(reason string) *Bye {
	return NewBye([]uint32{s.ssrc}, reason)
}

// Source возвращает трекер источника, если он существует
func (s *Session) Source(ssrc uint32) (*RemoteSource, bool) {
	src, exists := s.sources[ssrc]
	return src, exists
}

// SourceCount возвращает число отслеживаемых источников
func (s *Session) SourceCount() int {
	return len(s.sources)
}

// EvictSource удаляет трекер источника. Единственный способ удаления:
// сессия никогда не вытесняет источники сама, даже после BYE.
func (s *Session) EvictSource(ssrc uint32) bool {
	if _, exists := s.sources[ssrc]; !exists {
		return false
	}
	delete(s.sources, ssrc)
	s.metrics.setTrackedSources(len(s.sources))
	return true
}
