package rtcp

import (
	"bytes"
	"testing"
	"time"

	"github.com/pion/rtp"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// feedSource скармливает сессии последовательные RTP пакеты источника,
// чтобы тот прошел пробацию
func feedSource(s *Session, ssrc uint32, firstSeq uint16, count int) {
	for i := 0; i < count; i++ {
		s.IngestRTP(&rtp.Header{
			SSRC:           ssrc,
			SequenceNumber: firstSeq + uint16(i),
			Timestamp:      uint32(i) * 160,
		}, uint32(i)*160)
	}
}

func TestNewSessionSSRC(t *testing.T) {
	t.Run("фиксированный SSRC", func(t *testing.T) {
		s, err := NewSession(SessionConfig{SSRC: 0xCAFEBABE})
		require.NoError(t, err)
		assert.Equal(t, uint32(0xCAFEBABE), s.SSRC())
	})

	t.Run("инжектированный источник случайности", func(t *testing.T) {
		s, err := NewSession(SessionConfig{
			Rand: bytes.NewReader([]byte{0x12, 0x34, 0x56, 0x78}),
		})
		require.NoError(t, err)
		assert.Equal(t, uint32(0x12345678), s.SSRC())
	})

	t.Run("исчерпанный источник случайности", func(t *testing.T) {
		_, err := NewSession(SessionConfig{Rand: bytes.NewReader(nil)})
		assert.Error(t, err)
	})
}

func TestBuildReportOrdering(t *testing.T) {
	s, err := NewSession(SessionConfig{SSRC: 1})
	require.NoError(t, err)

	// источники появляются в произвольном порядке SSRC
	feedSource(s, 0xBBBB, 100, 3)
	feedSource(s, 0xAAAA, 200, 3)
	feedSource(s, 0xCCCC, 300, 3)

	report := s.BuildReport()
	rr, ok := report.(*ReceiverReport)
	require.True(t, ok, "без отправленных данных сессия строит RR")
	require.Len(t, rr.ReceptionReports, 3)

	// report blocks упорядочены по возрастанию SSRC
	assert.Equal(t, uint32(0xAAAA), rr.ReceptionReports[0].SSRC)
	assert.Equal(t, uint32(0xBBBB), rr.ReceptionReports[1].SSRC)
	assert.Equal(t, uint32(0xCCCC), rr.ReceptionReports[2].SSRC)
}

func TestBuildReportExcludesProbation(t *testing.T) {
	s, err := NewSession(SessionConfig{SSRC: 1})
	require.NoError(t, err)

	feedSource(s, 0xAAAA, 100, 3)
	// одиночный пакет - источник еще на испытании
	s.IngestRTP(&rtp.Header{SSRC: 0xDDDD, SequenceNumber: 7}, 0)

	report := s.BuildReport()
	rr, ok := report.(*ReceiverReport)
	require.True(t, ok)
	require.Len(t, rr.ReceptionReports, 1)
	assert.Equal(t, uint32(0xAAAA), rr.ReceptionReports[0].SSRC)
	// трекер существует, его блок появится после подтверждения
	assert.Equal(t, 2, s.SourceCount())
}

func TestBuildReportSRAfterSending(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	s, err := NewSession(SessionConfig{
		SSRC:  1,
		Clock: func() time.Time { return now },
	})
	require.NoError(t, err)

	feedSource(s, 0x2222, 10, 2)
	s.RecordSent(160, 8000)
	s.RecordSent(160, 8160)

	report := s.BuildReport()
	sr, ok := report.(*SenderReport)
	require.True(t, ok, "после отправки данных сессия строит SR")
	assert.Equal(t, uint32(1), sr.SSRC)
	assert.Equal(t, uint32(2), sr.Info.PacketCount)
	assert.Equal(t, uint32(320), sr.Info.OctetCount)
	assert.Equal(t, uint32(8160), sr.Info.RTPTimestamp)
	assert.Equal(t, NTPTimestamp(now), sr.Info.NTPTimestamp)
	require.Len(t, sr.ReceptionReports, 1)

	// без новых отправок следующий отчет снова RR
	report = s.BuildReport()
	_, ok = report.(*ReceiverReport)
	assert.True(t, ok)
}

func TestIngestRTCPSenderReport(t *testing.T) {
	srTime := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	now := srTime
	s, err := NewSession(SessionConfig{
		SSRC:  1,
		Clock: func() time.Time { return now },
	})
	require.NoError(t, err)

	feedSource(s, 0x3333, 500, 2)

	var ntp uint64 = 0xE3D5A432_40000000
	sr := NewSenderReport(0x3333, SenderInfo{NTPTimestamp: ntp})
	s.IngestRTCP(&Compound{Packets: []Packet{sr}})

	// отчет через 500 мс содержит LSR и DLSR по принятому SR
	now = srTime.Add(500 * time.Millisecond)
	report := s.BuildReport().(*ReceiverReport)
	require.Len(t, report.ReceptionReports, 1)
	assert.Equal(t, NTPMiddle32(ntp), report.ReceptionReports[0].LastSR)
	assert.Equal(t, uint32(32768), report.ReceptionReports[0].DelaySinceLastSR)
}

func TestIngestRTCPSenderReportCreatesTracker(t *testing.T) {
	s, err := NewSession(SessionConfig{SSRC: 1})
	require.NoError(t, err)

	// SR от источника, RTP пакетов которого еще не было: трекер
	// создается лениво
	sr := NewSenderReport(0x4444, SenderInfo{NTPTimestamp: 1 << 32})
	s.IngestRTCP(&Compound{Packets: []Packet{sr}})

	src, exists := s.Source(0x4444)
	require.True(t, exists)
	assert.False(t, src.Validated())

	// но в отчет без принятых RTP данных он не попадает
	report := s.BuildReport().(*ReceiverReport)
	assert.Empty(t, report.ReceptionReports)
}

func TestIngestRTCPBye(t *testing.T) {
	var departed []uint32
	s, err := NewSession(SessionConfig{
		SSRC: 1,
		OnSourceDeparted: func(ssrc uint32, _ *RemoteSource) {
			departed = append(departed, ssrc)
		},
	})
	require.NoError(t, err)

	feedSource(s, 0x5555, 10, 3)
	feedSource(s, 0x6666, 20, 3)

	bye := NewBye([]uint32{0x5555}, "leaving")
	s.IngestRTCP(&Compound{Packets: []Packet{bye}})

	assert.Equal(t, []uint32{0x5555}, departed)

	// ушедший источник помечен, но не удален
	src, exists := s.Source(0x5555)
	require.True(t, exists)
	assert.True(t, src.Departed())
	assert.Equal(t, 2, s.SourceCount())

	// в отчеты ушедший источник не попадает
	report := s.BuildReport().(*ReceiverReport)
	require.Len(t, report.ReceptionReports, 1)
	assert.Equal(t, uint32(0x6666), report.ReceptionReports[0].SSRC)

	// повторный BYE не вызывает обработчик снова
	s.IngestRTCP(&Compound{Packets: []Packet{bye}})
	assert.Len(t, departed, 1)

	// удаление - только явное решение владельца
	assert.True(t, s.EvictSource(0x5555))
	assert.Equal(t, 1, s.SourceCount())
	assert.False(t, s.EvictSource(0x5555))
}

func TestIngestRTCPSourceDescription(t *testing.T) {
	s, err := NewSession(SessionConfig{SSRC: 1})
	require.NoError(t, err)

	feedSource(s, 0x7777, 10, 2)

	sd := NewSourceDescription()
	sd.AddChunk(0x7777, []SDESItem{{Type: SDESTypeCNAME, Text: "dave@example.com"}})
	s.IngestRTCP(&Compound{Packets: []Packet{sd}})

	src, exists := s.Source(0x7777)
	require.True(t, exists)
	require.NotNil(t, src.Description)
	cname, ok := src.Description.CNAME()
	require.True(t, ok)
	assert.Equal(t, "dave@example.com", cname)
}

func TestSourceAddedCallback(t *testing.T) {
	var added []uint32
	s, err := NewSession(SessionConfig{
		SSRC: 1,
		OnSourceAdded: func(ssrc uint32, _ *RemoteSource) {
			added = append(added, ssrc)
		},
	})
	require.NoError(t, err)

	feedSource(s, 0x8888, 10, 3)
	assert.Equal(t, []uint32{0x8888}, added, "обработчик вызывается один раз на источник")
}

func TestBuildBye(t *testing.T) {
	s, err := NewSession(SessionConfig{SSRC: 0xCAFEBABE})
	require.NoError(t, err)

	bye := s.BuildBye("shutdown")
	assert.Equal(t, []uint32{0xCAFEBABE}, bye.Sources)
	assert.Equal(t, "shutdown", bye.Reason)
}

func TestSessionMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics := NewMetrics(reg)
	s, err := NewSession(SessionConfig{SSRC: 1, Metrics: metrics})
	require.NoError(t, err)

	feedSource(s, 0x9999, 10, 3)
	s.IngestRTCP(&Compound{Packets: []Packet{NewSenderReport(0x9999, SenderInfo{})}})
	_ = s.BuildReport()

	assert.Equal(t, float64(3), testutil.ToFloat64(metrics.rtpIngested))
	assert.Equal(t, float64(1), testutil.ToFloat64(metrics.rtcpPackets.WithLabelValues("sr")))
	assert.Equal(t, float64(1), testutil.ToFloat64(metrics.reportsBuilt))
	assert.Equal(t, float64(1), testutil.ToFloat64(metrics.trackedSources))

	s.EvictSource(0x9999)
	assert.Equal(t, float64(0), testutil.ToFloat64(metrics.trackedSources))
}

func TestDecodeRTPHeader(t *testing.T) {
	packet := &rtp.Packet{
		Header: rtp.Header{
			Version:        2,
			SSRC:           0x1234,
			SequenceNumber: 777,
			Timestamp:      160,
		},
		Payload: []byte{1, 2, 3},
	}
	data, err := packet.Marshal()
	require.NoError(t, err)

	h, err := DecodeRTPHeader(data)
	require.NoError(t, err)
	assert.Equal(t, uint32(0x1234), h.SSRC)
	assert.Equal(t, uint16(777), h.SequenceNumber)

	_, err = DecodeRTPHeader([]byte{0x80})
	assert.ErrorIs(t, err, ErrBufferTooShort)
}
