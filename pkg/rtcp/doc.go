// Пакет rtcp реализует кодек RTCP пакетов и отслеживание состояния
// удаленных источников согласно RFC 3550.
//
// Основные функции:
//   - Парсинг и сериализация всех пяти базовых типов RTCP пакетов
//     (SR, RR, SDES, BYE, APP)
//   - Работа с составными (compound) RTCP пакетами
//   - Отслеживание sequence numbers, потерь и jitter по каждому
//     удаленному SSRC
//   - Построение Reception Reports для исходящих отчетов
//   - RTP сессия с операциями ingest/build report
//
// Архитектура:
//   - Кодек полностью чистый: никаких блокировок, I/O и глобального
//     состояния, безопасен для параллельного вызова на разных буферах
//   - Session и RemoteSource - единственное изменяемое состояние;
//     доступ к ним сериализует вызывающая сторона (один писатель)
//   - Все ошибки кодека типизированы через CodecError, молчаливого
//     проглатывания ошибок нет
//
// Транспорт (сокеты, NAT), SDP, SRTP и таймер интервалов отправки
// RTCP (RFC 3550 Section 6.2) находятся вне этого пакета: вызывающая
// сторона решает, когда вызвать BuildReport и куда отправить байты.
package rtcp
