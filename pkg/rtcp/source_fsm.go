package rtcp

import (
	"context"

	"github.com/looplab/fsm"
)

// Состояния жизненного цикла удаленного источника.
// probation - источник только появился, его sequence numbers еще не
// подтверждены и в отчеты он не попадает;
// valid     - получен последовательный пакет, источник отслеживается
// и участвует в отчетах;
// departed  - источник прислал BYE; его состояние сохраняется до
// явного вытеснения владельцем сессии, но в отчеты он не попадает.
const (
	SourceStateProbation = "probation"
	SourceStateValid     = "valid"
	SourceStateDeparted  = "departed"
)

// События: validate, depart
func newSourceFSM() *fsm.FSM {
	return fsm.NewFSM(
		SourceStateProbation,
		fsm.Events{
			{Name: "validate", Src: []string{SourceStateProbation}, Dst: SourceStateValid},
			{Name: "depart", Src: []string{SourceStateProbation, SourceStateValid}, Dst: SourceStateDeparted},
		}, nil,
	)
}

// fsmContext возвращает контекст для событий fsm: переходы синхронные
// и не отменяются
func fsmContext() context.Context {
	return context.Background()
}
