package domain

import "time"

// StepKind — вид записи журнала шагов.
type StepKind string

const (
	// StepInfo — запись о прогрессе.
	StepInfo StepKind = "INFO"

	// StepError — запись об ошибке.
	StepError StepKind = "ERROR"
)

// StepRecord — одна запись append-only журнала задачи.
//
// В памяти журнал типизирован; в JSON он сериализуется только на
// границе хранения (jsonb-колонка задачи).
type StepRecord struct {
	// Kind — INFO или ERROR.
	Kind StepKind `json:"type"`

	// Step — имя шага (CREATE_PV, ROLLBACK_PV_DELETE, ...).
	Step string `json:"step"`

	// TS — время записи.
	TS time.Time `json:"ts"`

	// Params — параметры шага. Для первой записи — входные
	// параметры операции.
	Params map[string]any `json:"params,omitempty"`

	// Flags — дополнительные флаги операции (names only).
	Flags []string `json:"flags,omitempty"`
}

// InfoStep создаёт INFO-запись.
func InfoStep(step string, params map[string]any) StepRecord {
	return StepRecord{Kind: StepInfo, Step: step, TS: time.Now(), Params: params}
}

// ErrorStep создаёт ERROR-запись.
func ErrorStep(step string, params map[string]any) StepRecord {
	return StepRecord{Kind: StepError, Step: step, TS: time.Now(), Params: params}
}
