package agent

import "errors"

// Ошибки агента.
var (
	// ErrUnknownAction — действие не зарегистрировано в реестре.
	ErrUnknownAction = errors.New("unknown action")

	// ErrUnknownTaskType — для типа задачи нет плана выполнения.
	ErrUnknownTaskType = errors.New("unknown task type")

	// ErrBadParams — параметры действия неполны или неверного типа.
	ErrBadParams = errors.New("bad action params")

	// ErrNotSupported — действие недоступно на этом хосте
	// (не настроен provisioning-скрипт).
	ErrNotSupported = errors.New("action not supported on this host")
)
