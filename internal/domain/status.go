package domain

// TaskStatus — статус provisioning-задачи.
//
// Жизненный цикл (только вперёд, без возврата в PENDING):
//
//	PENDING → IN_PROGRESS → DONE
//	                      ↘ ERROR
type TaskStatus string

const (
	// TaskStatusPending — задача создана, агент её ещё не взял.
	TaskStatusPending TaskStatus = "PENDING"

	// TaskStatusInProgress — задача выполняется агентом.
	TaskStatusInProgress TaskStatus = "IN_PROGRESS"

	// TaskStatusDone — задача успешно завершена.
	TaskStatusDone TaskStatus = "DONE"

	// TaskStatusError — задача завершилась с ошибкой.
	TaskStatusError TaskStatus = "ERROR"
)

// IsTerminal возвращает true, если статус финальный.
func (s TaskStatus) IsTerminal() bool {
	switch s {
	case TaskStatusDone, TaskStatusError:
		return true
	default:
		return false
	}
}

// rank — позиция статуса в жизненном цикле.
func (s TaskStatus) rank() int {
	switch s {
	case TaskStatusPending:
		return 0
	case TaskStatusInProgress:
		return 1
	case TaskStatusDone, TaskStatusError:
		return 2
	default:
		return -1
	}
}

// CanTransition проверяет, допустим ли переход в next.
// Статус движется только вперёд; терминальные состояния не меняются.
func (s TaskStatus) CanTransition(next TaskStatus) bool {
	if s.rank() < 0 || next.rank() < 0 {
		return false
	}
	if s.IsTerminal() {
		return false
	}
	return next.rank() > s.rank()
}
