// Package tasks реализует durable-очередь provisioning-задач.
//
// Структура:
//   - store.go  — создание задач и уведомление агентов через шину
//   - view.go   — read-side проекция журнала задач для отображения
//   - reaper.go — периодическая уборка задач, застрявших в PENDING
//
// Задача создаётся оркестратором в статусе PENDING; статус и журнал
// шагов обновляет агент на удалённом хосте. Статус движется только
// вперёд: PENDING → IN_PROGRESS → {DONE, ERROR}.
package tasks
