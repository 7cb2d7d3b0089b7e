// Package cli содержит команды kontur-cli: HTTP-клиент API,
// форматирование вывода (таблицы/JSON) и cobra-команды для задач,
// кластеров, томов, сервисов и workspace'ов.
//
// Клиент не импортирует internal/api: типы ответов дублируются,
// чтобы CLI можно было собирать и версионировать независимо.
package cli
