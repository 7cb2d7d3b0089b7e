// Package bus реализует транспортный слой поверх RabbitMQ.
//
// Шина — единственный канал связи с агентами на удалённых хостах:
// fire-and-forget publish/subscribe без гарантий доставки и без
// встроенной корреляции запрос/ответ.
//
// Структура:
//   - connection.go — соединение с брокером (reconnect, online-флаг)
//   - topology.go   — объявление exchange, очередей и привязок
//   - topic.go      — структурированный разбор топиков
//   - transport.go  — публикация и диспетчеризация входящих сообщений
//   - id.go         — генератор идентификаторов, безопасных для топиков
//
// Топики (`/`-разделённые) отображаются в routing keys AMQP
// (`.`-разделённые); исходная строка топика передаётся внутри
// конверта сообщения и используется для разбора.
package bus
