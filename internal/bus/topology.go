package bus

import (
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"
)

// ExchangeBus — единственный exchange шины. Тип topic: агенты и
// control plane подписываются на префиксы топиков через wildcard-привязки.
const ExchangeBus = "kontur.bus"

// SetupAPITopology объявляет exchange и входящую очередь control plane.
//
// Очередь получает ответы хостов и внеполосные события клиентских сессий.
func SetupAPITopology(conn *Connection, ns string) (string, error) {
	queue := ns + ".api.inbound"
	patterns := []string{
		ns + ".k8s.host.respond.#",
		ns + ".cli.event.#",
	}
	if err := declare(conn, queue, patterns); err != nil {
		return "", err
	}
	return queue, nil
}

// SetupAgentTopology объявляет exchange и очередь агента на хосте.
//
// Очередь получает запросы к хостам и уведомления о новых задачах.
// Фильтрация по собственному адресу хоста выполняется агентом:
// wildcard-привязка не может адресовать IPv4-сегменты с точками.
func SetupAgentTopology(conn *Connection, ns, host string) (string, error) {
	queue := ns + ".agent." + host
	patterns := []string{
		ns + ".k8s.host.query.#",
		ns + ".task.new.#",
	}
	if err := declare(conn, queue, patterns); err != nil {
		return "", err
	}
	return queue, nil
}

// declare создаёт exchange, очередь и привязки.
func declare(conn *Connection, queue string, patterns []string) error {
	ch := conn.Channel()
	if ch == nil {
		return fmt.Errorf("no channel available")
	}

	err := ch.ExchangeDeclare(
		ExchangeBus, // name
		"topic",     // type
		true,        // durable
		false,       // auto-deleted
		false,       // internal
		false,       // no-wait
		nil,         // arguments
	)
	if err != nil {
		return fmt.Errorf("declare exchange %s: %w", ExchangeBus, err)
	}

	_, err = ch.QueueDeclare(
		queue, // name
		true,  // durable
		false, // delete when unused
		false, // exclusive
		false, // no-wait
		amqp.Table{
			// Ответы и события теряют смысл быстро; не копим их вечно.
			"x-message-ttl": int32(5 * 60 * 1000),
		},
	)
	if err != nil {
		return fmt.Errorf("declare queue %s: %w", queue, err)
	}

	for _, p := range patterns {
		if err := ch.QueueBind(queue, p, ExchangeBus, false, nil); err != nil {
			return fmt.Errorf("bind queue %s to %s: %w", queue, p, err)
		}
	}

	return nil
}
