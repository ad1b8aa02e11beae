package rabbitmq

import (
	"encoding/json"
	"fmt"

	"github.com/streadway/amqp"
)

// PublishJSON сериализует message и публикует его в exchange доставки.
// Сообщения помечаются персистентными: исходящая отправка не должна
// теряться при перезапуске брокера.
func PublishJSON(ch *amqp.Channel, routingKey string, message any) error {
	const op = "rabbitmq.PublishJSON"

	body, err := json.Marshal(message)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	err = ch.Publish(
		Exchange,
		routingKey,
		false,
		false,
		amqp.Publishing{
			ContentType:  "application/json",
			Body:         body,
			DeliveryMode: amqp.Persistent,
		},
	)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}
