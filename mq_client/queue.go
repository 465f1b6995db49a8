package mq_client

import (
	"github.com/streadway/amqp"
)

var AMQPChannel *amqp.Channel
var Connection *amqp.Connection

func Connect() error {
	cn, err := CreateAMQP()
	if err != nil {
		return err
	}

	Connection = cn

	return nil
}

func GetChannel() *amqp.Channel {
	if AMQPChannel != nil {
		return AMQPChannel
	} else {
		channel, _ := Connection.Channel()

		AMQPChannel = channel

		return AMQPChannel
	}
}

// EnqueueEvent publishes an affiliate event onto the topic exchange. The
// routing key is kind.id.event, e.g. private.<uid>.commission.
func EnqueueEvent(kind string, id string, event string, payload []byte) error {
	exchangeName, exchangeKind := GetExchange("events")

	if err := GetChannel().ExchangeDeclare(exchangeName, exchangeKind, false, false, false, false, nil); err != nil {
		return err
	}

	routing_key := kind + "." + id + "." + event

	return GetChannel().Publish(
		exchangeName,
		routing_key,
		false,
		false,
		amqp.Publishing{
			Headers:         amqp.Table{},
			ContentType:     "application/json",
			ContentEncoding: "",
			Body:            payload,
			DeliveryMode:    amqp.Persistent,
			Priority:        0,
		},
	)
}
