package amqp

import (
	amqp091 "github.com/rabbitmq/amqp091-go"
)

// realConnection adapts *amqp091.Connection to the connection interface.
type realConnection struct {
	conn *amqp091.Connection
}

func (c *realConnection) channel() (channel, error) {
	ch, err := c.conn.Channel()
	if err != nil {
		return nil, err
	}
	return &realChannel{ch: ch}, nil
}

func (c *realConnection) notifyClose(receiver chan *amqp091.Error) chan *amqp091.Error {
	return c.conn.NotifyClose(receiver)
}

func (c *realConnection) isClosed() bool {
	return c.conn.IsClosed()
}

func (c *realConnection) close() error {
	return c.conn.Close()
}

// realChannel adapts *amqp091.Channel, pinning the declare and consume
// flags used by the supervisor. Queues are durable, non-exclusive, and
// deliveries require explicit acks.
type realChannel struct {
	ch *amqp091.Channel
}

func (c *realChannel) queueDeclare(name string, durable bool) (amqp091.Queue, error) {
	return c.ch.QueueDeclare(name, durable, false, false, false, nil)
}

func (c *realChannel) queueDeclarePassive(name string, durable bool) (amqp091.Queue, error) {
	return c.ch.QueueDeclarePassive(name, durable, false, false, false, nil)
}

func (c *realChannel) qos(prefetch int) error {
	return c.ch.Qos(prefetch, 0, false)
}

func (c *realChannel) consume(queue, tag string) (<-chan amqp091.Delivery, error) {
	return c.ch.Consume(queue, tag, false, false, false, false, nil)
}

func (c *realChannel) cancel(tag string) error {
	return c.ch.Cancel(tag, false)
}

func (c *realChannel) close() error {
	return c.ch.Close()
}
