package mq

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/rabbitmq/amqp091-go"
)

// DeadLetter 记录消息进入死信队列的原因
type DeadLetter struct {
	Handler  string
	Reason   string
	Attempts int64
}

func (d DeadLetter) headers(now time.Time) amqp091.Table {
	return amqp091.Table{
		"x-handler":        d.Handler,
		"x-original-error": d.Reason,
		"x-attempts":       strconv.FormatInt(d.Attempts, 10),
		"x-failed-at":      now.UTC().Format(time.RFC3339),
	}
}

// DLQQueueName 返回 routingKey 对应的死信队列名
func DLQQueueName(routingKey string) string {
	return routingKey + ".dlq"
}

func DeclareDLQExchange(ch *amqp091.Channel) error {
	return declareTopic(ch, DLQExchangeName)
}

// DeclareDLQQueue 声明 routingKey 对应的死信队列并绑定到 DLQ 交换机
func DeclareDLQQueue(ch *amqp091.Channel, routingKey string) (amqp091.Queue, error) {
	q, err := ch.QueueDeclare(DLQQueueName(routingKey), true, false, false, false, nil)
	if err != nil {
		return amqp091.Queue{}, fmt.Errorf("declare dlq queue %s: %w", DLQQueueName(routingKey), err)
	}
	if err := ch.QueueBind(q.Name, routingKey, DLQExchangeName, false, nil); err != nil {
		return amqp091.Queue{}, fmt.Errorf("bind dlq queue %s: %w", q.Name, err)
	}
	return q, nil
}

// PublishToDLQ 将不再重试的消息发送到死信队列
func (p *Publisher) PublishToDLQ(ctx context.Context, routingKey string, payload []byte, dl DeadLetter) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.channel.PublishWithContext(ctx,
		DLQExchangeName,
		routingKey,
		false,
		false,
		amqp091.Publishing{
			ContentType:  "application/json",
			Body:         payload,
			DeliveryMode: amqp091.Persistent,
			Timestamp:    time.Now(),
			Headers:      dl.headers(time.Now()),
		},
	)
}
