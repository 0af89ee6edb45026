package mq

import (
	"fmt"
	"time"

	"github.com/rabbitmq/amqp091-go"
)

const (
	ExchangeName    = "buildflow.events"
	DLQExchangeName = "buildflow.events.dlq"
)

// 路由键
const (
	RoutingScheduleChanged = "schedule.changed"
	RoutingPhaseChanged    = "project.phase_changed"
	RoutingDrawOverdue     = "draw.overdue"
	ScheduleChangedQueue   = "schedule.changed.draw_sync.q"
)

const heartbeat = 10 * time.Second

// NewConnection 连接 RabbitMQ，name 会显示在管理界面中
func NewConnection(url, name string) (*amqp091.Connection, error) {
	props := amqp091.NewConnectionProperties()
	props.SetClientConnectionName(name)

	conn, err := amqp091.DialConfig(url, amqp091.Config{
		Heartbeat:  heartbeat,
		Locale:     "en_US",
		Properties: props,
	})
	if err != nil {
		return nil, fmt.Errorf("dial rabbitmq (%s): %w", name, err)
	}
	return conn, nil
}

func declareTopic(ch *amqp091.Channel, name string) error {
	// 持久化，不自动删除，非内部交换机，等待确认
	return ch.ExchangeDeclare(name, amqp091.ExchangeTopic, true, false, false, false, nil)
}

// DeclareExchange 声明所有 buildflow 事件使用的 topic 交换机
func DeclareExchange(ch *amqp091.Channel) error {
	return declareTopic(ch, ExchangeName)
}
