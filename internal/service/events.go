package service

import (
	"context"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

const notifyQueue = "notify_queue"

// Notifier 通知出口，由 telegram.Notifier 实现
type Notifier interface {
	Send(ctx context.Context, text string)
}

// Emitter 业务写操作成功后的通知挂钩。Emit 永远是尽力而为：
// 投递失败只记日志，不会让触发它的业务操作失败。
type Emitter interface {
	Emit(text string)
}

// Dispatcher 把通知事件异步送到 Notifier。
// 配置了 RabbitMQ 时事件先进 notify_queue，由消费端（本进程或 notify-worker）发送；
// 否则退化为进程内缓冲通道。
type Dispatcher struct {
	ch    *amqp.Channel
	local chan string
}

// NewDispatcher 创建派发器。conn 为 nil 时走进程内通道
func NewDispatcher(conn *amqp.Connection, notifier Notifier) (*Dispatcher, error) {
	d := &Dispatcher{}
	if conn != nil {
		ch, err := conn.Channel()
		if err != nil {
			return nil, err
		}
		if _, err := ch.QueueDeclare(notifyQueue, true, false, false, false, nil); err != nil {
			return nil, err
		}
		d.ch = ch
		return d, nil
	}

	d.local = make(chan string, 64)
	go func() {
		for text := range d.local {
			notifier.Send(context.Background(), text)
			GetMonitor().RecordNotifySent()
		}
	}()
	return d, nil
}

// Emit 发出一条通知事件
func (d *Dispatcher) Emit(text string) {
	if d.ch != nil {
		err := d.ch.PublishWithContext(context.Background(), "", notifyQueue, false, false, amqp.Publishing{
			ContentType:  "text/plain",
			DeliveryMode: amqp.Persistent,
			Body:         []byte(text),
		})
		if err != nil {
			GetMonitor().RecordMQError()
			zap.L().Warn("failed to publish notification event", zap.Error(err))
		}
		return
	}

	select {
	case d.local <- text:
	default:
		// 通道满即丢弃，通知不阻塞业务请求
		GetMonitor().RecordNotifyDropped()
		zap.L().Warn("notification channel full, event dropped")
	}
}

// RunConsumer 消费 notify_queue 并逐条发送，供 cmd/web 内嵌协程或 notify-worker 使用
func RunConsumer(conn *amqp.Connection, notifier Notifier) error {
	ch, err := conn.Channel()
	if err != nil {
		return err
	}
	if _, err := ch.QueueDeclare(notifyQueue, true, false, false, false, nil); err != nil {
		return err
	}
	msgs, err := ch.Consume(notifyQueue, "", true, false, false, false, nil)
	if err != nil {
		return err
	}
	for m := range msgs {
		notifier.Send(context.Background(), string(m.Body))
		GetMonitor().RecordNotifySent()
	}
	return nil
}
