// Package events публикует события жизненного цикла сессии.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/streadway/amqp"
)

// Типы событий
const (
	TypeSessionStarted   = "session.started"
	TypeSessionCompleted = "session.completed"
)

// Event - сообщение о смене состояния сессии
type Event struct {
	ID             string    `json:"id"`
	Type           string    `json:"type"`
	SessionID      string    `json:"sessionId"`
	UserID         string    `json:"userId"`
	InterviewType  string    `json:"interviewType,omitempty"`
	QuestionCount  int       `json:"questionCount,omitempty"`
	TotalScore     int       `json:"totalScore,omitempty"`
	Grade          string    `json:"grade,omitempty"`
	QuotaExhausted bool      `json:"quotaExhausted,omitempty"`
	OccurredAt     time.Time `json:"occurredAt"`
}

// NewEvent заполняет идентификатор и время события
func NewEvent(eventType, sessionID, userID string) Event {
	return Event{
		ID:         uuid.NewString(),
		Type:       eventType,
		SessionID:  sessionID,
		UserID:     userID,
		OccurredAt: time.Now().UTC(),
	}
}

// Publisher отправляет события
type Publisher interface {
	Publish(ctx context.Context, ev Event) error
	Close() error
}

// Noop используется, когда брокер не настроен
type Noop struct{}

func (Noop) Publish(ctx context.Context, ev Event) error { return nil }
func (Noop) Close() error                                { return nil }

// AMQPPublisher публикует события в topic exchange RabbitMQ.
// Routing key совпадает с типом события.
type AMQPPublisher struct {
	mu       sync.Mutex
	conn     *amqp.Connection
	ch       *amqp.Channel
	exchange string
}

// NewAMQPPublisher подключается к брокеру и объявляет exchange
func NewAMQPPublisher(url, exchange string) (*AMQPPublisher, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("error connecting to RabbitMQ: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("error opening RabbitMQ channel: %w", err)
	}

	err = ch.ExchangeDeclare(
		exchange, // name
		"topic",  // kind
		true,     // durable
		false,    // auto-delete
		false,    // internal
		false,    // no-wait
		nil,      // arguments
	)
	if err != nil {
		ch.Close()
		conn.Close()
		return nil, fmt.Errorf("failed to declare exchange %s: %w", exchange, err)
	}

	log.Printf("📨 Publishing session events to exchange %s", exchange)
	return &AMQPPublisher{conn: conn, ch: ch, exchange: exchange}, nil
}

// Publish сериализует событие в JSON и отправляет его
func (p *AMQPPublisher) Publish(ctx context.Context, ev Event) error {
	body, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}
	return p.ch.Publish(
		p.exchange,
		ev.Type,
		false,
		false,
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			MessageId:    ev.ID,
			Timestamp:    ev.OccurredAt,
			Body:         body,
		},
	)
}

// Close закрывает канал и соединение
func (p *AMQPPublisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.ch != nil {
		p.ch.Close()
	}
	if p.conn != nil {
		return p.conn.Close()
	}
	return nil
}

// Open возвращает AMQP publisher, если задан url, иначе Noop
func Open(url, exchange string) (Publisher, error) {
	if url == "" {
		return Noop{}, nil
	}
	p, err := NewAMQPPublisher(url, exchange)
	if err != nil {
		return nil, err
	}
	return p, nil
}
