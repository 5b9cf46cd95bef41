package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"

	"seochat/internal/model"
	"seochat/internal/platform/rabbitmq"
	"seochat/internal/repository"
)

type ChatWriter interface {
	Create(ctx context.Context, chat *model.Chat) error
}

// ChatPersistWorker drains the transcript queue into the chat store.
type ChatPersistWorker struct {
	conn      *amqp.Connection
	chats     ChatWriter
	queueName string
	logger    *zap.Logger

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func NewChatPersistWorker(conn *amqp.Connection, chats ChatWriter, queueName string, logger *zap.Logger) *ChatPersistWorker {
	return &ChatPersistWorker{
		conn:      conn,
		chats:     chats,
		queueName: queueName,
		logger:    logger,
	}
}

func (w *ChatPersistWorker) Start(ctx context.Context) error {
	if w.cancel != nil {
		return nil
	}

	ch, err := w.conn.Channel()
	if err != nil {
		return fmt.Errorf("open worker channel failed: %w", err)
	}
	if err := rabbitmq.DeclareQueue(ch, w.queueName); err != nil {
		_ = ch.Close()
		return err
	}
	if err := ch.Qos(16, 0, false); err != nil {
		_ = ch.Close()
		return fmt.Errorf("set worker qos failed: %w", err)
	}
	deliveries, err := ch.Consume(w.queueName, "", false, false, false, false, nil)
	if err != nil {
		_ = ch.Close()
		return fmt.Errorf("consume queue failed: %w", err)
	}

	workerCtx, cancel := context.WithCancel(ctx)
	w.cancel = cancel

	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		defer ch.Close()

		for {
			select {
			case <-workerCtx.Done():
				return
			case d, ok := <-deliveries:
				if !ok {
					w.logger.Warn("transcript queue closed", zap.String("queue", w.queueName))
					return
				}
				w.handle(workerCtx, d)
			}
		}
	}()

	w.logger.Info("chat persist worker started", zap.String("queue", w.queueName))
	return nil
}

func (w *ChatPersistWorker) handle(ctx context.Context, d amqp.Delivery) {
	if err := w.Persist(ctx, d.Body); err != nil {
		w.logger.Error("persist transcript failed", zap.String("message_id", d.MessageId), zap.Error(err))
		_ = d.Nack(false, false)
		return
	}
	_ = d.Ack(false)
}

// Persist decodes one queued transcript and stores it. Redelivered
// transcripts that already exist are treated as done.
func (w *ChatPersistWorker) Persist(ctx context.Context, body []byte) error {
	var chat model.Chat
	if err := json.Unmarshal(body, &chat); err != nil {
		return fmt.Errorf("decode transcript failed: %w", err)
	}
	if chat.ID == "" || chat.ClientID == "" {
		return errors.New("transcript is missing id or client_id")
	}
	if err := w.chats.Create(ctx, &chat); err != nil && !errors.Is(err, repository.ErrDuplicate) {
		return err
	}
	return nil
}

func (w *ChatPersistWorker) Close() {
	if w.cancel != nil {
		w.cancel()
	}
	w.wg.Wait()
}
