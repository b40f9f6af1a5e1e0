package notify

import (
	"context"
	"sync"
	"time"

	"fulfillment/internal/domain/model"
	repo "fulfillment/internal/repository"

	"go.uber.org/zap"
)

const deliverTimeout = 5 * time.Second

// Publisher は保存した通知を外部へ流す（Kafkaなど）
type Publisher interface {
	Publish(ctx context.Context, n model.Notification) error
}

// Dispatcher は通知を保存して（あれば）外部へ流す。
// Notifyは待たずに返り、失敗はログに残すだけ。
type Dispatcher struct {
	store     repo.NotificationRepository
	publisher Publisher
	logger    *zap.Logger
	now       func() time.Time

	mu     sync.RWMutex
	closed bool
	wg     sync.WaitGroup
}

// publisherはnilでもよい
func NewDispatcher(store repo.NotificationRepository, publisher Publisher, logger *zap.Logger) *Dispatcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Dispatcher{
		store:     store,
		publisher: publisher,
		logger:    logger,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

func (d *Dispatcher) Notify(ctx context.Context, n model.Notification) {
	d.mu.RLock()
	if d.closed {
		d.mu.RUnlock()
		d.logger.Warn("notification dropped after close",
			zap.String("audience", string(n.Audience)),
			zap.String("correlation_id", n.CorrelationID))
		return
	}
	d.wg.Add(1)
	d.mu.RUnlock()

	//リクエストが終わっても配送は続ける
	ctx = context.WithoutCancel(ctx)
	go func() {
		defer d.wg.Done()
		d.deliver(ctx, n)
	}()
}

func (d *Dispatcher) deliver(ctx context.Context, n model.Notification) {
	ctx, cancel := context.WithTimeout(ctx, deliverTimeout)
	defer cancel()

	if n.CreatedAt.IsZero() {
		n.CreatedAt = d.now()
	}
	saved, err := d.store.Create(ctx, n)
	if err != nil {
		d.logger.Warn("notification store failed",
			zap.String("audience", string(n.Audience)),
			zap.Int64("recipient_id", n.RecipientID),
			zap.String("correlation_id", n.CorrelationID),
			zap.Error(err))
		saved = n
	}

	if d.publisher == nil {
		return
	}
	if err := d.publisher.Publish(ctx, saved); err != nil {
		d.logger.Warn("notification publish failed",
			zap.String("audience", string(n.Audience)),
			zap.String("correlation_id", n.CorrelationID),
			zap.Error(err))
	}
}

// Close は以降の通知を受け付けず、配送中のものを待つ
func (d *Dispatcher) Close() {
	d.mu.Lock()
	d.closed = true
	d.mu.Unlock()
	d.wg.Wait()
}
