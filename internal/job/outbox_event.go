package job

import (
	"context"
	"encoding/json"
	"fmt"

	"consortium/internal/model"
	"consortium/internal/repository"

	"gorm.io/gorm"
)

// enqueueEvent 结算事务内落发件箱记录，投递由 OutboxSender 负责
func enqueueEvent(ctx context.Context, tx *gorm.DB, repo *repository.OutboxRepository, topic string, key int64, payload map[string]interface{}) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("序列化事件失败: %w", err)
	}
	return repo.Create(ctx, tx, &model.OutboxMessage{
		MessageKey: fmt.Sprintf("%d", key),
		Topic:      topic,
		Payload:    string(body),
		Status:     model.OutboxStatusPending,
	})
}
