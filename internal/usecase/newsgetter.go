package usecase

import (
	"context"
	"errors"
	"newsdesk/internal/domain"
)

// ErrArchiveDisabled возвращается, если база архива не настроена.
var ErrArchiveDisabled = errors.New("story archive is not configured")

// ArchiveReader возвращает архивные истории, новые первыми.
type ArchiveReader interface {
	RecentStories(ctx context.Context, n int) ([]domain.ArchivedStory, error)
}

// ArchiveGetterUseCase предоставляет архив историй хостам.
type ArchiveGetterUseCase struct {
	storage ArchiveReader
}

// NewArchiveGetterUseCase принимает nil в качестве s;
// тогда каждый вызов возвращает ErrArchiveDisabled.
func NewArchiveGetterUseCase(s ArchiveReader) *ArchiveGetterUseCase {
	return &ArchiveGetterUseCase{storage: s}
}

// Enabled сообщает, подключен ли архив.
func (us *ArchiveGetterUseCase) Enabled() bool {
	return us.storage != nil
}

// RecentStories возвращает не более limit историй; limit <= 0 означает лимит хранилища.
func (us *ArchiveGetterUseCase) RecentStories(ctx context.Context, limit int) ([]domain.ArchivedStory, error) {
	if us.storage == nil {
		return nil, ErrArchiveDisabled
	}
	return us.storage.RecentStories(ctx, limit)
}
