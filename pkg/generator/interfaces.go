package generator

import (
	"context"

	"github.com/shouni/go-comic-kit/pkg/domain"
)

// ReferenceResolver はキャラクター群の参照画像集合を解決する境界です。
// pkg/reference.Resolver がこのインターフェースを満たします。
type ReferenceResolver interface {
	Resolve(ctx context.Context, profiles []domain.CharacterProfile) map[string]*domain.ReferenceSet
}
