package generator

import (
	"fmt"
	"time"

	"golang.org/x/time/rate"

	"github.com/shouni/go-comic-kit/pkg/domain"
	"github.com/shouni/go-comic-kit/pkg/prompts"
	"github.com/shouni/go-comic-kit/pkg/provider"
)

// DefaultPollTimeout は1ジョブあたりのポーリング上限時間です。
const DefaultPollTimeout = 5 * time.Minute

// ComicComposer は、コマ生成に必要な協調コンポーネントを束ねる中核構造体です。
// 解決済みの参照画像集合はバッチをまたいで Resolver 側のキャッシュに保持されます。
type ComicComposer struct {
	Resolver      ReferenceResolver
	Client        provider.Client
	PromptBuilder prompts.PromptSynthesizer
	Registry      domain.CharacterRegistry
	RateLimiter   *rate.Limiter
	PollTimeout   time.Duration
}

// NewComicComposer は ComicComposer の新しいインスタンスを初期化済みの状態で生成します。
func NewComicComposer(
	resolver ReferenceResolver,
	client provider.Client,
	pb prompts.PromptSynthesizer,
	registry domain.CharacterRegistry,
	limiter *rate.Limiter,
	pollTimeout time.Duration,
) (*ComicComposer, error) {
	if resolver == nil {
		return nil, fmt.Errorf("resolver is required")
	}
	if client == nil {
		return nil, fmt.Errorf("client is required")
	}
	if pb == nil {
		return nil, fmt.Errorf("prompt builder is required")
	}
	if limiter == nil {
		limiter = rate.NewLimiter(rate.Inf, 1)
	}
	if pollTimeout <= 0 {
		pollTimeout = DefaultPollTimeout
	}

	return &ComicComposer{
		Resolver:      resolver,
		Client:        client,
		PromptBuilder: pb,
		Registry:      registry,
		RateLimiter:   limiter,
		PollTimeout:   pollTimeout,
	}, nil
}

// modelForCharacters はシーンの先頭キャラクターの希望モデルを採用します。
func (cc *ComicComposer) modelForCharacters(chars []domain.CharacterProfile) string {
	for _, char := range chars {
		if char.PreferredModel != "" {
			return char.PreferredModel
		}
	}
	return domain.ModelStandard
}

// resolutionForModel はモデルに応じた解像度ティアを返します。
func resolutionForModel(model string) string {
	switch model {
	case domain.ModelQuality, domain.ModelGemini:
		return ResolutionQuality
	default:
		return ResolutionStandard
	}
}
