package revision

import (
	"context"
	"encoding/base64"
	"fmt"
	"log/slog"
	"time"

	"github.com/shouni/go-comic-kit/pkg/domain"
	"github.com/shouni/go-comic-kit/pkg/generator"
	"github.com/shouni/go-comic-kit/pkg/prompts"
	"github.com/shouni/go-comic-kit/pkg/provider"
)

// Controller は生成済みバッチの1コマだけを作り直す修正操作を提供します。
// どの操作も Panel リストを直接は変更せず、PanelRevisionCandidate を返します。
// 画像生成は遅くコストが高いため、利用者が新旧を見比べてから確定できる
// 二相コミットにしています。
type Controller struct {
	resolver    generator.ReferenceResolver
	client      provider.Client
	registry    domain.CharacterRegistry
	pollTimeout time.Duration
}

// NewController は依存関係を注入して Controller を初期化します。
func NewController(resolver generator.ReferenceResolver, client provider.Client, registry domain.CharacterRegistry, pollTimeout time.Duration) (*Controller, error) {
	if resolver == nil {
		return nil, fmt.Errorf("resolver is required")
	}
	if client == nil {
		return nil, fmt.Errorf("client is required")
	}
	if pollTimeout <= 0 {
		pollTimeout = generator.DefaultPollTimeout
	}

	return &Controller{
		resolver:    resolver,
		client:      client,
		registry:    registry,
		pollTimeout: pollTimeout,
	}, nil
}

// Reroll は1コマの生成をやり直します。
// 元プロンプトに忠実度強化句を付加し、参照画像は元のキャラクター参照だけを
// 使います。直前の出力画像は意図的に入力へ含めません。修正したい失敗モードが
// 「参照からのドリフト」なので、ドリフトした画像を再投入すると悪化するためです。
func (c *Controller) Reroll(ctx context.Context, batch domain.Panels, panelIndex int, scene domain.Scene) (*domain.PanelRevisionCandidate, error) {
	old, err := panelAt(batch, panelIndex)
	if err != nil {
		return nil, err
	}

	chars := c.sceneCharacters(scene)
	refSets := c.resolver.Resolve(ctx, chars)
	refs := generator.BuildReferenceSources(old.SceneDescription, chars, refSets, generator.MaxReferenceImages)

	prompt := prompts.BuildRerollPrompt(old.ImagePrompt)
	slog.InfoContext(ctx, "コマのリロールを開始します", "panel_index", panelIndex, "reference_count", len(refs))

	newPanel, err := c.generate(ctx, old, prompt, refs, chars)
	if err != nil {
		return nil, fmt.Errorf("コマ %d のリロールに失敗しました: %w", panelIndex+1, err)
	}

	return &domain.PanelRevisionCandidate{
		PanelIndex: panelIndex,
		OldPanel:   old,
		NewPanel:   *newPanel,
	}, nil
}

// FeedbackEdit は自然言語のフィードバックに基づいて1コマを編集します。
// 現在のコマ画像を最優先の参照として先頭に置き、キャラクター参照で
// 長期的な同一性を固定したまま、要望の方向へ編集させます。
// フィードバックに明示的なテキスト変更指示があれば PanelText も更新します。
func (c *Controller) FeedbackEdit(ctx context.Context, batch domain.Panels, panelIndex int, scene domain.Scene, feedback string) (*domain.PanelRevisionCandidate, error) {
	old, err := panelAt(batch, panelIndex)
	if err != nil {
		return nil, err
	}
	if feedback == "" {
		return nil, fmt.Errorf("フィードバック文が空です")
	}

	currentImage, err := base64.StdEncoding.DecodeString(old.ImageData)
	if err != nil {
		return nil, fmt.Errorf("現在のコマ画像のデコードに失敗しました: %w", err)
	}

	chars := c.sceneCharacters(scene)
	refSets := c.resolver.Resolve(ctx, chars)

	// 現在のコマ画像が先頭、キャラクター参照は残り枠に収める
	refs := []provider.ImageSource{{Data: currentImage, MimeType: old.MimeType}}
	refs = append(refs, generator.BuildReferenceSources(old.SceneDescription, chars, refSets, generator.MaxReferenceImages-1)...)

	prompt := prompts.BuildFeedbackPrompt(old.ImagePrompt, feedback)
	slog.InfoContext(ctx, "コマのフィードバック編集を開始します", "panel_index", panelIndex, "reference_count", len(refs))

	newPanel, err := c.generate(ctx, old, prompt, refs, chars)
	if err != nil {
		return nil, fmt.Errorf("コマ %d のフィードバック編集に失敗しました: %w", panelIndex+1, err)
	}

	if _, to, ok := ExtractTextChange(feedback); ok {
		newPanel.PanelText = to
	}

	return &domain.PanelRevisionCandidate{
		PanelIndex: panelIndex,
		OldPanel:   old,
		NewPanel:   *newPanel,
	}, nil
}

// ResolveCandidate は候補を確定し、採用時のみバッチを書き換えます。
// 未確定の候補はバッチに一切影響しません。
func (c *Controller) ResolveCandidate(batch domain.Panels, cand *domain.PanelRevisionCandidate, acceptNew bool) error {
	if cand == nil {
		return fmt.Errorf("candidate is required")
	}
	if cand.PanelIndex < 0 || cand.PanelIndex >= len(batch) {
		return fmt.Errorf("パネルインデックスが範囲外です: %d (総数 %d)", cand.PanelIndex, len(batch))
	}
	if !acceptNew {
		return nil
	}

	newPanel := cand.NewPanel
	newPanel.PanelNumber = batch[cand.PanelIndex].PanelNumber
	batch[cand.PanelIndex] = newPanel
	return nil
}

// generate は修正用の生成ジョブを1本実行し、新パネルを組み立てます。
func (c *Controller) generate(ctx context.Context, old domain.Panel, prompt string, refs []provider.ImageSource, chars []domain.CharacterProfile) (*domain.Panel, error) {
	model := domain.ModelStandard
	for _, char := range chars {
		if char.PreferredModel != "" {
			model = char.PreferredModel
			break
		}
	}

	jobID, err := c.client.Submit(ctx, provider.GenerationRequest{
		Model:           model,
		Prompt:          prompt,
		NegativePrompt:  prompts.NegativePanelPrompt,
		ReferenceImages: refs,
		AspectRatio:     generator.PanelAspectRatio,
		Resolution:      generator.ResolutionStandard,
		OutputFormat:    generator.OutputFormat,
	})
	if err != nil {
		return nil, err
	}

	imageURL, err := c.client.PollUntilDone(ctx, jobID, c.pollTimeout)
	if err != nil {
		return nil, err
	}

	encoded, err := c.client.FetchEncoded(ctx, imageURL)
	if err != nil {
		return nil, fmt.Errorf("生成結果画像の取得に失敗しました: %w", err)
	}

	newPanel := old
	newPanel.ImageData = encoded.Data
	newPanel.MimeType = encoded.MimeType
	newPanel.ImagePrompt = prompt
	return &newPanel, nil
}

func (c *Controller) sceneCharacters(scene domain.Scene) []domain.CharacterProfile {
	var chars []domain.CharacterProfile
	for _, id := range scene.CharacterIDs {
		if char := c.registry.GetCharacterWithDefault(id); char != nil {
			chars = append(chars, *char)
		}
	}
	return chars
}

func panelAt(batch domain.Panels, idx int) (domain.Panel, error) {
	if idx < 0 || idx >= len(batch) {
		return domain.Panel{}, fmt.Errorf("パネルインデックスが範囲外です: %d (総数 %d)", idx, len(batch))
	}
	return batch[idx], nil
}
