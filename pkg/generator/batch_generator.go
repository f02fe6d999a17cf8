package generator

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/shouni/go-comic-kit/pkg/angle"
	"github.com/shouni/go-comic-kit/pkg/domain"
	"github.com/shouni/go-comic-kit/pkg/prompts"
	"github.com/shouni/go-comic-kit/pkg/provider"
)

// BatchGenerator は、シーンリストから完成パネル列を並行生成する中心的なステートマシンです。
type BatchGenerator struct {
	composer *ComicComposer
}

// NewBatchGenerator は BatchGenerator の新しいインスタンスを初期化します。
func NewBatchGenerator(composer *ComicComposer) *BatchGenerator {
	return &BatchGenerator{composer: composer}
}

// Execute はシーン群のコマ画像をまとめて生成し、シーン順のパネル列を返します。
// アルゴリズム:
//  1. バッチ内の全キャラクターを一度だけ解決する（同期バリア）
//  2. 各シーンのプロンプトを順に合成する（直前シーンを文脈として渡すため逐次）
//  3. シーンごとのジョブを並行して submit / poll / fetch する
//
// どれか1シーンでも生成に失敗した場合、バッチ全体をエラーで棄却します。
// 1コマ欠けた物語は成果物として使えないため、部分結果は返しません。
func (bg *BatchGenerator) Execute(ctx context.Context, scenes domain.Scenes, onProgress ProgressFunc) (domain.Panels, error) {
	if len(scenes) == 0 {
		return nil, fmt.Errorf("生成対象のシーンがありません")
	}

	batchID := uuid.NewString()
	total := len(scenes)
	logger := slog.With("batch_id", batchID, "total_panels", total)
	logger.InfoContext(ctx, "バッチ生成を開始します")

	emit := func(p Progress) {
		if onProgress != nil {
			onProgress(p)
		}
	}
	emit(Progress{TotalPanels: total, Status: StatusGeneratingPrompts, Message: "プロンプトを合成しています"})

	// 1. 参照画像の解決バリア。全シーンはこの完了を待ってからジョブを投入する
	sceneChars := bg.collectSceneCharacters(scenes)
	refSets := bg.composer.Resolver.Resolve(ctx, bg.distinctProfiles(sceneChars))

	// 2. プロンプト合成。直前シーンの文脈に依存するため逐次で行う
	scenePrompts := make([]string, total)
	for i, scene := range scenes {
		var prev *domain.Scene
		if i > 0 {
			prev = &scenes[i-1]
		}
		scenePrompts[i] = bg.composer.PromptBuilder.BuildScenePrompt(scene, prev, sceneChars[i])
	}

	emit(Progress{TotalPanels: total, Status: StatusGeneratingAvatars, Message: "コマ画像を生成しています"})

	// 3. シーンごとの生成ジョブを並行実行。シーン間にデータ依存はない
	panels := make(domain.Panels, total)
	var mu sync.Mutex
	completed := 0

	reportDone := func(i int, msg string) {
		mu.Lock()
		completed++
		count := completed
		mu.Unlock()
		emit(Progress{
			CurrentPanelIndex: i,
			TotalPanels:       total,
			Status:            StatusGeneratingAvatars,
			Message:           msg,
			CompletedCount:    count,
		})
	}

	eg, egCtx := errgroup.WithContext(ctx)
	for i, scene := range scenes {
		i, scene := i, scene
		eg.Go(func() error {
			if err := bg.composer.RateLimiter.Wait(egCtx); err != nil {
				return err
			}

			startTime := time.Now()
			panel, err := bg.generateOne(egCtx, scene, scenePrompts[i], sceneChars[i], refSets)
			if err != nil {
				reportDone(i, fmt.Sprintf("コマ %d の生成に失敗しました", i+1))
				return fmt.Errorf("コマ %d の生成に失敗しました: %w", i+1, err)
			}

			panel.PanelNumber = i + 1
			panels[i] = *panel
			logger.InfoContext(egCtx, "コマ生成が完了しました",
				"panel_index", i+1, "duration", time.Since(startTime).Round(time.Millisecond))
			reportDone(i, fmt.Sprintf("コマ %d が完成しました", i+1))
			return nil
		})
	}

	if err := eg.Wait(); err != nil {
		emit(Progress{TotalPanels: total, Status: StatusFailed, Message: err.Error(), CompletedCount: completed})
		return nil, err
	}

	emit(Progress{TotalPanels: total, Status: StatusCompleted, Message: "全コマの生成が完了しました", CompletedCount: total})
	logger.InfoContext(ctx, "バッチ生成が完了しました")
	return panels, nil
}

// generateOne は1シーン分のジョブを投入・待機し、完成パネルを組み立てます。
func (bg *BatchGenerator) generateOne(ctx context.Context, scene domain.Scene, prompt string, chars []domain.CharacterProfile, refSets map[string]*domain.ReferenceSet) (*domain.Panel, error) {
	refs := BuildReferenceSources(scene.SceneDescription, chars, refSets, MaxReferenceImages)
	model := bg.composer.modelForCharacters(chars)

	jobID, err := bg.composer.Client.Submit(ctx, provider.GenerationRequest{
		Model:           model,
		Prompt:          prompt,
		NegativePrompt:  prompts.NegativePanelPrompt,
		ReferenceImages: refs,
		AspectRatio:     PanelAspectRatio,
		Resolution:      resolutionForModel(model),
		OutputFormat:    OutputFormat,
	})
	if err != nil {
		return nil, err
	}

	imageURL, err := bg.composer.Client.PollUntilDone(ctx, jobID, bg.composer.PollTimeout)
	if err != nil {
		return nil, err
	}

	// 画像の埋め込み形式への変換は生成とは別の再試行可能なステップ
	encoded, err := bg.composer.Client.FetchEncoded(ctx, imageURL)
	if err != nil {
		return nil, fmt.Errorf("生成結果画像の取得に失敗しました: %w", err)
	}

	return &domain.Panel{
		PanelText:        scene.Text,
		SceneDescription: scene.SceneDescription,
		ImageData:        encoded.Data,
		MimeType:         encoded.MimeType,
		ImagePrompt:      prompt,
		BackgroundColor:  DefaultBackgroundColor,
	}, nil
}

// BuildReferenceSources はシーンの構図アングルに合わせて参照画像を選択します。
// キャラクター順に連結し、max で全体を切り詰めます。リロール・編集時の
// 参照再選択でも同じ選択規則を共有します。
func BuildReferenceSources(sceneDescription string, chars []domain.CharacterProfile, refSets map[string]*domain.ReferenceSet, max int) []provider.ImageSource {
	detected := angle.Classify(sceneDescription)

	var urls []string
	for _, char := range chars {
		set, ok := refSets[char.ID]
		if !ok || set == nil {
			continue
		}
		urls = append(urls, angle.SelectReferencesForAngle(set, detected.Angle, max)...)
	}
	if max > 0 && len(urls) > max {
		urls = urls[:max]
	}

	refs := make([]provider.ImageSource, len(urls))
	for i, u := range urls {
		refs[i] = provider.ImageSource{URL: u}
	}
	return refs
}

// collectSceneCharacters は各シーンに登場するキャラクターを宣言順で引き当てます。
func (bg *BatchGenerator) collectSceneCharacters(scenes domain.Scenes) [][]domain.CharacterProfile {
	out := make([][]domain.CharacterProfile, len(scenes))
	for i, scene := range scenes {
		for _, id := range scene.CharacterIDs {
			if char := bg.composer.Registry.GetCharacterWithDefault(id); char != nil {
				out[i] = append(out[i], *char)
			}
		}
	}
	return out
}

// distinctProfiles はバッチ全体の重複しないキャラクター一覧を返します。
func (bg *BatchGenerator) distinctProfiles(sceneChars [][]domain.CharacterProfile) []domain.CharacterProfile {
	seen := make(map[string]bool)
	var out []domain.CharacterProfile
	for _, chars := range sceneChars {
		for _, char := range chars {
			if !seen[char.ID] {
				seen[char.ID] = true
				out = append(out, char)
			}
		}
	}
	return out
}
