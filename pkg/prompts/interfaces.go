package prompts

import "github.com/shouni/go-comic-kit/pkg/domain"

// PromptSynthesizer は (シーン, 直前コマの文脈, キャラクター設定) から
// 1本の生成指示文字列を合成する外部協調コンポーネントの境界です。
// パイプラインからは純粋な関数呼び出しとして扱われます。
type PromptSynthesizer interface {
	BuildScenePrompt(scene domain.Scene, prev *domain.Scene, chars []domain.CharacterProfile) string
}
