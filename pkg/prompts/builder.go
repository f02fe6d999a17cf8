package prompts

import (
	"fmt"
	"strings"

	"github.com/shouni/go-comic-kit/pkg/domain"
)

// ImagePromptBuilder は、キャラクター情報を考慮して画像生成プロンプトを構築します。
type ImagePromptBuilder struct {
	styleSuffix string // "anime style, high quality" 等の共通サフィックス
}

// NewImagePromptBuilder は新しい ImagePromptBuilder を生成します。
func NewImagePromptBuilder(styleSuffix string) *ImagePromptBuilder {
	return &ImagePromptBuilder{styleSuffix: styleSuffix}
}

// BuildScenePrompt は1シーン分の生成指示を合成します。
// 直前シーンの記述は連続性の文脈としてだけ使い、画像参照としては扱いません。
func (pb *ImagePromptBuilder) BuildScenePrompt(scene domain.Scene, prev *domain.Scene, chars []domain.CharacterProfile) string {
	var sb strings.Builder

	sb.WriteString("### SCENE ###\n")
	sb.WriteString(scene.SceneDescription)
	sb.WriteString("\n\n")

	if len(chars) > 0 {
		sb.WriteString("### CHARACTER IDENTITIES ###\n")
		for _, char := range chars {
			sb.WriteString(fmt.Sprintf("- %s: %s\n", char.Name, char.PhysicalDescription))
		}
		sb.WriteString("\n")
	}

	if prev != nil && prev.SceneDescription != "" {
		sb.WriteString("### PREVIOUS PANEL CONTEXT ###\n")
		sb.WriteString(prev.SceneDescription)
		sb.WriteString("\n\n")
	}

	var styleParts []string
	for _, p := range []string{RenderingStyle, CinematicTags, pb.styleSuffix} {
		if s := strings.TrimSpace(p); s != "" {
			styleParts = append(styleParts, s)
		}
	}
	sb.WriteString("### STYLE ###\n")
	sb.WriteString(strings.Join(styleParts, ", "))

	return sb.String()
}

// BuildRerollPrompt は元プロンプトに忠実度強化句を付加したリロール用プロンプトを返します。
func BuildRerollPrompt(originalPrompt string) string {
	return originalPrompt + "\n\n" + RerollFidelityClause
}

// BuildFeedbackPrompt は現パネルを起点とした編集指示プロンプトを合成します。
func BuildFeedbackPrompt(originalPrompt, feedback string) string {
	var sb strings.Builder
	sb.WriteString(feedbackEditInstruction)
	sb.WriteString("\n\n")
	sb.WriteString(strings.TrimSpace(feedback))
	sb.WriteString("\n\n### ORIGINAL INSTRUCTION (for context) ###\n")
	sb.WriteString(originalPrompt)
	return sb.String()
}
