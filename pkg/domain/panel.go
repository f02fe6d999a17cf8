package domain

import "fmt"

// Panel は完成した1コマ分の成果物です。
// 各パネルは独立して組み立てられ、最後にシーン順で結合されます。
type Panel struct {
	PanelNumber      int    `json:"panel_number"` // 1始まり。バッチの生存期間を通じて安定
	PanelText        string `json:"panel_text"`
	SceneDescription string `json:"scene_description"`
	ImageData        string `json:"image_data"` // Base64エンコード済み画像
	MimeType         string `json:"mime_type"`
	ImagePrompt      string `json:"image_prompt"`
	BackgroundColor  string `json:"background_color"`
}

// Panels は Panel のスライスに対するヘルパーを提供するのだ。
type Panels []Panel

// Renumber は全パネルの PanelNumber を 1始まりの連番へ原子的に振り直します。
// 並び替え後はこの関数で明示的に再採番すること。番号の重複は許されません。
func (ps Panels) Renumber() {
	for i := range ps {
		ps[i].PanelNumber = i + 1
	}
}

// Validate はパネル番号の不変条件（1始まり連番・重複なし）を検査します。
func (ps Panels) Validate() error {
	for i, p := range ps {
		if p.PanelNumber != i+1 {
			return fmt.Errorf("パネル番号が不正です: index %d に番号 %d", i, p.PanelNumber)
		}
	}
	return nil
}

// PanelRevisionCandidate は修正操作が生んだ新旧パネルの比較単位です。
// 利用者がどちらかを選ぶまでバッチの Panel リストには影響を与えません。
type PanelRevisionCandidate struct {
	PanelIndex int   `json:"panel_index"` // 0始まりのバッチ内インデックス
	OldPanel   Panel `json:"old_panel"`
	NewPanel   Panel `json:"new_panel"`
}
