package generator

const (
	// MaxReferenceImages はプロバイダが1ジョブに受け付ける参照画像の上限です。
	MaxReferenceImages = 8

	// PanelAspectRatio はコマ画像のアスペクト比です。
	PanelAspectRatio = "16:9"

	// OutputFormat は生成画像の出力フォーマットです。
	OutputFormat = "png"

	// DefaultBackgroundColor はコマ背景のデフォルト色です。
	DefaultBackgroundColor = "#FFFFFF"
)

// 解像度ティアです。モデルに応じて選択されます。
const (
	ResolutionStandard = "1024x576"
	ResolutionQuality  = "1920x1080"
)

// BatchStatus はバッチ全体の進行フェーズを表します。
type BatchStatus string

const (
	StatusGeneratingPrompts BatchStatus = "generating_prompts"
	StatusGeneratingAvatars BatchStatus = "generating_avatars"
	StatusCompleted         BatchStatus = "completed"
	StatusFailed            BatchStatus = "failed"
)

// Progress は進捗イベントの内容です。CompletedCount は単調増加します。
type Progress struct {
	CurrentPanelIndex int         `json:"current_panel_index"`
	TotalPanels       int         `json:"total_panels"`
	Status            BatchStatus `json:"status"`
	Message           string      `json:"message"`
	CompletedCount    int         `json:"completed_count"`
}

// ProgressFunc は各コマのジョブ終端（成功・失敗を問わず）と
// バッチの節目で呼び出されるコールバックです。nil なら無視されます。
type ProgressFunc func(p Progress)
