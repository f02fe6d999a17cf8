package config

import (
	"time"

	"github.com/shouni/go-utils/envutil"
)

// デフォルト値の定義なのだ
const (
	DefaultProvider       = "rest"
	DefaultGeminiModel    = "gemini-3-pro-image-preview"
	DefaultHTTPTimeout    = 30 * time.Second
	DefaultPollTimeout    = 5 * time.Minute
	DefaultRateInterval   = 2 * time.Second
	DefaultScenesFile     = "examples/scenes.json"
	DefaultCharactersFile = "examples/characters.json" // キャラクターの視覚情報を定義したJSONパス
	DefaultLocalOutputDir = "output/panels"            // パネル画像とマニフェストのデフォルト保存先なのだ
	DefaultStyleSuffix    = "Japanese anime style, official art, cel-shaded, clean line art, vibrant colors, masterpiece, high resolution"
)

// Config はアプリケーション全体の環境設定（APIキーや接続先）を保持する構造体なのだ。
type Config struct {
	Provider       string // 生成バックエンド: "rest" または "gemini"
	APIBaseURL     string // 非同期ジョブAPIのベースURL
	APIKey         string
	HostingBaseURL string // 参照画像ホスティングAPIのベースURL
	HostingAPIKey  string
	GeminiAPIKey   string
	GeminiModel    string
	StyleSuffix    string

	Options GenerateOptions
}

// LoadConfig は環境変数から設定を読み込み、構造体を返すのだ！
func LoadConfig() *Config {
	cfg := &Config{
		Provider:       envutil.GetEnv("COMIC_PROVIDER", DefaultProvider),
		APIBaseURL:     envutil.GetEnv("COMIC_API_BASE_URL", ""),
		APIKey:         envutil.GetEnv("COMIC_API_KEY", ""),
		HostingBaseURL: envutil.GetEnv("COMIC_HOSTING_BASE_URL", ""),
		HostingAPIKey:  envutil.GetEnv("COMIC_HOSTING_API_KEY", ""),
		GeminiAPIKey:   envutil.GetEnv("GEMINI_API_KEY", ""),
		GeminiModel:    envutil.GetEnv("IMAGE_GEMINI_MODEL", DefaultGeminiModel),
		StyleSuffix:    envutil.GetEnv("IMAGE_PROMPT_SUFFIX", DefaultStyleSuffix),
	}
	return cfg
}

// GenerateOptions は CLI フラグから渡される実行時のパラメータなのだ。
type GenerateOptions struct {
	// ソース入力関連
	ScenesFile      string // --scenes-file
	CharacterConfig string // --char-config
	OutputDir       string // --output-dir

	// 生成挙動設定
	Provider     string        // --provider
	PollTimeout  time.Duration // --poll-timeout
	HTTPTimeout  time.Duration // --http-timeout
	RateInterval time.Duration // --rate-interval

	// 修正 (revise) 関連
	PanelIndex int    // --panel: 修正対象の0始まりインデックス
	Feedback   string // --feedback: 自然言語の編集指示。空ならリロール
	AcceptNew  bool   // --accept: 新パネルを即採用してマニフェストを書き換える
}
