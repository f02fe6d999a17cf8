package cmd

import (
	"fmt"
	"log/slog"

	"github.com/shouni/go-comic-kit/internal/config"
	"github.com/shouni/go-comic-kit/internal/pipeline"

	"github.com/spf13/cobra"
)

// generateCmd は、シーンリストJSONから全コマの画像を一括生成するサブコマンドなのだ。
var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "シーンリストからコマ画像を一括生成して保存するのだ。",
	Long: `対話フェーズが出力したシーンリストJSONを読み込み、全コマの画像を並行生成するのだ。
生成結果は連番付きのパネル画像 (panel_1.png ...) とマニフェスト (panels.json) として保存されるのだ。`,
	RunE: generateCommand,
}

// generateCommand は、generate サブコマンドの実行ロジック本体なのだ。
func generateCommand(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	if opts.ScenesFile == "" {
		return fmt.Errorf("読み込むシーンリスト（--scenes-file）を指定してほしいのだ")
	}

	// 1. 環境変数から基本設定をロード
	cfg := config.LoadConfig()

	// 2. コマンドライン引数の値を反映
	cfg.Options = opts

	slog.Info("コマ一括生成モードを起動するのだ！",
		"scenes_file", cfg.Options.ScenesFile,
		"output_dir", cfg.Options.OutputDir,
		"provider", providerOrDefault(cfg))

	// 3. パイプライン実行
	return pipeline.ExecuteGenerate(ctx, cfg)
}

func providerOrDefault(cfg *config.Config) string {
	if cfg.Options.Provider != "" {
		return cfg.Options.Provider
	}
	return cfg.Provider
}
