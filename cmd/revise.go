package cmd

import (
	"fmt"
	"log/slog"

	"github.com/shouni/go-comic-kit/internal/config"
	"github.com/shouni/go-comic-kit/internal/pipeline"

	"github.com/spf13/cobra"
)

// reviseCmd は、生成済みバッチの1コマだけを作り直すサブコマンドなのだ。
// --feedback を指定すればフィードバック編集、省略すればリロールになるのだ。
var reviseCmd = &cobra.Command{
	Use:   "revise",
	Short: "保存済みバッチの1コマをリロールまたは編集するのだ。",
	Long: `generate が保存したマニフェスト (panels.json) を読み込み、指定した1コマだけを作り直すのだ。
--feedback なし: 参照画像への忠実度を強めてやり直すリロールなのだ。
--feedback あり: 現在のコマ画像を起点に、自然言語の指示どおりに編集するのだ。
どちらも --accept を付けない限り候補画像を書き出すだけで、バッチ本体には触れないのだ。`,
	RunE: reviseCommand,
}

func init() {
	reviseCmd.Flags().IntVarP(&opts.PanelIndex, "panel", "p", 0, "修正対象コマの0始まりインデックスなのだ。")
	reviseCmd.Flags().StringVar(&opts.Feedback, "feedback", "", "自然言語の編集指示なのだ。省略するとリロールになるのだ。")
	reviseCmd.Flags().BoolVar(&opts.AcceptNew, "accept", false, "新パネルを即採用してバッチを書き換えるのだ。")
}

// reviseCommand は、revise サブコマンドの実行ロジック本体なのだ。
func reviseCommand(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	if opts.PanelIndex < 0 {
		return fmt.Errorf("パネルインデックス（--panel）は0以上で指定してほしいのだ")
	}

	cfg := config.LoadConfig()
	cfg.Options = opts

	mode := "reroll"
	if opts.Feedback != "" {
		mode = "feedback"
	}
	slog.Info("コマ修正モードを起動するのだ！",
		"output_dir", cfg.Options.OutputDir,
		"panel_index", cfg.Options.PanelIndex,
		"mode", mode,
		"accept", cfg.Options.AcceptNew)

	return pipeline.ExecuteRevise(ctx, cfg)
}
