package cmd

import (
	"fmt"
	"os"

	"github.com/shouni/go-comic-kit/internal/config"

	clibase "github.com/shouni/go-cli-base"
	"github.com/spf13/cobra"
)

// opts は CLI フラグの値を束ねる共有の実行時パラメータなのだ。
var opts config.GenerateOptions

// addAppFlags は、アプリケーション全般に適用されるグローバルフラグを定義するのだ。
func addAppFlags(rootCmd *cobra.Command) {
	// --- ソース入力関連 ---
	rootCmd.PersistentFlags().StringVarP(&opts.ScenesFile, "scenes-file", "f", config.DefaultScenesFile, "シーンリストJSONのパス（ローカル or gs://...）なのだ。")
	rootCmd.PersistentFlags().StringVarP(&opts.CharacterConfig, "char-config", "c", config.DefaultCharactersFile, "キャラクターの視覚情報を定義したJSONパスなのだ。")

	// --- 生成結果の出力設定 ---
	rootCmd.PersistentFlags().StringVarP(&opts.OutputDir, "output-dir", "o", config.DefaultLocalOutputDir, "パネル画像とマニフェストの保存先（ローカル or gs://...）なのだ。")

	// --- 生成挙動設定 ---
	rootCmd.PersistentFlags().StringVar(&opts.Provider, "provider", "", "生成バックエンド（rest / gemini）なのだ。未指定なら COMIC_PROVIDER に従うのだ。")
	rootCmd.PersistentFlags().DurationVar(&opts.PollTimeout, "poll-timeout", config.DefaultPollTimeout, "1ジョブあたりのポーリング上限時間なのだ。")
	rootCmd.PersistentFlags().DurationVar(&opts.HTTPTimeout, "http-timeout", config.DefaultHTTPTimeout, "Webリクエストのタイムアウトなのだ。")
	rootCmd.PersistentFlags().DurationVar(&opts.RateInterval, "rate-interval", config.DefaultRateInterval, "ジョブ投入の最小間隔なのだ。")
}

// preRunAppE は、コマンド実行前に環境変数などの必須チェックを行うのだ。
func preRunAppE(cmd *cobra.Command, args []string) error {
	providerName := opts.Provider
	if providerName == "" {
		providerName = os.Getenv("COMIC_PROVIDER")
	}

	// Geminiバックエンド利用時はAPIキーの存在チェックが欠かせないのだ！
	if providerName == "gemini" && os.Getenv("GEMINI_API_KEY") == "" {
		return fmt.Errorf("エラー: 環境変数 GEMINI_API_KEY が設定されていません。Gemini APIの利用には必須なのだ")
	}
	if providerName != "gemini" && os.Getenv("COMIC_API_BASE_URL") == "" {
		return fmt.Errorf("エラー: 環境変数 COMIC_API_BASE_URL が設定されていません。ジョブAPIの接続先が分からないのだ")
	}

	return nil
}

// Execute は、アプリケーションのメインエントリポイントなのだ。
// main.go から呼び出されて、cobra のコマンドライン解析を開始するのだよ。
func Execute() {
	clibase.Execute(
		"comic-kit-go",
		addAppFlags,
		preRunAppE,
		generateCmd,
		reviseCmd,
	)
}
