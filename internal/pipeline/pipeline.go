package pipeline

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/shouni/go-remote-io/pkg/gcsfactory"
	"github.com/shouni/go-remote-io/pkg/remoteio"

	"github.com/shouni/go-comic-kit/internal/config"
	"github.com/shouni/go-comic-kit/pkg/workflow"
)

// ExecuteGenerate は、シーンリストJSONを読み込み、
// コマ画像の一括生成と保存（マニフェスト出力を含む）を実行するのだ。
func ExecuteGenerate(ctx context.Context, cfg *config.Config) error {
	builder, err := setupBuilder(ctx, cfg)
	if err != nil {
		return err
	}

	batchRunner, err := builder.BuildBatchRunner()
	if err != nil {
		return fmt.Errorf("BatchRunnerの構築に失敗したのだ: %w", err)
	}

	if err := batchRunner.RunAndSave(ctx, cfg.Options.ScenesFile, cfg.Options.OutputDir); err != nil {
		return err
	}

	slog.Info("コマ生成と保存が完了したのだ！", "output_dir", cfg.Options.OutputDir)
	return nil
}

// ExecuteRevise は、保存済みバッチの1コマに対してリロールまたは
// フィードバック編集を実行するのだ。
func ExecuteRevise(ctx context.Context, cfg *config.Config) error {
	builder, err := setupBuilder(ctx, cfg)
	if err != nil {
		return err
	}

	revisionRunner, err := builder.BuildRevisionRunner()
	if err != nil {
		return fmt.Errorf("RevisionRunnerの構築に失敗したのだ: %w", err)
	}

	return revisionRunner.Run(ctx, cfg.Options.OutputDir, cfg.Options)
}

// setupBuilder は、入出力とキャラクター定義を初期化し、ワークフロービルダーを返すのだ。
func setupBuilder(ctx context.Context, cfg *config.Config) (*workflow.Builder, error) {
	gcsFactory, err := gcsfactory.NewGCSClientFactory(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCS client factory: %w", err)
	}

	reader, err := gcsFactory.NewInputReader()
	if err != nil {
		return nil, err
	}
	writer, err := gcsFactory.NewOutputWriter()
	if err != nil {
		return nil, err
	}

	charData, err := readAll(ctx, reader, cfg.Options.CharacterConfig)
	if err != nil {
		return nil, fmt.Errorf("キャラクター定義 '%s' の読み込みに失敗しました: %w", cfg.Options.CharacterConfig, err)
	}

	return workflow.NewBuilder(ctx, cfg, reader, writer, charData)
}

func readAll(ctx context.Context, reader remoteio.InputReader, path string) ([]byte, error) {
	rc, err := reader.Open(ctx, path)
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return io.ReadAll(rc)
}
