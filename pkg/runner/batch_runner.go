package runner

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/shouni/go-remote-io/pkg/remoteio"

	"github.com/shouni/go-comic-kit/internal/config"
	"github.com/shouni/go-comic-kit/pkg/asset"
	"github.com/shouni/go-comic-kit/pkg/domain"
	"github.com/shouni/go-comic-kit/pkg/generator"
	"github.com/shouni/go-comic-kit/pkg/parser"
)

// ComicBatchRunner は、シーンリストからのバッチ生成と成果物の保存を管理します。
type ComicBatchRunner struct {
	cfg    *config.Config
	parser *parser.SceneListParser
	gen    *generator.BatchGenerator
	writer remoteio.OutputWriter
}

// NewComicBatchRunner は、依存関係を注入して初期化します。
func NewComicBatchRunner(cfg *config.Config, p *parser.SceneListParser, gen *generator.BatchGenerator, writer remoteio.OutputWriter) *ComicBatchRunner {
	return &ComicBatchRunner{
		cfg:    cfg,
		parser: p,
		gen:    gen,
		writer: writer,
	}
}

// Run はシーンリストを読み込み、全コマの画像を並行生成して返します。
func (r *ComicBatchRunner) Run(ctx context.Context, scenesPath string) (domain.Scenes, domain.Panels, error) {
	scenes, err := r.parser.ParseFromPath(ctx, scenesPath)
	if err != nil {
		return nil, nil, err
	}

	panels, err := r.gen.Execute(ctx, scenes, logProgress(ctx))
	if err != nil {
		slog.ErrorContext(ctx, "バッチ生成パイプラインが失敗しました", "error", err)
		return nil, nil, err
	}

	slog.InfoContext(ctx, "全コマの生成に成功しました", "count", len(panels))
	return scenes, panels, nil
}

// RunAndSave はコマ画像を生成し、連番を付けて保存し、マニフェストを書き出します。
func (r *ComicBatchRunner) RunAndSave(ctx context.Context, scenesPath, outputDir string) error {
	basePath, err := asset.ResolveOutputPath(outputDir, asset.DefaultPanelFileName)
	if err != nil {
		return fmt.Errorf("出力パスの解決に失敗しました: %w", err)
	}

	scenes, panels, err := r.Run(ctx, scenesPath)
	if err != nil {
		return err // Run 内部でエラーラップされているためそのまま返す
	}

	for i, panel := range panels {
		panelPath, err := asset.GenerateIndexedPath(basePath, panel.PanelNumber)
		if err != nil {
			return fmt.Errorf("コマ %d の出力パス生成に失敗しました: %w", i+1, err)
		}

		if err := savePanelImage(ctx, r.writer, panelPath, panel); err != nil {
			return err
		}
	}

	manifest := Manifest{BatchID: uuid.NewString(), Scenes: scenes, Panels: panels}
	if err := saveManifest(ctx, r.writer, outputDir, manifest); err != nil {
		return err
	}

	slog.InfoContext(ctx, "バッチの保存が完了しました", "output_dir", outputDir, "panels", len(panels))
	return nil
}

// savePanelImage は1コマ分の画像をデコードして書き込みます。
func savePanelImage(ctx context.Context, writer remoteio.OutputWriter, path string, panel domain.Panel) error {
	data, err := base64.StdEncoding.DecodeString(panel.ImageData)
	if err != nil {
		return fmt.Errorf("第 %d パネルの画像デコードに失敗しました: %w", panel.PanelNumber, err)
	}

	slog.InfoContext(ctx, "パネル画像を保存しています", "index", panel.PanelNumber, "path", path)
	if err := writer.Write(ctx, path, bytes.NewReader(data), panel.MimeType); err != nil {
		return fmt.Errorf("第 %d パネルの保存に失敗しました (path: %s): %w", panel.PanelNumber, path, err)
	}
	return nil
}

// saveManifest はバッチのマニフェスト (panels.json) を書き込みます。
func saveManifest(ctx context.Context, writer remoteio.OutputWriter, outputDir string, manifest Manifest) error {
	manifestPath, err := asset.ResolveOutputPath(outputDir, asset.DefaultManifestName)
	if err != nil {
		return fmt.Errorf("マニフェストの出力パス解決に失敗しました: %w", err)
	}

	data, err := json.MarshalIndent(manifest, "", "  ")
	if err != nil {
		return fmt.Errorf("マニフェストのエンコードに失敗しました: %w", err)
	}

	if err := writer.Write(ctx, manifestPath, bytes.NewReader(data), "application/json"); err != nil {
		return fmt.Errorf("マニフェストの保存に失敗しました (path: %s): %w", manifestPath, err)
	}
	return nil
}

// logProgress は進捗イベントを構造化ログへ流すコールバックを返します。
func logProgress(ctx context.Context) generator.ProgressFunc {
	return func(p generator.Progress) {
		slog.InfoContext(ctx, "バッチ進捗",
			"status", string(p.Status),
			"completed", p.CompletedCount,
			"total", p.TotalPanels,
			"message", p.Message,
		)
	}
}
