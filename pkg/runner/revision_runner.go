package runner

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/shouni/go-remote-io/pkg/remoteio"

	"github.com/shouni/go-comic-kit/internal/config"
	"github.com/shouni/go-comic-kit/pkg/asset"
	"github.com/shouni/go-comic-kit/pkg/domain"
	"github.com/shouni/go-comic-kit/pkg/revision"
)

// candidateFileName は未採用の修正候補画像のベースファイル名です。
const candidateFileName = "panel_candidate.png"

// RevisionRunner は、保存済みバッチの1コマに対する修正操作を管理します。
// マニフェストを読み込み、リロールまたはフィードバック編集を実行し、
// 採用時のみバッチの成果物を上書きします。
type RevisionRunner struct {
	cfg        *config.Config
	controller *revision.Controller
	reader     remoteio.InputReader
	writer     remoteio.OutputWriter
}

// NewRevisionRunner は、依存関係を注入して初期化します。
func NewRevisionRunner(cfg *config.Config, controller *revision.Controller, reader remoteio.InputReader, writer remoteio.OutputWriter) *RevisionRunner {
	return &RevisionRunner{
		cfg:        cfg,
		controller: controller,
		reader:     reader,
		writer:     writer,
	}
}

// Run は修正操作を1回実行します。
// opts.Feedback が空ならリロール、指定されていればフィードバック編集を行います。
// opts.AcceptNew が true の場合は新パネルを即採用してバッチを書き換え、
// false の場合は候補画像だけを書き出して比較に委ねます。
func (r *RevisionRunner) Run(ctx context.Context, outputDir string, opts config.GenerateOptions) error {
	manifest, err := r.loadManifest(ctx, outputDir)
	if err != nil {
		return err
	}

	idx := opts.PanelIndex
	if idx < 0 || idx >= len(manifest.Panels) {
		return fmt.Errorf("パネルインデックスが範囲外です: %d (総数 %d)", idx, len(manifest.Panels))
	}
	scene := manifest.Scenes[idx]

	var cand *domain.PanelRevisionCandidate
	if opts.Feedback == "" {
		slog.InfoContext(ctx, "コマをリロールします", "panel_index", idx)
		cand, err = r.controller.Reroll(ctx, manifest.Panels, idx, scene)
	} else {
		slog.InfoContext(ctx, "フィードバック編集を実行します", "panel_index", idx, "feedback", opts.Feedback)
		cand, err = r.controller.FeedbackEdit(ctx, manifest.Panels, idx, scene, opts.Feedback)
	}
	if err != nil {
		return err
	}

	if !opts.AcceptNew {
		return r.saveCandidate(ctx, outputDir, cand)
	}
	return r.acceptAndSave(ctx, outputDir, manifest, cand)
}

// saveCandidate は候補画像だけを panel_candidate_N.png として書き出します。
// バッチの成果物には一切触れません。
func (r *RevisionRunner) saveCandidate(ctx context.Context, outputDir string, cand *domain.PanelRevisionCandidate) error {
	basePath, err := asset.ResolveOutputPath(outputDir, candidateFileName)
	if err != nil {
		return fmt.Errorf("候補画像の出力パス解決に失敗しました: %w", err)
	}
	candPath, err := asset.GenerateIndexedPath(basePath, cand.PanelIndex+1)
	if err != nil {
		return fmt.Errorf("候補画像の出力パス生成に失敗しました: %w", err)
	}

	if err := savePanelImage(ctx, r.writer, candPath, cand.NewPanel); err != nil {
		return err
	}

	slog.InfoContext(ctx, "修正候補を保存しました。採用する場合は --accept を付けて再実行してください",
		"candidate_path", candPath, "panel_index", cand.PanelIndex)
	return nil
}

// acceptAndSave は候補を採用し、パネル画像とマニフェストを上書きします。
func (r *RevisionRunner) acceptAndSave(ctx context.Context, outputDir string, manifest *Manifest, cand *domain.PanelRevisionCandidate) error {
	if err := r.controller.ResolveCandidate(manifest.Panels, cand, true); err != nil {
		return err
	}

	basePath, err := asset.ResolveOutputPath(outputDir, asset.DefaultPanelFileName)
	if err != nil {
		return fmt.Errorf("出力パスの解決に失敗しました: %w", err)
	}
	panel := manifest.Panels[cand.PanelIndex]
	panelPath, err := asset.GenerateIndexedPath(basePath, panel.PanelNumber)
	if err != nil {
		return fmt.Errorf("コマ %d の出力パス生成に失敗しました: %w", panel.PanelNumber, err)
	}

	if err := savePanelImage(ctx, r.writer, panelPath, panel); err != nil {
		return err
	}
	if err := saveManifest(ctx, r.writer, outputDir, *manifest); err != nil {
		return err
	}

	slog.InfoContext(ctx, "修正を採用してバッチを更新しました", "panel_index", cand.PanelIndex, "path", panelPath)
	return nil
}

// loadManifest は保存済みバッチのマニフェストを読み込みます。
func (r *RevisionRunner) loadManifest(ctx context.Context, outputDir string) (*Manifest, error) {
	manifestPath, err := asset.ResolveOutputPath(outputDir, asset.DefaultManifestName)
	if err != nil {
		return nil, fmt.Errorf("マニフェストの出力パス解決に失敗しました: %w", err)
	}

	rc, err := r.reader.Open(ctx, manifestPath)
	if err != nil {
		return nil, fmt.Errorf("マニフェスト '%s' の読み込みに失敗しました: %w", manifestPath, err)
	}
	defer rc.Close()

	var manifest Manifest
	if err := json.NewDecoder(rc).Decode(&manifest); err != nil {
		return nil, fmt.Errorf("マニフェスト '%s' のデコードに失敗しました: %w", manifestPath, err)
	}
	if len(manifest.Panels) == 0 {
		return nil, fmt.Errorf("マニフェストにパネルが含まれていません: %s", manifestPath)
	}
	if len(manifest.Scenes) != len(manifest.Panels) {
		return nil, fmt.Errorf("マニフェストのシーン数(%d)とパネル数(%d)が一致しません", len(manifest.Scenes), len(manifest.Panels))
	}

	return &manifest, nil
}
