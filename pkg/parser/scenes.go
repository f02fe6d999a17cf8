package parser

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/shouni/go-comic-kit/pkg/domain"
	"github.com/shouni/go-remote-io/pkg/remoteio"
)

// Parser はシーンリストを解析するためのインターフェースを定義します。
type Parser interface {
	ParseFromPath(ctx context.Context, fullPath string) (domain.Scenes, error)
}

// SceneListParser は対話フェーズが出力した JSON 形式のシーンリストを解析する構造体です。
type SceneListParser struct {
	reader   remoteio.InputReader
	registry domain.CharacterRegistry
}

// NewSceneListParser は新しい SceneListParser インスタンスを生成します。
func NewSceneListParser(r remoteio.InputReader, registry domain.CharacterRegistry) *SceneListParser {
	return &SceneListParser{reader: r, registry: registry}
}

// ParseFromPath は指定された GCS URIやローカルファイルパスなどから
// コンテンツを読み込み、解析して domain.Scenes を返します。
func (p *SceneListParser) ParseFromPath(ctx context.Context, scenesFile string) (domain.Scenes, error) {
	slog.InfoContext(ctx, "シーンリストを読み込んでいます", "path", scenesFile)
	rc, err := p.reader.Open(ctx, scenesFile)
	if err != nil {
		return nil, fmt.Errorf("シーンリストのオープンに失敗しました (%s): %w", scenesFile, err)
	}
	defer rc.Close()

	var scenes domain.Scenes
	if err := json.NewDecoder(rc).Decode(&scenes); err != nil {
		return nil, fmt.Errorf("シーンリストJSONのパースに失敗しました: %w", err)
	}

	return p.Normalize(scenes)
}

// Normalize は characters 未指定のシーンに既定キャラクターを補完し、入力を検証します。
func (p *SceneListParser) Normalize(scenes domain.Scenes) (domain.Scenes, error) {
	if len(scenes) == 0 {
		return nil, fmt.Errorf("シーンリストが空です")
	}

	for i := range scenes {
		if len(scenes[i].CharacterIDs) > 0 {
			continue
		}
		primary := p.registry.GetPrimary()
		if primary == nil {
			return nil, fmt.Errorf("シーン %d に characters 指定がなく、既定キャラクターも未登録です", i+1)
		}
		scenes[i].CharacterIDs = []string{primary.ID}
	}

	return scenes, nil
}
