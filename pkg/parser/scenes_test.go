package parser

import (
	"bytes"
	"context"
	"io"
	"testing"

	"github.com/shouni/go-comic-kit/pkg/domain"
)

// mockReader は remoteio.InputReader のテスト用モックなのだ。
type mockReader struct {
	data []byte
	err  error
}

func (m *mockReader) Open(ctx context.Context, path string) (io.ReadCloser, error) {
	if m.err != nil {
		return nil, m.err
	}
	return io.NopCloser(bytes.NewReader(m.data)), nil
}

func TestSceneListParser_ParseFromPath(t *testing.T) {
	ctx := context.Background()
	registry := domain.CharacterRegistry{
		"hero": {ID: "hero", Name: "アオイ", IsPrimary: true},
	}

	t.Run("Success/ShouldFillDefaultCharacter", func(t *testing.T) {
		input := `[
			{"text": "こんにちは", "scene": "a girl waving, frontal view"},
			{"text": "行くぞ", "scene": "two figures from the side", "characters": ["hero", "rival"]}
		]`
		p := NewSceneListParser(&mockReader{data: []byte(input)}, registry)

		scenes, err := p.ParseFromPath(ctx, "scenes.json")
		if err != nil {
			t.Fatalf("ParseFromPath failed: %v", err)
		}
		if len(scenes) != 2 {
			t.Fatalf("unexpected scene count: %d", len(scenes))
		}
		if len(scenes[0].CharacterIDs) != 1 || scenes[0].CharacterIDs[0] != "hero" {
			t.Errorf("characters 未指定のシーンに既定キャラクターが補完されるべきなのだ: %v", scenes[0].CharacterIDs)
		}
		if len(scenes[1].CharacterIDs) != 2 {
			t.Errorf("characters 指定済みのシーンは変更されないべきなのだ: %v", scenes[1].CharacterIDs)
		}
	})

	t.Run("Failure/ShouldRejectEmptyList", func(t *testing.T) {
		p := NewSceneListParser(&mockReader{data: []byte(`[]`)}, registry)
		if _, err := p.ParseFromPath(ctx, "scenes.json"); err == nil {
			t.Error("空のシーンリストはエラーになるべきなのだ")
		}
	})

	t.Run("Failure/ShouldRejectWhenNoPrimaryCharacter", func(t *testing.T) {
		p := NewSceneListParser(&mockReader{data: []byte(`[{"text":"a","scene":"b"}]`)}, domain.CharacterRegistry{})
		if _, err := p.ParseFromPath(ctx, "scenes.json"); err == nil {
			t.Error("既定キャラクター不在ならエラーになるべきなのだ")
		}
	})
}
