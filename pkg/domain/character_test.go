package domain

import (
	"encoding/json"
	"reflect"
	"testing"
)

func TestCharacterProfile_JSON(t *testing.T) {
	t.Run("CharacterProfile構造体が正しくJSON変換できるのだ", func(t *testing.T) {
		char := CharacterProfile{
			ID:                  "hero-001",
			Name:                "アオイ",
			PhysicalDescription: "short silver hair, red scarf",
			ReferenceImagePaths: []string{"refs/hero_frontal_01.png", "refs/hero_profile_left_01.png"},
			PreferredModel:      ModelStandard,
			IsPrimary:           true,
		}

		data, err := json.Marshal(char)
		if err != nil {
			t.Fatalf("Marshal失敗なのだ: %v", err)
		}

		var decoded CharacterProfile
		if err := json.Unmarshal(data, &decoded); err != nil {
			t.Fatalf("Unmarshal失敗なのだ: %v", err)
		}

		if !reflect.DeepEqual(char, decoded) {
			t.Errorf("変換前後でデータが一致しないのだ。期待: %+v, 実際: %+v", char, decoded)
		}
	})
}

func TestCharacterRegistry_GetCharacterWithDefault(t *testing.T) {
	registry := CharacterRegistry{
		"hero":    {ID: "hero", Name: "アオイ", IsPrimary: true},
		"rival":   {ID: "rival", Name: "カゲロウ"},
		"passerby": {ID: "passerby", Name: "通行人"},
	}

	t.Run("IDが一致すればそのキャラクターを返す", func(t *testing.T) {
		char := registry.GetCharacterWithDefault("rival")
		if char == nil || char.ID != "rival" {
			t.Fatalf("rival が返るべきなのだ: %+v", char)
		}
	})

	t.Run("未知のIDはPrimaryへフォールバックする", func(t *testing.T) {
		char := registry.GetCharacterWithDefault("no-such-id")
		if char == nil || char.ID != "hero" {
			t.Fatalf("Primary(hero) が返るべきなのだ: %+v", char)
		}
	})

	t.Run("Primary不在かつ未知のIDならnilを返す", func(t *testing.T) {
		r := CharacterRegistry{"a": {ID: "a"}}
		if char := r.GetCharacterWithDefault("x"); char != nil {
			t.Fatalf("nil が返るべきなのだ: %+v", char)
		}
	})
}

func TestScenes_UniqueCharacterIDs(t *testing.T) {
	scenes := Scenes{
		{Text: "a", CharacterIDs: []string{"hero", "rival"}},
		{Text: "b", CharacterIDs: []string{"hero"}},
		{Text: "c", CharacterIDs: []string{"rival", ""}},
	}

	got := scenes.UniqueCharacterIDs()
	want := []string{"hero", "rival"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("重複排除とソートが期待どおりではないのだ。期待: %v, 実際: %v", want, got)
	}
}
