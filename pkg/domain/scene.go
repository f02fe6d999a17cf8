package domain

import "sort"

// Scene は対話フェーズから渡される1コマ分の入力です。
// パネル生成の入力として不変であり、生成側から書き換えてはいけません。
type Scene struct {
	Text             string   `json:"text"`
	SceneDescription string   `json:"scene"`
	CharacterIDs     []string `json:"characters,omitempty"`
}

// Scenes は Scene のスライスに対するヘルパーを提供するのだ。
type Scenes []Scene

// UniqueCharacterIDs はシーンのスライスから重複しないキャラクターIDを抽出します。
// 同じキャラクターが何コマに登場しても、参照画像の解決は1回で済ませるための起点です。
func (ss Scenes) UniqueCharacterIDs() []string {
	set := make(map[string]struct{})
	for _, scene := range ss {
		for _, id := range scene.CharacterIDs {
			if id != "" {
				set[id] = struct{}{}
			}
		}
	}

	uniqueIDs := make([]string, 0, len(set))
	for id := range set {
		uniqueIDs = append(uniqueIDs, id)
	}
	sort.Strings(uniqueIDs)

	return uniqueIDs
}
