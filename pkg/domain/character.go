package domain

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
)

// 画像生成で選択できるモデル名の固定セットです。
const (
	ModelStandard = "comic-image-standard"
	ModelQuality  = "comic-image-quality"
	ModelGemini   = "gemini-3-pro-image-preview"
)

// KnownModels は CharacterProfile.PreferredModel に指定できるモデル名の一覧です。
var KnownModels = []string{ModelStandard, ModelQuality, ModelGemini}

// CharacterProfile は物語に登場するキャラクターの定義を保持します。
// レジストリが所有する読み取り専用データであり、バッチ処理側からは変更しません。
type CharacterProfile struct {
	ID                  string   `json:"id"`
	Name                string   `json:"name"`
	PhysicalDescription string   `json:"physical_description"`
	ReferenceImagePaths []string `json:"reference_image_paths"` // 一貫性保持のための参照画像（ローカルパスまたはURL）
	PreferredModel      string   `json:"preferred_model"`
	IsPrimary           bool     `json:"is_primary"`
}

// String はキャラクターの情報を文字列で返すのだ。
func (c CharacterProfile) String() string {
	return fmt.Sprintf("%s (%s)", c.Name, c.ID)
}

// CharacterRegistry はIDをキーとしたキャラクターの検索用マップなのだ。
type CharacterRegistry map[string]CharacterProfile

// FindCharacter は直接のIDからキャラクター情報を特定します。
func (r CharacterRegistry) FindCharacter(id string) *CharacterProfile {
	if r == nil {
		return nil
	}
	if char, ok := r[id]; ok {
		res := char
		return &res
	}
	if char, ok := r[strings.ToLower(id)]; ok {
		res := char
		return &res
	}
	return nil
}

// GetPrimary はマップ内から IsPrimary が true のキャラクターを1人返します。
// 常に同じ結果を得るため、IDでソートした順に走査します。
func (r CharacterRegistry) GetPrimary() *CharacterProfile {
	if len(r) == 0 {
		return nil
	}

	keys := make([]string, 0, len(r))
	for k := range r {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		char := r[k]
		if char.IsPrimary {
			res := char
			return &res
		}
	}

	return nil
}

// GetCharacterWithDefault はIDで検索し、見つからない場合は Primary キャラクターへ
// フォールバックします。characters 指定のないシーンはこの既定キャラクターで描画されます。
func (r CharacterRegistry) GetCharacterWithDefault(id string) *CharacterProfile {
	if char := r.FindCharacter(id); char != nil {
		return char
	}
	return r.GetPrimary()
}

// GetCharacters はJSONバイト列からキャラクターレジストリをパースして返します。
// この関数はステートレスであり、キャッシュを行いません。
func GetCharacters(charactersJSON []byte) (CharacterRegistry, error) {
	var chars CharacterRegistry
	if err := json.Unmarshal(charactersJSON, &chars); err != nil {
		return nil, fmt.Errorf("キャラクター情報のJSONパースに失敗しました: %w", err)
	}
	return chars, nil
}
