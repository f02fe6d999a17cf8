package domain

// CameraAngle はシーン記述から導出されるカメラアングルの分類タグです。
// 利用者が直接指定することはなく、常に分類器が決定します。
type CameraAngle string

const (
	AngleFrontal           CameraAngle = "frontal"
	AngleThreeQuarterLeft  CameraAngle = "three_quarter_left"
	AngleThreeQuarterRight CameraAngle = "three_quarter_right"
	AngleProfileLeft       CameraAngle = "profile_left"
	AngleProfileRight      CameraAngle = "profile_right"
	AngleBack              CameraAngle = "back"
	AngleOverhead          CameraAngle = "overhead"
	AngleLowAngle          CameraAngle = "low_angle"
	AngleUnknown           CameraAngle = "unknown"
)

// ReferenceSet は1キャラクター分の、ホスティング済み参照画像URLの集合です。
// バッチ開始時に1回だけ構築され、そのバッチ内の全シーンから参照で共有されます。
// 構築後は不変として扱うこと。内容を更新したい場合は作り直しが唯一の手段です。
type ReferenceSet struct {
	CharacterID string
	URLsByAngle map[CameraAngle][]string
	AllURLs     []string
}

// IsEmpty は参照画像が1枚も無いかどうかを返します。
// 解決に失敗したキャラクターは空集合としてバッチを続行します。
func (rs *ReferenceSet) IsEmpty() bool {
	return rs == nil || len(rs.AllURLs) == 0
}

// URLsForAngle は指定アングルのバケットを返します。存在しない場合は nil です。
func (rs *ReferenceSet) URLsForAngle(angle CameraAngle) []string {
	if rs == nil || rs.URLsByAngle == nil {
		return nil
	}
	return rs.URLsByAngle[angle]
}
