package reference

import (
	"path"
	"strings"

	"github.com/shouni/go-comic-kit/pkg/domain"
)

// filenameTags はファイル名規約のタグと CameraAngle の対応表です。
// 例: "hero_profile_left_01.png" → profile_left。
// 部分一致の誤検出を避けるため、長いタグから順に照合します。
var filenameTags = []struct {
	tag   string
	angle domain.CameraAngle
}{
	{"three_quarter_left", domain.AngleThreeQuarterLeft},
	{"three_quarter_right", domain.AngleThreeQuarterRight},
	{"profile_left", domain.AngleProfileLeft},
	{"profile_right", domain.AngleProfileRight},
	{"low_angle", domain.AngleLowAngle},
	{"overhead", domain.AngleOverhead},
	{"frontal", domain.AngleFrontal},
	{"back", domain.AngleBack},
}

// AngleFromFilename は参照画像のファイル名からアングルタグを読み取ります。
// タグは撮影時に付与済みであり、ここで画像内容から再推定することはしません。
// タグが無い場合は frontal（最も安全な既定値）に分類されます。
func AngleFromFilename(imagePath string) domain.CameraAngle {
	name := strings.ToLower(path.Base(imagePath))
	for _, entry := range filenameTags {
		if strings.Contains(name, entry.tag) {
			return entry.angle
		}
	}
	return domain.AngleFrontal
}
