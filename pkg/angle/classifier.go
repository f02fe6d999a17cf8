package angle

import (
	"strings"

	"github.com/shouni/go-comic-kit/pkg/domain"
)

const (
	// NoMatchConfidence はキーワードが1つも一致しなかった場合の信頼度です。
	// この場合の分類結果は常に frontal であり、unknown にはなりません。
	NoMatchConfidence = 0.2
	// BaseMatchConfidence は1語一致時の信頼度です。一致数に応じて加算されます。
	BaseMatchConfidence = 0.6
	// ConfidenceStep は追加一致1語ごとの加算量です。
	ConfidenceStep = 0.1
	// MaxConfidence は信頼度の上限です。
	MaxConfidence = 0.95
)

// Classification はシーン記述に対するアングル判定の結果です。
type Classification struct {
	Angle           domain.CameraAngle
	Confidence      float64
	MatchedKeywords []string
}

// angleKeywords はアングルごとの判定フレーズ表です。
// シーン記述は英語混じりの自由文なので、部分一致で拾える語を厳選しています。
var angleKeywords = map[domain.CameraAngle][]string{
	domain.AngleFrontal: {
		"frontal", "front view", "facing the camera", "facing forward",
		"head-on", "looking at the viewer", "straight on",
	},
	domain.AngleThreeQuarterLeft: {
		"three-quarter left", "three quarter left", "3/4 left",
		"slightly turned left", "angled to the left",
	},
	domain.AngleThreeQuarterRight: {
		"three-quarter right", "three quarter right", "3/4 right",
		"slightly turned right", "angled to the right",
	},
	domain.AngleProfileLeft: {
		"profile", "from the side", "side view", "left profile",
		"facing left", "in profile",
	},
	domain.AngleProfileRight: {
		"right profile", "facing right", "side view from the right",
	},
	domain.AngleBack: {
		"from behind", "back view", "seen from the back", "rear view",
		"looking away", "back turned",
	},
	domain.AngleOverhead: {
		"overhead", "bird's eye", "from above", "top-down", "aerial view",
		"looking down on",
	},
	domain.AngleLowAngle: {
		"low angle", "from below", "worm's eye", "looking up at",
		"upward shot",
	},
}

// anglePriority は一致数が同点だった場合の決定的なタイブレーク順です。
// 統計的に安全な順（正面寄りを優先）に並べています。
var anglePriority = []domain.CameraAngle{
	domain.AngleFrontal,
	domain.AngleThreeQuarterLeft,
	domain.AngleThreeQuarterRight,
	domain.AngleProfileLeft,
	domain.AngleProfileRight,
	domain.AngleBack,
	domain.AngleOverhead,
	domain.AngleLowAngle,
}

// Classify はシーン記述のテキストからカメラアングルを決定論的に判定します。
// 最多一致のアングルを採用し、同点は anglePriority 順で解決します。
// 一致ゼロの場合は低信頼度の frontal を返します。
func Classify(sceneDescription string) Classification {
	text := strings.ToLower(sceneDescription)

	bestAngle := domain.AngleFrontal
	bestCount := 0
	var bestMatched []string

	for _, candidate := range anglePriority {
		var matched []string
		for _, kw := range angleKeywords[candidate] {
			if strings.Contains(text, kw) {
				matched = append(matched, kw)
			}
		}
		if len(matched) > bestCount {
			bestAngle = candidate
			bestCount = len(matched)
			bestMatched = matched
		}
	}

	if bestCount == 0 {
		return Classification{
			Angle:      domain.AngleFrontal,
			Confidence: NoMatchConfidence,
		}
	}

	confidence := BaseMatchConfidence + ConfidenceStep*float64(bestCount-1)
	if confidence > MaxConfidence {
		confidence = MaxConfidence
	}

	return Classification{
		Angle:           bestAngle,
		Confidence:      confidence,
		MatchedKeywords: bestMatched,
	}
}
