package angle

import "github.com/shouni/go-comic-kit/pkg/domain"

// similarAngles は各アングルから見て視覚的に近いアングルの順序付きリストです。
// 検出アングルの参照画像が無い場合、この順にバケットを試します。
var similarAngles = map[domain.CameraAngle][]domain.CameraAngle{
	domain.AngleFrontal:           {domain.AngleThreeQuarterLeft, domain.AngleThreeQuarterRight},
	domain.AngleThreeQuarterLeft:  {domain.AngleFrontal, domain.AngleProfileLeft},
	domain.AngleThreeQuarterRight: {domain.AngleFrontal, domain.AngleProfileRight},
	domain.AngleProfileLeft:       {domain.AngleThreeQuarterLeft, domain.AngleProfileRight},
	domain.AngleProfileRight:      {domain.AngleThreeQuarterRight, domain.AngleProfileLeft},
	domain.AngleBack:              {domain.AngleProfileLeft, domain.AngleProfileRight},
	domain.AngleOverhead:          {domain.AngleFrontal, domain.AngleThreeQuarterLeft},
	domain.AngleLowAngle:          {domain.AngleFrontal, domain.AngleThreeQuarterLeft},
}

// GetSimilarAngles は指定アングルに視覚的に近いアングルを近い順に返します。
func GetSimilarAngles(a domain.CameraAngle) []domain.CameraAngle {
	similar, ok := similarAngles[a]
	if !ok {
		return nil
	}
	out := make([]domain.CameraAngle, len(similar))
	copy(out, similar)
	return out
}

// SelectReferencesForAngle はアングル優先のフォールバック連鎖で参照画像URLを選択します。
// 優先順: 検出アングル → 類似アングル（近い順） → frontal → フラットな全リスト。
// いずれかのバケットが非空である限り、空の結果を返すことはありません。
// max が正の場合、返すURL数をその数に制限します。
func SelectReferencesForAngle(set *domain.ReferenceSet, a domain.CameraAngle, max int) []string {
	if set.IsEmpty() {
		return nil
	}

	chain := append([]domain.CameraAngle{a}, GetSimilarAngles(a)...)
	chain = append(chain, domain.AngleFrontal)

	for _, candidate := range chain {
		if urls := set.URLsForAngle(candidate); len(urls) > 0 {
			return capURLs(urls, max)
		}
	}

	// アングル別バケットが全滅でも、フラットリストが最後の受け皿になる
	return capURLs(set.AllURLs, max)
}

func capURLs(urls []string, max int) []string {
	if max > 0 && len(urls) > max {
		urls = urls[:max]
	}
	out := make([]string, len(urls))
	copy(out, urls)
	return out
}
