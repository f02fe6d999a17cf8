package revision

import "regexp"

// textChangeRe は「change text from 'X' to 'Y'」形式の明示的なテキスト変更指示を
// 抽出します。直線引用符と曲がり引用符の両方を受け付けます。
var textChangeRe = regexp.MustCompile(`(?i)change\s+(?:the\s+)?text\s+from\s+['‘“"]([^'’”"]*)['’”"]\s+to\s+['‘“"]([^'’”"]*)['’”"]`)

// ExtractTextChange はフィードバック文からテキスト変更指示を探します。
// 見つかった場合は (変更前, 変更後, true) を返します。
func ExtractTextChange(feedback string) (from, to string, ok bool) {
	m := textChangeRe.FindStringSubmatch(feedback)
	if m == nil {
		return "", "", false
	}
	return m[1], m[2], true
}
