package prompts

const (
	// NegativePanelPrompt は、パネル用のネガティブプロンプトです。
	NegativePanelPrompt = "speech bubble, dialogue balloon, text, alphabet, letters, words, signatures, watermark, username, low quality, distorted, bad anatomy"

	// RenderingStyle は全パネル共通の描画スタイル指示です。
	RenderingStyle = "clean line art, flat shading, clear character features, high resolution"

	// CinematicTags は構図・ライティングの共通タグです。
	CinematicTags = "cinematic lighting, dynamic composition, expressive"

	// RerollFidelityClause はリロール時にプロンプト末尾へ付加する強化句です。
	// 直前の出力ではなく参照画像への構造的忠実度を最優先させます。
	RerollFidelityClause = "STRICT IDENTITY: reproduce the facial structure, hair and outfit of the reference images exactly. Prioritize likeness to the references over stylistic variation."

	// feedbackEditInstruction はフィードバック編集時の編集指示ヘッダーです。
	feedbackEditInstruction = "### EDIT REQUEST ###\nThe first reference image is the current panel. Apply the following change while keeping everything else, and use the remaining reference images to keep the character identity anchored."
)
