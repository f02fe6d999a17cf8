package provider

// JobState は生成ジョブの状態です。pending → processing → completed|failed と遷移します。
type JobState string

const (
	JobStatePending    JobState = "pending"
	JobStateProcessing JobState = "processing"
	JobStateCompleted  JobState = "completed"
	JobStateFailed     JobState = "failed"
)

// Terminal はこれ以上遷移しない状態かどうかを返します。
func (s JobState) Terminal() bool {
	return s == JobStateCompleted || s == JobStateFailed
}

// GenerationJob はプロバイダ上の非同期ジョブのスナップショットです。
// Generation Client が終端状態まで所有し、その後は結果だけが残ります。
type GenerationJob struct {
	JobID          string   `json:"job_id"`
	State          JobState `json:"state"`
	ResultImageURL string   `json:"result_image_url,omitempty"`
	ErrorMessage   string   `json:"error_message,omitempty"`
}

// ImageSource は生成リクエストに添付する参照画像です。
// URL か インラインデータのどちらか一方を指定します。
type ImageSource struct {
	URL      string `json:"url,omitempty"`
	Data     []byte `json:"data,omitempty"` // JSONでは自動的にBase64になる
	MimeType string `json:"mime_type,omitempty"`
}

// GenerationRequest はジョブ作成リクエストの本体です。
type GenerationRequest struct {
	Model           string        `json:"model"`
	Prompt          string        `json:"prompt"`
	NegativePrompt  string        `json:"negative_prompt,omitempty"`
	ReferenceImages []ImageSource `json:"reference_images,omitempty"`
	AspectRatio     string        `json:"aspect_ratio,omitempty"`
	Resolution      string        `json:"resolution,omitempty"`
	OutputFormat    string        `json:"output_format,omitempty"`
}

// EncodedImage はローカル埋め込み用にエンコードされた結果画像です。
type EncodedImage struct {
	Data     string // Base64エンコード済み
	MimeType string
}
