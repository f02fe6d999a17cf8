package hosting

import (
	"context"
)

// Upload はホスティングサービスへ送る1枚分の画像です。
type Upload struct {
	Name     string // 表示名（元ファイル名）
	Data     []byte
	MimeType string
}

// ImageHost はローカル保持の画像群を外部到達可能なURLへ変換するインターフェースです。
// 戻り値のURLスライスは入力と同数・同順であることが契約です。
type ImageHost interface {
	UploadBatch(ctx context.Context, uploads []Upload) ([]string, error)
}
