package provider

import (
	"context"
	"time"
)

// Client は外部生成プロバイダの非同期ジョブ契約を抽象化します。
// 実装はバックエンドごとに1つで、リクエスト単位で切り替えます（フェイルオーバーなし）。
type Client interface {
	// Submit はジョブを作成してIDを返します。通信失敗は TransportError、
	// プロバイダの同期バリデーション拒否は ProviderRejectedError になります。
	Submit(ctx context.Context, req GenerationRequest) (string, error)

	// PollUntilDone はジョブが終端状態になるまで固定間隔でポーリングし、
	// 結果画像のURLを返します。timeout 超過は JobTimeoutError、
	// プロバイダ報告の失敗は JobFailedError です。
	PollUntilDone(ctx context.Context, jobID string, timeout time.Duration) (string, error)

	// FetchEncoded は結果画像を取得して埋め込み可能な形へ変換します。
	// 生成本体とは独立した、単体で再試行できるステップです。
	FetchEncoded(ctx context.Context, imageURL string) (*EncodedImage, error)
}
