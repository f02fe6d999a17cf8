package provider

import (
	"fmt"
	"time"
)

// TransportError はネットワーク/HTTPレベルの失敗です。
// シーン単位で呼び出し元が再試行できます。
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("通信エラー (%s): %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// ProviderRejectedError はプロバイダの同期バリデーションによる拒否です。
// プロンプトや入力を変えない限り再試行しても無意味です。
type ProviderRejectedError struct {
	StatusCode int
	Message    string
}

func (e *ProviderRejectedError) Error() string {
	return fmt.Sprintf("プロバイダがリクエストを拒否しました (status %d): %s", e.StatusCode, e.Message)
}

// JobTimeoutError はジョブが制限時間内に終端状態へ到達しなかったことを示します。
// 中途半端な結果を返すより、明示的に失敗させます。ローカルの待機を打ち切るだけで
// リモートのジョブ自体はキャンセルされません。
type JobTimeoutError struct {
	JobID   string
	Timeout time.Duration
}

func (e *JobTimeoutError) Error() string {
	return fmt.Sprintf("ジョブ %s が %s 以内に完了しませんでした", e.JobID, e.Timeout)
}

// JobFailedError はプロバイダが明示的に失敗を報告したことを示します。
// プロバイダのエラーメッセージは加工せずそのまま保持します。
type JobFailedError struct {
	JobID   string
	Message string
}

func (e *JobFailedError) Error() string {
	return fmt.Sprintf("ジョブ %s が失敗しました: %s", e.JobID, e.Message)
}

// ReferenceResolutionError はキャラクターの参照画像を準備できなかったことを示します。
// バッチを中断せず「参照なし」へ縮退するために使われます。
type ReferenceResolutionError struct {
	CharacterID string
	Err         error
}

func (e *ReferenceResolutionError) Error() string {
	return fmt.Sprintf("キャラクター %s の参照画像を解決できませんでした: %v", e.CharacterID, e.Err)
}

func (e *ReferenceResolutionError) Unwrap() error { return e.Err }
