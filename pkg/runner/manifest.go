package runner

import "github.com/shouni/go-comic-kit/pkg/domain"

// Manifest はバッチ1回分の成果物一覧です。panels.json として保存され、
// revise コマンドが修正対象のバッチを引き当てるために読み込みます。
type Manifest struct {
	BatchID string        `json:"batch_id"`
	Scenes  domain.Scenes `json:"scenes"`
	Panels  domain.Panels `json:"panels"`
}
