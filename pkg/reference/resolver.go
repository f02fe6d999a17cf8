package reference

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"path"
	"strings"
	"sync"
	"time"

	"github.com/patrickmn/go-cache"
	"github.com/shouni/gemini-image-kit/pkg/imgutil"
	"github.com/shouni/go-remote-io/pkg/remoteio"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/shouni/go-comic-kit/pkg/domain"
	"github.com/shouni/go-comic-kit/pkg/hosting"
	"github.com/shouni/go-comic-kit/pkg/provider"
)

const (
	// cacheKeyReferenceSet は構築済み ReferenceSet キャッシュのキープレフィックスです。
	cacheKeyReferenceSet = "reference_set:"

	// compressionThreshold を超えるローカル画像はアップロード前にJPEGへ再圧縮します。
	compressionThreshold = 2 << 20 // 2MiB
	// compressionQuality は再圧縮時のJPEG品質です。
	compressionQuality = 85
)

// Resolver はキャラクターごとの参照画像を解決し、ホスティング済みURLの集合を構築します。
// 同一キャラクターの解決はバッチ内で正確に1回だけ実行されます。参照画像の
// アップロードはパイプライン中で最も高コストなステップであり、1キャラクターが
// 多数のコマに登場する自然なアクセスパターンでは、素朴に解決するとコマ数分の
// アップロードが走ってしまうためです。
type Resolver struct {
	reader   remoteio.InputReader
	host     hosting.ImageHost
	setCache *cache.Cache
	cacheTTL time.Duration
	group    singleflight.Group
}

// NewResolver は依存関係を注入して Resolver を初期化します。
func NewResolver(reader remoteio.InputReader, host hosting.ImageHost, setCache *cache.Cache, cacheTTL time.Duration) (*Resolver, error) {
	if reader == nil {
		return nil, fmt.Errorf("reader is required")
	}
	if host == nil {
		return nil, fmt.Errorf("host is required")
	}
	if setCache == nil {
		return nil, fmt.Errorf("setCache is required")
	}

	return &Resolver{
		reader:   reader,
		host:     host,
		setCache: setCache,
		cacheTTL: cacheTTL,
	}, nil
}

// Resolve はプロファイル群の参照画像集合を構築して返します。
// 異なるキャラクターは並行して解決されます。1キャラクターの解決失敗は
// 警告ログと空の ReferenceSet に縮退し、バッチ全体を止めることはありません。
// 参照なしのイラストでも、物語全体を止めるよりはましだからです。
func (r *Resolver) Resolve(ctx context.Context, profiles []domain.CharacterProfile) map[string]*domain.ReferenceSet {
	results := make(map[string]*domain.ReferenceSet, len(profiles))
	var mu sync.Mutex

	eg, egCtx := errgroup.WithContext(ctx)
	for _, p := range profiles {
		profile := p
		eg.Go(func() error {
			set := r.resolveOne(egCtx, profile)
			mu.Lock()
			results[profile.ID] = set
			mu.Unlock()
			return nil
		})
	}

	// 解決失敗は resolveOne 内で吸収済みのため、ここでエラーは発生しない
	_ = eg.Wait()
	return results
}

// resolveOne は1キャラクター分の ReferenceSet を取得または構築します。
// キャッシュ命中時は参照的に同一のインスタンスを返します。
func (r *Resolver) resolveOne(ctx context.Context, profile domain.CharacterProfile) *domain.ReferenceSet {
	cacheKey := cacheKeyReferenceSet + profile.ID
	if val, ok := r.setCache.Get(cacheKey); ok {
		if set, ok := val.(*domain.ReferenceSet); ok {
			return set
		}
	}

	val, err, _ := r.group.Do(profile.ID, func() (interface{}, error) {
		// singleflight で待機中に他のゴルーチンが構築を完了させている可能性があるため、
		// コールバック内で再度キャッシュを確認
		if cached, ok := r.setCache.Get(cacheKey); ok {
			if set, ok := cached.(*domain.ReferenceSet); ok {
				return set, nil
			}
		}

		set, buildErr := r.buildSet(ctx, profile)
		if buildErr != nil {
			return nil, buildErr
		}

		r.setCache.Set(cacheKey, set, r.cacheTTL)
		return set, nil
	})

	if err != nil {
		resErr := &provider.ReferenceResolutionError{CharacterID: profile.ID, Err: err}
		slog.WarnContext(ctx, "参照画像の解決に失敗したため、参照なしで続行します",
			"character_id", profile.ID, "error", resErr)
		return &domain.ReferenceSet{
			CharacterID: profile.ID,
			URLsByAngle: map[domain.CameraAngle][]string{},
		}
	}

	set, ok := val.(*domain.ReferenceSet)
	if !ok {
		slog.WarnContext(ctx, "singleflight から予期しない型が返りました", "type", fmt.Sprintf("%T", val))
		return &domain.ReferenceSet{
			CharacterID: profile.ID,
			URLsByAngle: map[domain.CameraAngle][]string{},
		}
	}
	return set
}

// buildSet は参照画像を読み込み・アップロードし、不変の ReferenceSet を組み立てます。
// 既にホスティング済みのURLはそのまま採用し、ローカル画像だけをアップロードします。
func (r *Resolver) buildSet(ctx context.Context, profile domain.CharacterProfile) (*domain.ReferenceSet, error) {
	paths := profile.ReferenceImagePaths
	urls := make([]string, len(paths))

	var uploads []hosting.Upload
	var uploadIdx []int

	for i, imagePath := range paths {
		if isHostedURL(imagePath) {
			urls[i] = imagePath
			continue
		}

		data, err := r.readImage(ctx, imagePath)
		if err != nil {
			return nil, fmt.Errorf("参照画像の読み込みに失敗しました (%s): %w", imagePath, err)
		}

		uploads = append(uploads, hosting.Upload{
			Name:     path.Base(imagePath),
			Data:     data,
			MimeType: http.DetectContentType(data),
		})
		uploadIdx = append(uploadIdx, i)
	}

	if len(uploads) > 0 {
		slog.InfoContext(ctx, "参照画像をホスティングへ転送します",
			"character_id", profile.ID, "count", len(uploads))

		hosted, err := r.host.UploadBatch(ctx, uploads)
		if err != nil {
			return nil, err
		}
		for n, idx := range uploadIdx {
			urls[idx] = hosted[n]
		}
	}

	byAngle := make(map[domain.CameraAngle][]string)
	for i, imagePath := range paths {
		a := AngleFromFilename(imagePath)
		byAngle[a] = append(byAngle[a], urls[i])
	}

	return &domain.ReferenceSet{
		CharacterID: profile.ID,
		URLsByAngle: byAngle,
		AllURLs:     urls,
	}, nil
}

// readImage はローカル/リモートの画像を読み込み、必要なら転送用に再圧縮します。
func (r *Resolver) readImage(ctx context.Context, imagePath string) ([]byte, error) {
	rc, err := r.reader.Open(ctx, imagePath)
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, err
	}

	if len(data) > compressionThreshold {
		if compressed, err := imgutil.CompressToJPEG(data, compressionQuality); err == nil {
			data = compressed
		}
	}

	return data, nil
}

func isHostedURL(p string) bool {
	return strings.HasPrefix(p, "http://") || strings.HasPrefix(p, "https://")
}
