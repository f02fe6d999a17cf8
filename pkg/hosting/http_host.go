package hosting

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"time"

	"github.com/patrickmn/go-cache"
	"github.com/shouni/go-http-kit/pkg/httpkit"

	"github.com/shouni/go-comic-kit/pkg/provider"
)

const (
	uploadEndpoint = "/v1/images"
	// cacheKeyHostedURL はアップロード済みURLキャッシュのキープレフィックスです。
	cacheKeyHostedURL = "hosted_url:"
)

// uploadResponse はホスティングサービスのレスポンス形式です。
type uploadResponse struct {
	URLs []string `json:"urls"`
}

// HTTPHost はホスティングサービスの multipart アップロードAPIを叩く実装です。
// 同一コンテンツの再アップロードを避けるため、内容ハッシュをキーにURLをキャッシュします。
type HTTPHost struct {
	baseURL    string
	apiKey     string
	httpClient httpkit.ClientInterface
	urlCache   *cache.Cache
	cacheTTL   time.Duration
}

// NewHTTPHost は依存関係を注入して HTTPHost を初期化します。
func NewHTTPHost(baseURL, apiKey string, httpClient httpkit.ClientInterface, urlCache *cache.Cache, cacheTTL time.Duration) (*HTTPHost, error) {
	if baseURL == "" {
		return nil, fmt.Errorf("baseURL is required")
	}
	if httpClient == nil {
		return nil, fmt.Errorf("httpClient is required")
	}
	// urlCache は nil を許容（キャッシュなし動作）

	return &HTTPHost{
		baseURL:    baseURL,
		apiKey:     apiKey,
		httpClient: httpClient,
		urlCache:   urlCache,
		cacheTTL:   cacheTTL,
	}, nil
}

// UploadBatch は画像群を1リクエストでアップロードし、順序を保ったURL群を返します。
// 全画像がキャッシュ済みの場合、ネットワークには一切出ません。
func (h *HTTPHost) UploadBatch(ctx context.Context, uploads []Upload) ([]string, error) {
	if len(uploads) == 0 {
		return nil, nil
	}

	urls := make([]string, len(uploads))
	var pending []int

	for i, up := range uploads {
		if cached, ok := h.cachedURL(up.Data); ok {
			urls[i] = cached
			continue
		}
		pending = append(pending, i)
	}

	if len(pending) == 0 {
		slog.DebugContext(ctx, "全参照画像がアップロード済みでした", "count", len(uploads))
		return urls, nil
	}

	uploaded, err := h.doUpload(ctx, uploads, pending)
	if err != nil {
		return nil, err
	}

	for n, idx := range pending {
		urls[idx] = uploaded[n]
		h.storeURL(uploads[idx].Data, uploaded[n])
	}

	return urls, nil
}

// doUpload は未キャッシュ分だけを multipart で送信します。
func (h *HTTPHost) doUpload(ctx context.Context, uploads []Upload, indices []int) ([]string, error) {
	body := new(bytes.Buffer)
	mw := multipart.NewWriter(body)

	for _, idx := range indices {
		up := uploads[idx]
		header := make(textproto.MIMEHeader)
		header.Set("Content-Disposition", fmt.Sprintf(`form-data; name="images"; filename=%q`, up.Name))
		header.Set("Content-Type", up.MimeType)

		part, err := mw.CreatePart(header)
		if err != nil {
			return nil, fmt.Errorf("multipartパートの作成に失敗しました (%s): %w", up.Name, err)
		}
		if _, err := part.Write(up.Data); err != nil {
			return nil, fmt.Errorf("multipartパートの書き込みに失敗しました (%s): %w", up.Name, err)
		}
	}
	if err := mw.Close(); err != nil {
		return nil, fmt.Errorf("multipartの終端に失敗しました: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, h.baseURL+uploadEndpoint, body)
	if err != nil {
		return nil, fmt.Errorf("アップロードリクエストの作成に失敗しました: %w", err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	if h.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+h.apiKey)
	}

	slog.InfoContext(ctx, "参照画像をアップロードしています", "count", len(indices))

	respBody, err := h.httpClient.DoRequest(req)
	if err != nil {
		return nil, &provider.TransportError{Op: "upload images", Err: err}
	}

	var parsed uploadResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return nil, fmt.Errorf("アップロードレスポンスのパースに失敗しました: %w", err)
	}
	if len(parsed.URLs) != len(indices) {
		return nil, fmt.Errorf("アップロード結果の件数(%d)が入力(%d)と一致しません", len(parsed.URLs), len(indices))
	}

	return parsed.URLs, nil
}

func (h *HTTPHost) cachedURL(data []byte) (string, bool) {
	if h.urlCache == nil {
		return "", false
	}
	if val, ok := h.urlCache.Get(cacheKeyHostedURL + contentKey(data)); ok {
		if url, ok := val.(string); ok {
			return url, true
		}
	}
	return "", false
}

func (h *HTTPHost) storeURL(data []byte, url string) {
	if h.urlCache == nil {
		return
	}
	h.urlCache.Set(cacheKeyHostedURL+contentKey(data), url, h.cacheTTL)
}

// contentKey は画像内容から安定したキャッシュキーを導出します。
func contentKey(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}
