package provider

import (
	"context"
	"encoding/base64"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/patrickmn/go-cache"
	"github.com/shouni/go-gemini-client/pkg/gemini"
	"github.com/shouni/go-http-kit/pkg/httpkit"
	"google.golang.org/genai"
)

// memURLScheme は GeminiClient がプロセス内に保持する結果を指す擬似URLスキームです。
const memURLScheme = "mem://"

// GeminiClient は同期型の Gemini SDK をジョブ契約の背後に収めたバックエンドです。
// Submit 時点で生成が完了するため、ジョブは常に即座に終端状態になります。
type GeminiClient struct {
	aiClient   gemini.GenerativeModel
	fetcher    httpkit.ClientInterface
	imageCache *cache.Cache
	cacheTTL   time.Duration

	mu      sync.Mutex
	results map[string]*EncodedImage // jobID -> 生成結果
}

// NewGeminiClient は依存関係を注入して GeminiClient を初期化します。
func NewGeminiClient(aiClient gemini.GenerativeModel, fetcher httpkit.ClientInterface, imageCache *cache.Cache, cacheTTL time.Duration) (*GeminiClient, error) {
	if aiClient == nil {
		return nil, fmt.Errorf("aiClient is required")
	}
	if fetcher == nil {
		return nil, fmt.Errorf("fetcher is required")
	}

	return &GeminiClient{
		aiClient:   aiClient,
		fetcher:    fetcher,
		imageCache: imageCache,
		cacheTTL:   cacheTTL,
		results:    make(map[string]*EncodedImage),
	}, nil
}

// Submit は参照画像をパーツに変換し、同期生成を実行して擬似ジョブIDを返します。
func (c *GeminiClient) Submit(ctx context.Context, req GenerationRequest) (string, error) {
	parts := []*genai.Part{{Text: req.Prompt}}

	for i, src := range req.ReferenceImages {
		part := c.prepareImagePart(ctx, src)
		if part == nil {
			// 失敗しても生成自体は続行し、警告ログを残すのだ。
			slog.WarnContext(ctx, "参照画像の読み込みに失敗しました", "index", i, "url", src.URL)
			continue
		}
		parts = append(parts, part)
	}

	opts := gemini.GenerateOptions{
		AspectRatio: req.AspectRatio,
	}

	resp, err := c.aiClient.GenerateWithParts(ctx, req.Model, parts, opts)
	if err != nil {
		return "", &JobFailedError{JobID: "", Message: err.Error()}
	}

	img, err := parseGeminiResponse(resp)
	if err != nil {
		return "", &JobFailedError{JobID: "", Message: err.Error()}
	}

	jobID := uuid.NewString()
	c.mu.Lock()
	c.results[jobID] = img
	c.mu.Unlock()

	slog.InfoContext(ctx, "Gemini生成が完了しました", "job_id", jobID, "model", req.Model)
	return jobID, nil
}

// PollUntilDone は既に完了しているジョブの結果参照を返します。
func (c *GeminiClient) PollUntilDone(ctx context.Context, jobID string, timeout time.Duration) (string, error) {
	c.mu.Lock()
	_, ok := c.results[jobID]
	c.mu.Unlock()
	if !ok {
		return "", &JobFailedError{JobID: jobID, Message: "未知のジョブIDです"}
	}
	return memURLScheme + jobID, nil
}

// FetchEncoded は mem:// 参照をプロセス内ストアから解決します。
// 外部URLが渡された場合は通常どおりダウンロードしてエンコードします。
func (c *GeminiClient) FetchEncoded(ctx context.Context, imageURL string) (*EncodedImage, error) {
	if jobID, ok := strings.CutPrefix(imageURL, memURLScheme); ok {
		c.mu.Lock()
		img, found := c.results[jobID]
		delete(c.results, jobID) // 結果の所有権は呼び出し元へ移る
		c.mu.Unlock()
		if !found {
			return nil, fmt.Errorf("結果画像が見つかりません: %s", imageURL)
		}
		return img, nil
	}

	data, err := c.fetcher.FetchBytes(ctx, imageURL)
	if err != nil {
		return nil, &TransportError{Op: "fetch result image", Err: err}
	}
	return &EncodedImage{
		Data:     base64.StdEncoding.EncodeToString(data),
		MimeType: http.DetectContentType(data),
	}, nil
}

// prepareImagePart は ImageSource を genai.Part (InlineData) へ変換します。
// URL参照はTTLキャッシュ付きでダウンロードします。
func (c *GeminiClient) prepareImagePart(ctx context.Context, src ImageSource) *genai.Part {
	data := src.Data

	if len(data) == 0 && src.URL != "" {
		if c.imageCache != nil {
			if cached, found := c.imageCache.Get(src.URL); found {
				if b, ok := cached.([]byte); ok {
					data = b
				}
			}
		}
		if len(data) == 0 {
			fetched, err := c.fetcher.FetchBytes(ctx, src.URL)
			if err != nil {
				slog.WarnContext(ctx, "参照画像のダウンロードに失敗しました。テキストのみで続行します", "url", src.URL, "error", err)
				return nil
			}
			data = fetched
			if c.imageCache != nil {
				c.imageCache.Set(src.URL, data, c.cacheTTL)
			}
		}
	}

	if len(data) == 0 {
		return nil
	}

	mimeType := src.MimeType
	if mimeType == "" {
		mimeType = http.DetectContentType(data)
	}
	if !strings.HasPrefix(mimeType, "image/") {
		slog.Warn("MIMEタイプが画像ではないためPartに変換できませんでした", "detected_mime_type", mimeType)
		return nil
	}

	return &genai.Part{
		InlineData: &genai.Blob{
			MIMEType: mimeType,
			Data:     data,
		},
	}
}

// parseGeminiResponse は Gemini のレスポンスから画像バイナリを抽出します。
func parseGeminiResponse(resp *gemini.Response) (*EncodedImage, error) {
	if resp == nil || resp.RawResponse == nil || len(resp.RawResponse.Candidates) == 0 {
		return nil, fmt.Errorf("Geminiからの有効な応答がありませんでした")
	}

	candidate := resp.RawResponse.Candidates[0]
	if candidate.Content != nil {
		for _, part := range candidate.Content.Parts {
			if part.InlineData != nil && len(part.InlineData.Data) > 0 {
				return &EncodedImage{
					Data:     base64.StdEncoding.EncodeToString(part.InlineData.Data),
					MimeType: part.InlineData.MIMEType,
				}, nil
			}
		}
	}

	if candidate.FinishReason != genai.FinishReasonUnspecified && candidate.FinishReason != genai.FinishReasonStop {
		return nil, fmt.Errorf("画像生成が異常終了しました (FinishReason: %s)", candidate.FinishReason)
	}

	return nil, fmt.Errorf("画像データが見つかりませんでした")
}
