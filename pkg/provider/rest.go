package provider

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/patrickmn/go-cache"
	"github.com/shouni/go-http-kit/pkg/httpkit"
)

const (
	jobsEndpoint = "/v1/jobs"

	// DefaultPollInterval はジョブ状態の確認間隔です。
	// プロバイダのレートリミットを尊重するため、秒単位にしています。
	DefaultPollInterval = 3 * time.Second

	cacheKeyResultImage = "result_image:"
)

// submitResponse はジョブ作成APIのレスポンスです。
type submitResponse struct {
	JobID string `json:"job_id"`
}

// errorResponse はプロバイダの同期エラーレスポンスです。
type errorResponse struct {
	Message string `json:"message"`
}

// RESTClient は非同期ジョブAPIを持つ生成プロバイダのクライアント実装です。
// 明示的に構築して受け渡す設計であり、プロセス全体で共有される隠れた
// シングルトンは持ちません。
// ジョブ作成だけは 4xx/5xx を区別する必要があるため素の http.Client を使い、
// 状態取得と画像取得は httpkit に委ねます。
type RESTClient struct {
	baseURL      string
	apiKey       string
	httpClient   *http.Client
	fetcher      httpkit.ClientInterface
	pollInterval time.Duration
	imageCache   *cache.Cache
	cacheTTL     time.Duration
}

// NewRESTClient は依存関係を注入して RESTClient を初期化します。
func NewRESTClient(baseURL, apiKey string, timeout time.Duration, fetcher httpkit.ClientInterface, imageCache *cache.Cache, cacheTTL time.Duration) (*RESTClient, error) {
	if baseURL == "" {
		return nil, fmt.Errorf("baseURL is required")
	}
	if fetcher == nil {
		return nil, fmt.Errorf("fetcher is required")
	}
	// imageCache は nil を許容（キャッシュなし動作）

	return &RESTClient{
		baseURL:      baseURL,
		apiKey:       apiKey,
		httpClient:   &http.Client{Timeout: timeout},
		fetcher:      fetcher,
		pollInterval: DefaultPollInterval,
		imageCache:   imageCache,
		cacheTTL:     cacheTTL,
	}, nil
}

// WithPollInterval はポーリング間隔を差し替えます（主にテスト用）。
func (c *RESTClient) WithPollInterval(d time.Duration) *RESTClient {
	c.pollInterval = d
	return c
}

// Submit はジョブ作成リクエストを送信し、ジョブIDを返します。
func (c *RESTClient) Submit(ctx context.Context, req GenerationRequest) (string, error) {
	payload, err := json.Marshal(req)
	if err != nil {
		return "", fmt.Errorf("ジョブリクエストのエンコードに失敗しました: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+jobsEndpoint, bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("ジョブリクエストの作成に失敗しました: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	c.authorize(httpReq)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return "", &TransportError{Op: "submit job", Err: err}
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		// fallthrough to decode
	case resp.StatusCode >= 400 && resp.StatusCode < 500:
		return "", &ProviderRejectedError{StatusCode: resp.StatusCode, Message: readErrorMessage(resp.Body)}
	default:
		return "", &TransportError{Op: "submit job", Err: fmt.Errorf("unexpected status %d", resp.StatusCode)}
	}

	var parsed submitResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", fmt.Errorf("ジョブ作成レスポンスのパースに失敗しました: %w", err)
	}
	if parsed.JobID == "" {
		return "", fmt.Errorf("ジョブ作成レスポンスに job_id がありません")
	}

	slog.InfoContext(ctx, "生成ジョブを登録しました", "job_id", parsed.JobID, "model", req.Model)
	return parsed.JobID, nil
}

// PollUntilDone はジョブの状態機械を終端まで追跡します。
// 未知の状態は pending として扱い、ジョブを黙って取りこぼすことはありません。
func (c *RESTClient) PollUntilDone(ctx context.Context, jobID string, timeout time.Duration) (string, error) {
	deadline := time.Now().Add(timeout)
	ticker := time.NewTicker(c.pollInterval)
	defer ticker.Stop()

	for {
		job, err := c.pollOnce(ctx, jobID)
		if err != nil {
			return "", err
		}

		switch job.State {
		case JobStateCompleted:
			if job.ResultImageURL == "" {
				return "", &JobFailedError{JobID: jobID, Message: "completed ジョブに結果URLがありません"}
			}
			return job.ResultImageURL, nil
		case JobStateFailed:
			// プロバイダのメッセージは原文のまま保持する
			return "", &JobFailedError{JobID: jobID, Message: job.ErrorMessage}
		case JobStatePending, JobStateProcessing:
			// 継続
		default:
			slog.DebugContext(ctx, "未知のジョブ状態をpendingとして扱います", "job_id", jobID, "state", job.State)
		}

		if time.Now().After(deadline) {
			return "", &JobTimeoutError{JobID: jobID, Timeout: timeout}
		}

		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-ticker.C:
		}
	}
}

// pollOnce はジョブ状態を1回だけ取得します。
func (c *RESTClient) pollOnce(ctx context.Context, jobID string) (*GenerationJob, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, fmt.Sprintf("%s%s/%s", c.baseURL, jobsEndpoint, jobID), nil)
	if err != nil {
		return nil, fmt.Errorf("ジョブ状態リクエストの作成に失敗しました: %w", err)
	}
	c.authorize(httpReq)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, &TransportError{Op: "poll job", Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &TransportError{Op: "poll job", Err: fmt.Errorf("unexpected status %d", resp.StatusCode)}
	}

	var job GenerationJob
	if err := json.NewDecoder(resp.Body).Decode(&job); err != nil {
		return nil, fmt.Errorf("ジョブ状態レスポンスのパースに失敗しました: %w", err)
	}
	return &job, nil
}

// FetchEncoded は結果画像をダウンロードし、Base64エンコードして返します。
// 取得済み画像はTTLキャッシュされるため、このステップ単体での再試行は安価です。
func (c *RESTClient) FetchEncoded(ctx context.Context, imageURL string) (*EncodedImage, error) {
	if c.imageCache != nil {
		if val, ok := c.imageCache.Get(cacheKeyResultImage + imageURL); ok {
			if img, ok := val.(*EncodedImage); ok {
				return img, nil
			}
		}
	}

	data, err := c.fetcher.FetchBytes(ctx, imageURL)
	if err != nil {
		return nil, &TransportError{Op: "fetch result image", Err: err}
	}

	img := &EncodedImage{
		Data:     base64.StdEncoding.EncodeToString(data),
		MimeType: http.DetectContentType(data),
	}

	if c.imageCache != nil {
		c.imageCache.Set(cacheKeyResultImage+imageURL, img, c.cacheTTL)
	}
	return img, nil
}

func (c *RESTClient) authorize(req *http.Request) {
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}
}

func readErrorMessage(r io.Reader) string {
	body, _ := io.ReadAll(io.LimitReader(r, 4096))
	var parsed errorResponse
	if err := json.Unmarshal(body, &parsed); err == nil && parsed.Message != "" {
		return parsed.Message
	}
	return string(body)
}
