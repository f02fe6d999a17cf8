package hosting

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"testing"
	"time"

	"github.com/patrickmn/go-cache"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shouni/go-comic-kit/pkg/provider"
)

// mockHTTPClient は httpkit.ClientInterface を実装するのだ。
type mockHTTPClient struct {
	doFunc    func(req *http.Request) ([]byte, error)
	callCount int
}

func (m *mockHTTPClient) DoRequest(req *http.Request) ([]byte, error) {
	m.callCount++
	return m.doFunc(req)
}

// インターフェースを満たすための空実装群なのだ
func (m *mockHTTPClient) FetchBytes(ctx context.Context, url string) ([]byte, error) {
	return nil, nil
}

func (m *mockHTTPClient) FetchAndDecodeJSON(ctx context.Context, url string, v any) error {
	return nil
}

func (m *mockHTTPClient) PostJSONAndFetchBytes(ctx context.Context, url string, data any) ([]byte, error) {
	return nil, nil
}

func (m *mockHTTPClient) PostRawBodyAndFetchBytes(ctx context.Context, url string, body []byte, contentType string) ([]byte, error) {
	return nil, nil
}

func respondURLs(urls ...string) []byte {
	b, _ := json.Marshal(uploadResponse{URLs: urls})
	return b
}

func TestHTTPHost_UploadBatch(t *testing.T) {
	ctx := context.Background()

	t.Run("Success/ShouldPreserveOrder", func(t *testing.T) {
		client := &mockHTTPClient{
			doFunc: func(req *http.Request) ([]byte, error) {
				assert.Equal(t, "Bearer host-key", req.Header.Get("Authorization"))
				// multipart のパート数を数える
				mr, err := req.MultipartReader()
				require.NoError(t, err)
				parts := 0
				for {
					if _, err := mr.NextPart(); err == io.EOF {
						break
					} else if err != nil {
						t.Fatalf("multipart read failed: %v", err)
					}
					parts++
				}
				assert.Equal(t, 2, parts)
				return respondURLs("https://cdn.example.com/a.png", "https://cdn.example.com/b.png"), nil
			},
		}

		host, err := NewHTTPHost("https://host.example.com", "host-key", client, nil, 0)
		require.NoError(t, err)

		urls, err := host.UploadBatch(ctx, []Upload{
			{Name: "a.png", Data: []byte("image-a"), MimeType: "image/png"},
			{Name: "b.png", Data: []byte("image-b"), MimeType: "image/png"},
		})
		require.NoError(t, err)
		assert.Equal(t, []string{"https://cdn.example.com/a.png", "https://cdn.example.com/b.png"}, urls)
	})

	t.Run("Success/ShouldSkipUploadWhenAllCached", func(t *testing.T) {
		client := &mockHTTPClient{
			doFunc: func(req *http.Request) ([]byte, error) {
				return respondURLs("https://cdn.example.com/a.png"), nil
			},
		}
		urlCache := cache.New(time.Hour, time.Hour)
		host, err := NewHTTPHost("https://host.example.com", "", client, urlCache, time.Hour)
		require.NoError(t, err)

		uploads := []Upload{{Name: "a.png", Data: []byte("image-a"), MimeType: "image/png"}}

		first, err := host.UploadBatch(ctx, uploads)
		require.NoError(t, err)
		second, err := host.UploadBatch(ctx, uploads)
		require.NoError(t, err)

		assert.Equal(t, first, second)
		assert.Equal(t, 1, client.callCount, "2回目は内容ハッシュキャッシュで済むべきなのだ")
	})

	t.Run("Failure/ShouldWrapNetworkErrorAsTransportError", func(t *testing.T) {
		client := &mockHTTPClient{
			doFunc: func(req *http.Request) ([]byte, error) {
				return nil, errors.New("connection reset")
			},
		}
		host, err := NewHTTPHost("https://host.example.com", "", client, nil, 0)
		require.NoError(t, err)

		_, err = host.UploadBatch(ctx, []Upload{{Name: "a.png", Data: []byte("x"), MimeType: "image/png"}})
		var transport *provider.TransportError
		require.ErrorAs(t, err, &transport)
	})

	t.Run("Failure/ShouldRejectCountMismatch", func(t *testing.T) {
		client := &mockHTTPClient{
			doFunc: func(req *http.Request) ([]byte, error) {
				return respondURLs("https://cdn.example.com/only-one.png"), nil
			},
		}
		host, err := NewHTTPHost("https://host.example.com", "", client, nil, 0)
		require.NoError(t, err)

		_, err = host.UploadBatch(ctx, []Upload{
			{Name: "a.png", Data: []byte("a"), MimeType: "image/png"},
			{Name: "b.png", Data: []byte("b"), MimeType: "image/png"},
		})
		require.Error(t, err)
	})

	t.Run("Success/EmptyInputReturnsNil", func(t *testing.T) {
		host, err := NewHTTPHost("https://host.example.com", "", &mockHTTPClient{}, nil, 0)
		require.NoError(t, err)

		urls, err := host.UploadBatch(ctx, nil)
		require.NoError(t, err)
		assert.Nil(t, urls)
	})
}
