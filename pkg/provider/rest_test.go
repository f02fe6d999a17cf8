package provider

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mockFetcher は httpkit.ClientInterface のテスト用モックなのだ。
type mockFetcher struct {
	data []byte
	err  error
}

func (m *mockFetcher) FetchBytes(ctx context.Context, url string) ([]byte, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.data, nil
}

// インターフェースを満たすための空実装群なのだ
func (m *mockFetcher) DoRequest(req *http.Request) ([]byte, error) { return nil, nil }

func (m *mockFetcher) FetchAndDecodeJSON(ctx context.Context, url string, v any) error { return nil }

func (m *mockFetcher) PostJSONAndFetchBytes(ctx context.Context, url string, data any) ([]byte, error) {
	return nil, nil
}

func (m *mockFetcher) PostRawBodyAndFetchBytes(ctx context.Context, url string, body []byte, contentType string) ([]byte, error) {
	return nil, nil
}

func newTestClient(t *testing.T, serverURL string) *RESTClient {
	t.Helper()
	c, err := NewRESTClient(serverURL, "test-key", 5*time.Second, &mockFetcher{data: []byte("png-bytes")}, nil, 0)
	require.NoError(t, err)
	return c.WithPollInterval(5 * time.Millisecond)
}

func TestRESTClient_Submit(t *testing.T) {
	ctx := context.Background()

	t.Run("Success/ShouldReturnJobID", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, http.MethodPost, r.Method)
			assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))

			var req GenerationRequest
			require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
			assert.Equal(t, "a hero on a hill", req.Prompt)

			json.NewEncoder(w).Encode(submitResponse{JobID: "job-42"})
		}))
		defer srv.Close()

		jobID, err := newTestClient(t, srv.URL).Submit(ctx, GenerationRequest{Prompt: "a hero on a hill"})
		require.NoError(t, err)
		assert.Equal(t, "job-42", jobID)
	})

	t.Run("Failure/ShouldReturnProviderRejectedOn4xx", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusBadRequest)
			json.NewEncoder(w).Encode(errorResponse{Message: "prompt too long"})
		}))
		defer srv.Close()

		_, err := newTestClient(t, srv.URL).Submit(ctx, GenerationRequest{})
		var rejected *ProviderRejectedError
		require.ErrorAs(t, err, &rejected)
		assert.Equal(t, http.StatusBadRequest, rejected.StatusCode)
		assert.Equal(t, "prompt too long", rejected.Message)
	})

	t.Run("Failure/ShouldReturnTransportErrorOn5xx", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusBadGateway)
		}))
		defer srv.Close()

		_, err := newTestClient(t, srv.URL).Submit(ctx, GenerationRequest{})
		var transport *TransportError
		require.ErrorAs(t, err, &transport)
	})

	t.Run("Failure/ShouldReturnTransportErrorOnNetworkFailure", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
		srv.Close() // 接続拒否させる

		_, err := newTestClient(t, srv.URL).Submit(ctx, GenerationRequest{})
		var transport *TransportError
		require.ErrorAs(t, err, &transport)
	})
}

func TestRESTClient_PollUntilDone(t *testing.T) {
	ctx := context.Background()

	t.Run("Success/ShouldFollowStateMachineToCompleted", func(t *testing.T) {
		var calls atomic.Int32
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			n := calls.Add(1)
			job := GenerationJob{JobID: "job-1"}
			switch {
			case n == 1:
				job.State = JobStatePending
			case n == 2:
				job.State = JobStateProcessing
			default:
				job.State = JobStateCompleted
				job.ResultImageURL = "https://img.example.com/out.png"
			}
			json.NewEncoder(w).Encode(job)
		}))
		defer srv.Close()

		url, err := newTestClient(t, srv.URL).PollUntilDone(ctx, "job-1", 2*time.Second)
		require.NoError(t, err)
		assert.Equal(t, "https://img.example.com/out.png", url)
		assert.GreaterOrEqual(t, calls.Load(), int32(3))
	})

	t.Run("Failure/ShouldPreserveProviderMessageOnFailedState", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			json.NewEncoder(w).Encode(GenerationJob{
				JobID:        "job-2",
				State:        JobStateFailed,
				ErrorMessage: "safety filter triggered",
			})
		}))
		defer srv.Close()

		_, err := newTestClient(t, srv.URL).PollUntilDone(ctx, "job-2", 2*time.Second)
		var failed *JobFailedError
		require.ErrorAs(t, err, &failed)
		assert.Equal(t, "safety filter triggered", failed.Message)
	})

	t.Run("Failure/ShouldTimeoutWhenNeverTerminal", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			json.NewEncoder(w).Encode(GenerationJob{JobID: "job-3", State: JobStateProcessing})
		}))
		defer srv.Close()

		_, err := newTestClient(t, srv.URL).PollUntilDone(ctx, "job-3", 30*time.Millisecond)
		var timeout *JobTimeoutError
		require.ErrorAs(t, err, &timeout)
		assert.Equal(t, "job-3", timeout.JobID)
	})

	t.Run("Success/ShouldTreatUnknownStateAsPending", func(t *testing.T) {
		var calls atomic.Int32
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if calls.Add(1) == 1 {
				// 将来のプロバイダが返すかもしれない未知の状態
				fmt.Fprint(w, `{"job_id":"job-4","state":"queued_for_gpu"}`)
				return
			}
			json.NewEncoder(w).Encode(GenerationJob{
				JobID:          "job-4",
				State:          JobStateCompleted,
				ResultImageURL: "https://img.example.com/ok.png",
			})
		}))
		defer srv.Close()

		url, err := newTestClient(t, srv.URL).PollUntilDone(ctx, "job-4", 2*time.Second)
		require.NoError(t, err)
		assert.Equal(t, "https://img.example.com/ok.png", url)
	})
}

func TestRESTClient_FetchEncoded(t *testing.T) {
	ctx := context.Background()

	t.Run("Success/ShouldBase64EncodeFetchedBytes", func(t *testing.T) {
		c, err := NewRESTClient("http://unused.example.com", "", time.Second, &mockFetcher{data: []byte("raw-image")}, nil, 0)
		require.NoError(t, err)

		img, err := c.FetchEncoded(ctx, "https://img.example.com/out.png")
		require.NoError(t, err)
		assert.Equal(t, base64.StdEncoding.EncodeToString([]byte("raw-image")), img.Data)
	})

	t.Run("Failure/ShouldWrapFetchErrorAsTransportError", func(t *testing.T) {
		c, err := NewRESTClient("http://unused.example.com", "", time.Second, &mockFetcher{err: errors.New("dns failure")}, nil, 0)
		require.NoError(t, err)

		_, err = c.FetchEncoded(ctx, "https://img.example.com/out.png")
		var transport *TransportError
		require.ErrorAs(t, err, &transport)
	})
}
