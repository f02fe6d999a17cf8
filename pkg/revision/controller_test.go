package revision

import (
	"context"
	"encoding/base64"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shouni/go-comic-kit/pkg/domain"
	"github.com/shouni/go-comic-kit/pkg/prompts"
	"github.com/shouni/go-comic-kit/pkg/provider"
)

// mockResolver は generator.ReferenceResolver のテスト用モックなのだ。
type mockResolver struct {
	sets map[string]*domain.ReferenceSet
}

func (m *mockResolver) Resolve(ctx context.Context, profiles []domain.CharacterProfile) map[string]*domain.ReferenceSet {
	out := make(map[string]*domain.ReferenceSet, len(profiles))
	for _, p := range profiles {
		if set, ok := m.sets[p.ID]; ok {
			out[p.ID] = set
			continue
		}
		out[p.ID] = &domain.ReferenceSet{CharacterID: p.ID, URLsByAngle: map[domain.CameraAngle][]string{}}
	}
	return out
}

// mockClient は provider.Client のテスト用モックなのだ。
type mockClient struct {
	mu       sync.Mutex
	requests []provider.GenerationRequest
}

func (m *mockClient) Submit(ctx context.Context, req provider.GenerationRequest) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.requests = append(m.requests, req)
	return "job-1", nil
}

func (m *mockClient) PollUntilDone(ctx context.Context, jobID string, timeout time.Duration) (string, error) {
	return "https://images.example.com/" + jobID, nil
}

func (m *mockClient) FetchEncoded(ctx context.Context, imageURL string) (*provider.EncodedImage, error) {
	return &provider.EncodedImage{
		Data:     base64.StdEncoding.EncodeToString([]byte("revised-" + imageURL)),
		MimeType: "image/png",
	}, nil
}

var testRegistry = domain.CharacterRegistry{
	"hero": {ID: "hero", Name: "Hero", PhysicalDescription: "silver hair", IsPrimary: true},
}

func newTestController(t *testing.T, client *mockClient) *Controller {
	t.Helper()
	resolver := &mockResolver{sets: map[string]*domain.ReferenceSet{
		"hero": {
			CharacterID: "hero",
			URLsByAngle: map[domain.CameraAngle][]string{
				domain.AngleFrontal: {"https://cdn.example.com/hero_frontal.png"},
			},
			AllURLs: []string{"https://cdn.example.com/hero_frontal.png"},
		},
	}}
	c, err := NewController(resolver, client, testRegistry, time.Second)
	require.NoError(t, err)
	return c
}

func testBatch() domain.Panels {
	return domain.Panels{
		{
			PanelNumber:      1,
			PanelText:        "The sign says 'blank'",
			SceneDescription: "hero points at a wooden sign",
			ImageData:        base64.StdEncoding.EncodeToString([]byte("original-image-bytes")),
			MimeType:         "image/png",
			ImagePrompt:      "### SCENE ###\nhero points at a wooden sign",
			BackgroundColor:  "#FFFFFF",
		},
	}
}

func TestController_Reroll(t *testing.T) {
	ctx := context.Background()
	client := &mockClient{}
	c := newTestController(t, client)
	batch := testBatch()

	cand, err := c.Reroll(ctx, batch, 0, domain.Scene{
		SceneDescription: "hero points at a wooden sign",
		CharacterIDs:     []string{"hero"},
	})
	require.NoError(t, err)

	t.Run("強化句付きのプロンプトで再投入されること", func(t *testing.T) {
		require.Len(t, client.requests, 1)
		req := client.requests[0]
		assert.Contains(t, req.Prompt, "hero points at a wooden sign")
		assert.Contains(t, req.Prompt, prompts.RerollFidelityClause)
	})

	t.Run("直前の出力画像は参照に含めないこと", func(t *testing.T) {
		for _, ref := range client.requests[0].ReferenceImages {
			assert.Empty(t, ref.Data, "リロールはキャラクター参照のみを使うべきなのだ")
			assert.NotEmpty(t, ref.URL)
		}
	})

	t.Run("候補を返すだけでバッチは未変更であること", func(t *testing.T) {
		assert.Equal(t, testBatch()[0].ImageData, batch[0].ImageData)
		assert.Equal(t, 0, cand.PanelIndex)
		assert.NotEqual(t, cand.OldPanel.ImageData, cand.NewPanel.ImageData)
		assert.Equal(t, cand.OldPanel.PanelText, cand.NewPanel.PanelText)
	})
}

func TestController_FeedbackEdit(t *testing.T) {
	ctx := context.Background()
	scene := domain.Scene{
		SceneDescription: "hero points at a wooden sign",
		CharacterIDs:     []string{"hero"},
	}

	t.Run("現コマ画像が先頭参照になること", func(t *testing.T) {
		client := &mockClient{}
		c := newTestController(t, client)

		_, err := c.FeedbackEdit(ctx, testBatch(), 0, scene, "make the sky darker")
		require.NoError(t, err)

		require.Len(t, client.requests, 1)
		refs := client.requests[0].ReferenceImages
		require.NotEmpty(t, refs)
		assert.Equal(t, []byte("original-image-bytes"), refs[0].Data,
			"先頭の参照は現在のコマ画像そのものであるべきなのだ")
		assert.Equal(t, "image/png", refs[0].MimeType)
		assert.Equal(t, "https://cdn.example.com/hero_frontal.png", refs[1].URL)
	})

	t.Run("明示的なテキスト変更指示で PanelText が更新されること", func(t *testing.T) {
		client := &mockClient{}
		c := newTestController(t, client)

		cand, err := c.FeedbackEdit(ctx, testBatch(), 0, scene, "change text from 'blank' to 'leer'")
		require.NoError(t, err)

		assert.Equal(t, "leer", cand.NewPanel.PanelText)
		assert.Equal(t, "The sign says 'blank'", cand.OldPanel.PanelText)
	})

	t.Run("指示がなければ PanelText は維持されること", func(t *testing.T) {
		client := &mockClient{}
		c := newTestController(t, client)

		cand, err := c.FeedbackEdit(ctx, testBatch(), 0, scene, "make the hero smile")
		require.NoError(t, err)

		assert.Equal(t, "The sign says 'blank'", cand.NewPanel.PanelText)
		assert.Contains(t, client.requests[0].Prompt, "### EDIT REQUEST ###")
	})

	t.Run("空のフィードバックは拒否されること", func(t *testing.T) {
		c := newTestController(t, &mockClient{})
		_, err := c.FeedbackEdit(ctx, testBatch(), 0, scene, "")
		assert.Error(t, err)
	})
}

func TestController_ResolveCandidate(t *testing.T) {
	c := newTestController(t, &mockClient{})

	newPanel := testBatch()[0]
	newPanel.ImageData = base64.StdEncoding.EncodeToString([]byte("revised"))
	newPanel.PanelNumber = 99 // 採用時に元の番号へ戻ることを確認する
	cand := &domain.PanelRevisionCandidate{PanelIndex: 0, OldPanel: testBatch()[0], NewPanel: newPanel}

	t.Run("採用時のみバッチが書き換わること", func(t *testing.T) {
		batch := testBatch()
		require.NoError(t, c.ResolveCandidate(batch, cand, false))
		assert.Equal(t, testBatch()[0].ImageData, batch[0].ImageData, "却下した候補は影響しないのだ")

		require.NoError(t, c.ResolveCandidate(batch, cand, true))
		assert.Equal(t, newPanel.ImageData, batch[0].ImageData)
		assert.Equal(t, 1, batch[0].PanelNumber, "パネル番号は安定したまま維持されるべきです")
	})

	t.Run("範囲外インデックスはエラーになること", func(t *testing.T) {
		batch := testBatch()
		bad := &domain.PanelRevisionCandidate{PanelIndex: 5}
		assert.Error(t, c.ResolveCandidate(batch, bad, true))
	})
}

func TestExtractTextChange(t *testing.T) {
	cases := []struct {
		name     string
		feedback string
		wantFrom string
		wantTo   string
		wantOK   bool
	}{
		{"直線引用符", "please change text from 'blank' to 'leer'", "blank", "leer", true},
		{"曲がり引用符", "change text from ‘Hello’ to ‘Hallo’", "Hello", "Hallo", true},
		{"二重引用符", `change the text from "STOP" to "GO"`, "STOP", "GO", true},
		{"大文字小文字の揺れ", "Change Text From 'a' To 'b'", "a", "b", true},
		{"指示なし", "make the background red", "", "", false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			from, to, ok := ExtractTextChange(tc.feedback)
			assert.Equal(t, tc.wantOK, ok)
			assert.Equal(t, tc.wantFrom, from)
			assert.Equal(t, tc.wantTo, to)
		})
	}
}
