package workflow

import (
	"context"
	"fmt"
	"time"

	"github.com/patrickmn/go-cache"
	"github.com/shouni/go-gemini-client/pkg/gemini"
	"github.com/shouni/go-http-kit/pkg/httpkit"
	"github.com/shouni/go-remote-io/pkg/remoteio"
	"golang.org/x/time/rate"
	"google.golang.org/genai"

	"github.com/shouni/go-comic-kit/internal/config"
	"github.com/shouni/go-comic-kit/pkg/domain"
	"github.com/shouni/go-comic-kit/pkg/generator"
	"github.com/shouni/go-comic-kit/pkg/hosting"
	"github.com/shouni/go-comic-kit/pkg/parser"
	"github.com/shouni/go-comic-kit/pkg/prompts"
	"github.com/shouni/go-comic-kit/pkg/provider"
	"github.com/shouni/go-comic-kit/pkg/reference"
	"github.com/shouni/go-comic-kit/pkg/revision"
	"github.com/shouni/go-comic-kit/pkg/runner"
)

const (
	defaultCacheExpiration   = 30 * time.Minute
	cacheCleanupInterval     = 1 * time.Hour
	defaultCacheTTL          = 30 * time.Minute
	defaultGeminiTemperature = float32(0.2)
)

// 選択可能な生成バックエンドです。
const (
	ProviderREST   = "rest"
	ProviderGemini = "gemini"
)

// Builder はワークフローの各工程を担う Runner 群を構築・管理するのだ。
type Builder struct {
	cfg        *config.Config
	registry   domain.CharacterRegistry
	httpClient httpkit.ClientInterface
	reader     remoteio.InputReader
	writer     remoteio.OutputWriter
	client     provider.Client
	resolver   *reference.Resolver
}

// NewBuilder は Config と必要なキャラクター定義を基に新しい Builder を作成するのだ。
func NewBuilder(ctx context.Context, cfg *config.Config, reader remoteio.InputReader, writer remoteio.OutputWriter, charData []byte) (*Builder, error) {
	if cfg == nil {
		return nil, fmt.Errorf("cfg は必須です")
	}
	if reader == nil {
		return nil, fmt.Errorf("reader は必須です")
	}
	if writer == nil {
		return nil, fmt.Errorf("writer は必須です")
	}

	// 1. キャラクターデータのパース
	registry, err := domain.GetCharacters(charData)
	if err != nil {
		return nil, fmt.Errorf("キャラクター定義の読み込みに失敗しました: %w", err)
	}

	httpClient := httpkit.New(cfg.Options.HTTPTimeout)

	// 2. 生成バックエンドの選択と初期化
	client, err := initializeProviderClient(ctx, cfg, httpClient)
	if err != nil {
		return nil, err
	}

	// 3. 参照画像のホスティングと解決系の初期化
	resolver, err := initializeResolver(cfg, httpClient, reader)
	if err != nil {
		return nil, err
	}

	return &Builder{
		cfg:        cfg,
		registry:   registry,
		httpClient: httpClient,
		reader:     reader,
		writer:     writer,
		client:     client,
		resolver:   resolver,
	}, nil
}

// BuildBatchRunner はシーンリストからの一括生成を担当する Runner を作成するのだ。
func (b *Builder) BuildBatchRunner() (*runner.ComicBatchRunner, error) {
	pb := prompts.NewImagePromptBuilder(b.cfg.StyleSuffix)
	limiter := rate.NewLimiter(rate.Every(b.cfg.Options.RateInterval), 1)

	composer, err := generator.NewComicComposer(b.resolver, b.client, pb, b.registry, limiter, b.cfg.Options.PollTimeout)
	if err != nil {
		return nil, fmt.Errorf("コンポーザーの初期化に失敗しました: %w", err)
	}

	sceneParser := parser.NewSceneListParser(b.reader, b.registry)
	return runner.NewComicBatchRunner(b.cfg, sceneParser, generator.NewBatchGenerator(composer), b.writer), nil
}

// BuildRevisionRunner は生成済みコマの修正を担当する Runner を作成するのだ。
func (b *Builder) BuildRevisionRunner() (*runner.RevisionRunner, error) {
	controller, err := revision.NewController(b.resolver, b.client, b.registry, b.cfg.Options.PollTimeout)
	if err != nil {
		return nil, fmt.Errorf("修正コントローラの初期化に失敗しました: %w", err)
	}

	return runner.NewRevisionRunner(b.cfg, controller, b.reader, b.writer), nil
}

// initializeProviderClient は設定に応じた生成バックエンドを初期化します。
func initializeProviderClient(ctx context.Context, cfg *config.Config, httpClient httpkit.ClientInterface) (provider.Client, error) {
	providerName := cfg.Options.Provider
	if providerName == "" {
		providerName = cfg.Provider
	}

	imgCache := cache.New(defaultCacheExpiration, cacheCleanupInterval)

	switch providerName {
	case ProviderREST:
		client, err := provider.NewRESTClient(cfg.APIBaseURL, cfg.APIKey, cfg.Options.HTTPTimeout, httpClient, imgCache, defaultCacheTTL)
		if err != nil {
			return nil, fmt.Errorf("RESTクライアントの初期化に失敗しました: %w", err)
		}
		return client, nil

	case ProviderGemini:
		aiClient, err := initializeAIClient(ctx, cfg.GeminiAPIKey)
		if err != nil {
			return nil, err
		}
		client, err := provider.NewGeminiClient(aiClient, httpClient, imgCache, defaultCacheTTL)
		if err != nil {
			return nil, fmt.Errorf("Geminiクライアントの初期化に失敗しました: %w", err)
		}
		return client, nil

	default:
		return nil, fmt.Errorf("未知のプロバイダです: %q (rest または gemini を指定してください)", providerName)
	}
}

// initializeAIClient は Gemini の共通クライアントを初期化します。
func initializeAIClient(ctx context.Context, apiKey string) (gemini.GenerativeModel, error) {
	clientConfig := gemini.Config{
		APIKey:      apiKey,
		Temperature: genai.Ptr(defaultGeminiTemperature),
	}
	aiClient, err := gemini.NewClient(ctx, clientConfig)
	if err != nil {
		return nil, fmt.Errorf("AIクライアントの初期化に失敗しました: %w", err)
	}
	return aiClient, nil
}

// initializeResolver は参照画像のホスティングクライアントと Resolver を初期化します。
func initializeResolver(cfg *config.Config, httpClient httpkit.ClientInterface, reader remoteio.InputReader) (*reference.Resolver, error) {
	if cfg.HostingBaseURL == "" {
		return nil, fmt.Errorf("環境変数 COMIC_HOSTING_BASE_URL が設定されていません。参照画像の転送に必須なのだ")
	}

	urlCache := cache.New(defaultCacheExpiration, cacheCleanupInterval)
	host, err := hosting.NewHTTPHost(cfg.HostingBaseURL, cfg.HostingAPIKey, httpClient, urlCache, defaultCacheTTL)
	if err != nil {
		return nil, fmt.Errorf("ホスティングクライアントの初期化に失敗しました: %w", err)
	}

	setCache := cache.New(defaultCacheExpiration, cacheCleanupInterval)
	resolver, err := reference.NewResolver(reader, host, setCache, defaultCacheTTL)
	if err != nil {
		return nil, fmt.Errorf("リゾルバの初期化に失敗しました: %w", err)
	}
	return resolver, nil
}
