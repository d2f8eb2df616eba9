package synth

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/shouni/go-http-kit/httpkit"
)

const (
	openAIBackend = "openai"
	// DefaultOpenAIImageModel はテキストからの画像生成に使う既定のモデルです。
	DefaultOpenAIImageModel = "dall-e-3"
	// DefaultOpenAIBaseURL は OpenAI API のベース URL です。
	DefaultOpenAIBaseURL = "https://api.openai.com/v1"
)

// HTTPRequester は httpkit.Client のうち OpenAI バックエンドが使うメソッドです。
// FetchBytes は取得前に URL の安全性を検証します。
type HTTPRequester interface {
	DoRequest(req *http.Request) ([]byte, error)
	FetchBytes(ctx context.Context, url string) ([]byte, error)
}

// OpenAISynthesizer は OpenAI Images API でテキストから画像を生成します。
// 参照画像付きの生成には対応しません。
type OpenAISynthesizer struct {
	apiKey  string
	model   string
	baseURL string
	client  HTTPRequester
}

// OpenAIOption は OpenAISynthesizer の設定を変更します。
type OpenAIOption func(*OpenAISynthesizer)

// WithOpenAIBaseURL は API のベース URL を差し替えます。
func WithOpenAIBaseURL(baseURL string) OpenAIOption {
	return func(s *OpenAISynthesizer) {
		s.baseURL = strings.TrimRight(baseURL, "/")
	}
}

// NewOpenAISynthesizer は OpenAISynthesizer を生成します。
// client の再試行は無効にしておき、再試行は RetryPolicy に任せてください。
func NewOpenAISynthesizer(apiKey, model string, client HTTPRequester, opts ...OpenAIOption) (*OpenAISynthesizer, error) {
	if apiKey == "" {
		return nil, errors.New("openai: API key is required (OPENAI_API_KEY)")
	}
	if client == nil {
		return nil, errors.New("openai: HTTP client is required")
	}
	if model == "" {
		model = DefaultOpenAIImageModel
	}
	s := &OpenAISynthesizer{
		apiKey:  apiKey,
		model:   model,
		baseURL: DefaultOpenAIBaseURL,
		client:  client,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

type imageGenerationRequest struct {
	Model          string `json:"model"`
	Prompt         string `json:"prompt"`
	N              int    `json:"n"`
	Size           string `json:"size,omitempty"`
	ResponseFormat string `json:"response_format"`
}

type imageGenerationResponse struct {
	Data []struct {
		B64JSON       string `json:"b64_json"`
		URL           string `json:"url"`
		RevisedPrompt string `json:"revised_prompt"`
	} `json:"data"`
}

type apiErrorResponse struct {
	Error *struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error"`
}

func (s *OpenAISynthesizer) GenerateFromText(ctx context.Context, req TextRequest) (*Artifact, error) {
	size := req.Size
	if size == "" {
		size = DefaultSize
	}
	body, err := json.Marshal(imageGenerationRequest{
		Model:          s.model,
		Prompt:         req.Prompt,
		N:              1,
		Size:           size,
		ResponseFormat: "b64_json",
	})
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+"/images/generations", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+s.apiKey)

	slog.DebugContext(ctx, "OpenAI に画像生成をリクエストします", "model", s.model, "size", size)
	respBody, err := s.client.DoRequest(httpReq)
	if err != nil {
		return nil, classifyHTTPError("openai api", err)
	}

	var apiResp imageGenerationResponse
	if err := json.Unmarshal(respBody, &apiResp); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	if len(apiResp.Data) == 0 {
		return nil, Transient(openAIBackend, ErrNoImage)
	}

	item := apiResp.Data[0]
	switch {
	case item.B64JSON != "":
		data, err := base64.StdEncoding.DecodeString(item.B64JSON)
		if err != nil {
			return nil, fmt.Errorf("decode b64_json: %w", err)
		}
		return &Artifact{Data: data, MimeType: http.DetectContentType(data)}, nil
	case item.URL != "":
		data, err := s.client.FetchBytes(ctx, item.URL)
		if err != nil {
			return nil, classifyHTTPError("download image", err)
		}
		return &Artifact{Data: data, MimeType: http.DetectContentType(data)}, nil
	default:
		return nil, Transient(openAIBackend, ErrNoImage)
	}
}

// GenerateFromReference は未対応です。
func (s *OpenAISynthesizer) GenerateFromReference(context.Context, ReferenceRequest) (*Artifact, error) {
	return nil, fmt.Errorf("openai: %w", ErrUnsupported)
}

// classifyHTTPError は httpkit のエラーを一時的なエラーと恒久的なエラーに分けます。
// httpkit は 4xx を NonRetryableHTTPError で返し、5xx や通信エラーはそれ以外のエラーで返します。
func classifyHTTPError(op string, err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%s: %w", op, err)
	}
	var statusErr *httpkit.NonRetryableHTTPError
	if !errors.As(err, &statusErr) {
		return Transient(openAIBackend, fmt.Errorf("%s: %w", op, err))
	}
	wrapped := fmt.Errorf("%s status %d: %s", op, statusErr.StatusCode, apiMessage(statusErr.Body))
	if transientStatus(statusErr.StatusCode) {
		return Transient(openAIBackend, wrapped)
	}
	return wrapped
}

// apiMessage はエラーレスポンスから API のメッセージを取り出します。
func apiMessage(body []byte) string {
	var resp apiErrorResponse
	if err := json.Unmarshal(body, &resp); err == nil && resp.Error != nil && resp.Error.Message != "" {
		return resp.Error.Message
	}
	msg := strings.TrimSpace(string(body))
	if len(msg) > 200 {
		msg = msg[:200] + "..."
	}
	return msg
}
