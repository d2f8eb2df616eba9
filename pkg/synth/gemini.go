package synth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/shouni/go-gemini-client/gemini"
	"google.golang.org/genai"
)

const (
	geminiBackend = "gemini"
	// DefaultGeminiImageModel は Gemini で画像生成に使う既定のモデルです。
	DefaultGeminiImageModel = "gemini-2.5-flash-image"
)

// ImageModel は gemini.Generator のうち画像生成で使うメソッドだけを抜き出したものです。
type ImageModel interface {
	GenerateWithParts(ctx context.Context, modelName string, parts []*genai.Part, opts gemini.GenerateOptions) (*gemini.Response, error)
}

// GeminiSynthesizer は Gemini の画像モデルで画像を生成します。
// テキストのみの生成と参照画像付きの生成は同じ GenerateWithParts 呼び出しを使います。
type GeminiSynthesizer struct {
	client  ImageModel
	model   string
	timeout time.Duration
}

// NewGeminiSynthesizer は GeminiSynthesizer を生成します。
func NewGeminiSynthesizer(client ImageModel, model string, timeout time.Duration) (*GeminiSynthesizer, error) {
	if client == nil {
		return nil, errors.New("gemini: client is required")
	}
	if model == "" {
		model = DefaultGeminiImageModel
	}
	return &GeminiSynthesizer{client: client, model: model, timeout: timeout}, nil
}

func (g *GeminiSynthesizer) GenerateFromText(ctx context.Context, req TextRequest) (*Artifact, error) {
	return g.generate(ctx, req.Prompt, req.Size, nil)
}

func (g *GeminiSynthesizer) GenerateFromReference(ctx context.Context, req ReferenceRequest) (*Artifact, error) {
	return g.generate(ctx, req.Prompt, req.Size, req.References)
}

func (g *GeminiSynthesizer) generate(ctx context.Context, prompt, size string, refs []ReferenceImage) (*Artifact, error) {
	if g.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.timeout)
		defer cancel()
	}

	parts := make([]*genai.Part, 0, len(refs)+1)
	for _, ref := range refs {
		parts = append(parts, genai.NewPartFromBytes(ref.Data, ref.MimeType))
	}
	parts = append(parts, genai.NewPartFromText(withSizeHint(prompt, size)))

	opts := gemini.GenerateOptions{AspectRatio: aspectRatio(size)}

	slog.DebugContext(ctx, "Gemini に画像生成をリクエストします",
		"model", g.model, "references", len(refs), "aspect_ratio", opts.AspectRatio)
	resp, err := g.client.GenerateWithParts(ctx, g.model, parts, opts)
	if err != nil {
		return nil, classifyGeminiError(err)
	}
	return extractImage(resp)
}

// extractImage はレスポンスの最初の画像を取り出します。
// 画像が無い場合はモデルがテキストだけを返したとみなし、一時的なエラーにします。
func extractImage(resp *gemini.Response) (*Artifact, error) {
	if resp == nil {
		return nil, Transient(geminiBackend, ErrNoImage)
	}
	for _, data := range resp.Images {
		if len(data) > 0 {
			return &Artifact{Data: data, MimeType: inlineMimeType(resp.RawResponse)}, nil
		}
	}
	if msg := strings.TrimSpace(resp.Text); msg != "" {
		return nil, Transient(geminiBackend, fmt.Errorf("%w: model answered with text: %.120q", ErrNoImage, msg))
	}
	return nil, Transient(geminiBackend, ErrNoImage)
}

// inlineMimeType は生のレスポンスから最初のインライン画像の MIME タイプを返します。
func inlineMimeType(raw *genai.GenerateContentResponse) string {
	if raw != nil {
		for _, cand := range raw.Candidates {
			if cand == nil || cand.Content == nil {
				continue
			}
			for _, part := range cand.Content.Parts {
				if part != nil && part.InlineData != nil && part.InlineData.MIMEType != "" {
					return part.InlineData.MIMEType
				}
			}
		}
	}
	return "image/png"
}

// classifyGeminiError はレート制限とサーバーエラーを一時的なエラーに分類します。
// ブロックなどの論理エラー (gemini.APIResponseError) は再試行しません。
func classifyGeminiError(err error) error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return fmt.Errorf("gemini: %w", err)
	}
	var respErr *gemini.APIResponseError
	if errors.As(err, &respErr) {
		return fmt.Errorf("gemini: %w", err)
	}
	code := 0
	var apiErr genai.APIError
	var apiErrPtr *genai.APIError
	switch {
	case errors.As(err, &apiErr):
		code = apiErr.Code
	case errors.As(err, &apiErrPtr):
		code = apiErrPtr.Code
	}
	if transientStatus(code) {
		return Transient(geminiBackend, err)
	}
	return fmt.Errorf("gemini: %w", err)
}

// withSizeHint はプロンプトにサイズ指定を付け加えます。
func withSizeHint(prompt, size string) string {
	if size == "" {
		return prompt
	}
	return fmt.Sprintf("%s\n\nOutput image size: %s.", prompt, size)
}

// supportedAspectRatios は Gemini の画像モデルが受け付けるアスペクト比です。
var supportedAspectRatios = map[string]struct{}{
	"1:1": {}, "2:3": {}, "3:2": {}, "3:4": {}, "4:3": {},
	"4:5": {}, "5:4": {}, "9:16": {}, "16:9": {}, "21:9": {},
}

// aspectRatio は "WIDTHxHEIGHT" を既約のアスペクト比に変換します。
// 対応していない比率や解釈できないサイズでは空文字を返し、API の既定に任せます。
func aspectRatio(size string) string {
	w, h, ok := strings.Cut(strings.ToLower(strings.TrimSpace(size)), "x")
	if !ok {
		return ""
	}
	width, err1 := strconv.Atoi(w)
	height, err2 := strconv.Atoi(h)
	if err1 != nil || err2 != nil || width <= 0 || height <= 0 {
		return ""
	}
	d := gcd(width, height)
	ratio := fmt.Sprintf("%d:%d", width/d, height/d)
	if _, ok := supportedAspectRatios[ratio]; !ok {
		return ""
	}
	return ratio
}

func gcd(a, b int) int {
	for b != 0 {
		a, b = b, a%b
	}
	return a
}
