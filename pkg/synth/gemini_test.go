package synth

import (
	"context"
	"errors"
	"testing"

	"github.com/shouni/go-gemini-client/gemini"
	"google.golang.org/genai"
)

type fakeImageModel struct {
	resp  *gemini.Response
	err   error
	parts []*genai.Part
	opts  gemini.GenerateOptions
	model string
}

func (f *fakeImageModel) GenerateWithParts(_ context.Context, model string, parts []*genai.Part, opts gemini.GenerateOptions) (*gemini.Response, error) {
	f.model = model
	f.parts = parts
	f.opts = opts
	return f.resp, f.err
}

func imageResponse(data []byte, mimeType string) *gemini.Response {
	return &gemini.Response{
		Text:   "here you go",
		Images: [][]byte{data},
		RawResponse: &genai.GenerateContentResponse{
			Candidates: []*genai.Candidate{{
				Content: &genai.Content{Parts: []*genai.Part{
					{Text: "here you go"},
					{InlineData: &genai.Blob{Data: data, MIMEType: mimeType}},
				}},
			}},
		},
	}
}

func newTestGemini(t *testing.T, fake *fakeImageModel, model string) *GeminiSynthesizer {
	t.Helper()
	g, err := NewGeminiSynthesizer(fake, model, 0)
	if err != nil {
		t.Fatalf("NewGeminiSynthesizer: %v", err)
	}
	return g
}

func TestGeminiSynthesizer_GenerateFromReference(t *testing.T) {
	fake := &fakeImageModel{resp: imageResponse(pngHeader, "image/webp")}
	g := newTestGemini(t, fake, "")

	art, err := g.GenerateFromReference(context.Background(), ReferenceRequest{
		Prompt: "the fox waves",
		References: []ReferenceImage{
			{SectionID: "hero", Data: []byte("ref"), MimeType: "image/png"},
		},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if art.MimeType != "image/webp" {
		t.Errorf("MimeType = %s", art.MimeType)
	}
	if fake.model != DefaultGeminiImageModel {
		t.Errorf("model = %s", fake.model)
	}
	if len(fake.parts) != 2 {
		t.Fatalf("parts = %d, want 2", len(fake.parts))
	}
	if fake.parts[0].InlineData == nil || string(fake.parts[0].InlineData.Data) != "ref" {
		t.Error("参照画像がプロンプトより前に添付されていません")
	}
	if fake.parts[1].Text != "the fox waves" {
		t.Errorf("prompt part = %q", fake.parts[1].Text)
	}
}

func TestGeminiSynthesizer_NoImage(t *testing.T) {
	fake := &fakeImageModel{resp: &gemini.Response{Text: "I cannot draw that"}}
	g := newTestGemini(t, fake, "gemini-test")

	_, err := g.GenerateFromText(context.Background(), TextRequest{Prompt: "x", Size: "512x512"})
	if !IsTransient(err) || !errors.Is(err, ErrNoImage) {
		t.Fatalf("一時的な ErrNoImage を期待しました: %v", err)
	}
	if got := fake.parts[0].Text; got != "x\n\nOutput image size: 512x512." {
		t.Errorf("prompt = %q", got)
	}
	if fake.opts.AspectRatio != "1:1" {
		t.Errorf("AspectRatio = %q", fake.opts.AspectRatio)
	}
}

func TestGeminiSynthesizer_APIError(t *testing.T) {
	cases := map[int]bool{429: true, 503: true, 400: false, 403: false}
	for code, transient := range cases {
		fake := &fakeImageModel{err: genai.APIError{Code: code, Message: "boom"}}
		g := newTestGemini(t, fake, "")
		_, err := g.GenerateFromText(context.Background(), TextRequest{Prompt: "x"})
		if err == nil {
			t.Fatalf("code %d: エラーを期待しました", code)
		}
		if IsTransient(err) != transient {
			t.Errorf("code %d: IsTransient = %v", code, IsTransient(err))
		}
	}

	t.Run("ブロックは再試行しない", func(t *testing.T) {
		fake := &fakeImageModel{err: &gemini.APIResponseError{}}
		g := newTestGemini(t, fake, "")
		_, err := g.GenerateFromText(context.Background(), TextRequest{Prompt: "x"})
		if err == nil || IsTransient(err) {
			t.Errorf("恒久的なエラーを期待しました: %v", err)
		}
	})
}

func TestNewGeminiSynthesizer_NilClient(t *testing.T) {
	if _, err := NewGeminiSynthesizer(nil, "", 0); err == nil {
		t.Error("クライアント無しでエラーを期待しました")
	}
}

func TestAspectRatio(t *testing.T) {
	cases := map[string]string{
		"1024x1024": "1:1",
		"1792x1024": "",
		"1536x1024": "3:2",
		"768X1024":  "3:4",
		"1920x1080": "16:9",
		"bogus":     "",
		"0x100":     "",
		"":          "",
	}
	for size, want := range cases {
		if got := aspectRatio(size); got != want {
			t.Errorf("aspectRatio(%q) = %q, want %q", size, got, want)
		}
	}
}
