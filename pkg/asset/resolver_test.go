package asset

import (
	"path/filepath"
	"strings"
	"testing"
)

func TestPaths(t *testing.T) {
	if got := ImagePath("forest", "hero.png"); got != "forest/images/hero.png" {
		t.Errorf("ImagePath = %q", got)
	}
	if got := ImagePath("forest", "../../etc/hero.png"); got != "forest/images/hero.png" {
		t.Errorf("ImagePath はファイル名だけを使うべきです: %q", got)
	}
	if got := ManifestPath("forest"); got != "forest/manifest.json" {
		t.Errorf("ManifestPath = %q", got)
	}
	if got := PagePath("forest"); got != "forest/index.html" {
		t.Errorf("PagePath = %q", got)
	}
	if got := PageRelative("forest", "forest/images/hero.png"); got != "images/hero.png" {
		t.Errorf("PageRelative = %q", got)
	}
}

func TestResolveOutputPath(t *testing.T) {
	base := t.TempDir()

	got, err := ResolveOutputPath(base, "forest/images/hero.png")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != filepath.Join(base, "forest", "images", "hero.png") {
		t.Errorf("got %q", got)
	}

	got, err = ResolveOutputPath(base, "../outside.png")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.HasPrefix(got, base) {
		t.Errorf("出力ルートの外に解決されました: %q", got)
	}

	if _, err := ResolveOutputPath(base, ""); err == nil {
		t.Error("空のパスでエラーを期待しました")
	}
}

func TestPlaceholder(t *testing.T) {
	svg := PlaceholderSVG("<hero>", "640x480")
	if !strings.Contains(svg, `width="640"`) || !strings.Contains(svg, "&lt;hero&gt;") {
		t.Errorf("svg = %s", svg)
	}
	if !strings.Contains(PlaceholderSVG("x", "bogus"), `width="1024"`) {
		t.Error("不正なサイズでは既定サイズを使うべきです")
	}
	if !strings.HasPrefix(PlaceholderDataURI("x", ""), "data:image/svg+xml;base64,") {
		t.Error("data URI の形式が違います")
	}
}
