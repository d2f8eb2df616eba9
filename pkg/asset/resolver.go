package asset

import (
	"fmt"
	"path"
	"path/filepath"
	"strings"
)

const (
	// DefaultImageDir は生成された画像を格納する章ディレクトリ内のディレクトリ名です。
	DefaultImageDir = "images"
	// DefaultManifestName は生成結果を記録するマニフェストのファイル名です。
	DefaultManifestName = "manifest.json"
	// DefaultPageName は章ページの HTML ファイル名です。
	DefaultPageName = "index.html"
)

// ImagePath は出力ルートからの相対パスで、セクション画像の保存先を返します。
// 例: ("forest", "hero.png") -> "forest/images/hero.png"
func ImagePath(chapterID, fileName string) string {
	return path.Join(chapterID, DefaultImageDir, ImageFileName(fileName))
}

// ImageFileName は image フィールドから保存に使うファイル名を返します。
// ディレクトリ部分は捨てるため、"chars/fox.png" と "fox.png" は同じファイルになります。
func ImageFileName(fileName string) string {
	return path.Base(filepath.ToSlash(fileName))
}

// ManifestPath は章のマニフェストの相対パスを返します。
func ManifestPath(chapterID string) string {
	return path.Join(chapterID, DefaultManifestName)
}

// PagePath は章ページの相対パスを返します。
func PagePath(chapterID string) string {
	return path.Join(chapterID, DefaultPageName)
}

// PageRelative は章ページから見た画像の相対パスを返します。
// 例: "forest/images/hero.png" -> "images/hero.png"
func PageRelative(chapterID, artifactPath string) string {
	rel := strings.TrimPrefix(filepath.ToSlash(artifactPath), chapterID+"/")
	return rel
}

// ResolveOutputPath は出力ルートと相対パスから実際のファイルパスを生成します。
// 出力ルートの外を指すパスはエラーになります。
func ResolveOutputPath(baseDir, rel string) (string, error) {
	clean := path.Clean("/" + filepath.ToSlash(rel))
	if clean == "/" {
		return "", fmt.Errorf("出力パスが空です: %q", rel)
	}
	full := filepath.Join(baseDir, filepath.FromSlash(strings.TrimPrefix(clean, "/")))
	relToBase, err := filepath.Rel(baseDir, full)
	if err != nil || relToBase == ".." || strings.HasPrefix(relToBase, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("出力ルートの外を指すパスです: %q", rel)
	}
	return full, nil
}
