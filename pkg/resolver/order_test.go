package resolver

import (
	"errors"
	"fmt"
	"math/rand/v2"
	"slices"
	"testing"

	"github.com/shouni/go-storybook-kit/pkg/domain"
)

func section(id string, refs ...string) domain.Section {
	s := domain.Section{ID: id, Image: id + ".png"}
	if len(refs) > 0 {
		s.Reference = domain.ReferenceList(refs)
	}
	return s
}

func ids(sections []domain.Section) []string {
	out := make([]string, len(sections))
	for i, s := range sections {
		out[i] = s.ID
	}
	return out
}

func TestBuildOrder(t *testing.T) {
	t.Run("参照の無い単独セクション", func(t *testing.T) {
		order, err := BuildOrder([]domain.Section{section("hero")})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got := ids(order); !slices.Equal(got, []string{"hero"}) {
			t.Errorf("order = %v", got)
		}
	})

	t.Run("参照先が参照元より前に来ること", func(t *testing.T) {
		order, err := BuildOrder([]domain.Section{section("a", "b"), section("b")})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got := ids(order); !slices.Equal(got, []string{"b", "a"}) {
			t.Errorf("order = %v, want [b a]", got)
		}
	})

	t.Run("独立したセクションは入力順を保つこと", func(t *testing.T) {
		in := []domain.Section{section("c"), section("a"), section("b")}
		order, err := BuildOrder(in)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got := ids(order); !slices.Equal(got, []string{"c", "a", "b"}) {
			t.Errorf("order = %v", got)
		}
	})

	t.Run("推移的な参照と複数参照", func(t *testing.T) {
		in := []domain.Section{
			section("scene", "friend", "hero"),
			section("friend", "hero"),
			section("hero"),
			section("outro"),
		}
		order, err := BuildOrder(in)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got := ids(order); !slices.Equal(got, []string{"hero", "friend", "scene", "outro"}) {
			t.Errorf("order = %v", got)
		}
	})

	t.Run("存在しないIDへの参照は並び替えで無視されること", func(t *testing.T) {
		in := []domain.Section{section("x", "missing-id"), section("y")}
		order, err := BuildOrder(in)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got := ids(order); !slices.Equal(got, []string{"x", "y"}) {
			t.Errorf("order = %v", got)
		}
	})

	t.Run("入力スライスを変更しないこと", func(t *testing.T) {
		in := []domain.Section{section("a", "b"), section("b")}
		if _, err := BuildOrder(in); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got := ids(in); !slices.Equal(got, []string{"a", "b"}) {
			t.Errorf("入力が変更されました: %v", got)
		}
	})
}

func TestBuildOrder_Cycle(t *testing.T) {
	cases := map[string][]domain.Section{
		"相互参照":  {section("a", "b"), section("b", "a")},
		"自己参照":  {section("a", "a")},
		"三者の循環": {section("x"), section("a", "c"), section("b", "a"), section("c", "b")},
	}
	for name, in := range cases {
		t.Run(name, func(t *testing.T) {
			order, err := BuildOrder(in)
			if err == nil {
				t.Fatalf("循環エラーを期待しましたが order=%v", ids(order))
			}
			if order != nil {
				t.Errorf("循環時に部分的な並び順が返されました: %v", ids(order))
			}
			var cycleErr *CycleError
			if !errors.As(err, &cycleErr) {
				t.Fatalf("*CycleError を期待しました: %T %v", err, err)
			}
			if !errors.Is(err, ErrStructural) {
				t.Error("循環エラーは ErrStructural に一致するべきです")
			}
			member := false
			for _, s := range in {
				if s.ID == cycleErr.SectionID && len(s.Reference) > 0 {
					member = true
				}
			}
			if !member {
				t.Errorf("循環に含まれないセクション %q が報告されました", cycleErr.SectionID)
			}
			if len(cycleErr.Path) < 2 || cycleErr.Path[0] != cycleErr.Path[len(cycleErr.Path)-1] {
				t.Errorf("Path = %v", cycleErr.Path)
			}
		})
	}
}

func TestBuildOrder_StructuralErrors(t *testing.T) {
	t.Run("ID の重複", func(t *testing.T) {
		_, err := BuildOrder([]domain.Section{section("a"), section("b"), section("a")})
		var se *StructuralError
		if !errors.As(err, &se) || se.SectionID != "a" {
			t.Fatalf("重複IDの StructuralError を期待しました: %v", err)
		}
		if !errors.Is(err, ErrStructural) {
			t.Error("ErrStructural に一致するべきです")
		}
	})

	t.Run("空の ID", func(t *testing.T) {
		_, err := BuildOrder([]domain.Section{section("a"), {Image: "x.png"}})
		if !errors.Is(err, ErrStructural) {
			t.Fatalf("ErrStructural を期待しました: %v", err)
		}
	})
}

// ランダムな DAG で、並び順が置換になっていて推移的な参照先が必ず前にあることを確認します。
func TestBuildOrder_RandomDAG(t *testing.T) {
	rng := rand.New(rand.NewPCG(7, 42))
	for round := 0; round < 50; round++ {
		n := 1 + rng.IntN(20)
		sections := make([]domain.Section, n)
		for i := range n {
			sections[i] = section(fmt.Sprintf("s%d", i))
			for j := 0; j < i; j++ {
				if rng.IntN(4) == 0 {
					sections[i].Reference = append(sections[i].Reference, fmt.Sprintf("s%d", j))
				}
			}
		}
		rng.Shuffle(n, func(i, j int) { sections[i], sections[j] = sections[j], sections[i] })

		order, err := BuildOrder(sections)
		if err != nil {
			t.Fatalf("round %d: unexpected error: %v", round, err)
		}
		if len(order) != n {
			t.Fatalf("round %d: len = %d, want %d", round, len(order), n)
		}
		pos := make(map[string]int, n)
		for i, s := range order {
			if _, dup := pos[s.ID]; dup {
				t.Fatalf("round %d: %s が重複しています", round, s.ID)
			}
			pos[s.ID] = i
		}
		for _, s := range order {
			for _, ref := range s.Reference {
				if pos[ref] >= pos[s.ID] {
					t.Errorf("round %d: %s が参照先 %s より前にあります", round, s.ID, ref)
				}
			}
		}
	}
}

func TestDanglingReferences(t *testing.T) {
	got := DanglingReferences([]domain.Section{
		section("x", "missing-id", "y"),
		section("y"),
		section("z", "gone"),
	})
	if len(got) != 2 {
		t.Fatalf("got %v", got)
	}
	if !slices.Equal(got["x"], []string{"missing-id"}) || !slices.Equal(got["z"], []string{"gone"}) {
		t.Errorf("got %v", got)
	}
}

func TestValidate_SharedImageFile(t *testing.T) {
	cases := map[string][2]string{
		"同じファイル名":  {"fox.png", "fox.png"},
		"ディレクトリ違い": {"chars/fox.png", "other/fox.png"},
		"大文字小文字違い": {"Fox.png", "fox.PNG"},
	}
	for name, images := range cases {
		t.Run(name, func(t *testing.T) {
			a := section("fox")
			a.Image = images[0]
			b := section("owl")
			b.Image = images[1]
			err := Validate([]domain.Section{a, b, section("scene", "owl")})
			var se *StructuralError
			if !errors.As(err, &se) || se.SectionID != "owl" || !errors.Is(err, ErrStructural) {
				t.Fatalf("StructuralError を期待しました: %v", err)
			}
		})
	}

	t.Run("画像の無いセクションは対象外", func(t *testing.T) {
		a := domain.Section{ID: "intro"}
		b := domain.Section{ID: "outro"}
		if err := Validate([]domain.Section{a, b}); err != nil {
			t.Errorf("unexpected error: %v", err)
		}
	})
}

func TestImagelessReferences(t *testing.T) {
	got := ImagelessReferences([]domain.Section{
		{ID: "intro"},
		section("scene", "intro", "hero"),
		section("hero"),
		section("ending", "ghost"),
	})
	if len(got) != 1 || !slices.Equal(got["scene"], []string{"intro"}) {
		t.Errorf("got %v", got)
	}
}
