package variable

import (
	"fmt"
	"testing"

	"github.com/akashmane1598/hyperdash/model"
)

func BenchmarkParser_Parse(b *testing.B) {
	inputs := []string{
		"plain text without references",
		"Hello ${user.name}!",
		`${a}${b}\${c} ${d.e[0].f} tail`,
	}

	for _, in := range inputs {
		b.Run(fmt.Sprintf("cold/len=%d", len(in)), func(b *testing.B) {
			for b.Loop() {
				p := NewParser(in)
				_ = p.parseByRule(0, p.root, NodeRoot)
			}
		})

		b.Run(fmt.Sprintf("cached/len=%d", len(in)), func(b *testing.B) {
			for b.Loop() {
				_ = NewParser(in).Parse()
			}
		})
	}
}

func BenchmarkEvaluator_Evaluate(b *testing.B) {
	dict := ResolveDictionary{
		"user": map[string]any{"name": "World", "tags": []any{"x", "y"}},
		"n":    42,
	}

	e := NewEvaluator("Hello ${user.name} (${n}) ${user.tags}")

	for b.Loop() {
		_ = e.Evaluate(dict)
	}
}

func BenchmarkManager_Set(b *testing.B) {
	for _, refs := range []int{1, 10, 100} {
		b.Run(fmt.Sprintf("refs=%d", refs), func(b *testing.B) {
			tree := model.NewTree(nil)
			root, _ := tree.Create("root", 0)
			child, _ := tree.Create("child", root)

			mgr := NewManager(tree, nil, nil)
			_ = mgr.Set("x", 0, root)

			props := model.NewProperties(child)
			for i := range refs {
				_, _ = mgr.RegisterReference(
					props.Location(fmt.Sprintf("p%d", i)), "value ${x}")
			}

			n := 0

			for b.Loop() {
				n++
				_ = mgr.Set("x", n, root)
			}
		})
	}
}
