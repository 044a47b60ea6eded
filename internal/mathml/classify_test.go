package mathml

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func classify(t *testing.T, name string, n *Node) string {
	t.Helper()
	c, ok := LookupClassifier(name)
	require.True(t, ok, name)
	return c(n)
}

func TestBarRole(t *testing.T) {
	root := mustParse(t, `<math><mn>2</mn><mo>|</mo><mn>6</mn></math>`)
	assert.Equal(t, "divides", classify(t, "bar-role", root.Children[1]))
	assert.Equal(t, "none", classify(t, "bar-role", root.Children[0]))

	root = mustParse(t, `<math><mi>P</mi><mo>(</mo><mi>A</mi><mo>|</mo><mi>B</mi><mo>)</mo></math>`)
	group := root.Children[2]
	require.True(t, isParenGroup(group))
	assert.Equal(t, "given", classify(t, "bar-role", group.Children[1].Children[1]))
}

func TestParens(t *testing.T) {
	tests := []struct {
		name   string
		markup string
		find   func(root *Node) *Node
		want   string
	}{
		{
			name:   "identifier",
			markup: `<math><mn>2</mn><mo>(</mo><mi>x</mi><mo>)</mo></math>`,
			find:   func(r *Node) *Node { return r.Children[2] },
			want:   "silent",
		},
		{
			name:   "sum",
			markup: `<math><mn>2</mn><mo>(</mo><mi>x</mi><mo>+</mo><mn>1</mn><mo>)</mo></math>`,
			find:   func(r *Node) *Node { return r.Children[2] },
			want:   "spoken",
		},
		{
			name:   "negative number",
			markup: `<math><mn>3</mn><mo>+</mo><mo>(</mo><mo>-</mo><mn>2</mn><mo>)</mo></math>`,
			find:   func(r *Node) *Node { return r.Children[2] },
			want:   "silent",
		},
		{
			name:   "negative number as script base",
			markup: `<math><msup><mrow><mo>(</mo><mo>-</mo><mn>2</mn><mo>)</mo></mrow><mn>2</mn></msup></math>`,
			find:   func(r *Node) *Node { return r.Children[0].Children[0] },
			want:   "spoken",
		},
		{
			name:   "identifier as script base",
			markup: `<math><msup><mrow><mo>(</mo><mi>x</mi><mo>)</mo></mrow><mn>2</mn></msup></math>`,
			find:   func(r *Node) *Node { return r.Children[0].Children[0] },
			want:   "silent",
		},
		{
			name:   "not a group",
			markup: `<math><mi>x</mi></math>`,
			find:   func(r *Node) *Node { return r.Children[0] },
			want:   "none",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			root := mustParse(t, tt.markup)
			assert.Equal(t, tt.want, classify(t, "parens", tt.find(root)))
		})
	}
}

func TestStructuralClassifiers(t *testing.T) {
	root := mustParse(t, `<math><mrow><mo>{</mo><mi>x</mi><mo>|</mo><mi>x</mi><mo>&gt;</mo><mn>0</mn><mo>}</mo></mrow></math>`)
	assert.Equal(t, "true", classify(t, "set-builder", root.Children[0]))
	assert.Equal(t, "false", classify(t, "abs-value", root.Children[0]))

	root = mustParse(t, `<math><mrow><mo>|</mo><mi>x</mi><mo>|</mo></mrow></math>`)
	assert.Equal(t, "true", classify(t, "abs-value", root.Children[0]))
	assert.Equal(t, "false", classify(t, "set-builder", root.Children[0]))

	root = mustParse(t, `<math><mn>2</mn><mo>(</mo><mi>x</mi><mo>)</mo></math>`)
	assert.Equal(t, "true", classify(t, "adjacent-parens", root.Children[1]))
	assert.Equal(t, "false", classify(t, "adjacent-parens", root.Children[0]))
}

func TestLeafClassifiers(t *testing.T) {
	root := mustParse(t, `<math><mi>sin</mi><mi>A</mi><mo>+</mo><mn>12</mn><mo>+</mo><mn>1.5</mn><mo>+</mo><mi>…</mi></math>`)
	sin := root.Children[0]
	a := root.Children[2]

	assert.Equal(t, "true", classify(t, "function-name", sin))
	assert.Equal(t, "false", classify(t, "function-name", a))
	assert.Equal(t, "upper", classify(t, "letter-case", a))
	assert.Equal(t, "other", classify(t, "letter-case", sin))

	twelve := root.Children[4]
	require.Equal(t, "12", twelve.Text)
	assert.Equal(t, "true", classify(t, "integer", twelve))
	assert.Equal(t, "false", classify(t, "integer", root.Children[6]))
	assert.Equal(t, "true", classify(t, "leaf", twelve))
	assert.Equal(t, "false", classify(t, "leaf", root))

	dots := root.Children[8]
	assert.Equal(t, "true", classify(t, "ellipsis", dots))
	assert.Equal(t, "last", classify(t, "position", dots))
	assert.Equal(t, "first", classify(t, "position", sin))
	assert.Equal(t, "interior", classify(t, "position", twelve))
	assert.Equal(t, "root", classify(t, "position", root))
}

func TestClassifierRegistry(t *testing.T) {
	_, ok := LookupClassifier("no-such-classifier")
	assert.False(t, ok)

	names := ClassifierNames()
	assert.IsIncreasing(t, names)
	assert.Contains(t, names, "bar-role")
	assert.Contains(t, names, "parens")
}
