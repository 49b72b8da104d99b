package categorize

import (
	"cmp"
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/google/uuid"
	"github.com/phrazzld/bookmark-enricher/internal/domain"
)

// EmptyTreeText is rendered in place of an empty forest.
const EmptyTreeText = "(No categories exist yet - you should suggest a new category path)"

var (
	// ErrUnknownCategory is returned when a category id is not in the forest.
	ErrUnknownCategory = errors.New("unknown category")

	// ErrCategoryCycle is returned when following parent links revisits a node.
	ErrCategoryCycle = errors.New("category parent cycle")
)

// BuildTreeText renders the forest one node per line as
// "<two spaces per depth>- name (id: X)". Roots are nodes without a parent
// and siblings are listed by name. Nodes reachable only through a cycle are
// not rendered.
func BuildTreeText(nodes []domain.CategoryNode) string {
	if len(nodes) == 0 {
		return EmptyTreeText
	}

	children := make(map[uuid.UUID][]domain.CategoryNode, len(nodes))
	var roots []domain.CategoryNode
	for _, n := range nodes {
		if n.ParentID == nil {
			roots = append(roots, n)
			continue
		}
		children[*n.ParentID] = append(children[*n.ParentID], n)
	}

	byName := func(a, b domain.CategoryNode) int {
		if c := cmp.Compare(a.Name, b.Name); c != 0 {
			return c
		}
		return cmp.Compare(a.ID.String(), b.ID.String())
	}

	type frame struct {
		node  domain.CategoryNode
		depth int
	}

	// Explicit stack; push siblings in reverse so they pop in name order.
	slices.SortFunc(roots, byName)
	stack := make([]frame, 0, len(nodes))
	for i := len(roots) - 1; i >= 0; i-- {
		stack = append(stack, frame{roots[i], 0})
	}

	var sb strings.Builder
	visited := make(map[uuid.UUID]bool, len(nodes))
	for len(stack) > 0 {
		f := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if visited[f.node.ID] {
			continue
		}
		visited[f.node.ID] = true

		fmt.Fprintf(&sb, "%s- %s (id: %s)\n", strings.Repeat("  ", f.depth), f.node.Name, f.node.ID)

		kids := children[f.node.ID]
		slices.SortFunc(kids, byName)
		for i := len(kids) - 1; i >= 0; i-- {
			stack = append(stack, frame{kids[i], f.depth + 1})
		}
	}
	return sb.String()
}

// ResolvePath returns the names from the root down to the node with id.
// The walk is bounded by the number of nodes, so a parent cycle is
// reported instead of looping.
func ResolvePath(nodes []domain.CategoryNode, id uuid.UUID) ([]string, error) {
	byID := make(map[uuid.UUID]domain.CategoryNode, len(nodes))
	for _, n := range nodes {
		byID[n.ID] = n
	}

	current, ok := byID[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownCategory, id)
	}

	var path []string
	for steps := 0; ; steps++ {
		if steps >= len(byID) {
			return nil, fmt.Errorf("%w: starting at %s", ErrCategoryCycle, id)
		}
		path = append(path, current.Name)
		if current.ParentID == nil {
			break
		}
		parent, ok := byID[*current.ParentID]
		if !ok {
			return nil, fmt.Errorf("%w: parent %s of %s", ErrUnknownCategory, *current.ParentID, current.ID)
		}
		current = parent
	}

	slices.Reverse(path)
	return path, nil
}
