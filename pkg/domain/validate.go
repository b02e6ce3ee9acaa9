package domain

import "fmt"

// ValidateBatch checks that every node in the batch, and every nested child, has a
// non-empty id that is unique among its siblings.
func ValidateBatch(batch []Node) error {
	seen := make(map[string]struct{}, len(batch))
	for i, n := range batch {
		if n.ID == "" {
			return fmt.Errorf("position %d: %w", i, ErrInvalidID)
		}
		if _, dup := seen[n.ID]; dup {
			return fmt.Errorf("%q: %w", n.ID, ErrDuplicateID)
		}
		seen[n.ID] = struct{}{}
		if err := ValidateBatch(n.Fields); err != nil {
			return fmt.Errorf("%s: %w", n.ID, err)
		}
	}
	return nil
}

// ValidateTree checks a whole tree: the root must carry RootID, ids must be unique among
// siblings and, as a stricter layout rule, globally.
func ValidateTree(root Node) error {
	if root.ID != RootID {
		return fmt.Errorf("root id is %q, want %q: %w", root.ID, RootID, ErrInvalidID)
	}
	if err := ValidateBatch(root.Fields); err != nil {
		return err
	}
	seen := make(map[string]struct{})
	var walk func(Node) error
	walk = func(n Node) error {
		for _, child := range n.Fields {
			if _, dup := seen[child.ID]; dup {
				return fmt.Errorf("%q appears more than once: %w", child.ID, ErrDuplicateID)
			}
			seen[child.ID] = struct{}{}
			if err := walk(child); err != nil {
				return err
			}
		}
		return nil
	}
	return walk(root)
}
