package category

import (
	"fmt"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// PathSeparator joins path segments into a full category path.
const PathSeparator = " > "

const (
	generalFeeKey = "general_seller_fee"
	mallFeeKey    = "mall_seller_fee"
)

// Entry is one node of the flattened category tree.
type Entry struct {
	ParentPath string
	Name       string
	FullPath   string
	Position   int
	// Seq is the node's index in document order across the whole tree.
	Seq        int
	Leaf       bool
	GeneralFee string
	MallFee    string
}

// Path returns the segments of the entry's full path.
func (e Entry) Path() []string {
	return SplitPath(e.FullPath)
}

// Fee returns the fee string for the given seller type.
func (e Entry) Fee(mall bool) string {
	if mall {
		return e.MallFee
	}
	return e.GeneralFee
}

// JoinPath builds a full path from its segments.
func JoinPath(segments []string) string {
	return strings.Join(segments, PathSeparator)
}

// SplitPath is the inverse of JoinPath; the empty path has no segments.
func SplitPath(fullPath string) []string {
	if fullPath == "" {
		return nil
	}
	return strings.Split(fullPath, PathSeparator)
}

// ParseTree flattens a nested category document into entries in document
// order, parents before their children. The document is JSON (or YAML); the
// top level may be an object or an array of objects. An object carrying a
// general or mall seller fee is a leaf.
func ParseTree(data []byte) ([]Entry, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse category document: %w", err)
	}
	if doc.Kind == 0 || len(doc.Content) == 0 {
		return nil, nil
	}

	f := flattener{positions: map[string]int{}, seen: map[string]int{}}
	if err := f.walk(doc.Content[0], nil); err != nil {
		return nil, err
	}
	return f.entries, nil
}

type flattener struct {
	entries   []Entry
	positions map[string]int
	seen      map[string]int
}

func (f *flattener) walk(node *yaml.Node, path []string) error {
	switch node.Kind {
	case yaml.SequenceNode:
		for _, item := range node.Content {
			if err := f.walk(item, path); err != nil {
				return err
			}
		}
	case yaml.MappingNode:
		for i := 0; i+1 < len(node.Content); i += 2 {
			key, value := node.Content[i], node.Content[i+1]
			if value.Kind != yaml.MappingNode {
				continue
			}
			name := strings.TrimSpace(key.Value)
			if name == "" {
				return fmt.Errorf("category at line %d has an empty name", key.Line)
			}
			childPath := append(append([]string(nil), path...), name)
			f.add(childPath, value)
			if !isLeaf(value) {
				if err := f.walk(value, childPath); err != nil {
					return err
				}
			}
		}
	}
	return nil
}

// add records a node; a repeated path overwrites the earlier entry in place.
func (f *flattener) add(path []string, value *yaml.Node) {
	parent := JoinPath(path[:len(path)-1])
	entry := Entry{
		ParentPath: parent,
		Name:       path[len(path)-1],
		FullPath:   JoinPath(path),
		Leaf:       isLeaf(value),
	}
	if entry.Leaf {
		entry.GeneralFee = scalar(value, generalFeeKey)
		entry.MallFee = scalar(value, mallFeeKey)
	}

	if idx, ok := f.seen[entry.FullPath]; ok {
		entry.Position = f.entries[idx].Position
		entry.Seq = f.entries[idx].Seq
		f.entries[idx] = entry
		return
	}
	entry.Position = f.positions[parent]
	entry.Seq = len(f.entries)
	f.positions[parent]++
	f.seen[entry.FullPath] = len(f.entries)
	f.entries = append(f.entries, entry)
}

func isLeaf(node *yaml.Node) bool {
	return scalar(node, generalFeeKey) != "" || scalar(node, mallFeeKey) != ""
}

func scalar(node *yaml.Node, key string) string {
	for i := 0; i+1 < len(node.Content); i += 2 {
		if node.Content[i].Value == key && node.Content[i+1].Kind == yaml.ScalarNode {
			return strings.TrimSpace(node.Content[i+1].Value)
		}
	}
	return ""
}

// ParseFeePercent converts a fee string such as "6%" or "5.5" into a percent value.
func ParseFeePercent(fee string) (float64, error) {
	raw := strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(fee), "%"))
	if raw == "" {
		return 0, fmt.Errorf("empty fee")
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, fmt.Errorf("parse fee %q: %w", fee, err)
	}
	if v < 0 {
		return 0, fmt.Errorf("fee %q is negative", fee)
	}
	return v, nil
}
