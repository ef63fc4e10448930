package cli

import (
	"github.com/aretw0/augeas"
	"github.com/aretw0/augeas/internal/presentation/graph"
)

// Collect returns every node matching path together with its
// descendants, in tree order.
func Collect(s *augeas.Session, path string) ([]graph.Node, error) {
	tops, err := s.Match(path)
	if err != nil {
		return nil, err
	}
	var nodes []graph.Node
	seen := make(map[string]bool)
	add := func(p string) error {
		if seen[p] {
			return nil
		}
		seen[p] = true
		v, ok, err := s.Get(p)
		if err != nil {
			return err
		}
		n := graph.Node{Path: p}
		if ok {
			n.Value = &v
		}
		nodes = append(nodes, n)
		return nil
	}
	for _, top := range tops {
		if err := add(top); err != nil {
			return nil, err
		}
		below, err := s.Match(descendants(top))
		if err != nil {
			return nil, err
		}
		for _, p := range below {
			if err := add(p); err != nil {
				return nil, err
			}
		}
	}
	return nodes, nil
}

func descendants(p string) string {
	if p == "/" {
		return "//*"
	}
	return p + "//*"
}
