package augeas

import (
	"sort"
	"strings"
)

// Transform binds a lens to the files it processes.
type Transform struct {
	// Lens is the fully qualified lens name, for example "Hosts.lns".
	Lens string `yaml:"lens" mapstructure:"lens" json:"lens"`
	// Name identifies the transform under /augeas/load. It defaults to the
	// module part of Lens.
	Name string `yaml:"name,omitempty" mapstructure:"name" json:"name,omitempty"`
	// Incl are glob patterns of the files to transform.
	Incl []string `yaml:"incl" mapstructure:"incl" json:"incl"`
	// Excl are glob patterns removed from what Incl matches.
	Excl []string `yaml:"excl,omitempty" mapstructure:"excl" json:"excl,omitempty"`
}

// Validate checks that a lens and at least one include pattern are set.
func (t Transform) Validate() error {
	if t.Lens == "" {
		return badArgument("transform", "no lens specified")
	}
	if len(t.Incl) == 0 {
		return badArgument("transform", "no files to include")
	}
	return nil
}

// ResolvedName returns Name, or when it is empty the lens name up to its
// first "." with the first "@" removed.
func (t Transform) ResolvedName() string {
	if t.Name != "" {
		return t.Name
	}
	name, _, _ := strings.Cut(t.Lens, ".")
	return strings.Replace(name, "@", "", 1)
}

// Transform registers t under /augeas/load for the next Load. Transforms
// with the same name accumulate their include and exclude patterns.
// Nothing is written when t is invalid.
func (s *Session) Transform(t Transform) error {
	if err := t.Validate(); err != nil {
		return err
	}
	xfm := PathLoad + "/" + t.ResolvedName() + "/"
	if err := s.Set(xfm+"lens", t.Lens); err != nil {
		return err
	}
	if err := s.SetAll(xfm+"incl[last()+1]", t.Incl...); err != nil {
		return err
	}
	return s.SetAll(xfm+"excl[last()+1]", t.Excl...)
}

// ClearTransforms removes every transform, so a following Load leaves
// /files empty.
func (s *Session) ClearTransforms() error {
	_, err := s.Rm(PathLoad + "/*")
	return err
}

// Transforms reads back the transforms registered under /augeas/load,
// sorted by name.
func (s *Session) Transforms() ([]Transform, error) {
	names, err := s.Match(PathLoad + "/*")
	if err != nil {
		return nil, err
	}
	out := make([]Transform, 0, len(names))
	for _, p := range names {
		t := Transform{Name: p[strings.LastIndex(p, "/")+1:]}
		if t.Lens, _, err = s.Get(p + "/lens"); err != nil {
			return nil, err
		}
		if t.Incl, err = s.values(p + "/incl"); err != nil {
			return nil, err
		}
		if t.Excl, err = s.values(p + "/excl"); err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// values returns the values of all nodes matching path, skipping nodes
// without one.
func (s *Session) values(path string) ([]string, error) {
	paths, err := s.Match(path)
	if err != nil {
		return nil, err
	}
	var out []string
	for _, p := range paths {
		v, ok, err := s.Get(p)
		if err != nil {
			return nil, err
		}
		if ok {
			out = append(out, v)
		}
	}
	return out, nil
}

// FileError is a problem recorded in the tree for one file or transform
// during Load or Save.
type FileError struct {
	// Path is the node the error hangs off, such as
	// /augeas/files/etc/hosts.
	Path string `json:"path"`
	// Error is the short error tag, such as "parse_failed".
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

// FileErrors collects the errors recorded under /augeas by the last Load
// or Save.
func (s *Session) FileErrors() ([]FileError, error) {
	paths, err := s.Match(PathErrorsGlob)
	if err != nil {
		return nil, err
	}
	out := make([]FileError, 0, len(paths))
	for _, p := range paths {
		fe := FileError{Path: strings.TrimSuffix(p, "/error")}
		if fe.Error, _, err = s.Get(p); err != nil {
			return nil, err
		}
		if fe.Message, _, err = s.Get(p + "/message"); err != nil {
			return nil, err
		}
		out = append(out, fe)
	}
	return out, nil
}
