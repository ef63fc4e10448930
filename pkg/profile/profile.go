// Package profile reads session profiles from YAML.
//
// A profile names the options, extra transforms and path variables of a
// session:
//
//	options:
//	  root: /srv/chroot
//	  save_mode: backup
//	transforms:
//	  - lens: Simplevars.lns
//	    incl: [/etc/app/*.conf]
//	variables:
//	  hosts: /files/etc/hosts/*
package profile

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"slices"

	"github.com/aretw0/augeas"
	"gopkg.in/yaml.v3"
)

// Profile is the decoded form of a profile document.
type Profile struct {
	Options    map[string]any     `yaml:"options"`
	Transforms []augeas.Transform `yaml:"transforms"`
	Variables  map[string]string  `yaml:"variables"`
}

// Load reads and parses the profile at path.
func Load(path string) (*Profile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read profile: %w", err)
	}
	p, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return p, nil
}

// Parse decodes a profile. Unknown keys, invalid options and invalid
// transforms are errors.
func Parse(data []byte) (*Profile, error) {
	var p Profile
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&p); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("parse profile: %w", err)
	}
	if _, err := augeas.OptionsFromMap(p.Options); err != nil {
		return nil, err
	}
	for i, t := range p.Transforms {
		if err := t.Validate(); err != nil {
			return nil, fmt.Errorf("transform %d: %w", i, err)
		}
	}
	return &p, nil
}

// SessionOptions returns the decoded options of the profile.
func (p *Profile) SessionOptions() (augeas.Options, error) {
	return augeas.OptionsFromMap(p.Options)
}

// Open creates a session from the profile. extra options are applied after
// the profile's own. Files are reloaded once the transforms are registered,
// then variables are defined in name order.
func (p *Profile) Open(extra ...augeas.Option) (*augeas.Session, error) {
	opts, err := p.SessionOptions()
	if err != nil {
		return nil, err
	}

	s, err := augeas.Create(append([]augeas.Option{augeas.WithOptions(opts)}, extra...)...)
	if err != nil {
		return nil, err
	}
	if err := p.apply(s); err != nil {
		_ = s.Close()
		return nil, err
	}
	return s, nil
}

func (p *Profile) apply(s *augeas.Session) error {
	for _, t := range p.Transforms {
		if err := s.Transform(t); err != nil {
			return err
		}
	}
	// The session loaded before the transforms existed.
	if len(p.Transforms) > 0 && !s.Options().NoLoad {
		if err := s.Load(); err != nil {
			return err
		}
	}
	names := make([]string, 0, len(p.Variables))
	for name := range p.Variables {
		names = append(names, name)
	}
	slices.Sort(names)
	for _, name := range names {
		if _, err := s.DefVar(name, p.Variables[name]); err != nil {
			return fmt.Errorf("variable %s: %w", name, err)
		}
	}
	return nil
}
