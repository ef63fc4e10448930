package cli

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/aretw0/augeas"
	"github.com/aretw0/augeas/pkg/profile"
)

// Options collects the session flags shared by every augctl command.
type Options struct {
	Root       string
	LoadPath   []string
	Profile    string
	Engine     string
	SaveMode   string
	NoLoad     bool
	NoAutoload bool
	TypeCheck  bool
	EnableSpan bool
	// Transforms are extra lens bindings in LENS=GLOB[,GLOB...] form.
	Transforms []string
}

// ParseTransform parses LENS=GLOB[,GLOB...]. A GLOB starting with "!" is
// an exclude pattern.
func ParseTransform(spec string) (augeas.Transform, error) {
	lens, globs, ok := strings.Cut(spec, "=")
	if !ok || lens == "" || globs == "" {
		return augeas.Transform{}, fmt.Errorf("invalid transform %q, want LENS=GLOB[,GLOB...]", spec)
	}
	t := augeas.Transform{Lens: lens}
	for _, g := range strings.Split(globs, ",") {
		switch {
		case g == "":
		case strings.HasPrefix(g, "!"):
			t.Excl = append(t.Excl, g[1:])
		default:
			t.Incl = append(t.Incl, g)
		}
	}
	if err := t.Validate(); err != nil {
		return augeas.Transform{}, err
	}
	return t, nil
}

// sessionOptions turns the flags that were set into session options.
// Unset flags add nothing so a profile keeps its own values.
func (o Options) sessionOptions(logger *slog.Logger, hooks augeas.Hooks) []augeas.Option {
	opts := []augeas.Option{augeas.WithLogger(logger), augeas.WithHooks(hooks)}
	if o.Root != "" {
		opts = append(opts, augeas.WithRoot(o.Root))
	}
	if len(o.LoadPath) > 0 {
		opts = append(opts, augeas.WithLoadPath(o.LoadPath...))
	}
	if o.Engine != "" {
		opts = append(opts, augeas.WithEngineName(o.Engine))
	}
	if o.SaveMode != "" {
		opts = append(opts, augeas.WithSaveModeName(o.SaveMode))
	}
	if o.NoLoad {
		opts = append(opts, augeas.WithNoLoad())
	}
	if o.NoAutoload {
		opts = append(opts, augeas.WithNoModuleAutoload())
	}
	if o.TypeCheck {
		opts = append(opts, augeas.WithTypeCheck())
	}
	if o.EnableSpan {
		opts = append(opts, augeas.WithEnableSpan())
	}
	return opts
}

// Open creates the session the flags describe: the profile if one is
// named, overridden by the other flags, plus the extra transforms.
func (o Options) Open(logger *slog.Logger, hooks augeas.Hooks) (*augeas.Session, error) {
	transforms := make([]augeas.Transform, 0, len(o.Transforms))
	for _, spec := range o.Transforms {
		t, err := ParseTransform(spec)
		if err != nil {
			return nil, err
		}
		transforms = append(transforms, t)
	}

	opts := o.sessionOptions(logger, hooks)
	var (
		s   *augeas.Session
		err error
	)
	if o.Profile != "" {
		p, perr := profile.Load(o.Profile)
		if perr != nil {
			return nil, perr
		}
		s, err = p.Open(opts...)
	} else {
		s, err = augeas.Create(opts...)
	}
	if err != nil {
		return nil, err
	}
	if len(transforms) == 0 {
		return s, nil
	}

	for _, t := range transforms {
		if err := s.Transform(t); err != nil {
			_ = s.Close()
			return nil, err
		}
	}
	if !s.Options().NoLoad {
		if err := s.Load(); err != nil {
			_ = s.Close()
			return nil, err
		}
	}
	return s, nil
}
