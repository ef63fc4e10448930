package augeas

import (
	"fmt"
	"log/slog"
	"os"
	"reflect"
	"sort"
	"strings"

	"github.com/aretw0/augeas/pkg/ports"
	"github.com/mitchellh/mapstructure"
)

// EnvEngine selects the engine when neither WithEngine nor Options.Engine do.
const EnvEngine = "AUGEAS_ENGINE"

// DefaultEngine is the engine opened when nothing else selects one.
const DefaultEngine = "memory"

// SaveMode selects what Save does on disk.
type SaveMode int

const (
	// SaveDefault overwrites the original file.
	SaveDefault SaveMode = iota
	// SaveBackup keeps the original file with an .augsave suffix.
	SaveBackup
	// SaveNewFile writes changes to a sibling .augnew file and leaves the original alone.
	SaveNewFile
	// SaveNoop writes nothing and only records what would have changed.
	SaveNoop
)

// String returns the value the engine shows under /augeas/save.
func (m SaveMode) String() string {
	switch m {
	case SaveBackup:
		return "backup"
	case SaveNewFile:
		return "newfile"
	case SaveNoop:
		return "noop"
	default:
		return "overwrite"
	}
}

// ParseSaveMode parses one of backup, newfile or noop. The empty string and
// "overwrite" are SaveDefault.
func ParseSaveMode(s string) (SaveMode, error) {
	switch strings.ToLower(strings.TrimPrefix(strings.TrimSpace(s), ":")) {
	case "", "overwrite", "default":
		return SaveDefault, nil
	case "backup":
		return SaveBackup, nil
	case "newfile":
		return SaveNewFile, nil
	case "noop":
		return SaveNoop, nil
	}
	return SaveDefault, badArgument("create", "invalid save mode %q", s)
}

// saveModeName accepts only the exact names String returns. Options maps
// come from files, where a typo should not silently mean overwrite.
func saveModeName(s string) (SaveMode, error) {
	for _, m := range []SaveMode{SaveDefault, SaveBackup, SaveNewFile, SaveNoop} {
		if s == m.String() {
			return m, nil
		}
	}
	return SaveDefault, badArgument("create", "invalid save mode %q, want overwrite, backup, newfile or noop", s)
}

func (m SaveMode) flags() ports.Flags {
	switch m {
	case SaveBackup:
		return ports.FlagSaveBackup
	case SaveNewFile:
		return ports.FlagSaveNewFile
	case SaveNoop:
		return ports.FlagSaveNoop
	default:
		return ports.FlagNone
	}
}

// Options are the recognised session creation options. The zero value opens
// the default engine on the environment's root with every flag off.
type Options struct {
	// Root is the filesystem root of the tree. Empty means $AUGEAS_ROOT, or "/".
	Root string `mapstructure:"root" yaml:"root"`
	// LoadPath lists extra directories searched for lens modules.
	LoadPath []string `mapstructure:"loadpath" yaml:"loadpath"`

	TypeCheck        bool `mapstructure:"type_check" yaml:"type_check"`
	NoStdInc         bool `mapstructure:"no_stdinc" yaml:"no_stdinc"`
	NoLoad           bool `mapstructure:"no_load" yaml:"no_load"`
	NoModuleAutoload bool `mapstructure:"no_modl_autoload" yaml:"no_modl_autoload"`
	EnableSpan       bool `mapstructure:"enable_span" yaml:"enable_span"`

	SaveMode SaveMode `mapstructure:"save_mode" yaml:"save_mode"`

	// Engine names a registered engine. Empty means $AUGEAS_ENGINE, or "memory".
	Engine string `mapstructure:"engine" yaml:"engine"`
}

// Flags composes the flags word passed to the engine at open time.
// FlagNoErrClose is always set so errors raised while opening can be read
// back from the half-open handle.
func (o Options) Flags() ports.Flags {
	f := ports.FlagNoErrClose | o.SaveMode.flags()
	if o.TypeCheck {
		f |= ports.FlagTypeCheck
	}
	if o.NoStdInc {
		f |= ports.FlagNoStdInc
	}
	if o.NoLoad {
		f |= ports.FlagNoLoad
	}
	if o.NoModuleAutoload {
		f |= ports.FlagNoModlAutoload
	}
	if o.EnableSpan {
		f |= ports.FlagEnableSpan
	}
	return f
}

func (o Options) engineName() string {
	if o.Engine != "" {
		return o.Engine
	}
	if name := os.Getenv(EnvEngine); name != "" {
		return name
	}
	return DefaultEngine
}

// OptionsFromMap decodes an options map such as the one read from a
// profile. Unknown keys and invalid save modes fail before any engine is
// touched. save_mode must be spelled exactly as SaveMode.String has it.
// loadpath may be a list or a colon separated string.
func OptionsFromMap(m map[string]any) (Options, error) {
	var (
		opts Options
		md   mapstructure.Metadata
	)

	rest := make(map[string]any, len(m))
	for k, v := range m {
		rest[k] = v
	}
	mode, hasMode := rest["save_mode"]
	delete(rest, "save_mode")

	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Metadata:         &md,
		WeaklyTypedInput: true,
		Result:           &opts,
		DecodeHook:       loadPathHook,
	})
	if err != nil {
		return Options{}, err
	}
	if err := dec.Decode(rest); err != nil {
		return Options{}, &Error{Kind: KindBadArgument, Op: "create", Message: err.Error(), Err: err}
	}
	if len(md.Unused) > 0 {
		sort.Strings(md.Unused)
		return Options{}, badArgument("create", "unknown option %s", strings.Join(md.Unused, ", "))
	}

	if hasMode {
		switch v := mode.(type) {
		case SaveMode:
			opts.SaveMode = v
		case string:
			if opts.SaveMode, err = saveModeName(v); err != nil {
				return Options{}, err
			}
		default:
			return Options{}, badArgument("create", "invalid save mode %v", mode)
		}
	}
	return opts, nil
}

func loadPathHook(from, to reflect.Type, data any) (any, error) {
	if from.Kind() != reflect.String || to != reflect.TypeOf([]string(nil)) {
		return data, nil
	}
	s := data.(string)
	if s == "" {
		return []string{}, nil
	}
	return strings.Split(s, ":"), nil
}

// Option configures a Session at creation.
type Option func(*config)

// config is what Create assembles from Options before opening the engine.
type config struct {
	opts   Options
	open   ports.OpenFunc
	logger *slog.Logger
	hooks  Hooks
	err    error
}

// WithOptions replaces all recognised options at once.
func WithOptions(o Options) Option {
	return func(c *config) {
		c.opts = o
	}
}

// WithRoot sets the filesystem root of the tree.
func WithRoot(root string) Option {
	return func(c *config) {
		c.opts.Root = root
	}
}

// WithLoadPath sets the extra lens module search directories.
func WithLoadPath(dirs ...string) Option {
	return func(c *config) {
		c.opts.LoadPath = append([]string(nil), dirs...)
	}
}

// WithTypeCheck makes the engine typecheck lenses. This is slow.
func WithTypeCheck() Option {
	return func(c *config) {
		c.opts.TypeCheck = true
	}
}

// WithNoStdInc leaves the built-in module directory out of the load path.
func WithNoStdInc() Option {
	return func(c *config) {
		c.opts.NoStdInc = true
	}
}

// WithNoLoad skips loading files when the session is created.
func WithNoLoad() Option {
	return func(c *config) {
		c.opts.NoLoad = true
	}
}

// WithNoModuleAutoload stops modules from registering their default transforms.
func WithNoModuleAutoload() Option {
	return func(c *config) {
		c.opts.NoModuleAutoload = true
	}
}

// WithEnableSpan records node positions in their files during load.
func WithEnableSpan() Option {
	return func(c *config) {
		c.opts.EnableSpan = true
	}
}

// WithSaveMode sets the save mode.
func WithSaveMode(mode SaveMode) Option {
	return func(c *config) {
		c.opts.SaveMode = mode
	}
}

// WithSaveModeName sets the save mode from its name; an unknown name makes
// Create fail with KindBadArgument.
func WithSaveModeName(name string) Option {
	return func(c *config) {
		mode, err := ParseSaveMode(name)
		if err != nil {
			c.err = err
			return
		}
		c.opts.SaveMode = mode
	}
}

// WithEngineName selects a registered engine by name.
func WithEngineName(name string) Option {
	return func(c *config) {
		c.opts.Engine = name
	}
}

// WithEngine opens the session with open instead of a registered engine.
func WithEngine(open ports.OpenFunc) Option {
	return func(c *config) {
		c.open = open
	}
}

// WithLogger sets a structured logger for the session.
func WithLogger(logger *slog.Logger) Option {
	return func(c *config) {
		c.logger = logger
	}
}

// WithHooks registers observability hooks.
func WithHooks(hooks Hooks) Option {
	return func(c *config) {
		c.hooks = hooks
	}
}

func newConfig(opts []Option) (*config, error) {
	c := &config{}
	for _, opt := range opts {
		opt(c)
	}
	if c.err != nil {
		return nil, c.err
	}
	switch c.opts.SaveMode {
	case SaveDefault, SaveBackup, SaveNewFile, SaveNoop:
	default:
		return nil, badArgument("create", "invalid save mode %d", int(c.opts.SaveMode))
	}
	return c, nil
}

func (c *config) String() string {
	return fmt.Sprintf("root=%q loadpath=%v flags=%#x engine=%s",
		c.opts.Root, c.opts.LoadPath, uint(c.opts.Flags()), c.opts.engineName())
}
