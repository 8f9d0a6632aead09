package loader

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/gobwas/glob"
	"github.com/spf13/afero"

	"github.com/Iron-Ham/postoffice/internal/errors"
	"github.com/Iron-Ham/postoffice/internal/event"
	"github.com/Iron-Ham/postoffice/internal/logging"
)

// identRegex matches valid symbol names.
var identRegex = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// Loader resolves module files and executes their definitions against a
// capability registry.
type Loader struct {
	fs       afero.Fs
	registry *Registry
	allow    []glob.Glob
	logger   *logging.Logger
	bus      *event.Bus

	watchDebounce time.Duration
}

type options struct {
	fs            afero.Fs
	registry      *Registry
	patterns      []string
	logger        *logging.Logger
	bus           *event.Bus
	watchDebounce time.Duration
}

// Option configures a Loader.
type Option func(*options)

// WithFs sets the filesystem modules are read from. Defaults to the OS
// filesystem.
func WithFs(fs afero.Fs) Option {
	return func(o *options) { o.fs = fs }
}

// WithRegistry sets the capability registry. Defaults to DefaultRegistry().
func WithRegistry(r *Registry) Option {
	return func(o *options) { o.registry = r }
}

// WithAllowPatterns restricts loading to absolute paths matching at least
// one glob pattern. "*" does not cross directory separators; "**" does.
func WithAllowPatterns(patterns ...string) Option {
	return func(o *options) { o.patterns = append(o.patterns, patterns...) }
}

// WithLogger sets the logger.
func WithLogger(l *logging.Logger) Option {
	return func(o *options) { o.logger = l }
}

// WithBus publishes a ModuleLoadedEvent after every successful load.
func WithBus(bus *event.Bus) Option {
	return func(o *options) { o.bus = bus }
}

// WithWatchDebounce sets how long Watch waits after the last file event
// before reloading. Non-positive values keep the default.
func WithWatchDebounce(d time.Duration) Option {
	return func(o *options) {
		if d > 0 {
			o.watchDebounce = d
		}
	}
}

// New creates a Loader. It fails only if an allow pattern does not compile.
func New(opts ...Option) (*Loader, error) {
	o := options{}
	for _, opt := range opts {
		opt(&o)
	}
	if o.fs == nil {
		o.fs = afero.NewOsFs()
	}
	if o.registry == nil {
		o.registry = DefaultRegistry()
	}
	if o.logger == nil {
		o.logger = logging.NopLogger()
	}
	if o.watchDebounce == 0 {
		o.watchDebounce = defaultWatchDebounce
	}

	l := &Loader{
		fs:       o.fs,
		registry: o.registry,
		logger:   o.logger.WithComponent("loader"),
		bus:      o.bus,

		watchDebounce: o.watchDebounce,
	}
	for _, p := range o.patterns {
		g, err := glob.Compile(p, filepath.Separator)
		if err != nil {
			return nil, errors.NewValidationError("invalid allow pattern").
				WithField("loader.allow").WithValue(p).WithCause(err)
		}
		l.allow = append(l.allow, g)
	}
	return l, nil
}

// Load reads the module at path using the default registry and the OS
// filesystem.
func Load(path string) (*Module, error) {
	l, err := New()
	if err != nil {
		return nil, err
	}
	return l.Load(path)
}

// Load resolves path, decodes the unit, executes its definitions into a
// fresh namespace and runs its init statements. Any failure returns a
// *errors.LoadError and no module.
func (l *Loader) Load(path string) (*Module, error) {
	resolved, err := l.resolve(path)
	if err != nil {
		l.logger.Debug("module resolution failed", "path", path, "error", err.Error())
		return nil, err
	}

	log := l.logger.With("path", resolved)

	src, err := l.read(resolved)
	if err != nil {
		log.Debug("module decode failed", "error", err.Error())
		return nil, err
	}

	name := src.Name
	if name == "" {
		name = strings.TrimSuffix(filepath.Base(resolved), filepath.Ext(resolved))
	}

	mod := newModule(name, resolved)
	if err := l.execute(mod, src); err != nil {
		log.Debug("module execution failed", "error", err.Error())
		return nil, err
	}

	names := mod.Names()
	log.WithModule(name).Debug("module loaded", "symbols", len(names))
	if l.bus != nil {
		l.bus.Publish(event.NewModuleLoadedEvent(name, resolved, names))
	}
	return mod, nil
}

// resolve turns path into a clean absolute path to a loadable file.
func (l *Loader) resolve(path string) (string, error) {
	if strings.TrimSpace(path) == "" {
		return "", errors.NewLoadError("module path is empty", errors.ErrModuleNotFound)
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		return "", errors.NewLoadError("resolve module path",
			fmt.Errorf("%w: %w", errors.ErrModuleNotFound, err)).WithPath(path)
	}

	info, err := l.fs.Stat(abs)
	if err != nil {
		if os.IsNotExist(err) {
			return "", errors.NewLoadError("module file does not exist", errors.ErrModuleNotFound).WithPath(abs)
		}
		return "", errors.NewLoadError("stat module file",
			fmt.Errorf("%w: %w", errors.ErrModuleNotFound, err)).WithPath(abs)
	}
	if info.IsDir() {
		return "", errors.NewLoadError("module path is a directory", errors.ErrModuleInvalid).WithPath(abs)
	}

	if !l.allowed(abs) {
		return "", errors.NewLoadError("module path matches no allow pattern", errors.ErrModuleNotAllowed).WithPath(abs)
	}

	if _, ok := decoderFor(abs); !ok {
		return "", errors.NewLoadError(
			fmt.Sprintf("unsupported module extension %q", filepath.Ext(abs)),
			errors.ErrModuleInvalid).WithPath(abs)
	}
	return abs, nil
}

func (l *Loader) allowed(path string) bool {
	if len(l.allow) == 0 {
		return true
	}
	for _, g := range l.allow {
		if g.Match(path) {
			return true
		}
	}
	return false
}

func (l *Loader) read(path string) (*moduleSource, error) {
	data, err := afero.ReadFile(l.fs, path)
	if err != nil {
		return nil, errors.NewLoadError("read module file",
			fmt.Errorf("%w: %w", errors.ErrModuleNotFound, err)).WithPath(path)
	}

	dec, _ := decoderFor(path)
	src, err := dec(data)
	if err != nil {
		return nil, errors.NewLoadError("decode module",
			fmt.Errorf("%w: %w", errors.ErrModuleInvalid, err)).WithPath(path)
	}
	return src, nil
}

// execute binds every definition in order, then runs init statements.
// A name defined twice is rebound in place.
func (l *Loader) execute(mod *Module, src *moduleSource) error {
	for i, def := range src.Symbols {
		sym, err := l.define(mod, def)
		if err != nil {
			label := def.Name
			if label == "" {
				label = fmt.Sprintf("symbols[%d]", i)
			}
			return errors.NewLoadError(err.msg, err.cause).WithPath(mod.path).WithSymbol(label)
		}
		mod.ns.Set(sym.Name, sym)
	}

	for i, stmt := range src.Init {
		if _, err := mod.Call(stmt.Call, stmt.Args); err != nil {
			return errors.NewLoadError(fmt.Sprintf("init[%d] failed", i),
				fmt.Errorf("%w: %w", errors.ErrModuleExec, err)).WithPath(mod.path).WithSymbol(stmt.Call)
		}
	}
	return nil
}

// defineError carries the message and cause for a LoadError.
type defineError struct {
	msg   string
	cause error
}

func (l *Loader) define(mod *Module, def symbolSource) (Symbol, *defineError) {
	if !identRegex.MatchString(def.Name) {
		return Symbol{}, &defineError{fmt.Sprintf("invalid symbol name %q", def.Name), errors.ErrModuleInvalid}
	}
	if n := def.kinds(); n != 1 {
		return Symbol{}, &defineError{
			fmt.Sprintf("symbol must set exactly one of value, capability, ref (got %d)", n),
			errors.ErrModuleInvalid,
		}
	}
	if def.hasWith && def.Capability == "" {
		return Symbol{}, &defineError{"with is only valid on capability symbols", errors.ErrModuleInvalid}
	}

	switch {
	case def.Ref != "":
		target, err := mod.ns.Get(def.Ref)
		if err != nil {
			return Symbol{}, &defineError{
				fmt.Sprintf("reference to undefined name %q", def.Ref),
				fmt.Errorf("%w: %w", errors.ErrModuleExec, err),
			}
		}
		target.Name = def.Name
		return target, nil

	case def.Capability != "":
		impl, ok := l.registry.Get(def.Capability)
		if !ok {
			return Symbol{}, &defineError{
				"bind capability",
				fmt.Errorf("%w: %w", errors.ErrModuleExec,
					errors.NewNotFoundError("capability", def.Capability).WithCause(errors.ErrUnknownCapability)),
			}
		}
		return Symbol{
			Name:       def.Name,
			Kind:       KindFunc,
			Capability: def.Capability,
			Defaults:   def.With,
			impl:       impl,
		}, nil

	default:
		return Symbol{Name: def.Name, Kind: KindValue, Value: def.Value}, nil
	}
}
