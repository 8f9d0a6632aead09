package loader

import (
	"bytes"
	"slices"
	"strings"
	"testing"

	"github.com/spf13/afero"

	"github.com/Iron-Ham/postoffice/internal/errors"
	"github.com/Iron-Ham/postoffice/internal/event"
	"github.com/Iron-Ham/postoffice/internal/mailbox"
	"github.com/Iron-Ham/postoffice/internal/testutil"
)

const mailModuleYAML = `name: mail_module
symbols:
  - name: greeting
    value: hello
  - name: limits
    value:
      max: 3
  - name: send_mail
    capability: mail.send
  - name: notify_ops
    capability: mail.send
    with:
      address: ops@example.com
  - name: alias
    ref: greeting
`

// newTestLoader returns a loader over an in-memory filesystem whose
// mail.send capability writes to the returned buffer.
func newTestLoader(t *testing.T, files map[string]string, opts ...Option) (*Loader, *bytes.Buffer) {
	t.Helper()

	fs := afero.NewMemMapFs()
	for path, content := range files {
		if err := afero.WriteFile(fs, path, []byte(content), 0644); err != nil {
			t.Fatalf("failed to write %s: %v", path, err)
		}
	}

	var out bytes.Buffer
	reg := NewRegistry()
	if err := RegisterBuiltins(reg, &out, nil); err != nil {
		t.Fatalf("RegisterBuiltins() error = %v", err)
	}

	l, err := New(append([]Option{WithFs(fs), WithRegistry(reg)}, opts...)...)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return l, &out
}

func TestLoad_ExposesExactlyDefinedNames(t *testing.T) {
	l, _ := newTestLoader(t, map[string]string{"/modules/mail.yaml": mailModuleYAML})

	mod, err := l.Load("/modules/mail.yaml")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	want := []string{"greeting", "limits", "send_mail", "notify_ops", "alias"}
	if got := mod.Names(); !slices.Equal(got, want) {
		t.Errorf("Names() = %v, want %v", got, want)
	}
	if mod.Len() != len(want) {
		t.Errorf("Len() = %d, want %d", mod.Len(), len(want))
	}
	if mod.Name() != "mail_module" {
		t.Errorf("Name() = %q, want mail_module", mod.Name())
	}
	if mod.Path() != "/modules/mail.yaml" {
		t.Errorf("Path() = %q, want /modules/mail.yaml", mod.Path())
	}
	if mod.Has("undefined") {
		t.Error("Has(undefined) = true, want false")
	}
}

func TestLoad_Values(t *testing.T) {
	l, _ := newTestLoader(t, map[string]string{"/modules/mail.yaml": mailModuleYAML})
	mod, err := l.Load("/modules/mail.yaml")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	v, err := mod.Value("greeting")
	if err != nil || v != "hello" {
		t.Errorf("Value(greeting) = %v, %v; want hello, nil", v, err)
	}

	alias, err := mod.Value("alias")
	if err != nil || alias != "hello" {
		t.Errorf("Value(alias) = %v, %v; want hello, nil", alias, err)
	}

	limits, err := mod.Value("limits")
	if err != nil {
		t.Fatalf("Value(limits) error = %v", err)
	}
	m, ok := limits.(map[string]any)
	if !ok || m["max"] != 3 {
		t.Errorf("Value(limits) = %#v, want map with max=3", limits)
	}

	capName, err := mod.Value("send_mail")
	if err != nil || capName != CapMailSend {
		t.Errorf("Value(send_mail) = %v, %v; want %s", capName, err, CapMailSend)
	}

	if _, err := mod.Value("missing"); !errors.Is(err, &errors.NotFoundError{}) {
		t.Errorf("Value(missing) error = %v, want NotFoundError", err)
	}
}

func TestLoad_CallFunctionSymbol(t *testing.T) {
	l, out := newTestLoader(t, map[string]string{"/modules/mail.yaml": mailModuleYAML})
	mod, err := l.Load("/modules/mail.yaml")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if _, err := mod.Call("send_mail", map[string]any{"address": "x@example.com", "message": "hi"}); err != nil {
		t.Fatalf("Call(send_mail) error = %v", err)
	}
	if _, err := mod.Call("notify_ops", map[string]any{"message": "disk full"}); err != nil {
		t.Fatalf("Call(notify_ops) error = %v", err)
	}

	want := "Sending mail to x@example.com\nhi\nSending mail to ops@example.com\ndisk full\n"
	if out.String() != want {
		t.Errorf("output = %q, want %q", out.String(), want)
	}
}

func TestLoad_CallArgsOverrideDefaults(t *testing.T) {
	l, out := newTestLoader(t, map[string]string{"/modules/mail.yaml": mailModuleYAML})
	mod, err := l.Load("/modules/mail.yaml")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if _, err := mod.Call("notify_ops", map[string]any{"address": "dev@example.com", "message": "m"}); err != nil {
		t.Fatalf("Call() error = %v", err)
	}
	if !strings.HasPrefix(out.String(), "Sending mail to dev@example.com\n") {
		t.Errorf("output = %q, call args should override bound defaults", out.String())
	}

	sym, _ := mod.Lookup("notify_ops")
	if sym.Defaults["address"] != "ops@example.com" {
		t.Error("Call must not mutate bound defaults")
	}
}

func TestLoad_CallValueSymbolFails(t *testing.T) {
	l, _ := newTestLoader(t, map[string]string{"/modules/mail.yaml": mailModuleYAML})
	mod, err := l.Load("/modules/mail.yaml")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	_, err = mod.Call("greeting", nil)
	if !errors.Is(err, &errors.ValidationError{}) {
		t.Errorf("Call(greeting) error = %v, want ValidationError", err)
	}
}

func TestLoad_CallMissingArgument(t *testing.T) {
	l, out := newTestLoader(t, map[string]string{"/modules/mail.yaml": mailModuleYAML})
	mod, err := l.Load("/modules/mail.yaml")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	_, err = mod.Call("send_mail", map[string]any{"address": "x@example.com"})
	if !errors.Is(err, errors.ErrInvalidInput) {
		t.Errorf("Call() error = %v, want invalid input", err)
	}
	if out.Len() != 0 {
		t.Errorf("nothing should be written on argument errors, got %q", out.String())
	}
}

func TestLoad_InitRunsAtLoadTime(t *testing.T) {
	src := `symbols:
  - name: send_mail
    capability: mail.send
init:
  - call: send_mail
    args:
      address: boot@example.com
      message: loaded
`
	l, out := newTestLoader(t, map[string]string{"/m/boot.yml": src})

	mod, err := l.Load("/m/boot.yml")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if mod.Name() != "boot" {
		t.Errorf("Name() = %q, want boot (from file name)", mod.Name())
	}
	if out.String() != "Sending mail to boot@example.com\nloaded\n" {
		t.Errorf("output = %q", out.String())
	}
}

func TestLoad_RedefinitionRebinds(t *testing.T) {
	src := `symbols:
  - name: a
    value: 1
  - name: b
    value: 2
  - name: a
    value: 3
`
	l, _ := newTestLoader(t, map[string]string{"/m/re.yaml": src})
	mod, err := l.Load("/m/re.yaml")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if got := mod.Names(); !slices.Equal(got, []string{"a", "b"}) {
		t.Errorf("Names() = %v, want [a b]", got)
	}
	if v, _ := mod.Value("a"); v != 3 {
		t.Errorf("Value(a) = %v, want 3", v)
	}
}

func TestLoad_ExplicitNullValue(t *testing.T) {
	l, _ := newTestLoader(t, map[string]string{"/m/null.yaml": "symbols:\n  - name: nothing\n    value: null\n"})
	mod, err := l.Load("/m/null.yaml")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	v, err := mod.Value("nothing")
	if err != nil || v != nil {
		t.Errorf("Value(nothing) = %v, %v; want nil, nil", v, err)
	}
}

func TestLoad_AnchorsAndMergeKeys(t *testing.T) {
	src := `symbols:
  - &ops {name: notify_ops, capability: mail.send, with: {address: ops@example.com}}
  - *ops
  - <<: *ops
    name: notify_oncall
`
	l, out := newTestLoader(t, map[string]string{"/m/anchors.yaml": src})
	mod, err := l.Load("/m/anchors.yaml")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if got := mod.Names(); !slices.Equal(got, []string{"notify_ops", "notify_oncall"}) {
		t.Errorf("Names() = %v, want [notify_ops notify_oncall]", got)
	}

	if _, err := mod.Call("notify_oncall", map[string]any{"message": "paged"}); err != nil {
		t.Fatalf("Call(notify_oncall) error = %v", err)
	}
	if out.String() != "Sending mail to ops@example.com\npaged\n" {
		t.Errorf("output = %q", out.String())
	}
}

func TestLoad_EmptyModule(t *testing.T) {
	l, _ := newTestLoader(t, map[string]string{"/m/empty.yaml": ""})
	mod, err := l.Load("/m/empty.yaml")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if mod.Len() != 0 || len(mod.Names()) != 0 {
		t.Errorf("empty module should define nothing, got %v", mod.Names())
	}
}

func TestLoad_JSON(t *testing.T) {
	src := `{"name": "j", "symbols": [{"name": "x", "value": [1, 2]}]}`
	l, _ := newTestLoader(t, map[string]string{"/m/j.json": src})
	mod, err := l.Load("/m/j.json")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if got := mod.Names(); !slices.Equal(got, []string{"x"}) {
		t.Errorf("Names() = %v", got)
	}
}

func TestLoad_TOML(t *testing.T) {
	src := `name = "toml_module"

[[symbols]]
name = "count"
value = 7

[[symbols]]
name = "join"
capability = "text.join"
with = { sep = "-" }
`
	l, _ := newTestLoader(t, map[string]string{"/m/t.toml": src})
	mod, err := l.Load("/m/t.toml")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if got := mod.Names(); !slices.Equal(got, []string{"count", "join"}) {
		t.Errorf("Names() = %v", got)
	}
	if v, _ := mod.Value("count"); v != int64(7) {
		t.Errorf("Value(count) = %#v, want int64(7)", v)
	}
	joined, err := mod.Call("join", map[string]any{"parts": []any{"a", "b", "c"}})
	if err != nil || joined != "a-b-c" {
		t.Errorf("Call(join) = %v, %v; want a-b-c", joined, err)
	}
}

func TestLoad_Failures(t *testing.T) {
	files := map[string]string{
		"/m/bad.yaml":        "symbols: [\n",
		"/m/unknown.yaml":    "symbols: []\nextra: 1\n",
		"/m/symfield.yaml":   "symbols:\n  - name: a\n    valu: 1\n",
		"/m/notes.txt":       "hello",
		"/m/noname.yaml":     "symbols:\n  - value: 1\n",
		"/m/badname.yaml":    "symbols:\n  - name: 1abc\n    value: 1\n",
		"/m/nokind.yaml":     "symbols:\n  - name: a\n",
		"/m/twokinds.yaml":   "symbols:\n  - name: a\n    value: 1\n    ref: b\n",
		"/m/forward.yaml":    "symbols:\n  - name: a\n    ref: b\n  - name: b\n    value: 1\n",
		"/m/nocap.yaml":      "symbols:\n  - name: fax\n    capability: mail.fax\n",
		"/m/initmiss.yaml":   "init:\n  - call: nope\n",
		"/m/initvalue.yaml":  "symbols:\n  - name: a\n    value: 1\ninit:\n  - call: a\n",
		"/m/initfails.yaml":  "symbols:\n  - name: s\n    capability: mail.send\ninit:\n  - call: s\n",
		"/m/dir/inner.yaml":  "",
		"/m/badtoml.toml":    "name = \n",
		"/m/tomlextra.toml":  "bogus = 1\n",
		"/m/valuewith.yaml":  "symbols:\n  - name: a\n    value: 1\n    with: {x: 1}\n",
		"/m/refwith.yaml":    "symbols:\n  - name: a\n    value: 1\n  - name: b\n    ref: a\n    with: {}\n",
		"/m/tomlwith.toml":   "[[symbols]]\nname = \"a\"\nvalue = 1\nwith = { x = 1 }\n",
		"/m/mergeextra.yaml": "symbols:\n  - {name: s, capability: mail.send, with: &w {bogus: 1}}\n  - <<: *w\n    name: c\n    value: 1\n",
	}

	tests := []struct {
		name     string
		path     string
		sentinel error
	}{
		{"empty path", "", errors.ErrModuleNotFound},
		{"whitespace path", "   ", errors.ErrModuleNotFound},
		{"missing file", "/m/missing.yaml", errors.ErrModuleNotFound},
		{"directory", "/m/dir", errors.ErrModuleInvalid},
		{"unsupported extension", "/m/notes.txt", errors.ErrModuleInvalid},
		{"malformed yaml", "/m/bad.yaml", errors.ErrModuleInvalid},
		{"unknown top-level field", "/m/unknown.yaml", errors.ErrModuleInvalid},
		{"unknown symbol field", "/m/symfield.yaml", errors.ErrModuleInvalid},
		{"malformed toml", "/m/badtoml.toml", errors.ErrModuleInvalid},
		{"unknown toml field", "/m/tomlextra.toml", errors.ErrModuleInvalid},
		{"symbol without name", "/m/noname.yaml", errors.ErrModuleInvalid},
		{"symbol with invalid name", "/m/badname.yaml", errors.ErrModuleInvalid},
		{"symbol without kind", "/m/nokind.yaml", errors.ErrModuleInvalid},
		{"symbol with two kinds", "/m/twokinds.yaml", errors.ErrModuleInvalid},
		{"with on value symbol", "/m/valuewith.yaml", errors.ErrModuleInvalid},
		{"with on ref symbol", "/m/refwith.yaml", errors.ErrModuleInvalid},
		{"with on toml value symbol", "/m/tomlwith.toml", errors.ErrModuleInvalid},
		{"unknown field behind merge key", "/m/mergeextra.yaml", errors.ErrModuleInvalid},
		{"forward reference", "/m/forward.yaml", errors.ErrModuleExec},
		{"unknown capability", "/m/nocap.yaml", errors.ErrUnknownCapability},
		{"init calls undefined name", "/m/initmiss.yaml", errors.ErrModuleExec},
		{"init calls value symbol", "/m/initvalue.yaml", errors.ErrModuleExec},
		{"init capability fails", "/m/initfails.yaml", errors.ErrModuleExec},
	}

	l, _ := newTestLoader(t, files)

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mod, err := l.Load(tt.path)
			if err == nil {
				t.Fatalf("Load(%q) succeeded, want error", tt.path)
			}
			if mod != nil {
				t.Error("failed Load must not return a module")
			}
			if !errors.Is(err, &errors.LoadError{}) {
				t.Errorf("error %v is not a LoadError", err)
			}
			if !errors.Is(err, tt.sentinel) {
				t.Errorf("error %v does not wrap %v", err, tt.sentinel)
			}
		})
	}
}

func TestLoad_ErrorContext(t *testing.T) {
	l, _ := newTestLoader(t, map[string]string{
		"/m/forward.yaml": "symbols:\n  - name: a\n    ref: b\n",
	})

	_, err := l.Load("/m/forward.yaml")
	var loadErr *errors.LoadError
	if !errors.As(err, &loadErr) {
		t.Fatalf("error = %T, want *errors.LoadError", err)
	}
	if loadErr.Path != "/m/forward.yaml" {
		t.Errorf("Path = %q", loadErr.Path)
	}
	if loadErr.Symbol != "a" {
		t.Errorf("Symbol = %q, want a", loadErr.Symbol)
	}
}

func TestLoad_AllowPatterns(t *testing.T) {
	files := map[string]string{
		"/srv/modules/mail.yaml":        "symbols: []\n",
		"/srv/modules/nested/deep.yaml": "symbols: []\n",
		"/tmp/evil.yaml":                "symbols: []\n",
	}

	t.Run("single star does not cross directories", func(t *testing.T) {
		l, _ := newTestLoader(t, files, WithAllowPatterns("/srv/modules/*.yaml"))

		if _, err := l.Load("/srv/modules/mail.yaml"); err != nil {
			t.Errorf("Load(allowed) error = %v", err)
		}
		if _, err := l.Load("/srv/modules/nested/deep.yaml"); !errors.Is(err, errors.ErrModuleNotAllowed) {
			t.Errorf("Load(nested) error = %v, want ErrModuleNotAllowed", err)
		}
		if _, err := l.Load("/tmp/evil.yaml"); !errors.Is(err, errors.ErrModuleNotAllowed) {
			t.Errorf("Load(outside) error = %v, want ErrModuleNotAllowed", err)
		}
	})

	t.Run("double star crosses directories", func(t *testing.T) {
		l, _ := newTestLoader(t, files, WithAllowPatterns("/srv/**"))
		if _, err := l.Load("/srv/modules/nested/deep.yaml"); err != nil {
			t.Errorf("Load(nested) error = %v", err)
		}
	})
}

func TestNew_InvalidAllowPattern(t *testing.T) {
	_, err := New(WithFs(afero.NewMemMapFs()), WithAllowPatterns("/srv/[modules"))
	if !errors.Is(err, &errors.ValidationError{}) {
		t.Errorf("New() error = %v, want ValidationError", err)
	}
}

func TestLoad_PublishesEvent(t *testing.T) {
	bus := event.NewBus()
	var loaded []event.ModuleLoadedEvent
	bus.Subscribe(event.TypeModuleLoaded, func(e event.Event) {
		loaded = append(loaded, e.(event.ModuleLoadedEvent))
	})

	l, _ := newTestLoader(t, map[string]string{"/modules/mail.yaml": mailModuleYAML}, WithBus(bus))
	if _, err := l.Load("/modules/mail.yaml"); err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if _, err := l.Load("/modules/missing.yaml"); err == nil {
		t.Fatal("Load(missing) should fail")
	}

	if len(loaded) != 1 {
		t.Fatalf("got %d events, want 1", len(loaded))
	}
	if loaded[0].Module != "mail_module" || len(loaded[0].Symbols) != 5 {
		t.Errorf("event = %+v", loaded[0])
	}
}

func TestLoad_MailboxCapability(t *testing.T) {
	src := `symbols:
  - name: new_box
    capability: mailbox.new
init:
  - call: new_box
    args:
      entries: {b: 2, a: 1}
`
	l, _ := newTestLoader(t, map[string]string{"/m/box.yaml": src})
	mod, err := l.Load("/m/box.yaml")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	got, err := mod.Call("new_box", map[string]any{"entries": map[string]any{"k": "v"}})
	if err != nil {
		t.Fatalf("Call(new_box) error = %v", err)
	}
	mb, ok := got.(*mailbox.Mailbox[string, any])
	if !ok {
		t.Fatalf("Call(new_box) = %T, want *mailbox.Mailbox[string, any]", got)
	}
	if v, err := mb.Get("k"); err != nil || v != "v" {
		t.Errorf("Get(k) = %v, %v", v, err)
	}
}

func TestPackageLoad_OSFilesystem(t *testing.T) {
	path := testutil.WriteModule(t, "greet.yaml", "symbols:\n  - name: hello\n    value: world\n")

	mod, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if v, _ := mod.Value("hello"); v != "world" {
		t.Errorf("Value(hello) = %v, want world", v)
	}

	if _, err := Load(path + ".missing"); !errors.Is(err, &errors.LoadError{}) {
		t.Errorf("Load(missing) error = %v, want LoadError", err)
	}
}

func TestSupportedExtensions(t *testing.T) {
	want := []string{".json", ".toml", ".yaml", ".yml"}
	if got := SupportedExtensions(); !slices.Equal(got, want) {
		t.Errorf("SupportedExtensions() = %v, want %v", got, want)
	}
}
