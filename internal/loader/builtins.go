package loader

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cast"

	"github.com/Iron-Ham/postoffice/internal/errors"
	"github.com/Iron-Ham/postoffice/internal/event"
	"github.com/Iron-Ham/postoffice/internal/mail"
	"github.com/Iron-Ham/postoffice/internal/mailbox"
)

// Built-in capability names.
const (
	CapMailSend   = "mail.send"
	CapTextJoin   = "text.join"
	CapMailboxNew = "mailbox.new"
)

// RegisterBuiltins registers the built-in capabilities into reg. mail.send
// writes to out (standard output when nil). Mailboxes made by mailbox.new
// publish their changes on bus when it is non-nil.
func RegisterBuiltins(reg *Registry, out io.Writer, bus *event.Bus) error {
	sender := mail.NewSender(out)

	builtins := []Capability{
		CapabilityFunc{ID: CapMailSend, Fn: func(args map[string]any) (any, error) {
			address, err := stringArg(args, "address")
			if err != nil {
				return nil, err
			}
			message, err := stringArg(args, "message")
			if err != nil {
				return nil, err
			}
			return nil, sender.Send(address, message)
		}},
		CapabilityFunc{ID: CapTextJoin, Fn: textJoin},
		CapabilityFunc{ID: CapMailboxNew, Fn: mailboxNew(bus)},
	}

	for _, c := range builtins {
		if err := reg.Register(c); err != nil {
			return err
		}
	}
	return nil
}

// textJoin joins the "parts" argument with "sep" (default "").
func textJoin(args map[string]any) (any, error) {
	raw, ok := args["parts"]
	if !ok || raw == nil {
		return "", nil
	}
	parts, err := cast.ToStringSliceE(raw)
	if err != nil {
		return nil, errors.NewValidationError("parts must be a list of strings").
			WithField("parts").WithCause(err)
	}
	sep, err := cast.ToStringE(args["sep"])
	if err != nil {
		return nil, errors.NewValidationError("sep must be a string").WithField("sep").WithCause(err)
	}
	return strings.Join(parts, sep), nil
}

// mailboxNew returns a capability making a fresh mailbox seeded from the
// optional "entries" map. Seed keys are inserted in sorted order since
// decoded maps carry no order.
func mailboxNew(bus *event.Bus) func(map[string]any) (any, error) {
	return func(args map[string]any) (any, error) {
		mb := mailbox.New[string, any](mailbox.WithBus(bus))

		raw, ok := args["entries"]
		if !ok || raw == nil {
			return mb, nil
		}
		entries, err := cast.ToStringMapE(raw)
		if err != nil {
			return nil, errors.NewValidationError("entries must be a mapping").WithField("entries").WithCause(err)
		}
		for _, k := range sortedKeys(entries) {
			mb.Set(k, entries[k])
		}
		return mb, nil
	}
}

// stringArg coerces a required argument to a string.
func stringArg(args map[string]any, name string) (string, error) {
	v, ok := args[name]
	if !ok || v == nil {
		return "", errors.NewValidationError(fmt.Sprintf("missing argument %q", name)).WithField(name)
	}
	s, err := cast.ToStringE(v)
	if err != nil {
		return "", errors.NewValidationError(fmt.Sprintf("argument %q must be a string", name)).
			WithField(name).WithValue(v).WithCause(err)
	}
	return s, nil
}
