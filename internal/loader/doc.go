// Package loader loads module units from files and exposes their top-level
// definitions through a [Module] handle.
//
// A module unit is a YAML (.yaml, .yml, .json) or TOML (.toml) document
// listing symbol definitions and optional init statements:
//
//	name: mail_module
//	symbols:
//	  - name: greeting
//	    value: hello
//	  - name: send_mail
//	    capability: mail.send
//	    with:
//	      address: ops@example.com
//	  - name: notify
//	    ref: send_mail
//	init:
//	  - call: notify
//	    args: {message: module loaded}
//
// Definitions execute in order into an empty namespace. A symbol is bound to
// exactly one of a literal value, a registered [Capability], or an earlier
// symbol (ref). Redefining a name rebinds it. Init statements run after all
// definitions and may only call function symbols.
//
// # Trust Boundary
//
// Modules cannot run arbitrary code. Everything a module can do is declared
// by the capabilities in the loader's [Registry]. Paths can additionally be
// restricted with [WithAllowPatterns].
//
// # Errors
//
// Every failure of [Loader.Load] is an *errors.LoadError wrapping one of
// errors.ErrModuleNotFound, errors.ErrModuleNotAllowed,
// errors.ErrModuleInvalid or errors.ErrModuleExec. No partially executed
// module is ever returned.
package loader
