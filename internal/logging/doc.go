// Package logging provides structured logging for postoffice.
//
// It wraps Go's log/slog to emit JSON-formatted records with persistent
// attributes (component, module) carried by child loggers.
//
// # Basic Usage
//
//	logger, err := logging.NewLogger("/var/log/postoffice.log", "INFO")
//	if err != nil {
//	    return err
//	}
//	defer logger.Close()
//
//	logger.WithComponent("loader").Info("module loaded", "symbols", 3)
//
// An empty path writes to stderr. [NopLogger] discards everything and is the
// default for library types that accept an optional logger.
//
// # Thread Safety
//
// [Logger] is safe for concurrent use. Child loggers created via With*
// methods share the underlying writer.
package logging
