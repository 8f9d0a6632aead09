// Package mail provides a console stand-in for sending mail. Nothing is
// delivered: the destination address and body are written to a writer,
// standard output by default.
package mail

import (
	"fmt"
	"io"
	"os"
)

// Sender writes mail announcements to an output stream.
type Sender struct {
	out io.Writer
}

// NewSender creates a Sender writing to w. A nil w means whatever
// os.Stdout is at the time of each Send.
func NewSender(w io.Writer) *Sender {
	return &Sender{out: w}
}

// Send writes two lines: one announcing the destination address and one
// containing the message body. Neither argument is validated. The only
// possible error comes from the underlying writer.
func (s *Sender) Send(address, message string) error {
	out := s.out
	if out == nil {
		out = os.Stdout
	}
	if _, err := fmt.Fprintf(out, "Sending mail to %s\n%s\n", address, message); err != nil {
		return fmt.Errorf("mail: write: %w", err)
	}
	return nil
}

// SendMail announces message for address on standard output.
func SendMail(address, message string) {
	_ = NewSender(nil).Send(address, message)
}
