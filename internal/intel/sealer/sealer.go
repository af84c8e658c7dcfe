// Package sealer adapts external encryption providers behind one narrow
// interface.
//
// The registry core treats ciphertext as an opaque blob: it stores and
// moves whatever Seal returns and never looks inside. Encryption itself
// is someone else's machinery, reached here either by piping plaintext
// through an external command or, for development only, by passing it
// straight through.
package sealer

import (
	"bytes"
	"context"
	"fmt"
	"log"
	"os/exec"
	"strings"

	"github.com/seymourandrew3mx-68/CybercrimeInfra-FHE/internal/intel/schema"
)

// Sealer turns plaintext intelligence into the opaque ciphertext the
// registry stores.
type Sealer interface {
	// Seal encrypts plaintext. The result is never inspected by the
	// caller beyond a size bound.
	Seal(ctx context.Context, plaintext []byte) ([]byte, error)

	// Name identifies the adapter in logs and doctor output.
	Name() string
}

// FromSpec builds a Sealer from a config spec string:
//
//	passthrough        development only, plaintext stored as-is
//	exec:<command>     pipe plaintext through an external tool
func FromSpec(spec string, logger *log.Logger) (Sealer, error) {
	switch {
	case spec == "" || spec == "passthrough":
		return NewPassthrough(logger), nil
	case strings.HasPrefix(spec, "exec:"):
		command := strings.TrimPrefix(spec, "exec:")
		if strings.TrimSpace(command) == "" {
			return nil, fmt.Errorf("exec sealer requires a command, e.g. exec:fhe-encrypt")
		}
		return NewExec(command), nil
	default:
		return nil, fmt.Errorf("unknown sealer spec %q (want passthrough or exec:<command>)", spec)
	}
}

// Exec pipes plaintext through an external encryption command: stdin in,
// ciphertext on stdout.
type Exec struct {
	command string
	args    []string
}

// NewExec creates an exec-backed sealer. The command string is split on
// whitespace; the first field is the binary, the rest are fixed args.
func NewExec(command string) *Exec {
	fields := strings.Fields(command)
	return &Exec{command: fields[0], args: fields[1:]}
}

// Name returns the adapter identity.
func (e *Exec) Name() string {
	return "exec:" + e.command
}

// Seal runs the encryption command. A non-zero exit or empty output is
// an error; plaintext never appears in the error message.
func (e *Exec) Seal(ctx context.Context, plaintext []byte) ([]byte, error) {
	if len(plaintext) == 0 {
		return nil, fmt.Errorf("nothing to seal")
	}

	cmd := exec.CommandContext(ctx, e.command, e.args...)
	cmd.Stdin = bytes.NewReader(plaintext)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		detail := strings.TrimSpace(stderr.String())
		if detail != "" {
			return nil, fmt.Errorf("sealer command %s failed: %s: %w", e.command, detail, err)
		}
		return nil, fmt.Errorf("sealer command %s failed: %w", e.command, err)
	}

	ciphertext := stdout.Bytes()
	if len(ciphertext) == 0 {
		return nil, fmt.Errorf("sealer command %s produced no output", e.command)
	}
	if len(ciphertext) > schema.MaxCiphertextSize {
		return nil, fmt.Errorf("sealed payload exceeds %d bytes", schema.MaxCiphertextSize)
	}
	return ciphertext, nil
}

// Passthrough returns plaintext unchanged. It exists so development and
// tests can run without an encryption tool; every construction logs a
// warning so it cannot slip into production quietly.
type Passthrough struct{}

// NewPassthrough creates the development sealer and logs loudly.
func NewPassthrough(logger *log.Logger) *Passthrough {
	if logger != nil {
		logger.Printf("WARNING: passthrough sealer active, payloads are stored UNENCRYPTED")
	}
	return &Passthrough{}
}

// Name returns the adapter identity.
func (p *Passthrough) Name() string {
	return "passthrough"
}

// Seal returns a copy of the plaintext.
func (p *Passthrough) Seal(ctx context.Context, plaintext []byte) ([]byte, error) {
	if len(plaintext) == 0 {
		return nil, fmt.Errorf("nothing to seal")
	}
	if len(plaintext) > schema.MaxCiphertextSize {
		return nil, fmt.Errorf("payload exceeds %d bytes", schema.MaxCiphertextSize)
	}
	out := make([]byte, len(plaintext))
	copy(out, plaintext)
	return out, nil
}
