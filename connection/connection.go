// Package connection parses the Jupyter connection description file (or
// any io.Reader holding its JSON contents) that the Jupyter runtime
// writes to advertise a running kernel's transport parameters.
package connection

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/go-jupyter/jpyclient/jpyerrors"
	"github.com/pkg/errors"
)

// Description holds the contents of a Jupyter kernel connection file.
type Description struct {
	Transport       string `json:"transport"`
	IP              string `json:"ip"`
	ShellPort       int    `json:"shell_port"`
	IOPubPort       int    `json:"iopub_port"`
	HBPort          int    `json:"hb_port"`
	StdinPort       int    `json:"stdin_port"`
	ControlPort     int    `json:"control_port"`
	Key             string `json:"key"`
	SignatureScheme string `json:"signature_scheme"`
	KernelName      string `json:"kernel_name"`
}

// FromFile reads and parses a connection description file.
func FromFile(path string) (*Description, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.WithMessagef(err, "connection.FromFile: opening %q", path)
	}
	defer func() { _ = f.Close() }()
	return FromReader(f)
}

// FromReader parses a connection description from r.
//
// Unknown JSON fields are ignored. The result is validated: transport
// must be "tcp" (no other scheme is implemented by this client) and
// signature_scheme must be "hmac-sha256".
func FromReader(r io.Reader) (*Description, error) {
	var d Description
	dec := json.NewDecoder(r)
	if err := dec.Decode(&d); err != nil {
		return nil, &jpyerrors.ConfigError{Msg: "decoding connection description JSON", Cause: err}
	}
	if err := d.validate(); err != nil {
		return nil, err
	}
	return &d, nil
}

func (d *Description) validate() error {
	if d.Transport != "tcp" {
		return &jpyerrors.ConfigError{
			Msg: fmt.Sprintf("unsupported transport %q: only tcp is implemented", d.Transport),
		}
	}
	if d.SignatureScheme != "hmac-sha256" {
		return &jpyerrors.ConfigError{
			Msg: fmt.Sprintf("unsupported signature_scheme %q: only hmac-sha256 is implemented", d.SignatureScheme),
		}
	}
	for name, port := range map[string]int{
		"shell_port": d.ShellPort, "iopub_port": d.IOPubPort, "hb_port": d.HBPort,
		"stdin_port": d.StdinPort, "control_port": d.ControlPort,
	} {
		if port <= 0 || port > 65535 {
			return &jpyerrors.ConfigError{Msg: fmt.Sprintf("%s %d is not a valid TCP port", name, port)}
		}
	}
	return nil
}

// addr formats a tcp:// dial address for the given port.
func (d *Description) addr(port int) string {
	return fmt.Sprintf("%s://%s:%d", d.Transport, d.IP, port)
}

// ShellAddr is the dial address for the shell socket.
func (d *Description) ShellAddr() string { return d.addr(d.ShellPort) }

// IOPubAddr is the dial address for the iopub socket.
func (d *Description) IOPubAddr() string { return d.addr(d.IOPubPort) }

// HBAddr is the dial address for the heartbeat socket.
func (d *Description) HBAddr() string { return d.addr(d.HBPort) }

// StdinAddr is the dial address for the stdin socket. This client
// implements only the shell, iopub and heartbeat channels, but callers
// may still want to inspect the advertised address.
func (d *Description) StdinAddr() string { return d.addr(d.StdinPort) }

// ControlAddr is the dial address for the control socket (not a channel
// this client implements; see StdinAddr).
func (d *Description) ControlAddr() string { return d.addr(d.ControlPort) }

// KeyBytes returns the signing secret as a byte string, unnormalized.
func (d *Description) KeyBytes() []byte { return []byte(d.Key) }
