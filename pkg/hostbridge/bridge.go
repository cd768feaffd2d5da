// Package hostbridge connects the game host's synchronous extension calls to
// the event dispatcher. Calls take the form "COMMAND" or "COMMAND|argument";
// replies are JSON arrays of the form ["ok", result] or ["error", message].
package hostbridge

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/compassradar/extension/internal/dispatcher"
)

// CmdTimestamp is answered by the bridge itself with the UTC time in nanoseconds.
const CmdTimestamp = ":TIMESTAMP:"

// argSeparator splits a single-string call into command and argument.
const argSeparator = "|"

// Bridge routes host calls to a dispatcher.
type Bridge struct {
	mu         sync.RWMutex
	version    string
	dispatcher *dispatcher.Dispatcher
	now        func() time.Time
}

// Default is the bridge used by the exported C entry points.
var Default = New()

// New creates a bridge with no dispatcher.
func New() *Bridge {
	return &Bridge{
		version: "No version set",
		now:     time.Now,
	}
}

// SetVersion sets the string returned to the host when it first loads the library.
func (b *Bridge) SetVersion(version string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.version = version
}

// Version returns the configured version string.
func (b *Bridge) Version() string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.version
}

// SetDispatcher sets the event dispatcher for handling commands.
func (b *Bridge) SetDispatcher(d *dispatcher.Dispatcher) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.dispatcher = d
}

// Dispatcher returns the configured dispatcher, or nil if not set.
func (b *Bridge) Dispatcher() *dispatcher.Dispatcher {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.dispatcher
}

// Call handles "COMMAND" or "COMMAND|argument". Everything after the first
// separator is passed as one argument so snapshot JSON survives intact.
func (b *Bridge) Call(input string) string {
	if input == CmdTimestamp {
		return formatResponse(CmdTimestamp, strconv.FormatInt(b.now().UTC().UnixNano(), 10), nil)
	}

	command, arg, hasArg := strings.Cut(input, argSeparator)
	if d := b.Dispatcher(); d != nil && !d.HasHandler(command) && d.HasHandler(input) {
		command, hasArg = input, false
	}

	var args []string
	if hasArg {
		args = []string{arg}
	}
	return b.CallArgs(command, args)
}

// CallArgs handles a command with an explicit argument list.
func (b *Bridge) CallArgs(command string, args []string) string {
	d := b.Dispatcher()
	if d == nil || !d.HasHandler(command) {
		return formatResponse(command, nil, fmt.Errorf("no handler registered for %s", command))
	}

	result, err := d.Dispatch(dispatcher.Event{
		Command:   command,
		Args:      args,
		Timestamp: b.now(),
	})
	return formatResponse(command, result, err)
}

// formatResponse formats a dispatcher result for the host.
func formatResponse(command string, result any, err error) string {
	if err != nil {
		return `["error", ` + quote(err.Error()) + `]`
	}
	if result == nil {
		return `["ok"]`
	}
	data, mErr := json.Marshal(result)
	if mErr != nil {
		return `["error", ` + quote(fmt.Sprintf("%s encoding result: %v", command, mErr)) + `]`
	}
	return `["ok", ` + string(data) + `]`
}

func quote(s string) string {
	data, _ := json.Marshal(s)
	return string(data)
}
