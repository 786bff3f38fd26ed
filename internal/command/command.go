package command

import (
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// CopySuffix is appended to the name of a duplicated command.
const CopySuffix = " (Copy)"

var (
	ErrNameRequired    = errors.New("name is required")
	ErrCommandRequired = errors.New("command is required")
	ErrNotFound        = errors.New("command not found")
	ErrAmbiguous       = errors.New("ambiguous command reference")
)

// Command is a named shell command line saved by the user.
//
// CommandLine is handed verbatim to the platform shell or terminal when the
// command is launched. Nothing in this package or the launcher sanitizes it:
// a stored command is exactly as trusted as a command the user typed.
type Command struct {
	ID          string `json:"id" yaml:"id"`
	Name        string `json:"name" yaml:"name"`
	CommandLine string `json:"command" yaml:"command"`
}

// New trims and validates the supplied fields and assigns a fresh identifier.
func New(name, commandLine string) (Command, error) {
	cmd := Command{
		ID:          NewID(),
		Name:        strings.TrimSpace(name),
		CommandLine: strings.TrimSpace(commandLine),
	}
	if err := cmd.Validate(); err != nil {
		return Command{}, err
	}
	return cmd, nil
}

// NewID returns a new stable command identifier.
func NewID() string {
	return uuid.NewString()
}

// Validate reports whether the command may be stored.
func (c Command) Validate() error {
	if strings.TrimSpace(c.Name) == "" {
		return ErrNameRequired
	}
	if strings.TrimSpace(c.CommandLine) == "" {
		return fmt.Errorf("%s: %w", c.Name, ErrCommandRequired)
	}
	return nil
}

// ShortID returns the leading eight characters of the identifier.
func (c Command) ShortID() string {
	if len(c.ID) <= 8 {
		return c.ID
	}
	return c.ID[:8]
}

func (c Command) String() string {
	return fmt.Sprintf("%s (%s)", c.Name, c.ShortID())
}
