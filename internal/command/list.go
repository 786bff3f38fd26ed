package command

import (
	"fmt"
	"strings"
)

// List is an ordered collection of commands. Mutating methods return a new
// List and leave the receiver untouched so callers can roll back when a save
// fails.
type List []Command

// Clone returns a copy of the list that shares no backing array.
func (l List) Clone() List {
	if l == nil {
		return nil
	}
	return append(List(nil), l...)
}

// Index returns the position of the command with the given id, or -1.
func (l List) Index(id string) int {
	for i, cmd := range l {
		if cmd.ID == id {
			return i
		}
	}
	return -1
}

// Find resolves a reference to a single command. A reference matches an exact
// identifier first, then an exact name, then a unique identifier prefix.
func (l List) Find(ref string) (Command, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return Command{}, fmt.Errorf("%w: empty reference", ErrNotFound)
	}
	if idx := l.Index(ref); idx >= 0 {
		return l[idx], nil
	}

	var byName []Command
	for _, cmd := range l {
		if cmd.Name == ref {
			byName = append(byName, cmd)
		}
	}
	switch len(byName) {
	case 1:
		return byName[0], nil
	case 0:
	default:
		return Command{}, fmt.Errorf("%w: %d commands named %q", ErrAmbiguous, len(byName), ref)
	}

	var byPrefix []Command
	for _, cmd := range l {
		if strings.HasPrefix(cmd.ID, ref) {
			byPrefix = append(byPrefix, cmd)
		}
	}
	switch len(byPrefix) {
	case 1:
		return byPrefix[0], nil
	case 0:
		return Command{}, fmt.Errorf("%w: %q", ErrNotFound, ref)
	default:
		return Command{}, fmt.Errorf("%w: id prefix %q matches %d commands", ErrAmbiguous, ref, len(byPrefix))
	}
}

// Resolve maps every reference to a command, preserving reference order.
func (l List) Resolve(refs []string) ([]Command, error) {
	out := make([]Command, 0, len(refs))
	for _, ref := range refs {
		cmd, err := l.Find(ref)
		if err != nil {
			return nil, err
		}
		out = append(out, cmd)
	}
	return out, nil
}

// Add appends a validated command. Commands without an identifier receive one.
func (l List) Add(cmd Command) (List, error) {
	if err := cmd.Validate(); err != nil {
		return l, err
	}
	if cmd.ID == "" {
		cmd.ID = NewID()
	}
	if l.Index(cmd.ID) >= 0 {
		return l, fmt.Errorf("command id %s already exists", cmd.ID)
	}
	out := make(List, 0, len(l)+1)
	out = append(out, l...)
	return append(out, cmd), nil
}

// Update replaces the name and command line of the entry with the given id.
func (l List) Update(id, name, commandLine string) (List, Command, error) {
	idx := l.Index(id)
	if idx < 0 {
		return l, Command{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	updated := Command{
		ID:          id,
		Name:        strings.TrimSpace(name),
		CommandLine: strings.TrimSpace(commandLine),
	}
	if err := updated.Validate(); err != nil {
		return l, Command{}, err
	}
	out := l.Clone()
	out[idx] = updated
	return out, updated, nil
}

// Remove drops every entry whose id is listed and reports how many were removed.
func (l List) Remove(ids ...string) (List, int) {
	drop := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		drop[id] = struct{}{}
	}
	out := make(List, 0, len(l))
	for _, cmd := range l {
		if _, ok := drop[cmd.ID]; ok {
			continue
		}
		out = append(out, cmd)
	}
	return out, len(l) - len(out)
}

// Duplicate appends a copy of the entry with the given id under a new
// identifier and a suffixed name.
func (l List) Duplicate(id string) (List, Command, error) {
	idx := l.Index(id)
	if idx < 0 {
		return l, Command{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	dup := l[idx]
	dup.ID = NewID()
	dup.Name += CopySuffix
	out, err := l.Add(dup)
	if err != nil {
		return l, Command{}, err
	}
	return out, dup, nil
}
