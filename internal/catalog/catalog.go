// Package catalog keeps the in-memory command list in sync with its store.
//
// Every mutation is saved immediately. When a save fails the in-memory list
// keeps its previous contents and the store error is returned unchanged.
package catalog

import (
	"sync"

	"github.com/Paintersrp/cmdlaunch/internal/command"
)

// Store is the persistence contract the catalog depends on.
type Store interface {
	Load() ([]command.Command, error)
	Save([]command.Command) error
}

// Catalog guards the current command list.
type Catalog struct {
	store Store

	mu   sync.RWMutex
	list command.List
}

// New constructs an empty catalog. Call Reload to populate it.
func New(store Store) *Catalog {
	return &Catalog{store: store, list: command.List{}}
}

// Reload replaces the in-memory list with the stored one. On failure the
// current list is kept.
func (c *Catalog) Reload() error {
	cmds, err := c.store.Load()
	if err != nil {
		return err
	}
	c.mu.Lock()
	c.list = command.List(cmds).Clone()
	c.mu.Unlock()
	return nil
}

// List returns a copy of the current commands in order.
func (c *Catalog) List() command.List {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.list.Clone()
}

// Len reports the number of commands.
func (c *Catalog) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.list)
}

// Find resolves a single reference against the current list.
func (c *Catalog) Find(ref string) (command.Command, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.list.Find(ref)
}

// Resolve resolves several references against the current list.
func (c *Catalog) Resolve(refs []string) ([]command.Command, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.list.Resolve(refs)
}

// Add creates and saves a new command.
func (c *Catalog) Add(name, commandLine string) (command.Command, error) {
	cmd, err := command.New(name, commandLine)
	if err != nil {
		return command.Command{}, err
	}
	err = c.mutate(func(list command.List) (command.List, error) {
		return list.Add(cmd)
	})
	if err != nil {
		return command.Command{}, err
	}
	return cmd, nil
}

// Update renames or rewrites an existing command.
func (c *Catalog) Update(id, name, commandLine string) (command.Command, error) {
	var updated command.Command
	err := c.mutate(func(list command.List) (command.List, error) {
		out, cmd, err := list.Update(id, name, commandLine)
		updated = cmd
		return out, err
	})
	return updated, err
}

// Remove deletes the commands with the given ids and reports how many were removed.
func (c *Catalog) Remove(ids ...string) (int, error) {
	var removed int
	err := c.mutate(func(list command.List) (command.List, error) {
		out, n := list.Remove(ids...)
		removed = n
		return out, nil
	})
	if err != nil {
		return 0, err
	}
	return removed, nil
}

// Duplicate copies an existing command under a new id and suffixed name.
func (c *Catalog) Duplicate(id string) (command.Command, error) {
	var dup command.Command
	err := c.mutate(func(list command.List) (command.List, error) {
		out, cmd, err := list.Duplicate(id)
		dup = cmd
		return out, err
	})
	return dup, err
}

// Replace swaps the whole list, as done by an import.
func (c *Catalog) Replace(cmds []command.Command) error {
	return c.mutate(func(command.List) (command.List, error) {
		out := command.List{}
		var err error
		for _, cmd := range cmds {
			if out, err = out.Add(cmd); err != nil {
				return nil, err
			}
		}
		return out, nil
	})
}

// Append adds every command to the end of the list, assigning fresh ids to
// entries whose id is already present.
func (c *Catalog) Append(cmds []command.Command) error {
	return c.mutate(func(list command.List) (command.List, error) {
		out := list
		var err error
		for _, cmd := range cmds {
			if out.Index(cmd.ID) >= 0 {
				cmd.ID = command.NewID()
			}
			if out, err = out.Add(cmd); err != nil {
				return nil, err
			}
		}
		return out, nil
	})
}

// Save persists the current list without modifying it.
func (c *Catalog) Save() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.store.Save(c.list.Clone())
}

func (c *Catalog) mutate(fn func(command.List) (command.List, error)) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	next, err := fn(c.list.Clone())
	if err != nil {
		return err
	}
	if err := c.store.Save(next.Clone()); err != nil {
		return err
	}
	c.list = next
	return nil
}
