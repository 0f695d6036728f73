package command

import (
	"encoding/json"
	"fmt"
	"reflect"
	"sync"
)

// registry maps command names to their Go types so queued JSON payloads can
// be decoded back into typed values.
type registry struct {
	mu    sync.RWMutex
	types map[string]reflect.Type
	names sync.Map // reflect.Type -> string
}

var commands = &registry{types: make(map[string]reflect.Type)}

// nameOf returns the struct name of t with pointers dereferenced.
func (r *registry) nameOf(t reflect.Type) string {
	if t == nil {
		return "<nil>"
	}
	if name, ok := r.names.Load(t); ok {
		return name.(string)
	}

	base := t
	for base.Kind() == reflect.Pointer {
		base = base.Elem()
	}
	name := base.Name()
	if name == "" {
		name = base.String()
	}

	r.names.Store(t, name)
	return name
}

func (r *registry) add(t reflect.Type) string {
	name := r.nameOf(t)
	r.mu.Lock()
	r.types[name] = t
	r.mu.Unlock()
	return name
}

func (r *registry) decode(name string, data []byte) (any, error) {
	r.mu.RLock()
	t, ok := r.types[name]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("command type not registered: %s", name)
	}

	ptr := reflect.New(t)
	if err := json.Unmarshal(data, ptr.Interface()); err != nil {
		return nil, fmt.Errorf("decode command %s: %w", name, err)
	}
	return ptr.Elem().Interface(), nil
}

// UnmarshalCommand decodes JSON into a new value of the type registered
// under name by NewHandlerFunc.
func UnmarshalCommand(name string, data []byte) (any, error) {
	return commands.decode(name, data)
}

// GetCommandName returns the name cmd is dispatched under.
func GetCommandName(cmd any) string {
	return commands.nameOf(reflect.TypeOf(cmd))
}
