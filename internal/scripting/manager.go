package scripting

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	lua "github.com/yuin/gopher-lua"
	"go.uber.org/zap"

	"github.com/cory-johannsen/crawl/internal/game/dice"
)

// ErrNoFunction is returned by Call when the named global is not a Lua function.
var ErrNoFunction = errors.New("scripting: function not defined")

// ActorInfo is the snapshot of an actor passed to Lua as a table.
type ActorInfo struct {
	ID      uint64
	Name    string
	HP      int
	MaxHP   int
	Mana    int
	MaxMana int
	X       int
	Y       int
}

// Manager owns one sandboxed VM holding every loaded script.
//
// All methods are safe for concurrent use; calls into the VM are serialized.
type Manager struct {
	mu     sync.Mutex
	L      *lua.LState
	limit  int
	roller *dice.Roller
	logger *zap.Logger

	// Injected after construction. nil leaves the engine.* function a no-op.
	Heal        func(id uint64, amount int) int
	RestoreMana func(id uint64, amount int) int
	Damage      func(id uint64, amount int) int
	Message     func(text, severity string)
}

// NewManager returns a Manager with an empty VM.
//
// Precondition: roller must not be nil. instLimit <= 0 uses DefaultInstructionLimit.
func NewManager(roller *dice.Roller, logger *zap.Logger, instLimit int) *Manager {
	if roller == nil {
		panic("scripting.NewManager: roller must not be nil")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if instLimit <= 0 {
		instLimit = DefaultInstructionLimit
	}
	m := &Manager{limit: instLimit, roller: roller, logger: logger}
	m.L = m.newState()
	return m
}

func (m *Manager) newState() *lua.LState {
	L := NewSandboxedState()
	m.RegisterModules(L)
	return L
}

// LoadDir replaces the VM with a fresh one and runs every *.lua file in dir in
// lexicographic order.
//
// Postcondition: on error the previous VM is kept.
func (m *Manager) LoadDir(dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("scripting.Manager.LoadDir: reading %q: %w", dir, err)
	}
	var files []string
	for _, e := range entries {
		if !e.IsDir() && filepath.Ext(e.Name()) == ".lua" {
			files = append(files, filepath.Join(dir, e.Name()))
		}
	}
	sort.Strings(files)

	L := m.newState()
	for _, path := range files {
		if err := m.run(L, func() error { return L.DoFile(path) }); err != nil {
			L.Close()
			return fmt.Errorf("scripting.Manager.LoadDir: loading %q: %w", path, err)
		}
	}

	m.mu.Lock()
	old := m.L
	m.L = L
	m.mu.Unlock()
	old.Close()
	m.logger.Debug("scripts loaded", zap.String("dir", dir), zap.Int("files", len(files)))
	return nil
}

// LoadString runs src in the current VM.
func (m *Manager) LoadString(name, src string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.run(m.L, func() error { return m.L.DoString(src) }); err != nil {
		return fmt.Errorf("scripting.Manager.LoadString: %s: %w", name, err)
	}
	return nil
}

// Has reports whether fn is a global Lua function.
func (m *Manager) Has(fn string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.L.GetGlobal(fn).(*lua.LFunction)
	return ok
}

// Call invokes the global function fn with args under the opcode budget and
// returns its first result.
//
// Postcondition: Lua runtime errors, budget exhaustion and ctx cancellation
// are returned as errors; ErrNoFunction when fn is undefined.
func (m *Manager) Call(ctx context.Context, fn string, args ...lua.LValue) (lua.LValue, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	f, ok := m.L.GetGlobal(fn).(*lua.LFunction)
	if !ok {
		return lua.LNil, fmt.Errorf("%w: %s", ErrNoFunction, fn)
	}
	callCtx, cancel := withBudget(ctx, m.limit)
	defer cancel()
	m.L.SetContext(callCtx)
	defer m.L.RemoveContext()

	if err := m.L.CallByParam(lua.P{Fn: f, NRet: 1, Protect: true}, args...); err != nil {
		m.logger.Debug("scripting: Lua runtime error", zap.String("fn", fn), zap.Error(err))
		return lua.LNil, err
	}
	ret := m.L.Get(-1)
	m.L.Pop(1)
	return ret, nil
}

// ActorTable builds the Lua table view of info.
func (m *Manager) ActorTable(info ActorInfo) *lua.LTable {
	m.mu.Lock()
	defer m.mu.Unlock()
	t := m.L.NewTable()
	t.RawSetString("id", lua.LNumber(info.ID))
	t.RawSetString("name", lua.LString(info.Name))
	t.RawSetString("hp", lua.LNumber(info.HP))
	t.RawSetString("max_hp", lua.LNumber(info.MaxHP))
	t.RawSetString("mana", lua.LNumber(info.Mana))
	t.RawSetString("max_mana", lua.LNumber(info.MaxMana))
	t.RawSetString("x", lua.LNumber(info.X))
	t.RawSetString("y", lua.LNumber(info.Y))
	return t
}

// Close releases the VM.
func (m *Manager) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.L.Close()
}

// run executes fn, a script load, under the larger of the call budget and DefaultInstructionLimit.
func (m *Manager) run(L *lua.LState, fn func() error) error {
	ctx, cancel := withBudget(context.Background(), max(m.limit, DefaultInstructionLimit))
	defer cancel()
	L.SetContext(ctx)
	defer L.RemoveContext()
	return fn()
}
