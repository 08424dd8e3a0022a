package scripting

import lua "github.com/yuin/gopher-lua"

// RegisterModules defines the engine global in L:
//
//	engine.heal(id, amount) -> restored
//	engine.restore_mana(id, amount) -> restored
//	engine.damage(id, amount) -> dealt
//	engine.message(text [, severity])
//	engine.roll(expr) -> total
//
// Precondition: L must come from NewSandboxedState.
func (m *Manager) RegisterModules(L *lua.LState) {
	engine := L.NewTable()
	L.SetFuncs(engine, map[string]lua.LGFunction{
		"heal":         m.amountFunc(func() func(uint64, int) int { return m.Heal }),
		"restore_mana": m.amountFunc(func() func(uint64, int) int { return m.RestoreMana }),
		"damage":       m.amountFunc(func() func(uint64, int) int { return m.Damage }),
		"message":      m.luaMessage,
		"roll":         m.luaRoll,
	})
	L.SetGlobal("engine", engine)
}

// amountFunc adapts an (id, amount) callback. get is read at call time so
// callbacks injected after RegisterModules are honoured.
func (m *Manager) amountFunc(get func() func(uint64, int) int) lua.LGFunction {
	return func(L *lua.LState) int {
		id := uint64(L.CheckNumber(1))
		amount := L.CheckInt(2)
		fn := get()
		if fn == nil {
			L.Push(lua.LNumber(0))
			return 1
		}
		L.Push(lua.LNumber(fn(id, amount)))
		return 1
	}
}

func (m *Manager) luaMessage(L *lua.LState) int {
	text := L.CheckString(1)
	severity := L.OptString(2, "magic")
	if m.Message != nil {
		m.Message(text, severity)
	}
	return 0
}

func (m *Manager) luaRoll(L *lua.LState) int {
	res, err := m.roller.RollExpr(L.CheckString(1))
	if err != nil {
		L.RaiseError("%s", err.Error())
		return 0
	}
	L.Push(lua.LNumber(res.Total()))
	return 1
}
