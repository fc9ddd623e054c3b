package script

import (
	"context"
	"errors"
	"fmt"
	"sync"

	lua "github.com/yuin/gopher-lua"
)

// ErrLuaRunnerClosed is returned when using a closed LuaRunner.
var ErrLuaRunnerClosed = errors.New("lua runner is closed")

// luaCall is one script run marshalled onto the interpreter goroutine.
type luaCall struct {
	path       string
	args       []string
	sourceText string
	ctx        context.Context
	result     chan luaResult
}

type luaResult struct {
	out string
	err error
}

// LuaRunner runs Lua scripts serialized on one worker goroutine.
//
// gopher-lua's LState is not goroutine-safe, so all runs go through a
// queue consumed by the single goroutine that owns the interpreter.
type LuaRunner struct {
	queue chan *luaCall
	done  chan struct{}

	closeOnce sync.Once
}

// NewLuaRunner creates a runner and starts its interpreter goroutine.
func NewLuaRunner() *LuaRunner {
	r := &LuaRunner{
		queue: make(chan *luaCall, 16),
		done:  make(chan struct{}),
	}
	go r.loop()
	return r
}

// Close shuts the interpreter down. In-flight runs complete first.
func (r *LuaRunner) Close() {
	r.closeOnce.Do(func() { close(r.done) })
}

// RunFile executes the script file and returns its textual result: the
// script's return value when it returns a string, otherwise empty.
func (r *LuaRunner) RunFile(ctx context.Context, path string, args []string, sourceText string) (string, error) {
	call := &luaCall{
		path:       path,
		args:       args,
		sourceText: sourceText,
		ctx:        ctx,
		result:     make(chan luaResult, 1),
	}

	select {
	case r.queue <- call:
	case <-r.done:
		return "", ErrLuaRunnerClosed
	case <-ctx.Done():
		return "", ctx.Err()
	}

	select {
	case res := <-call.result:
		return res.out, res.err
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

// loop owns the Lua state. A fresh state is built per run so one script
// cannot leak globals into the next.
func (r *LuaRunner) loop() {
	for {
		select {
		case <-r.done:
			return
		case call := <-r.queue:
			out, err := r.execute(call)
			call.result <- luaResult{out: out, err: err}
		}
	}
}

// execute runs one script with panic recovery.
func (r *LuaRunner) execute(call *luaCall) (out string, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("lua panic: %v", rec)
		}
	}()

	L := lua.NewState()
	defer L.Close()
	L.SetContext(call.ctx)
	sandbox(L)

	// Scripts see their invocation through a read-only-by-convention
	// "input" table: input.source_text and input.args.
	input := L.NewTable()
	input.RawSetString("source_text", lua.LString(call.sourceText))
	argsTable := L.NewTable()
	for _, a := range call.args {
		argsTable.Append(lua.LString(a))
	}
	input.RawSetString("args", argsTable)
	L.SetGlobal("input", input)

	top := L.GetTop()
	if err := L.DoFile(call.path); err != nil {
		return "", err
	}

	if L.GetTop() > top {
		ret := L.Get(-1)
		if s, ok := ret.(lua.LString); ok {
			return string(s), nil
		}
	}
	return "", nil
}

// sandbox removes the load-from-anywhere escape hatches before a script
// runs. Scripts keep the standard library otherwise.
func sandbox(L *lua.LState) {
	for _, name := range []string{"dofile", "loadfile", "load", "loadstring"} {
		L.SetGlobal(name, lua.LNil)
	}
}
