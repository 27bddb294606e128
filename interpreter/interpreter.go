package interpreter

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	wasmit "github.com/wippyai/wasm-interface-types"
	"github.com/wippyai/wasm-interface-types/itypes"
)

// Runtime is the per-invocation state instructions operate on.
type Runtime struct {
	Instance wasmit.Instance
	Stack    *Stack[itypes.IValue]
	Inputs   []itypes.IValue
}

// executable is a compiled instruction.
type executable func(ctx context.Context, rt *Runtime) error

// Interpreter holds a compiled adapter. It is immutable and may be shared
// across goroutines; every run gets its own Runtime.
type Interpreter struct {
	instructions []Instruction
	executables  []executable
}

// New compiles instructions into an interpreter.
func New(instructions []Instruction) (*Interpreter, error) {
	execs := make([]executable, len(instructions))
	for i, instr := range instructions {
		exec, err := compile(instr)
		if err != nil {
			return nil, fmt.Errorf("instruction %d: %w", i, err)
		}
		execs[i] = exec
	}
	return &Interpreter{
		instructions: append([]Instruction(nil), instructions...),
		executables:  execs,
	}, nil
}

// Instructions returns the adapter's instructions.
func (in *Interpreter) Instructions() []Instruction {
	return append([]Instruction(nil), in.instructions...)
}

// Run executes every instruction in order against inst and returns the
// final stack. The first failing instruction aborts the run; its error is
// an *InstructionError and the stack is discarded.
func (in *Interpreter) Run(ctx context.Context, inputs []itypes.IValue, inst wasmit.Instance) (*Stack[itypes.IValue], error) {
	exec := in.Start(ctx, inputs, inst)
	for {
		done, err := exec.Step()
		if err != nil {
			return nil, err
		}
		if done {
			return exec.rt.Stack, nil
		}
	}
}

// Start prepares a step-wise execution. Nothing runs until Step is called.
func (in *Interpreter) Start(ctx context.Context, inputs []itypes.IValue, inst wasmit.Instance) *Execution {
	return &Execution{
		interp: in,
		ctx:    ctx,
		rt: &Runtime{
			Inputs:   inputs,
			Stack:    NewStack[itypes.IValue](),
			Instance: inst,
		},
	}
}

// Execution is one in-progress run of an Interpreter.
type Execution struct {
	ctx    context.Context
	err    error
	interp *Interpreter
	rt     *Runtime
	pc     int
}

// Step executes the next instruction. It returns done once every
// instruction ran or one failed; further calls repeat the final result.
func (e *Execution) Step() (bool, error) {
	if e.err != nil {
		return true, e.err
	}
	if e.pc >= len(e.interp.executables) {
		return true, nil
	}

	instr := e.interp.instructions[e.pc]
	if err := e.ctx.Err(); err != nil {
		e.err = instrError(instr, Canceled{Cause: err})
		return true, e.err
	}

	if ce := Logger().Check(zap.DebugLevel, "executing instruction"); ce != nil {
		ce.Write(
			zap.Int("pc", e.pc),
			zap.Stringer("instruction", instr),
			zap.Int("stack", e.rt.Stack.Len()),
		)
	}

	if err := e.interp.executables[e.pc](e.ctx, e.rt); err != nil {
		e.err = instrError(instr, err)
		Logger().Debug("instruction failed", zap.Stringer("instruction", instr), zap.Error(err))
		return true, e.err
	}
	e.pc++
	return e.pc >= len(e.interp.executables), nil
}

// PC returns the index of the next instruction to run.
func (e *Execution) PC() int { return e.pc }

// Next returns the instruction Step will run, if any.
func (e *Execution) Next() (Instruction, bool) {
	if e.err != nil || e.pc >= len(e.interp.instructions) {
		return Instruction{}, false
	}
	return e.interp.instructions[e.pc], true
}

// Err returns the error that stopped the execution, if any.
func (e *Execution) Err() error { return e.err }

// Stack returns a copy of the current stack, bottom first.
func (e *Execution) Stack() []itypes.IValue { return e.rt.Stack.Values() }
